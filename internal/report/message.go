package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Alias1177/TrendScreener/internal/analyze"
	"github.com/Alias1177/TrendScreener/internal/screener"
)

// Subject is the notification subject for an artifact name
func Subject(name string) string {
	return "Trend report " + name
}

// ComposeBody renders the subject line, the four bucket sections in fixed
// order and, when any symbol failed, a Failed section with the reasons
func ComposeBody(subject string, result *screener.Result) string {
	var sb strings.Builder
	sb.WriteString(subject)
	sb.WriteString("\n")

	for _, b := range analyze.Buckets {
		sb.WriteString("\n")
		sb.WriteString(sectionTitle(b, result))
		sb.WriteString(":\n")
		symbols := result.Symbols(b)
		if len(symbols) == 0 {
			sb.WriteString("(none)\n")
			continue
		}
		for _, s := range symbols {
			sb.WriteString(s)
			sb.WriteString("\n")
		}
	}

	if len(result.Failures) > 0 {
		sb.WriteString("\nFailed:\n")
		for _, f := range result.Failures {
			fmt.Fprintf(&sb, "%s: %s\n", f.Symbol, f.Reason)
		}
	}

	return sb.String()
}

func sectionTitle(b analyze.Bucket, result *screener.Result) string {
	ref := result.ReferenceKey
	high := strconv.FormatFloat(result.Band.HighPercent, 'f', -1, 64)
	low := strconv.FormatFloat(result.Band.LowPercent, 'f', -1, 64)

	switch b {
	case analyze.AboveNoCross:
		return fmt.Sprintf("AboveNoCross (above %s within %s%%, no cross)", ref, high)
	case analyze.BelowNoCross:
		return fmt.Sprintf("BelowNoCross (below %s within %s%%, no cross)", ref, low)
	case analyze.AboveCrossed:
		return fmt.Sprintf("AboveCrossed (just crossed above %s, within %s%%)", ref, high)
	case analyze.BelowCrossed:
		return fmt.Sprintf("BelowCrossed (just crossed below %s, within %s%%)", ref, low)
	default:
		return b.String()
	}
}
