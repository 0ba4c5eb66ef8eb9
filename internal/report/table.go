package report

import (
	"strconv"

	"github.com/Alias1177/TrendScreener/internal/screener"
)

// Table is the flat aggregate written by stores
type Table struct {
	Columns []string
	Rows    [][]string
}

const timestampLayout = "2006-01-02 15:04:05"

// BuildTable lays out one row per symbol. Undefined values are empty cells.
func BuildTable(result *screener.Result) Table {
	columns := []string{"symbol", "type", "datetime", "open", "high", "low", "close", "volume"}
	columns = append(columns, result.Indicators...)
	columns = append(columns, "label", "previous_label", "crossed", "bucket")

	t := Table{Columns: columns}
	for _, row := range result.Rows {
		cells := []string{
			row.Symbol,
			string(row.Type),
			row.Timestamp.Format(timestampLayout),
			formatPrice(row.Open),
			formatPrice(row.High),
			formatPrice(row.Low),
			formatPrice(row.Close),
			strconv.FormatInt(row.Volume, 10),
		}
		for _, key := range result.Indicators {
			cells = append(cells, row.Indicator(key).String())
		}

		bucket := ""
		if row.InBucket {
			bucket = row.Bucket.String()
		}
		cells = append(cells, labelCell(row.Label.String()), labelCell(row.PreviousLabel.String()), row.Crossing.String(), bucket)
		t.Rows = append(t.Rows, cells)
	}
	return t
}

// Records returns the header followed by the rows
func (t Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, t.Columns)
	return append(out, t.Rows...)
}

// Map returns row i keyed by column name
func (t Table) Map(i int) map[string]string {
	out := make(map[string]string, len(t.Columns))
	for j, col := range t.Columns {
		if j < len(t.Rows[i]) {
			out[col] = t.Rows[i][j]
		}
	}
	return out
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func labelCell(s string) string {
	if s == "Undefined" {
		return ""
	}
	return s
}
