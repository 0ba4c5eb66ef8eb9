package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/Alias1177/TrendScreener/models"
)

// WriteCSV encodes the table with a header row
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// ArtifactName is the DD-MM-YYYY date of the run in the exchange timezone
func ArtifactName(runAt time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return runAt.In(loc).Format(models.ReportDateLayout)
}
