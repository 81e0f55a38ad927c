package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"
)

// DebugRow is one line of the scoring diagnostic dump: the top scored
// bids per keyword before any filtering happened.
type DebugRow struct {
	Keyword string
	BidNo   string
	Score   float64
}

// DebugFileName is the per-day diagnostic dump name, debug_YYYYMMDD.csv.
func DebugFileName(runDate time.Time) string {
	return fmt.Sprintf("debug_%s.csv", runDate.Format("20060102"))
}

// WriteDebugCSV overwrites path with the given rows. Scores are
// rounded to two decimals; the dump is for eyeballing thresholds, not
// for machines.
func WriteDebugCSV(path string, rows []DebugRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create debug csv %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	_ = w.Write([]string{"keyword", "bid_no", "score"})
	for _, row := range rows {
		_ = w.Write([]string{row.Keyword, row.BidNo, fmt.Sprintf("%.2f", row.Score)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write debug csv %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close debug csv %s: %w", path, err)
	}
	return nil
}
