// The ledger of bids already sent out, persisted as a two-column CSV
// of bid number and end date. Loading prunes entries whose bid window
// has closed, so the file never grows without bound.

package dedup

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

var header = []string{"bid_no", "end_date"}

// Entry is one ledger row: a notified bid and the day its window closes.
type Entry struct {
	BidNo   string
	EndDate time.Time
}

type Ledger struct {
	mu   sync.Mutex
	path string
	log  *logrus.Logger
	ids  mapset.Set[string]
}

func NewLedger(path string, log *logrus.Logger) *Ledger {
	return &Ledger{
		path: path,
		log:  log,
		ids:  mapset.NewSet[string](),
	}
}

// Load reads the ledger, keeps the last entry per bid number, drops
// entries whose end date is before today (UTC) and rewrites the pruned
// file in place via a temp file and rename. A missing file is not an
// error; the rewrite creates it with just the header.
func (l *Ledger) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ids = mapset.NewSet[string]()

	var order []string
	latest := make(map[string]time.Time)

	f, err := os.Open(l.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("open ledger %s: %w", l.path, err)
	}
	if err == nil {
		r := csv.NewReader(f)
		r.FieldsPerRecord = -1
		rows, err := r.ReadAll()
		f.Close()
		if err != nil {
			return fmt.Errorf("read ledger %s: %w", l.path, err)
		}

		for i, row := range rows {
			if i == 0 && isHeader(row) {
				continue
			}
			if len(row) < 2 {
				l.log.WithField("row", row).Warn("Skipping malformed ledger row")
				continue
			}
			bidNo := strings.TrimSpace(row[0])
			end, err := time.Parse(dateLayout, strings.TrimSpace(row[1]))
			if bidNo == "" || err != nil {
				l.log.WithField("row", row).Warn("Skipping malformed ledger row")
				continue
			}
			if _, seen := latest[bidNo]; !seen {
				order = append(order, bidNo)
			}
			latest[bidNo] = end
		}
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	expired := 0
	kept := make([]Entry, 0, len(order))
	for _, bidNo := range order {
		end := latest[bidNo]
		if end.Before(today) {
			expired++
			continue
		}
		kept = append(kept, Entry{BidNo: bidNo, EndDate: end})
		l.ids.Add(bidNo)
	}

	//rewrite unconditionally so expired rows actually disappear
	if err := l.rewrite(kept); err != nil {
		return err
	}

	l.log.WithFields(logrus.Fields{
		"active":  len(kept),
		"expired": expired,
	}).Info("Ledger loaded")
	return nil
}

// Contains reports whether a bid number was already notified.
func (l *Ledger) Contains(bidNo string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ids.Contains(bidNo)
}

// Size is the number of active ledger entries.
func (l *Ledger) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ids.Cardinality()
}

// Append persists newly notified bids by appending rows, writing the
// header only when the file does not exist yet. It does not re-read
// the file; duplicate suppression within a run happens upstream.
func (l *Ledger) Append(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, statErr := os.Stat(l.path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger %s: %w", l.path, err)
	}

	w := csv.NewWriter(f)
	if writeHeader {
		_ = w.Write(header)
	}
	for _, e := range entries {
		_ = w.Write([]string{e.BidNo, e.EndDate.UTC().Format(dateLayout)})
		l.ids.Add(e.BidNo)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("append ledger %s: %w", l.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close ledger %s: %w", l.path, err)
	}
	return nil
}

func (l *Ledger) rewrite(entries []Entry) error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}

	w := csv.NewWriter(tmp)
	_ = w.Write(header)
	for _, e := range entries {
		_ = w.Write([]string{e.BidNo, e.EndDate.UTC().Format(dateLayout)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace ledger %s: %w", l.path, err)
	}
	return nil
}

func isHeader(row []string) bool {
	return len(row) >= 2 &&
		strings.EqualFold(strings.TrimSpace(row[0]), header[0]) &&
		strings.EqualFold(strings.TrimSpace(row[1]), header[1])
}
