package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gembidwatch/internal/config"
	"gembidwatch/internal/dedup"
	"gembidwatch/internal/keyword"
	"gembidwatch/internal/notify"
	"gembidwatch/internal/scraper"
)

type fakeSearcher struct {
	bids map[string][]scraper.Bid
}

func (f *fakeSearcher) Name() string { return "fake" }

func (f *fakeSearcher) Search(_ context.Context, kw string) ([]scraper.Bid, error) {
	return f.bids[kw], nil
}

type recordingNotifier struct {
	fail        bool
	subjects    []string
	attachments [][]string
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Notify(subject, _ string, attachments ...string) error {
	if r.fail {
		return errors.New("channel down")
	}
	r.subjects = append(r.subjects, subject)
	r.attachments = append(r.attachments, attachments)
	return nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		BaseURL:             "https://bidplus.gem.gov.in",
		SearchURL:           "https://bidplus.gem.gov.in/all-bids",
		LedgerFile:          filepath.Join(dir, "sent_bids.csv"),
		ReportsDir:          filepath.Join(dir, "reports"),
		MaxWorkers:          2,
		RetryAttempts:       1,
		RetryBackoffSeconds: 1,
		FuzzyWeight:         1.0,
		DepartmentWeights:   map[string]float64{"defence": 15},
		Thresholds:          config.Thresholds{DefaultSingle: 120, DefaultMulti: 80},
	}
}

func mustKeyword(t *testing.T, text string, synonyms ...string) keyword.Keyword {
	t.Helper()
	kw, err := keyword.New(text, synonyms)
	require.NoError(t, err)
	return kw
}

func newTestPipeline(t *testing.T, cfg *config.Config, keywords []keyword.Keyword,
	searcher scraper.Searcher, notifiers ...notify.Notifier) (*Pipeline, *dedup.Ledger) {

	t.Helper()
	ledger := dedup.NewLedger(cfg.LedgerFile, testLogger())
	p, err := New(cfg, keywords, searcher, ledger, notifiers, testLogger())
	require.NoError(t, err)
	return p, ledger
}

func tonerBid(bidNo string) scraper.Bid {
	return scraper.Bid{
		BidNo:       bidNo,
		Items:       "Printer Toner Cartridge",
		Quantity:    "120",
		Department:  "Ministry of Defence",
		StartDate:   "25-08-2026",
		EndDate:     time.Now().UTC().AddDate(0, 0, 7),
		DocumentURL: "https://bidplus.gem.gov.in/showbidDocument/1",
	}
}

func TestRunAcceptsPersistsAndNotifies(t *testing.T) {
	cfg := testConfig(t)
	keywords := []keyword.Keyword{mustKeyword(t, "printer toner")}

	spares := tonerBid("GEM/2026/B/101")
	spares.Items = "Printer Toner spares"

	searcher := &fakeSearcher{bids: map[string][]scraper.Bid{
		"printer toner": {tonerBid("GEM/2026/B/100"), spares},
	}}
	rec := &recordingNotifier{}
	p, ledger := newTestPipeline(t, cfg, keywords, searcher, rec)

	res, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Accepted)
	require.Len(t, res.Stats, 1)
	assert.Equal(t, 2, res.Stats[0].Fetched)
	assert.Equal(t, 1, res.Stats[0].Accepted)
	assert.Greater(t, res.Stats[0].TopScore, 0.0)

	require.NotEmpty(t, res.ReportPath)
	_, err = os.Stat(res.ReportPath)
	require.NoError(t, err)

	assert.True(t, ledger.Contains("GEM/2026/B/100"))
	assert.False(t, ledger.Contains("GEM/2026/B/101"), "penalty-term bid must not reach the ledger")

	require.Len(t, rec.subjects, 1)
	require.Len(t, rec.attachments[0], 1)
	assert.Equal(t, res.ReportPath, rec.attachments[0][0])
}

func TestSecondRunIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	keywords := []keyword.Keyword{mustKeyword(t, "printer toner")}
	searcher := &fakeSearcher{bids: map[string][]scraper.Bid{
		"printer toner": {tonerBid("GEM/2026/B/100")},
	}}

	first, _ := newTestPipeline(t, cfg, keywords, searcher)
	res, err := first.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, 1, res.Accepted)

	second, _ := newTestPipeline(t, cfg, keywords, searcher)
	res, err = second.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Accepted, "an unchanged portal yields an empty second run")
	assert.Empty(t, res.ReportPath)
}

func TestBidMatchingTwoKeywordsReportedOnce(t *testing.T) {
	cfg := testConfig(t)
	keywords := []keyword.Keyword{
		mustKeyword(t, "printer toner"),
		mustKeyword(t, "toner cartridge"),
	}
	bid := tonerBid("GEM/2026/B/100")
	searcher := &fakeSearcher{bids: map[string][]scraper.Bid{
		"printer toner":   {bid},
		"toner cartridge": {bid},
	}}
	p, _ := newTestPipeline(t, cfg, keywords, searcher)

	res, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Accepted)

	data, err := os.ReadFile(cfg.LedgerFile)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "GEM/2026/B/100"), "one ledger row despite two keyword hits")
}

func TestNoNewBidsIsANoop(t *testing.T) {
	cfg := testConfig(t)
	keywords := []keyword.Keyword{mustKeyword(t, "printer toner")}
	searcher := &fakeSearcher{bids: map[string][]scraper.Bid{}}
	rec := &recordingNotifier{}
	p, _ := newTestPipeline(t, cfg, keywords, searcher, rec)

	res, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Accepted)
	assert.Empty(t, res.ReportPath)
	assert.Empty(t, rec.subjects, "nothing accepted, nothing sent")

	_, err = os.Stat(cfg.ReportsDir)
	assert.True(t, os.IsNotExist(err), "no report directory for an empty run")
}

func TestDryRunTouchesNothing(t *testing.T) {
	cfg := testConfig(t)
	keywords := []keyword.Keyword{mustKeyword(t, "printer toner")}
	searcher := &fakeSearcher{bids: map[string][]scraper.Bid{
		"printer toner": {tonerBid("GEM/2026/B/100")},
	}}
	rec := &recordingNotifier{}
	p, ledger := newTestPipeline(t, cfg, keywords, searcher, rec)

	res, err := p.Run(context.Background(), Options{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Accepted, "dry run still counts what it would accept")
	assert.Empty(t, res.ReportPath)
	assert.Empty(t, rec.subjects)
	assert.False(t, ledger.Contains("GEM/2026/B/100"))

	data, err := os.ReadFile(cfg.LedgerFile)
	require.NoError(t, err)
	assert.Equal(t, "bid_no,end_date\n", string(data), "ledger stays pruned-empty after a dry run")
}

func TestDebugDumpTopScores(t *testing.T) {
	cfg := testConfig(t)
	keywords := []keyword.Keyword{mustKeyword(t, "printer toner")}

	second := tonerBid("GEM/2026/B/101")
	second.Items = "Toner refill kit"
	searcher := &fakeSearcher{bids: map[string][]scraper.Bid{
		"printer toner": {tonerBid("GEM/2026/B/100"), second},
	}}
	p, _ := newTestPipeline(t, cfg, keywords, searcher)

	res, err := p.Run(context.Background(), Options{Debug: true, DebugSample: 1})
	require.NoError(t, err)

	require.NotEmpty(t, res.DebugPath)
	data, err := os.ReadFile(res.DebugPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2, "header plus the single sampled top bid")
	assert.Equal(t, "keyword,bid_no,score", lines[0])
	assert.Contains(t, lines[1], "GEM/2026/B/100", "the best scored bid is sampled first")
}

func TestReportRowsSortedByScore(t *testing.T) {
	cfg := testConfig(t)
	keywords := []keyword.Keyword{mustKeyword(t, "printer toner")}

	exact := tonerBid("GEM/2026/B/200")
	exact.Items = "printer toner"
	exact.Department = ""
	wordy := tonerBid("GEM/2026/B/201")
	wordy.Items = "printer toner cartridge with extra descriptive words"
	wordy.Department = ""

	searcher := &fakeSearcher{bids: map[string][]scraper.Bid{
		"printer toner": {wordy, exact},
	}}
	p, _ := newTestPipeline(t, cfg, keywords, searcher)

	res, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, 2, res.Accepted)

	f, err := excelize.OpenFile(res.ReportPath)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Bids")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "GEM/2026/B/200", rows[1][1], "the exact match scores highest and comes first")
	assert.Equal(t, "GEM/2026/B/201", rows[2][1])
}

func TestNotifierFailureDoesNotFailTheRun(t *testing.T) {
	cfg := testConfig(t)
	keywords := []keyword.Keyword{mustKeyword(t, "printer toner")}
	searcher := &fakeSearcher{bids: map[string][]scraper.Bid{
		"printer toner": {tonerBid("GEM/2026/B/100")},
	}}
	p, ledger := newTestPipeline(t, cfg, keywords, searcher, &recordingNotifier{fail: true})

	res, err := p.Run(context.Background(), Options{})
	require.NoError(t, err, "a dead channel must not fail the run")
	assert.Equal(t, 1, res.Accepted)
	assert.True(t, ledger.Contains("GEM/2026/B/100"))
}
