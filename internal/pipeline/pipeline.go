// One end-to-end run: load the ledger, crawl every keyword, score and
// filter what came back, persist the newly accepted bids, write the
// workbook and send it out.

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"

	"gembidwatch/internal/config"
	"gembidwatch/internal/dedup"
	"gembidwatch/internal/filter"
	"gembidwatch/internal/keyword"
	"gembidwatch/internal/notify"
	"gembidwatch/internal/orchestrator"
	"gembidwatch/internal/report"
	"gembidwatch/internal/scorer"
	"gembidwatch/internal/scraper"
)

// Options are the per-run switches from the command line.
type Options struct {
	Debug       bool
	DebugSample int
	DryRun      bool
}

// KeywordStat summarizes one keyword's funnel for the run summary.
type KeywordStat struct {
	Keyword  string
	Fetched  int
	Accepted int
	TopScore float64
}

type Result struct {
	Stats      []KeywordStat
	Accepted   int
	ReportPath string
	DebugPath  string
}

type Pipeline struct {
	cfg       *config.Config
	keywords  []keyword.Keyword
	ledger    *dedup.Ledger
	crawler   *orchestrator.Orchestrator
	scorer    *scorer.Scorer
	notifiers []notify.Notifier
	log       *logrus.Logger
}

func New(cfg *config.Config, keywords []keyword.Keyword, searcher scraper.Searcher,
	ledger *dedup.Ledger, notifiers []notify.Notifier, log *logrus.Logger) (*Pipeline, error) {

	sc, err := scorer.New(cfg.FuzzyWeight, cfg.DepartmentWeights)
	if err != nil {
		return nil, err
	}

	crawler := orchestrator.New(searcher, orchestrator.Config{
		Workers:       cfg.MaxWorkers,
		RetryAttempts: cfg.RetryAttempts,
		RetryBackoff:  time.Duration(cfg.RetryBackoffSeconds) * time.Second,
	}, log)

	return &Pipeline{
		cfg:       cfg,
		keywords:  keywords,
		ledger:    ledger,
		crawler:   crawler,
		scorer:    sc,
		notifiers: notifiers,
		log:       log,
	}, nil
}

// notifiedView joins the persisted ledger with the bids accepted
// earlier in the same run, so a bid matching two keywords is only
// reported under the first.
type notifiedView struct {
	ledger *dedup.Ledger
	staged mapset.Set[string]
}

func (v notifiedView) Contains(bidNo string) bool {
	return v.staged.Contains(bidNo) || v.ledger.Contains(bidNo)
}

// Run executes one full crawl. The ledger and report failures are
// fatal; notification failures are logged and swallowed so one dead
// channel cannot lose a run's results.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	runDate := time.Now()
	if opts.DebugSample <= 0 {
		opts.DebugSample = 20
	}

	if err := p.ledger.Load(); err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	p.log.WithField("keywords", len(p.keywords)).Info("Starting crawl")

	raw := p.crawler.Run(ctx, p.keywords)

	staged := mapset.NewSet[string]()
	chain := filter.NewChain(notifiedView{ledger: p.ledger, staged: staged}, filter.Thresholds{
		DefaultSingle: p.cfg.Thresholds.DefaultSingle,
		DefaultMulti:  p.cfg.Thresholds.DefaultMulti,
		PerKeyword:    p.cfg.Thresholds.PerKeyword,
	})

	res := &Result{}
	var rows []report.Row
	var entries []dedup.Entry
	var debugRows []report.DebugRow

	for _, kw := range p.keywords {
		bids := raw[kw.Text]

		scored := make([]scorer.ScoredBid, 0, len(bids))
		for _, bid := range bids {
			scored = append(scored, p.scorer.Score(bid, kw))
		}
		scorer.SortDesc(scored)

		if opts.Debug {
			for _, sb := range scored[:min(opts.DebugSample, len(scored))] {
				debugRows = append(debugRows, report.DebugRow{
					Keyword: kw.Text,
					BidNo:   sb.Bid.BidNo,
					Score:   sb.Total,
				})
			}
		}

		accepted := 0
		for _, sb := range scored {
			d := chain.Evaluate(sb)
			if !d.Accepted {
				p.log.WithFields(logrus.Fields{
					"keyword": kw.Text,
					"bid_no":  sb.Bid.BidNo,
					"reason":  string(d.Reason),
				}).Debug("Bid rejected")
				continue
			}
			rows = append(rows, report.FromScored(sb))
			entries = append(entries, dedup.Entry{BidNo: sb.Bid.BidNo, EndDate: sb.Bid.EndDate})
			staged.Add(sb.Bid.BidNo)
			accepted++
		}

		top := 0.0
		if len(scored) > 0 {
			top = scored[0].Total
		}
		p.log.WithFields(logrus.Fields{
			"keyword":   kw.Text,
			"fetched":   len(bids),
			"accepted":  accepted,
			"top_score": fmt.Sprintf("%.1f", top),
		}).Info("Keyword filtered")

		res.Stats = append(res.Stats, KeywordStat{
			Keyword:  kw.Text,
			Fetched:  len(bids),
			Accepted: accepted,
			TopScore: top,
		})
	}
	res.Accepted = len(rows)

	if opts.Debug && len(debugRows) > 0 {
		if err := os.MkdirAll(p.cfg.ReportsDir, 0o755); err != nil {
			p.log.WithError(err).Warn("Could not create reports directory for debug dump")
		} else {
			path := filepath.Join(p.cfg.ReportsDir, report.DebugFileName(runDate))
			if err := report.WriteDebugCSV(path, debugRows); err != nil {
				p.log.WithError(err).Warn("Could not write debug dump")
			} else {
				res.DebugPath = path
			}
		}
	}

	if len(rows) == 0 {
		p.log.Info("No new bids.")
		return res, nil
	}

	if opts.DryRun {
		p.log.WithField("accepted", len(rows)).Info("Dry run, skipping ledger update, report and notifications")
		return res, nil
	}

	if err := p.ledger.Append(entries); err != nil {
		return nil, fmt.Errorf("append ledger: %w", err)
	}

	reportPath, err := report.WriteWorkbook(p.cfg.ReportsDir, runDate, rows)
	if err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	res.ReportPath = reportPath
	p.log.WithFields(logrus.Fields{
		"report": reportPath,
		"bids":   len(rows),
	}).Info("Report written")

	subject := fmt.Sprintf("GeM Bid Results %s", runDate.Format("2006-01-02"))
	body := fmt.Sprintf("Found %d new bids across %d keywords. See the attached report.", len(rows), len(p.keywords))
	for _, n := range p.notifiers {
		if err := n.Notify(subject, body, reportPath); err != nil {
			p.log.WithError(err).WithField("channel", n.Name()).Warn("Notification failed")
		}
	}

	return res, nil
}
