package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gembidwatch/internal/browser"
	"gembidwatch/internal/config"
	"gembidwatch/internal/dedup"
	"gembidwatch/internal/keyword"
	"gembidwatch/internal/notify"
	"gembidwatch/internal/pipeline"
	"gembidwatch/internal/scraper/gem"
)

// scanTimeout bounds a single pass over all keywords.
const scanTimeout = 30 * time.Minute

func newScanCommand() *cobra.Command {
	var opts pipeline.Options

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one search pass over all configured keywords",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := newLogger(cfg.LogLevel)

			ctx, cancel := context.WithTimeout(cmd.Context(), scanTimeout)
			defer cancel()

			res, err := runScan(ctx, cfg, log, opts)
			if err != nil {
				return err
			}
			renderSummary(res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Debug, "debug", false,
		"dump per-keyword score samples to a CSV in the reports directory")
	cmd.Flags().IntVar(&opts.DebugSample, "debug-sample", 0,
		"top-scored bids per keyword in the debug dump (default 20)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false,
		"evaluate everything but write no ledger entry, report, or notification")

	return cmd
}

// runScan wires the browser, ledger, and notifiers together and runs one pass.
// The watch command reuses it for each scheduled tick.
func runScan(ctx context.Context, cfg *config.Config, log *logrus.Logger, opts pipeline.Options) (*pipeline.Result, error) {
	keywords, err := keyword.Load(cfg.KeywordsFile, cfg.Synonyms)
	if err != nil {
		return nil, fmt.Errorf("load keywords: %w", err)
	}
	log.Infof("Loaded %d keywords from %s", len(keywords), cfg.KeywordsFile)

	manager, err := browser.NewManager(cfg.Headless)
	if err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}
	defer manager.Close()

	notifiers, err := notify.FromConfig(cfg.Notify, log)
	if err != nil {
		return nil, fmt.Errorf("configure notifiers: %w", err)
	}

	ledger := dedup.NewLedger(cfg.LedgerFile, log)
	searcher := gem.New(cfg, manager, log)

	p, err := pipeline.New(cfg, keywords, searcher, ledger, notifiers, log)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, opts)
}

func renderSummary(res *pipeline.Result) {
	if len(res.Stats) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Keyword", "Fetched", "Accepted", "Top Score"})
	for _, st := range res.Stats {
		t.AppendRow(table.Row{st.Keyword, st.Fetched, st.Accepted, fmt.Sprintf("%.1f", st.TopScore)})
	}
	t.AppendFooter(table.Row{"Total", "", res.Accepted, ""})
	t.Render()
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		log.Warnf("Invalid log level %q, defaulting to info", level)
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	return log
}
