package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"gembidwatch/internal/config"
	"gembidwatch/internal/pipeline"
)

func newWatchCommand() *cobra.Command {
	var opts pipeline.Options

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run scans on the configured cron schedule",
		Long: `watch keeps the process alive and runs a full scan whenever the
watch_spec cron expression fires. Stop it with SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := newLogger(cfg.LogLevel)

			engine := cron.New()
			_, err = engine.AddFunc(cfg.WatchSpec, func() {
				log.Info("Scheduled scan starting")
				ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
				defer cancel()

				res, err := runScan(ctx, cfg, log, opts)
				if err != nil {
					log.Errorf("Scheduled scan failed: %v", err)
					return
				}
				renderSummary(res)
			})
			if err != nil {
				return fmt.Errorf("schedule %q: %w", cfg.WatchSpec, err)
			}

			engine.Start()
			log.Infof("Watching on schedule %q. Press Ctrl+C to stop.", cfg.WatchSpec)

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig

			log.Info("Stopping scheduler...")
			<-engine.Stop().Done()
			log.Info("Scheduler stopped.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Debug, "debug", false,
		"dump per-keyword score samples to a CSV in the reports directory")
	cmd.Flags().IntVar(&opts.DebugSample, "debug-sample", 0,
		"top-scored bids per keyword in the debug dump (default 20)")

	return cmd
}
