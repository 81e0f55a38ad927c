package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "gembidwatch",
		Short: "Keyword watcher for GeM procurement bids",
		Long: `gembidwatch searches the GeM portal for configured keywords, scores and
filters the results, and reports newly published bids by email and Telegram.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"configs/config.yaml",
		"path to the YAML configuration file",
	)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gembidwatch version %s\n", version)
		},
	})

	rootCmd.AddCommand(newScanCommand())
	rootCmd.AddCommand(newWatchCommand())
}
