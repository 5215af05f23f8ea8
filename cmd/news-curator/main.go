package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:   "news-curator",
	Short: "Maryland-focused cybersecurity, quantum and politics news curator",
	Long: "news-curator fetches articles from NewsAPI and outlet RSS feeds, classifies them " +
		"into Maryland and national categories, and serves or publishes the curated corpus.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "config.yaml", "path to config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(termsCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "news-curator %s (commit: %s)\n", version, commit)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
