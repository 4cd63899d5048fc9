package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:   "feedlens",
	Short: "Faceted query and clustering engine for customer feedback triage",
	Long: `feedlens filters a customer-feedback corpus by facets, groups the matches
into tagged clusters and turns natural-language requests into filters.

Run "feedlens serve" to expose the engine over gRPC and HTTP.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (defaults to $FEEDLENS_CONFIG)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(recomputeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
