package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"homestay-booking/internal/config"

	"github.com/spf13/cobra"
)

var (
	outputJSON bool
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:          "stayctl",
	Short:        "Operator tools for the homestay booking service",
	SilenceUsage: true,
}

func Execute() {
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(quoteCmd())
	rootCmd.AddCommand(tiersCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output JSON")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Environment file to load")
}

func loadConfig() (config.Config, error) {
	return config.Load(envFile)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
