package main

import (
	"fmt"
	"text/tabwriter"

	"homestay-booking/internal/models"
	"homestay-booking/internal/pricing"

	"github.com/spf13/cobra"
)

func pricesFromConfig(path string) (*pricing.Table, error) {
	if path != "" {
		return pricing.LoadTable(path)
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return pricing.LoadTable(cfg.PricingFile)
}

func quoteCmd() *cobra.Command {
	var members int
	var checkIn string
	var checkOut string
	var pricingFile string

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Suggest a room and price a stay",
		RunE: func(cmd *cobra.Command, args []string) error {
			if checkIn == "" || checkOut == "" {
				return fmt.Errorf("--check-in and --check-out are required")
			}
			in, err := models.ParseDate(checkIn)
			if err != nil {
				return err
			}
			out, err := models.ParseDate(checkOut)
			if err != nil {
				return err
			}

			prices, err := pricesFromConfig(pricingFile)
			if err != nil {
				return err
			}
			quote, err := prices.Quote(members, in, out)
			if err != nil {
				return err
			}

			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), quote)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d night(s) x ₹%d = ₹%d\n", quote.Tier, quote.Nights, quote.PricePerDay, quote.TotalAmount)
			return nil
		},
	}

	cmd.Flags().IntVar(&members, "members", 0, "Number of guests")
	cmd.Flags().StringVar(&checkIn, "check-in", "", "Check-in date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&checkOut, "check-out", "", "Check-out date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&pricingFile, "pricing", "", "Pricing YAML (defaults to PRICING_FILE)")
	return cmd
}

func tiersCmd() *cobra.Command {
	var pricingFile string

	cmd := &cobra.Command{
		Use:   "tiers",
		Short: "List room tiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			prices, err := pricesFromConfig(pricingFile)
			if err != nil {
				return err
			}
			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), prices.Tiers)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIER\tCAPACITY\tPRICE/DAY")
			for _, t := range prices.Tiers {
				fmt.Fprintf(w, "%s\t%d\t₹%d\n", t.Name, t.Capacity, t.PricePerDay)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&pricingFile, "pricing", "", "Pricing YAML (defaults to PRICING_FILE)")
	return cmd
}
