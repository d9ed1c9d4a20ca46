// Package cmd - rates command
package cmd

import (
	"github.com/spf13/cobra"

	"pipeline-cost/core/pricing"
	"pipeline-cost/core/ui"
	"pipeline-cost/internal/config"
)

var ratesPath string

// ratesCmd prints the effective rate card
var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Show the rate card used to price billed durations",
	Long: `Print the hourly rate per billing unit and meter type.

Built-in rates follow the published Synapse pipeline prices. A rate card
file (--rates or pricing.rate_card_path) overrides individual units:

  currency = "USD"
  unit "DIUHours" {
    azure_ir = 0.25
    default  = 0.10
  }`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pc := config.Get().Pricing
		if ratesPath != "" {
			pc.RateCardPath = ratesPath
		}
		rates, err := loadRates(pc)
		if err != nil {
			return err
		}
		printRates(cmd, rates)
		return nil
	},
}

func init() {
	ratesCmd.Flags().StringVar(&ratesPath, "rates", "", "HCL rate card overriding built-in rates")
}

func printRates(cmd *cobra.Command, rates *pricing.RateCard) {
	w := ui.ForWriter(cmd.OutOrStdout())
	w.Println("Rate card (%s per billed hour)\n", rates.Currency())

	tbl := w.NewTable("UNIT", "AZURE IR", "OTHER METERS").AlignRight(1, 2)
	for _, unit := range rates.Units() {
		tier, _ := rates.Tier(unit)
		tbl.AddRow(unit, tier.AzureIR.String(), tier.Default.String())
	}
	tbl.Render()
	w.Println("\nUnits not listed are priced at zero.")
}
