// Package pricing - Rate card files
package pricing

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/shopspring/decimal"

	"pipeline-cost/core/types"
)

// rateCardFile is the HCL schema of a rate card override:
//
//	currency = "USD"
//	unit "DIUHours" {
//	  azure_ir = 0.25
//	  default  = 0.10
//	}
type rateCardFile struct {
	Currency string      `hcl:"currency,optional"`
	Units    []unitBlock `hcl:"unit,block"`
}

type unitBlock struct {
	Name    string  `hcl:"name,label"`
	AzureIR float64 `hcl:"azure_ir"`
	Default float64 `hcl:"default"`
}

// LoadRateCard reads an HCL rate card file. Units in the file replace the
// built-in tiers of the same name; other built-in tiers are kept.
func LoadRateCard(path string) (*RateCard, error) {
	var file rateCardFile
	if err := hclsimple.DecodeFile(path, nil, &file); err != nil {
		return nil, fmt.Errorf("failed to decode rate card %s: %w", path, err)
	}
	return file.build()
}

// ParseRateCard decodes rate card source. The filename must end in .hcl
// and is used in diagnostics.
func ParseRateCard(filename string, src []byte) (*RateCard, error) {
	var file rateCardFile
	if err := hclsimple.Decode(filename, src, nil, &file); err != nil {
		return nil, fmt.Errorf("failed to decode rate card %s: %w", filename, err)
	}
	return file.build()
}

func (f rateCardFile) build() (*RateCard, error) {
	tiers := DefaultTiers()
	seen := make(map[string]bool, len(f.Units))
	for _, u := range f.Units {
		if u.Name == "" {
			return nil, fmt.Errorf("rate card unit block has an empty name")
		}
		if seen[u.Name] {
			return nil, fmt.Errorf("rate card defines unit %q more than once", u.Name)
		}
		if u.AzureIR < 0 || u.Default < 0 {
			return nil, fmt.Errorf("rate card unit %q has a negative rate", u.Name)
		}
		seen[u.Name] = true
		tiers[u.Name] = Tier{
			AzureIR: decimal.NewFromFloat(u.AzureIR),
			Default: decimal.NewFromFloat(u.Default),
		}
	}
	return NewRateCard(types.Currency(f.Currency), tiers), nil
}
