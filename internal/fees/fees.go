// Package fees loads the merchant fee reference table and resolves a fee
// rate for a merchant name. The table is consulted for report enrichment
// and category heuristics only; the core discount algorithm never needs it.
package fees

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"card-profitability-service/pkg/errors"
)

// overallAverageKey is the industry benchmark entry used as the final
// fallback rate.
const overallAverageKey = "overall"

// Category holds the fee data for one merchant category.
type Category struct {
	BaseRate      decimal.Decimal            `json:"baseRate"`
	MerchantTypes map[string]decimal.Decimal `json:"merchantTypes"`
}

// Benchmarks holds industry-wide reference rates.
type Benchmarks struct {
	AverageRates map[string]decimal.Decimal `json:"averageRates"`
}

// Table mirrors the merchant fee interchange file.
type Table struct {
	Categories         map[string]Category `json:"categories"`
	IndustryBenchmarks Benchmarks          `json:"industryBenchmarks"`
}

// categoryKeywords places a merchant in a category when no explicit
// merchantTypes entry matches. Ordered so lookups are deterministic for
// merchants matching keywords of more than one category.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"cafe", []string{"starbucks", "twosome", "ediya", "mega coffee", "coffee", "cafe"}},
	{"convenience_store", []string{"cu ", "gs25", "7-eleven", "emart24", "ministop"}},
	{"fast_food", []string{"mcdonald", "burger king", "lotteria", "kfc", "moms touch"}},
	{"hypermarket", []string{"emart", "homeplus", "lotte mart", "costco"}},
	{"online_shopping", []string{"coupang", "11st", "gmarket", "auction", "naver shopping"}},
}

// Load reads the merchant fee table. The table path is required
// configuration, so any failure here is terminal.
func Load(path string) (*Table, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		return nil, errors.FileError(errors.CodeFileUnreadable, path, err)
	}

	var table Table
	if err := json.Unmarshal(content, &table); err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, path, err)
	}

	return &table, nil
}

// LookupRate resolves the fee rate for a merchant name in three stages:
// exact merchant type match, partial (bidirectional substring) merchant type
// match, then category keyword match on the category base rate. When nothing
// matches, the overall industry average applies.
func (t *Table) LookupRate(merchantName string) decimal.Decimal {
	// Stage 1: exact merchant type match.
	for _, category := range t.Categories {
		if rate, ok := category.MerchantTypes[merchantName]; ok {
			return rate
		}
	}

	// Stage 2: partial merchant type match.
	for _, category := range t.Categories {
		for merchantType, rate := range category.MerchantTypes {
			if strings.Contains(merchantName, merchantType) || strings.Contains(merchantType, merchantName) {
				return rate
			}
		}
	}

	// Stage 3: category keyword match.
	lowered := strings.ToLower(merchantName)
	for _, entry := range categoryKeywords {
		for _, keyword := range entry.keywords {
			if !strings.Contains(lowered, keyword) {
				continue
			}
			if category, ok := t.Categories[entry.category]; ok && category.BaseRate.IsPositive() {
				return category.BaseRate
			}
			return t.OverallAverage()
		}
	}

	return t.OverallAverage()
}

// OverallAverage returns the industry-wide average rate, or zero when the
// benchmark table does not carry one.
func (t *Table) OverallAverage() decimal.Decimal {
	return t.IndustryBenchmarks.AverageRates[overallAverageKey]
}
