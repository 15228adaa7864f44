// Package reporter renders portfolio analysis results and persists audit
// traces.
//
// Supported output formats:
//   - Console: the analyst-facing text report
//   - JSON: structured output for programmatic consumption
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"card-profitability-service/internal/analyzer"
	"card-profitability-service/internal/fees"
	"card-profitability-service/internal/models"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
)

// IsValid checks if the output format is supported.
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON:
		return true
	default:
		return false
	}
}

// Config holds report generation options.
type Config struct {
	Format OutputFormat `json:"format"`

	// Thresholds drive the reference notes printed under the averages.
	Thresholds analyzer.Thresholds `json:"thresholds"`

	// FeeTable, when set, adds reference merchant fee rates to the card
	// information block.
	FeeTable *fees.Table `json:"-"`

	// Benefits supplies merchant lists for the fee reference block.
	Benefits map[string]*models.Benefit `json:"-"`

	// TraceDir, when set, is pointed to at the end of the console report.
	TraceDir string `json:"trace_dir,omitempty"`
}

// DefaultConfig returns a default report configuration.
func DefaultConfig() *Config {
	return &Config{
		Format:     FormatConsole,
		Thresholds: analyzer.DefaultThresholds(),
	}
}

// Validate validates the report configuration.
func (c *Config) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	return nil
}

// Generator renders portfolio summaries.
type Generator struct {
	config *Config
}

// NewGenerator creates a report generator.
func NewGenerator(config *Config) (*Generator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &Generator{config: config}, nil
}

// Generate writes the report for a portfolio summary to w.
func (g *Generator) Generate(summary *models.PortfolioSummary, w io.Writer) error {
	switch g.config.Format {
	case FormatJSON:
		return g.generateJSON(summary, w)
	default:
		return g.generateConsole(summary, w)
	}
}

func (g *Generator) generateJSON(summary *models.PortfolioSummary, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

const separator = "============================================================"

func (g *Generator) generateConsole(summary *models.PortfolioSummary, w io.Writer) error {
	var b strings.Builder

	b.WriteString("=== card profitability analysis ===\n")
	fmt.Fprintf(&b, "run id: %s\n", summary.RunID)
	fmt.Fprintf(&b, "generated at: %s\n", summary.GeneratedAt.Format(time.RFC3339))
	b.WriteString("\n")

	b.WriteString("card information\n")
	fmt.Fprintf(&b, "├─ product: %s\n", summary.ProductName)
	fmt.Fprintf(&b, "├─ annual fee: %s\n", summary.AnnualFee.StringFixed(0))
	fmt.Fprintf(&b, "├─ services: %d\n", summary.ServiceCount)
	fmt.Fprintf(&b, "└─ mapped services: %d\n", summary.MappedServiceCount)
	b.WriteString("\n")

	g.writeFeeReference(&b)

	b.WriteString(separator + "\n")
	b.WriteString("group cost ratio and benefit application results\n")
	b.WriteString(separator + "\n\n")

	for _, group := range summary.Groups {
		fmt.Fprintf(&b, "[ %s ]\n", group.GroupName)
		fmt.Fprintf(&b, "├─ processed customers: %d\n", group.ProcessedCustomers)
		fmt.Fprintf(&b, "├─ total sales: %s\n", group.TotalSales.StringFixed(0))
		fmt.Fprintf(&b, "├─ benefit cost: %s\n", group.TotalBenefitCost.StringFixed(0))
		fmt.Fprintf(&b, "├─ cost ratio: %.2f%%\n", group.OurCostRatio)
		fmt.Fprintf(&b, "└─ benefit application rate: %.2f%%\n", group.BenefitApplicationRate)
		b.WriteString("\n")
	}

	b.WriteString(separator + "\n")
	b.WriteString("portfolio averages\n")
	fmt.Fprintf(&b, "├─ average cost ratio: %.2f%%\n", summary.AverageCostRatio)
	fmt.Fprintf(&b, "└─ average benefit application rate: %.2f%%\n", summary.AverageBenefitRate)
	b.WriteString("\n")

	thresholds := g.config.Thresholds
	fmt.Fprintf(&b, "note: the worst group cost ratio is expected to stay within %.1f%% ~ %.1f%%.\n",
		thresholds.AvgCostRateMax, thresholds.GroupCostRateMax)
	fmt.Fprintf(&b, "note: the portfolio average cost ratio should hold the %.1f%% ~ %.1f%% band.\n",
		thresholds.AvgCostRateMin, thresholds.AvgCostRateMax)
	b.WriteString("note: a very low cost ratio also means weak benefits and weak usage incentive.\n")
	fmt.Fprintf(&b, "note: rebalance caps when capped benefits sum past %s per month.\n",
		thresholds.MonthlyLimitSumMax.StringFixed(0))

	for _, advisory := range summary.Advisories {
		fmt.Fprintf(&b, "advisory: %s\n", advisory)
	}

	if g.config.TraceDir != "" {
		fmt.Fprintf(&b, "trace directory: %s\n", g.config.TraceDir)
	}
	b.WriteString(separator + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// writeFeeReference renders reference merchant fee rates for the mapped
// benefits when a fee table is configured. Enrichment only.
func (g *Generator) writeFeeReference(b *strings.Builder) {
	if g.config.FeeTable == nil || len(g.config.Benefits) == 0 {
		return
	}

	type feeLine struct {
		label string
		rate  decimal.Decimal
	}
	var lines []feeLine
	for _, benefit := range sortedBenefits(g.config.Benefits) {
		if len(benefit.Merchants) == 0 {
			continue
		}
		merchant := benefit.Merchants[0]
		lines = append(lines, feeLine{
			label: fmt.Sprintf("%s (%s)", benefit.DisplayName(), merchant),
			rate:  g.config.FeeTable.LookupRate(merchant),
		})
	}
	if len(lines) == 0 {
		return
	}

	b.WriteString("reference merchant fees\n")
	for i, line := range lines {
		branch := "├─"
		if i == len(lines)-1 {
			branch = "└─"
		}
		fmt.Fprintf(b, "%s %s: %s%%\n", branch, line.label,
			line.rate.Mul(decimal.NewFromInt(100)).StringFixed(2))
	}
	b.WriteString("\n")
}

// sortedBenefits returns benefits ordered by service ID for stable output.
func sortedBenefits(benefits map[string]*models.Benefit) []*models.Benefit {
	ids := make([]string, 0, len(benefits))
	for id := range benefits {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	result := make([]*models.Benefit, 0, len(ids))
	for _, id := range ids {
		result = append(result, benefits[id])
	}
	return result
}
