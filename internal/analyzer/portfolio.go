package analyzer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"card-profitability-service/internal/matcher"
	"card-profitability-service/internal/models"
	"card-profitability-service/internal/parsers"
	"card-profitability-service/pkg/errors"
	"card-profitability-service/pkg/logger"
)

// Progress reports portfolio analysis progress to registered callbacks.
type Progress struct {
	TotalGroups     int    `json:"total_groups"`
	CompletedGroups int    `json:"completed_groups"`
	CurrentGroup    string `json:"current_group"`
}

// ProgressCallback is invoked after each group completes.
type ProgressCallback func(*Progress)

// PortfolioAnalyzer runs the group analyzer over a bounded sample of customer
// groups and produces the final portfolio summary.
type PortfolioAnalyzer struct {
	config   *Config
	product  *models.CardProduct
	services map[string]*models.Benefit
	group    *GroupAnalyzer
	sink     TraceSink
	log      logger.Logger

	progressCallbacks []ProgressCallback
}

// NewPortfolioAnalyzer wires the analysis pipeline for one card product.
// sink may be nil to disable audit trace persistence.
func NewPortfolioAnalyzer(
	config *Config,
	cardData *models.CardData,
	matcherConfig *matcher.Config,
	sink TraceSink,
) (*PortfolioAnalyzer, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigError(errors.CodeInvalidConfig, "analyzer", err)
	}

	if len(cardData.Products) == 0 {
		return nil, errors.AnalysisFailure(errors.CodeNoCardProducts,
			"card data declares no products", nil)
	}
	product := &cardData.Products[0]
	services := cardData.ServiceMap()

	engine, err := matcher.NewEngine(matcherConfig, product.ServiceMapping, services)
	if err != nil {
		return nil, errors.ConfigError(errors.CodeInvalidConfig, "matcher", err)
	}

	customer := NewCustomerAnalyzer(engine, services)

	return &PortfolioAnalyzer{
		config:   config,
		product:  product,
		services: services,
		group:    NewGroupAnalyzer(customer, config.Concurrency),
		sink:     sink,
		log:      logger.GetGlobalLogger().WithComponent("portfolio_analyzer"),
	}, nil
}

// AddProgressCallback registers a progress callback.
func (pa *PortfolioAnalyzer) AddProgressCallback(callback ProgressCallback) {
	pa.progressCallbacks = append(pa.progressCallbacks, callback)
}

// Analyze runs the full portfolio analysis over the customer groups found
// under dataDir. Groups are processed in sorted name order, bounded by the
// configured maximum; customer concurrency lives inside each group.
func (pa *PortfolioAnalyzer) Analyze(ctx context.Context, dataDir string) (*models.PortfolioSummary, error) {
	groups, err := parsers.ListGroups(dataDir)
	if err != nil {
		return nil, err
	}

	if len(groups) > pa.config.MaxGroups {
		groups = groups[:pa.config.MaxGroups]
	}

	pa.log.WithFields(logger.Fields{
		"product": pa.product.ProductName,
		"groups":  len(groups),
	}).Info("portfolio analysis started")

	summary := &models.PortfolioSummary{
		RunID:              uuid.NewString(),
		ProductName:        pa.product.ProductName,
		AnnualFee:          pa.product.AnnualFee.Effective(),
		ServiceCount:       len(pa.services),
		MappedServiceCount: len(pa.product.ServiceMapping),
		GeneratedAt:        time.Now(),
	}

	for i, groupName := range groups {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.CategoryAnalysis, errors.CodeProcessing,
				"portfolio analysis cancelled")
		}

		result, err := pa.group.Analyze(ctx, filepath.Join(dataDir, groupName))
		if err != nil {
			pa.log.WithError(err).WithField("group", groupName).Warn("skipping group")
			continue
		}

		pa.persistTraces(result)
		summary.Groups = append(summary.Groups, result.Summary)
		pa.notifyProgress(&Progress{
			TotalGroups:     len(groups),
			CompletedGroups: i + 1,
			CurrentGroup:    groupName,
		})
	}

	pa.finalize(summary)

	pa.log.WithFields(logger.Fields{
		"groups":         len(summary.Groups),
		"avg_cost_ratio": summary.AverageCostRatio,
	}).Info("portfolio analysis completed")

	return summary, nil
}

// finalize computes the portfolio averages and threshold advisories.
// The averages are unweighted arithmetic means of the group ratios, on
// purpose distinct from the sum-based group ratios: every sampled cohort
// counts equally at the portfolio level regardless of its size.
func (pa *PortfolioAnalyzer) finalize(summary *models.PortfolioSummary) {
	if len(summary.Groups) > 0 {
		var costSum, benefitSum float64
		for _, group := range summary.Groups {
			costSum += group.OurCostRatio
			benefitSum += group.BenefitApplicationRate
		}
		summary.AverageCostRatio = costSum / float64(len(summary.Groups))
		summary.AverageBenefitRate = benefitSum / float64(len(summary.Groups))
	}

	summary.Advisories = pa.advisories(summary)
}

// advisories compares the summary against the configured thresholds.
// Advisories annotate the report; they never block execution.
func (pa *PortfolioAnalyzer) advisories(summary *models.PortfolioSummary) []string {
	thresholds := pa.config.Thresholds
	var advisories []string

	for _, group := range summary.Groups {
		if group.OurCostRatio > thresholds.GroupCostRateWarn {
			advisories = append(advisories, fmt.Sprintf(
				"group %s cost ratio %.2f%% exceeds the %.2f%% warning threshold",
				group.GroupName, group.OurCostRatio, thresholds.GroupCostRateWarn))
		}
	}

	if len(summary.Groups) > 0 {
		if summary.AverageCostRatio > thresholds.AvgCostRateMax {
			advisories = append(advisories, fmt.Sprintf(
				"average cost ratio %.2f%% is above the recommended %.2f%%-%.2f%% band",
				summary.AverageCostRatio, thresholds.AvgCostRateMin, thresholds.AvgCostRateMax))
		} else if summary.AverageCostRatio < thresholds.AvgCostRateMin {
			advisories = append(advisories, fmt.Sprintf(
				"average cost ratio %.2f%% is below the recommended %.2f%%-%.2f%% band; weak benefits reduce usage incentive",
				summary.AverageCostRatio, thresholds.AvgCostRateMin, thresholds.AvgCostRateMax))
		}
	}

	if capSum := pa.monthlyCapSum(); capSum.GreaterThan(thresholds.MonthlyLimitSumMax) {
		advisories = append(advisories, fmt.Sprintf(
			"sum of monthly caps %s exceeds the %s reference ceiling; consider rebalancing limits",
			capSum.StringFixed(0), thresholds.MonthlyLimitSumMax.StringFixed(0)))
	}

	return advisories
}

// monthlyCapSum totals the monthly caps of the mapped benefits that have one.
func (pa *PortfolioAnalyzer) monthlyCapSum() decimal.Decimal {
	sum := decimal.Zero
	for _, serviceID := range pa.product.ServiceMapping {
		if benefit, ok := pa.services[serviceID]; ok && benefit.Limit.HasMonthlyLimit() {
			sum = sum.Add(benefit.Limit.MonthlyLimitAmount)
		}
	}
	return sum
}

// persistTraces writes the group's audit traces through the sink. Trace
// persistence failures degrade to warnings, never fail the run.
func (pa *PortfolioAnalyzer) persistTraces(result *GroupResult) {
	if pa.sink == nil {
		return
	}

	for _, trace := range result.Traces {
		if err := pa.sink.WriteCustomerTrace(trace); err != nil {
			pa.log.WithError(err).WithField("customer", trace.CustomerFile).Warn("failed to write customer trace")
		}
	}

	lines := groupSummaryLines(result)
	if err := pa.sink.WriteGroupSummary(result.Summary.GroupName, lines); err != nil {
		pa.log.WithError(err).WithField("group", result.Summary.GroupName).Warn("failed to write group summary")
	}
}

// groupSummaryLines renders the per-group audit summary.
func groupSummaryLines(result *GroupResult) []string {
	summary := result.Summary
	lines := []string{
		fmt.Sprintf("=== group %s analysis summary ===", summary.GroupName),
		fmt.Sprintf("analyzed at: %s", time.Now().Format(time.RFC3339)),
		fmt.Sprintf("processed customers: %d", summary.ProcessedCustomers),
		fmt.Sprintf("total sales: %s", summary.TotalSales.StringFixed(0)),
		fmt.Sprintf("total benefit cost: %s", summary.TotalBenefitCost.StringFixed(0)),
		fmt.Sprintf("group cost ratio: %.2f%%", summary.OurCostRatio),
		fmt.Sprintf("group benefit application rate: %.2f%%", summary.BenefitApplicationRate),
		"",
		"=== per-customer results ===",
	}
	for _, customer := range result.Customers {
		lines = append(lines, fmt.Sprintf("%s: sales %s, cost ratio %.2f%%, application rate %.2f%%",
			customer.FileName, customer.TotalSales.StringFixed(0),
			customer.OurCostRatio, customer.BenefitApplicationRate))
	}
	return lines
}

// notifyProgress invokes the registered callbacks.
func (pa *PortfolioAnalyzer) notifyProgress(progress *Progress) {
	for _, callback := range pa.progressCallbacks {
		callback(progress)
	}
}
