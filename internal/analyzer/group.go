package analyzer

import (
	"context"
	"path/filepath"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"card-profitability-service/internal/models"
	"card-profitability-service/internal/parsers"
	"card-profitability-service/pkg/logger"
)

// GroupResult carries a cohort's summary together with the per-customer
// summaries and traces that produced it.
type GroupResult struct {
	Summary   models.GroupSummary
	Customers []*models.CustomerSummary
	Traces    []*Trace
}

// GroupAnalyzer runs the customer analyzer over every batch file in one
// cohort directory.
type GroupAnalyzer struct {
	customer    *CustomerAnalyzer
	concurrency int
	log         logger.Logger
}

// NewGroupAnalyzer creates a group analyzer. Concurrency bounds how many
// customer batches are in flight at once; values below one fall back to one.
func NewGroupAnalyzer(customer *CustomerAnalyzer, concurrency int) *GroupAnalyzer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &GroupAnalyzer{
		customer:    customer,
		concurrency: concurrency,
		log:         logger.GetGlobalLogger().WithComponent("group_analyzer"),
	}
}

// Analyze fans the customer analyzer out over all batch files in groupDir and
// joins all results before aggregating. Customers whose batches fail to load
// are skipped; a cohort with zero valid customers yields a zero-filled
// summary, not an error.
//
// Cross-customer completion order is unconstrained. The fan-in below sums in
// file order regardless, and since accumulation is commutative the cohort
// sums are order-independent either way.
func (ga *GroupAnalyzer) Analyze(ctx context.Context, groupDir string) (*GroupResult, error) {
	groupName := filepath.Base(groupDir)
	log := ga.log.WithField("group", groupName)

	files, err := parsers.ListBatchFiles(groupDir)
	if err != nil {
		return nil, err
	}

	summaries := make([]*models.CustomerSummary, len(files))
	traces := make([]*Trace, len(files))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(ga.concurrency)

	for i, file := range files {
		i, file := i, file
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			summary, trace, err := ga.customer.Analyze(file)
			if err != nil {
				log.WithError(err).WithField("file", file).Warn("skipping customer batch")
				return nil
			}
			trace.GroupName = groupName
			summaries[i] = summary
			traces[i] = trace
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	result := &GroupResult{}
	totalSales := decimal.Zero
	totalBenefitCost := decimal.Zero
	totalTransactions := 0
	transactionsWithBenefit := 0

	for i, summary := range summaries {
		if summary == nil {
			continue
		}
		result.Customers = append(result.Customers, summary)
		result.Traces = append(result.Traces, traces[i])
		totalSales = totalSales.Add(summary.TotalSales)
		totalBenefitCost = totalBenefitCost.Add(summary.TotalBenefitCost)
		totalTransactions += summary.TotalTransactions
		transactionsWithBenefit += summary.TransactionsWithBenefit
	}

	// Ratio of sums, not an average of member ratios: heavy spenders weigh
	// in proportionally at the group level.
	result.Summary = models.GroupSummary{
		GroupName:               groupName,
		ProcessedCustomers:      len(result.Customers),
		TotalSales:              totalSales,
		TotalBenefitCost:        totalBenefitCost,
		TotalTransactions:       totalTransactions,
		TransactionsWithBenefit: transactionsWithBenefit,
		OurCostRatio:            models.Ratio(totalBenefitCost, totalSales),
		BenefitApplicationRate:  models.CountRatio(transactionsWithBenefit, totalTransactions),
	}

	log.WithFields(logger.Fields{
		"customers":  result.Summary.ProcessedCustomers,
		"cost_ratio": result.Summary.OurCostRatio,
	}).Info("group analysis completed")

	return result, nil
}
