// Package analyzer drives the profitability analysis: scanning customer
// transaction histories against a card's benefit rules and rolling the costs
// up through group and portfolio summaries.
//
// The aggregation contract, bottom to top:
//   - customer: strict input order, fresh monthly ledger, at most one benefit
//     attempt per transaction
//   - group: concurrent fan-out over customers, ratio of summed absolutes
//   - portfolio: bounded group sample, unweighted mean of group ratios
package analyzer

import (
	"time"

	"github.com/shopspring/decimal"

	"card-profitability-service/internal/calculator"
	"card-profitability-service/internal/matcher"
	"card-profitability-service/internal/models"
	"card-profitability-service/internal/parsers"
	"card-profitability-service/pkg/logger"
)

// CustomerAnalyzer scans one customer's transaction batch at a time.
// It is stateless across customers; every Analyze call builds a fresh
// monthly ledger that is discarded once the summary is produced.
type CustomerAnalyzer struct {
	engine   *matcher.Engine
	services map[string]*models.Benefit
	log      logger.Logger

	// now supplies the fallback date for undated records and the trace
	// timestamp. Injected for deterministic tests.
	now func() time.Time
}

// NewCustomerAnalyzer creates a customer analyzer over a card's matching
// engine and service definitions.
func NewCustomerAnalyzer(engine *matcher.Engine, services map[string]*models.Benefit) *CustomerAnalyzer {
	return &CustomerAnalyzer{
		engine:   engine,
		services: services,
		log:      logger.GetGlobalLogger().WithComponent("customer_analyzer"),
		now:      time.Now,
	}
}

// Analyze loads and scans one customer's batch file. A batch that is
// unreadable, empty, or malformed on its first record returns a nil summary
// and the recoverable load error; the caller skips the customer.
func (ca *CustomerAnalyzer) Analyze(path string) (*models.CustomerSummary, *Trace, error) {
	records, err := parsers.LoadTransactionBatch(path)
	if err != nil {
		return nil, nil, err
	}
	ca.log.WithField("file", path).Debugf("loaded batch with %d records", len(records))
	summary, trace := ca.AnalyzeRecords(parsers.CustomerName(path), records)
	return summary, trace, nil
}

// AnalyzeRecords scans an already-loaded batch. Exposed for tests and for
// callers that source batches from somewhere other than the filesystem.
func (ca *CustomerAnalyzer) AnalyzeRecords(name string, records []models.Record) (*models.CustomerSummary, *Trace) {
	now := ca.now()
	trace := &Trace{CustomerFile: name}
	ledger := models.NewMonthlyLedger()

	totalSales := decimal.Zero
	totalBenefitCost := decimal.Zero
	totalTransactions := 0
	transactionsWithBenefit := 0

	trace.addf("[customer] %s analysis started", name)
	trace.addf("analyzed at: %s", now.Format(time.RFC3339))
	trace.addf("records in batch: %d", len(records))
	trace.add("")

	for _, rec := range records {
		month := models.MonthKey(rec.Date(now))

		amount, okAmount := rec.Amount()
		merchantName, okMerchant := rec.MerchantName()
		if !okAmount || !okMerchant {
			// Silent skip: no count, no sum.
			continue
		}

		totalTransactions++
		totalSales = totalSales.Add(amount)

		benefit, matched := ca.engine.Match(rec)
		if !matched {
			continue
		}

		trace.addf("  [benefit match] %s (%s) -> service: %s",
			merchantName, month, benefit.DisplayName())

		// Single benefit attempt: the first matched benefit is final for
		// this transaction even when it yields zero under its own cap.
		granted := ledger.Granted(month, benefit.ServiceID)
		result := calculator.Calculate(amount, benefit, granted)
		if !result.Discount.IsPositive() {
			continue
		}

		trace.addf("    - amount: %s, effective rate: %.2f%%, discount: %s",
			amount.StringFixed(0), result.EffectiveRate, result.Discount.StringFixed(0))

		totalBenefitCost = totalBenefitCost.Add(result.Discount)
		transactionsWithBenefit++
		ledger.Add(month, benefit.ServiceID, result.Discount)
	}

	ca.appendLedgerTrace(trace, ledger)

	summary := &models.CustomerSummary{
		FileName:                name,
		TotalSales:              totalSales,
		TotalBenefitCost:        totalBenefitCost,
		OurCostRatio:            models.Ratio(totalBenefitCost, totalSales),
		TotalTransactions:       totalTransactions,
		TransactionsWithBenefit: transactionsWithBenefit,
		BenefitApplicationRate:  models.CountRatio(transactionsWithBenefit, totalTransactions),
	}

	trace.add("")
	trace.add("=== analysis result ===")
	trace.addf("total sales: %s", summary.TotalSales.StringFixed(0))
	trace.addf("total benefit cost: %s", summary.TotalBenefitCost.StringFixed(0))
	trace.addf("our cost ratio: %.2f%%", summary.OurCostRatio)
	trace.addf("transactions with benefit: %d", summary.TransactionsWithBenefit)
	trace.addf("benefit application rate: %.2f%%", summary.BenefitApplicationRate)

	return summary, trace
}

// appendLedgerTrace writes the month-by-month discount totals into the trace.
func (ca *CustomerAnalyzer) appendLedgerTrace(trace *Trace, ledger *models.MonthlyLedger) {
	trace.add("")
	trace.add("=== monthly discount totals ===")
	for _, month := range ledger.Months() {
		trace.addf("[%s]", month)
		for _, serviceID := range ledger.Services(month) {
			line := "  - " + ca.serviceName(serviceID) + ": " +
				ledger.Granted(month, serviceID).StringFixed(0)
			if benefit, ok := ca.services[serviceID]; ok && benefit.Limit.HasMonthlyLimit() {
				line += " (cap: " + benefit.Limit.MonthlyLimitAmount.StringFixed(0) + ")"
			}
			trace.add(line)
		}
	}
}

func (ca *CustomerAnalyzer) serviceName(serviceID string) string {
	if benefit, ok := ca.services[serviceID]; ok {
		return benefit.DisplayName()
	}
	return serviceID
}
