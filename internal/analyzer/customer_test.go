package analyzer

import (
	"testing"
	"time"

	"card-profitability-service/internal/matcher"
	"card-profitability-service/internal/models"

	"github.com/shopspring/decimal"
)

func createTestBenefits() map[string]*models.Benefit {
	return map[string]*models.Benefit{
		"svc_coffee": {
			ServiceID:   "svc_coffee",
			ServiceName: "Coffee Discount",
			Rate:        models.Rate{Unit: models.RateUnitPercentage, Value: decimal.NewFromInt(5)},
			Limit:       models.Limit{MonthlyLimitAmount: decimal.NewFromInt(10000)},
			Merchants:   []string{"starbucks"},
		},
		"svc_mart": {
			ServiceID:   "svc_mart",
			ServiceName: "Mart Discount",
			Rate:        models.Rate{Unit: models.RateUnitFixedAmount, Value: decimal.NewFromInt(1000)},
			Limit:       models.Limit{TransactionLimitAmount: decimal.NewFromInt(50000)},
			Merchants:   []string{"emart"},
		},
	}
}

func createCustomerAnalyzer(t *testing.T) *CustomerAnalyzer {
	t.Helper()
	services := createTestBenefits()
	engine, err := matcher.NewEngine(nil, []string{"svc_coffee", "svc_mart"}, services)
	if err != nil {
		t.Fatalf("Failed to create matching engine: %v", err)
	}
	analyzer := NewCustomerAnalyzer(engine, services)
	analyzer.now = func() time.Time {
		return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	}
	return analyzer
}

func txn(merchant string, amount float64, date string) models.Record {
	return models.Record{
		"merchant_name":    merchant,
		"amount":           amount,
		"transaction_date": date,
	}
}

func TestAnalyzeRecordsBasic(t *testing.T) {
	analyzer := createCustomerAnalyzer(t)

	records := []models.Record{
		txn("starbucks gangnam", 100000, "2025-01-10"),
		txn("bookstore", 20000, "2025-01-11"),
	}

	summary, trace := analyzer.AnalyzeRecords("customer_001", records)

	if summary.FileName != "customer_001" {
		t.Errorf("Expected file name customer_001, got %s", summary.FileName)
	}
	if summary.TotalTransactions != 2 {
		t.Errorf("Expected 2 transactions, got %d", summary.TotalTransactions)
	}
	if !summary.TotalSales.Equal(decimal.NewFromInt(120000)) {
		t.Errorf("Expected total sales 120000, got %s", summary.TotalSales.String())
	}
	if !summary.TotalBenefitCost.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("Expected benefit cost 5000, got %s", summary.TotalBenefitCost.String())
	}
	if summary.TransactionsWithBenefit != 1 {
		t.Errorf("Expected 1 transaction with benefit, got %d", summary.TransactionsWithBenefit)
	}
	if summary.BenefitApplicationRate != 50 {
		t.Errorf("Expected 50%% application rate, got %f", summary.BenefitApplicationRate)
	}

	if trace == nil || len(trace.Lines) == 0 {
		t.Fatal("Expected a non-empty audit trace")
	}
}

func TestAnalyzeRecordsDeterministic(t *testing.T) {
	analyzer := createCustomerAnalyzer(t)

	records := []models.Record{
		txn("starbucks", 100000, "2025-01-10"),
		txn("starbucks", 150000, "2025-01-15"),
		txn("emart", 60000, "2025-01-20"),
	}

	first, _ := analyzer.AnalyzeRecords("c1", records)
	second, _ := analyzer.AnalyzeRecords("c1", records)

	if !first.TotalBenefitCost.Equal(second.TotalBenefitCost) {
		t.Error("Expected repeated runs over the same batch to agree")
	}
	if first.TotalTransactions != second.TotalTransactions {
		t.Error("Expected repeated runs to count identically")
	}
}

func TestAnalyzeRecordsSkipsMalformedSilently(t *testing.T) {
	analyzer := createCustomerAnalyzer(t)

	records := []models.Record{
		txn("starbucks", 100000, "2025-01-10"),
		{"merchant_name": "starbucks"},                            // no amount
		{"amount": float64(50000)},                                // no merchant
		{"merchant_name": "starbucks", "amount": float64(-100)},   // unusable amount
		{"merchant_name": "   ", "amount": float64(30000)},        // blank merchant
	}

	summary, _ := analyzer.AnalyzeRecords("c1", records)

	// Skipped records contribute nothing: no count, no sum.
	if summary.TotalTransactions != 1 {
		t.Errorf("Expected 1 counted transaction, got %d", summary.TotalTransactions)
	}
	if !summary.TotalSales.Equal(decimal.NewFromInt(100000)) {
		t.Errorf("Expected total sales 100000, got %s", summary.TotalSales.String())
	}
}

func TestAnalyzeRecordsMonthlyCapAcrossOrder(t *testing.T) {
	analyzer := createCustomerAnalyzer(t)

	// 5% capped at 10000 per month: 5000, then clipped 5000, then nothing.
	records := []models.Record{
		txn("starbucks", 100000, "2025-01-05"),
		txn("starbucks", 150000, "2025-01-10"),
		txn("starbucks", 100000, "2025-01-20"),
	}

	summary, _ := analyzer.AnalyzeRecords("c1", records)

	if !summary.TotalBenefitCost.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("Expected total cost capped at 10000, got %s", summary.TotalBenefitCost.String())
	}
	if summary.TransactionsWithBenefit != 2 {
		t.Errorf("Expected 2 discounted transactions, got %d", summary.TransactionsWithBenefit)
	}
}

func TestAnalyzeRecordsOrderSensitivity(t *testing.T) {
	analyzer := createCustomerAnalyzer(t)

	// Under the 10000 cap, which transactions get clipped depends on input
	// order even though the capped total is the same.
	small := txn("starbucks", 60000, "2025-01-05")  // 3000
	large := txn("starbucks", 180000, "2025-01-10") // 9000 uncapped

	smallFirst, _ := analyzer.AnalyzeRecords("c1", []models.Record{small, large})
	largeFirst, _ := analyzer.AnalyzeRecords("c1", []models.Record{large, small})

	if !smallFirst.TotalBenefitCost.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("Expected small-first total 10000, got %s", smallFirst.TotalBenefitCost.String())
	}
	if !largeFirst.TotalBenefitCost.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("Expected large-first total 10000, got %s", largeFirst.TotalBenefitCost.String())
	}
	// Small-first: 3000 then clipped 7000. Large-first: 9000 then clipped 1000.
	if smallFirst.TransactionsWithBenefit != largeFirst.TransactionsWithBenefit {
		t.Errorf("Expected both orders to discount both transactions, got %d vs %d",
			smallFirst.TransactionsWithBenefit, largeFirst.TransactionsWithBenefit)
	}
}

func TestAnalyzeRecordsMonthBucketsIndependent(t *testing.T) {
	analyzer := createCustomerAnalyzer(t)

	// The cap resets across months: each 300000 transaction would earn 15000
	// uncapped, so each month grants the full 10000 cap.
	records := []models.Record{
		txn("starbucks", 300000, "2025-01-10"),
		txn("starbucks", 300000, "2025-02-10"),
	}

	summary, _ := analyzer.AnalyzeRecords("c1", records)
	if !summary.TotalBenefitCost.Equal(decimal.NewFromInt(20000)) {
		t.Errorf("Expected 10000 per month, got total %s", summary.TotalBenefitCost.String())
	}
}

func TestAnalyzeRecordsSingleBenefitAttempt(t *testing.T) {
	// A transaction whose first matched benefit yields zero gets no second
	// chance at later benefits in the order.
	services := map[string]*models.Benefit{
		"svc_first": {
			ServiceID: "svc_first",
			Rate:      models.Rate{Unit: models.RateUnitFixedAmount, Value: decimal.NewFromInt(1000)},
			Limit:     models.Limit{TransactionLimitAmount: decimal.NewFromInt(500000)},
			Merchants: []string{"starbucks"},
		},
		"svc_second": {
			ServiceID: "svc_second",
			Rate:      models.Rate{Unit: models.RateUnitPercentage, Value: decimal.NewFromInt(5)},
			Merchants: []string{"starbucks"},
		},
	}
	engine, err := matcher.NewEngine(nil, []string{"svc_first", "svc_second"}, services)
	if err != nil {
		t.Fatalf("Failed to create matching engine: %v", err)
	}
	analyzer := NewCustomerAnalyzer(engine, services)

	// Below svc_first's minimum spend; svc_second would have paid 2500.
	summary, _ := analyzer.AnalyzeRecords("c1", []models.Record{
		txn("starbucks", 50000, "2025-01-10"),
	})

	if !summary.TotalBenefitCost.IsZero() {
		t.Errorf("Expected zero cost from the first matched benefit, got %s",
			summary.TotalBenefitCost.String())
	}
	if summary.TransactionsWithBenefit != 0 {
		t.Errorf("Expected no discounted transactions, got %d", summary.TransactionsWithBenefit)
	}
}

func TestAnalyzeRecordsEmptyBatch(t *testing.T) {
	analyzer := createCustomerAnalyzer(t)

	summary, _ := analyzer.AnalyzeRecords("c1", nil)

	if summary.TotalTransactions != 0 {
		t.Errorf("Expected zero transactions, got %d", summary.TotalTransactions)
	}
	if summary.OurCostRatio != 0 || summary.BenefitApplicationRate != 0 {
		t.Error("Expected zero ratios for an empty batch, never NaN")
	}
}
