package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestRecordAmount(t *testing.T) {
	tests := []struct {
		name     string
		record   Record
		expected string
		ok       bool
	}{
		{
			name:     "amount field as number",
			record:   Record{"amount": float64(15000)},
			expected: "15000",
			ok:       true,
		},
		{
			name:     "sale_amount fallback",
			record:   Record{"sale_amount": float64(4500)},
			expected: "4500",
			ok:       true,
		},
		{
			name:     "amount preferred over sale_amount",
			record:   Record{"amount": float64(100), "sale_amount": float64(200)},
			expected: "100",
			ok:       true,
		},
		{
			name:     "numeric string accepted",
			record:   Record{"amount": "12000"},
			expected: "12000",
			ok:       true,
		},
		{
			name:   "zero amount rejected",
			record: Record{"amount": float64(0)},
			ok:     false,
		},
		{
			name:   "negative amount rejected",
			record: Record{"amount": float64(-500)},
			ok:     false,
		},
		{
			name:   "non-numeric string rejected",
			record: Record{"amount": "abc"},
			ok:     false,
		},
		{
			name:   "missing amount fields",
			record: Record{"merchant_name": "starbucks"},
			ok:     false,
		},
		{
			name:     "unusable amount falls through to sale_amount",
			record:   Record{"amount": "n/a", "sale_amount": float64(3000)},
			expected: "3000",
			ok:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, ok := tt.record.Amount()
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if ok && amount.String() != tt.expected {
				t.Errorf("Expected amount %s, got %s", tt.expected, amount.String())
			}
		})
	}
}

func TestRecordMerchantName(t *testing.T) {
	rec := Record{"merchant_name": "starbucks gangnam"}
	name, ok := rec.MerchantName()
	if !ok {
		t.Fatal("Expected merchant name to be present")
	}
	if name != "starbucks gangnam" {
		t.Errorf("Expected 'starbucks gangnam', got %s", name)
	}

	empty := Record{"merchant_name": "   "}
	if _, ok := empty.MerchantName(); ok {
		t.Error("Expected blank merchant name to be rejected")
	}

	missing := Record{"amount": float64(100)}
	if _, ok := missing.MerchantName(); ok {
		t.Error("Expected missing merchant name to be rejected")
	}
	if missing.HasMerchantField() {
		t.Error("Expected HasMerchantField to be false")
	}

	nonString := Record{"merchant_name": float64(42)}
	if _, ok := nonString.MerchantName(); ok {
		t.Error("Expected non-string merchant name to be rejected")
	}
	if !nonString.HasMerchantField() {
		t.Error("Expected HasMerchantField to be true even for unusable value")
	}
}

func TestRecordDate(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		record   Record
		expected string
	}{
		{
			name:     "transaction_date RFC3339",
			record:   Record{"transaction_date": "2025-01-15T10:30:00Z"},
			expected: "2025-01",
		},
		{
			name:     "date fallback field",
			record:   Record{"date": "2025-03-02"},
			expected: "2025-03",
		},
		{
			name:     "sale_date with slashes",
			record:   Record{"sale_date": "2025/04/20"},
			expected: "2025-04",
		},
		{
			name:     "space-separated datetime",
			record:   Record{"transaction_date": "2025-02-10 09:15:00"},
			expected: "2025-02",
		},
		{
			name:     "missing date falls back to now",
			record:   Record{"amount": float64(100)},
			expected: "2025-06",
		},
		{
			name:     "unparseable date falls back to now",
			record:   Record{"transaction_date": "not a date"},
			expected: "2025-06",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonthKey(tt.record.Date(now))
			if got != tt.expected {
				t.Errorf("Expected month %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestRecordCategoryCode(t *testing.T) {
	stringCode := Record{"sale_category_code": "5462"}
	if code, ok := stringCode.CategoryCode(); !ok || code != "5462" {
		t.Errorf("Expected code 5462, got %s (ok=%v)", code, ok)
	}

	numericCode := Record{"mcc": float64(5462)}
	if code, ok := numericCode.CategoryCode(); !ok || code != "5462" {
		t.Errorf("Expected numeric code normalized to 5462, got %s (ok=%v)", code, ok)
	}

	missing := Record{"amount": float64(100)}
	if _, ok := missing.CategoryCode(); ok {
		t.Error("Expected missing category code to report not present")
	}
}

func TestMonthlyLedger(t *testing.T) {
	ledger := NewMonthlyLedger()

	if !ledger.Granted("2025-01", "svc1").IsZero() {
		t.Error("Expected empty ledger to report zero granted")
	}

	ledger.Add("2025-01", "svc1", decimal.NewFromInt(3000))
	ledger.Add("2025-01", "svc1", decimal.NewFromInt(2000))
	ledger.Add("2025-02", "svc1", decimal.NewFromInt(1000))
	ledger.Add("2025-01", "svc2", decimal.NewFromInt(500))

	if got := ledger.Granted("2025-01", "svc1"); !got.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("Expected 5000 granted in 2025-01, got %s", got.String())
	}
	if got := ledger.Granted("2025-02", "svc1"); !got.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Expected month buckets to be independent, got %s", got.String())
	}

	months := ledger.Months()
	if len(months) != 2 || months[0] != "2025-01" || months[1] != "2025-02" {
		t.Errorf("Expected sorted months [2025-01 2025-02], got %v", months)
	}

	services := ledger.Services("2025-01")
	if len(services) != 2 || services[0] != "svc1" || services[1] != "svc2" {
		t.Errorf("Expected sorted services [svc1 svc2], got %v", services)
	}
}

func TestCardDataServiceMap(t *testing.T) {
	cardData := &CardData{
		Services: []Benefit{
			{ServiceID: "svc1", ServiceName: "Coffee Discount"},
			{ServiceID: "svc2", ServiceName: "Transit Discount"},
		},
	}

	services := cardData.ServiceMap()
	if len(services) != 2 {
		t.Fatalf("Expected 2 services, got %d", len(services))
	}
	if services["svc1"].ServiceName != "Coffee Discount" {
		t.Errorf("Expected svc1 to map to Coffee Discount, got %s", services["svc1"].ServiceName)
	}
}

func TestBenefitDisplayName(t *testing.T) {
	named := &Benefit{ServiceID: "svc1", ServiceName: "Coffee Discount"}
	if named.DisplayName() != "Coffee Discount" {
		t.Errorf("Expected service name, got %s", named.DisplayName())
	}

	unnamed := &Benefit{ServiceID: "svc1"}
	if unnamed.DisplayName() != "svc1" {
		t.Errorf("Expected ID fallback, got %s", unnamed.DisplayName())
	}
}

func TestLimitPredicates(t *testing.T) {
	limit := Limit{
		MonthlyLimitAmount:     decimal.NewFromInt(10000),
		TransactionLimitAmount: decimal.NewFromInt(50000),
	}
	if !limit.HasMonthlyLimit() || !limit.HasMinimumSpend() {
		t.Error("Expected positive limits to be present")
	}

	absent := Limit{}
	if absent.HasMonthlyLimit() || absent.HasMinimumSpend() {
		t.Error("Expected zero limits to be absent")
	}

	negative := Limit{MonthlyLimitAmount: decimal.NewFromInt(-1)}
	if negative.HasMonthlyLimit() {
		t.Error("Expected negative limit to be treated as absent")
	}
}

func TestAnnualFeeEffective(t *testing.T) {
	withBasic := AnnualFee{Basic: decimal.NewFromInt(15000), Total: decimal.NewFromInt(20000)}
	if !withBasic.Effective().Equal(decimal.NewFromInt(15000)) {
		t.Errorf("Expected basic fee, got %s", withBasic.Effective().String())
	}

	totalOnly := AnnualFee{Total: decimal.NewFromInt(20000)}
	if !totalOnly.Effective().Equal(decimal.NewFromInt(20000)) {
		t.Errorf("Expected total fallback, got %s", totalOnly.Effective().String())
	}
}

func TestRatioGuards(t *testing.T) {
	if got := Ratio(decimal.NewFromInt(50), decimal.NewFromInt(200)); got != 25 {
		t.Errorf("Expected 25, got %f", got)
	}
	if got := Ratio(decimal.NewFromInt(50), decimal.Zero); got != 0 {
		t.Errorf("Expected zero denominator to yield 0, got %f", got)
	}
	if got := CountRatio(3, 4); got != 75 {
		t.Errorf("Expected 75, got %f", got)
	}
	if got := CountRatio(3, 0); got != 0 {
		t.Errorf("Expected zero total to yield 0, got %f", got)
	}
}
