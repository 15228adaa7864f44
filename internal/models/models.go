// Package models defines the domain types of the profitability analyzer:
// card products, benefits, duck-typed transaction records, the per-customer
// monthly ledger, and the summary rollups produced by the aggregation layers.
package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RateUnit represents how a benefit rate is expressed.
type RateUnit string

const (
	// RateUnitPercentage discounts a percentage of the transaction amount.
	RateUnitPercentage RateUnit = "percentage"
	// RateUnitFixedAmount discounts a flat amount regardless of transaction size.
	RateUnitFixedAmount RateUnit = "fixed_amount"
)

// String returns the string representation of RateUnit.
func (u RateUnit) String() string {
	return string(u)
}

// IsValid checks if the rate unit is one the calculator understands.
// Unknown units are tolerated by the calculator (zero discount), so this
// is informational, not a gate.
func (u RateUnit) IsValid() bool {
	return u == RateUnitPercentage || u == RateUnitFixedAmount
}

// Rate describes the discount rate of a benefit.
type Rate struct {
	Unit  RateUnit        `json:"unit"`
	Value decimal.Decimal `json:"value"`
}

// IsZero reports whether the rate is missing a usable unit or value.
func (r Rate) IsZero() bool {
	return r.Unit == "" || r.Value.IsZero()
}

// Limit describes the usage limits attached to a benefit. A non-positive
// amount means the limit is absent.
type Limit struct {
	MonthlyLimitAmount     decimal.Decimal `json:"monthly_limit_amount"`
	TransactionLimitAmount decimal.Decimal `json:"transaction_limit_amount"`
}

// HasMonthlyLimit reports whether a monthly cap applies.
func (l Limit) HasMonthlyLimit() bool {
	return l.MonthlyLimitAmount.IsPositive()
}

// HasMinimumSpend reports whether a per-transaction minimum spend applies.
func (l Limit) HasMinimumSpend() bool {
	return l.TransactionLimitAmount.IsPositive()
}

// Benefit represents a single discount or reward rule attached to a card
// product. Immutable for the duration of a run.
type Benefit struct {
	ServiceID   string   `json:"service_id"`
	ServiceName string   `json:"service_name"`
	Rate        Rate     `json:"rate"`
	Limit       Limit    `json:"service_limit"`
	Merchants   []string `json:"merchants"`
}

// DisplayName returns the service name, falling back to the ID.
func (b *Benefit) DisplayName() string {
	if b.ServiceName != "" {
		return b.ServiceName
	}
	return b.ServiceID
}

// String returns a string representation of the Benefit.
func (b *Benefit) String() string {
	return fmt.Sprintf("Benefit{ID: %s, Rate: %s %s, Merchants: %d}",
		b.ServiceID, b.Rate.Value.String(), b.Rate.Unit, len(b.Merchants))
}

// AnnualFee holds the fee structure of a card product.
type AnnualFee struct {
	Basic decimal.Decimal `json:"basic"`
	Total decimal.Decimal `json:"total"`
}

// Effective returns the fee to display: basic when set, otherwise total.
func (f AnnualFee) Effective() decimal.Decimal {
	if f.Basic.IsPositive() {
		return f.Basic
	}
	return f.Total
}

// CardProduct represents one card product and its ordered benefit mapping.
// The mapping order defines benefit match priority.
type CardProduct struct {
	ProductName    string    `json:"product_name"`
	AnnualFee      AnnualFee `json:"annual_fee"`
	ServiceMapping []string  `json:"card_service_mapping"`
}

// CardData mirrors the card data interchange file: a products list and a
// services list.
type CardData struct {
	Products []CardProduct `json:"card_products"`
	Services []Benefit     `json:"card_services"`
}

// ServiceMap builds a service-ID lookup over the services list. Match order
// is carried by CardProduct.ServiceMapping, not by this map.
func (cd *CardData) ServiceMap() map[string]*Benefit {
	services := make(map[string]*Benefit, len(cd.Services))
	for i := range cd.Services {
		services[cd.Services[i].ServiceID] = &cd.Services[i]
	}
	return services
}

// Accepted record field names, tried in order.
var (
	amountFields   = []string{"amount", "sale_amount"}
	dateFields     = []string{"transaction_date", "date", "sale_date"}
	categoryFields = []string{"sale_category_code", "category_code", "mcc"}
)

// recordDateFormats are the date layouts accepted in transaction batches.
var recordDateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// Record is a single duck-typed transaction record from a customer batch.
// Field access goes through explicit ordered-fallback accessors rather than
// struct tags because upstream batches are not schema-stable.
type Record map[string]interface{}

// Amount returns the transaction amount from the first accepted amount field
// that holds a usable positive number.
func (r Record) Amount() (decimal.Decimal, bool) {
	for _, field := range amountFields {
		raw, present := r[field]
		if !present {
			continue
		}
		amount, ok := toDecimal(raw)
		if ok && amount.IsPositive() {
			return amount, true
		}
	}
	return decimal.Zero, false
}

// HasAmountField reports whether any accepted amount field is present,
// regardless of whether its value is usable.
func (r Record) HasAmountField() bool {
	for _, field := range amountFields {
		if _, present := r[field]; present {
			return true
		}
	}
	return false
}

// MerchantName returns the merchant name field when present and non-empty.
func (r Record) MerchantName() (string, bool) {
	raw, present := r["merchant_name"]
	if !present {
		return "", false
	}
	name, ok := raw.(string)
	if !ok || strings.TrimSpace(name) == "" {
		return "", false
	}
	return name, true
}

// HasMerchantField reports whether the merchant name field is present.
func (r Record) HasMerchantField() bool {
	_, present := r["merchant_name"]
	return present
}

// Date returns the transaction date from the first accepted date field that
// parses. When no date field is present or parseable it returns now; this
// fallback is an explicit policy so undated records still land in a month
// bucket instead of being dropped.
func (r Record) Date(now time.Time) time.Time {
	for _, field := range dateFields {
		raw, present := r[field]
		if !present {
			continue
		}
		str, ok := raw.(string)
		if !ok {
			continue
		}
		for _, format := range recordDateFormats {
			if t, err := time.Parse(format, strings.TrimSpace(str)); err == nil {
				return t
			}
		}
	}
	return now
}

// CategoryCode returns the merchant category code from the first accepted
// category field that is present.
func (r Record) CategoryCode() (string, bool) {
	for _, field := range categoryFields {
		raw, present := r[field]
		if !present {
			continue
		}
		switch v := raw.(type) {
		case string:
			if v != "" {
				return v, true
			}
		case float64:
			return fmt.Sprintf("%.0f", v), true
		}
	}
	return "", false
}

// toDecimal converts a JSON-decoded value to a decimal amount.
func toDecimal(raw interface{}) (decimal.Decimal, bool) {
	switch v := raw.(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

// MonthKey derives the year-month grouping key for a transaction date.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// MonthlyLedger tracks cumulative granted discounts per (year-month, service).
// It is owned exclusively by a single customer analysis: created fresh per
// customer and discarded after the summary is produced.
type MonthlyLedger struct {
	months map[string]map[string]decimal.Decimal
}

// NewMonthlyLedger creates an empty ledger.
func NewMonthlyLedger() *MonthlyLedger {
	return &MonthlyLedger{months: make(map[string]map[string]decimal.Decimal)}
}

// Granted returns the cumulative discount already granted for a service in
// the given month.
func (ml *MonthlyLedger) Granted(month, serviceID string) decimal.Decimal {
	if byService, ok := ml.months[month]; ok {
		return byService[serviceID]
	}
	return decimal.Zero
}

// Add records an additional granted discount for a service in a month.
func (ml *MonthlyLedger) Add(month, serviceID string, amount decimal.Decimal) {
	byService, ok := ml.months[month]
	if !ok {
		byService = make(map[string]decimal.Decimal)
		ml.months[month] = byService
	}
	byService[serviceID] = byService[serviceID].Add(amount)
}

// Months returns the ledger months in sorted order.
func (ml *MonthlyLedger) Months() []string {
	months := make([]string, 0, len(ml.months))
	for month := range ml.months {
		months = append(months, month)
	}
	sort.Strings(months)
	return months
}

// Services returns the service IDs with ledger entries in a month, sorted.
func (ml *MonthlyLedger) Services(month string) []string {
	byService, ok := ml.months[month]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(byService))
	for id := range byService {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CustomerSummary is the immutable result of analyzing one customer batch.
type CustomerSummary struct {
	FileName                string          `json:"file_name"`
	TotalSales              decimal.Decimal `json:"total_sales"`
	TotalBenefitCost        decimal.Decimal `json:"total_benefit_cost"`
	OurCostRatio            float64         `json:"our_cost_ratio"`
	TotalTransactions       int             `json:"total_transactions"`
	TransactionsWithBenefit int             `json:"transactions_with_benefit"`
	BenefitApplicationRate  float64         `json:"benefit_application_rate"`
}

// GroupSummary is the immutable rollup of one customer cohort. Its ratios are
// computed from summed absolutes, not averages of member ratios.
type GroupSummary struct {
	GroupName               string          `json:"group_name"`
	ProcessedCustomers      int             `json:"processed_customers"`
	TotalSales              decimal.Decimal `json:"total_sales"`
	TotalBenefitCost        decimal.Decimal `json:"total_benefit_cost"`
	TotalTransactions       int             `json:"total_transactions"`
	TransactionsWithBenefit int             `json:"transactions_with_benefit"`
	OurCostRatio            float64         `json:"our_cost_ratio"`
	BenefitApplicationRate  float64         `json:"benefit_application_rate"`
}

// PortfolioSummary is the final report payload. AverageCostRatio and
// AverageBenefitRate are unweighted arithmetic means of the group ratios,
// a deliberate asymmetry against the sum-based group ratios.
type PortfolioSummary struct {
	RunID              string          `json:"run_id"`
	ProductName        string          `json:"product_name"`
	AnnualFee          decimal.Decimal `json:"annual_fee"`
	ServiceCount       int             `json:"service_count"`
	MappedServiceCount int             `json:"mapped_service_count"`
	Groups             []GroupSummary  `json:"groups"`
	AverageCostRatio   float64         `json:"average_cost_ratio"`
	AverageBenefitRate float64         `json:"average_benefit_rate"`
	Advisories         []string        `json:"advisories"`
	GeneratedAt        time.Time       `json:"generated_at"`
}

// Ratio computes part/whole*100 guarding the zero denominator to 0,
// never NaN or Inf.
func Ratio(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	ratio, _ := part.Div(whole).Mul(decimal.NewFromInt(100)).Float64()
	return ratio
}

// CountRatio computes count/total*100 with the same zero guard.
func CountRatio(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}
