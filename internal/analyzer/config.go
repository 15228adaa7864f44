package analyzer

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Thresholds are the advisory sustainability bounds a benefit program is
// checked against. They never block execution; they only annotate the report.
type Thresholds struct {
	// GroupCostRateWarn flags an individual group whose cost ratio exceeds it.
	GroupCostRateWarn float64 `json:"group_cost_rate_warn"`
	// GroupCostRateMax is the reference ceiling for the worst group.
	GroupCostRateMax float64 `json:"group_cost_rate_max"`
	// AvgCostRateMin / AvgCostRateMax bound the recommended portfolio average.
	AvgCostRateMin float64 `json:"avg_cost_rate_min"`
	AvgCostRateMax float64 `json:"avg_cost_rate_max"`
	// MonthlyLimitSumMax is the reference ceiling for the sum of the mapped
	// benefits' monthly caps.
	MonthlyLimitSumMax decimal.Decimal `json:"monthly_limit_sum_max"`
}

// DefaultThresholds returns the advisory thresholds used by the product team.
func DefaultThresholds() Thresholds {
	return Thresholds{
		GroupCostRateWarn:  1.0,
		GroupCostRateMax:   0.9,
		AvgCostRateMin:     0.3,
		AvgCostRateMax:     0.6,
		MonthlyLimitSumMax: decimal.NewFromInt(70000),
	}
}

// Config holds the aggregation settings for a portfolio run.
type Config struct {
	// MaxGroups bounds how many customer groups are sampled.
	MaxGroups int `json:"max_groups"`
	// Concurrency bounds how many customer batches are read at once within
	// one group. Matching and calculation still run to completion per
	// customer once scheduled; concurrency only overlaps file reads.
	Concurrency int `json:"concurrency"`
	// Thresholds are the advisory sustainability bounds.
	Thresholds Thresholds `json:"thresholds"`
}

// DefaultConfig returns the default aggregation configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxGroups:   50,
		Concurrency: 4,
		Thresholds:  DefaultThresholds(),
	}
}

// Validate validates the aggregation configuration.
func (c *Config) Validate() error {
	if c.MaxGroups <= 0 {
		return fmt.Errorf("max groups must be positive, got %d", c.MaxGroups)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.Thresholds.AvgCostRateMin > c.Thresholds.AvgCostRateMax {
		return fmt.Errorf("average cost rate band is inverted: %.2f > %.2f",
			c.Thresholds.AvgCostRateMin, c.Thresholds.AvgCostRateMax)
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
