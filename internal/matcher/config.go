package matcher

import "fmt"

// Config holds the matching configuration: the generic cafe token benefits
// may list, the cafe brand keywords, and the cafe merchant category code.
type Config struct {
	// CafeToken is the generic merchant token a benefit may list to cover
	// all cafe transactions, not just named brands.
	CafeToken string `json:"cafe_token"`

	// CafeKeywords are matched case-insensitively against merchant names.
	CafeKeywords []string `json:"cafe_keywords"`

	// CafeCategoryCode is the MCC value that marks a cafe transaction.
	CafeCategoryCode string `json:"cafe_category_code"`
}

// DefaultConfig returns the matching configuration used in production runs.
// The keyword set and category code are fixed by the benefit catalog owners.
func DefaultConfig() *Config {
	return &Config{
		CafeToken: "cafe",
		CafeKeywords: []string{
			"starbucks",
			"twosome",
			"ediya",
			"mega coffee",
			"paul bassett",
			"paris baguette",
			"tous les jours",
			"dunkin",
			"cafe",
			"coffee",
			"bakery",
			"brunch",
		},
		CafeCategoryCode: "5462",
	}
}

// Validate validates the matching configuration.
func (c *Config) Validate() error {
	if c.CafeToken == "" {
		return fmt.Errorf("cafe token cannot be empty")
	}
	if len(c.CafeKeywords) == 0 {
		return fmt.Errorf("cafe keyword list cannot be empty")
	}
	if c.CafeCategoryCode == "" {
		return fmt.Errorf("cafe category code cannot be empty")
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.CafeKeywords = append([]string(nil), c.CafeKeywords...)
	return &clone
}
