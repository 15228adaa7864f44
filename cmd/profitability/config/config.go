// Package config assembles component configurations from CLI flags and
// environment variables for the profitability CLI.
package config

import (
	"os"
	"time"

	"github.com/spf13/viper"

	"card-profitability-service/internal/analyzer"
	"card-profitability-service/internal/matcher"
	"card-profitability-service/internal/mcc"
	"card-profitability-service/internal/reporter"
	"card-profitability-service/pkg/errors"
)

// Locations are the environment-provided file and directory locations a run
// depends on. Card data, fee table, and transaction data are required; the
// classification cache and trace directory are optional.
type Locations struct {
	CardDataDir        string
	MerchantFeePath    string
	MCCCachePath       string
	TransactionDataDir string
	TraceDir           string
}

// ResolveLocations reads the locations from viper (flags and the
// PROFITABILITY_* environment).
func ResolveLocations() *Locations {
	return &Locations{
		CardDataDir:        viper.GetString("card-data-dir"),
		MerchantFeePath:    viper.GetString("merchant-fee-path"),
		MCCCachePath:       viper.GetString("mcc-cache-path"),
		TransactionDataDir: viper.GetString("transaction-data-dir"),
		TraceDir:           viper.GetString("trace-dir"),
	}
}

// Validate checks that the required locations are set and exist. Missing
// required inputs fail clearly up front rather than silently returning
// misleading zeros.
func (l *Locations) Validate() error {
	if l.CardDataDir == "" {
		return errors.ConfigError(errors.CodeMissingConfig, "PROFITABILITY_CARD_DATA_DIR", nil)
	}
	if l.MerchantFeePath == "" {
		return errors.ConfigError(errors.CodeMissingConfig, "PROFITABILITY_MERCHANT_FEE_PATH", nil)
	}
	if l.TransactionDataDir == "" {
		return errors.ConfigError(errors.CodeMissingConfig, "PROFITABILITY_TRANSACTION_DATA_DIR", nil)
	}

	if _, err := os.Stat(l.TransactionDataDir); err != nil {
		return errors.FileError(errors.CodeDirectoryError, l.TransactionDataDir, err)
	}

	return nil
}

// CreateAnalyzerConfig builds the aggregation configuration with CLI
// overrides applied.
func CreateAnalyzerConfig(maxGroups, concurrency int) *analyzer.Config {
	config := analyzer.DefaultConfig()
	if maxGroups > 0 {
		config.MaxGroups = maxGroups
	}
	if concurrency > 0 {
		config.Concurrency = concurrency
	}
	return config
}

// CreateMatcherConfig builds the benefit matching configuration.
func CreateMatcherConfig() *matcher.Config {
	return matcher.DefaultConfig()
}

// CreateReportConfig builds the report configuration.
func CreateReportConfig(format string, thresholds analyzer.Thresholds) *reporter.Config {
	config := reporter.DefaultConfig()
	config.Format = reporter.OutputFormat(format)
	config.Thresholds = thresholds
	return config
}

// CreateMCCClientConfig builds the classification client configuration from
// the environment. An unset endpoint or API key disables lookups.
func CreateMCCClientConfig() *mcc.ClientConfig {
	config := mcc.DefaultClientConfig()
	config.Endpoint = viper.GetString("industry-bot-endpoint")
	config.APIKey = viper.GetString("industry-bot-api-key")
	if timeout := viper.GetInt("industry-bot-timeout"); timeout > 0 {
		config.Timeout = time.Duration(timeout) * time.Second
	}
	return config
}
