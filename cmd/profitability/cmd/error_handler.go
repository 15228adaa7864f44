package cmd

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"card-profitability-service/pkg/errors"
	"card-profitability-service/pkg/logger"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError prints a user-friendly message for err and returns the process
// exit code.
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("Command failed")

	var analysisErr *errors.AnalysisError
	if stderrors.As(err, &analysisErr) {
		return h.handleAnalysisError(analysisErr)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

// handleAnalysisError renders the message, context, suggestion, and
// category-specific help of a terminal analyzer error.
func (h *CLIErrorHandler) handleAnalysisError(err *errors.AnalysisError) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", err.Suggestion)
	}

	if help := categoryHelp(err.Category); help != "" {
		fmt.Fprintf(os.Stderr, "\n%s\n", help)
	}

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.ExitCode()
}

// categoryHelp returns category-specific help text
func categoryHelp(category errors.Category) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Check that the path is correct (use absolute paths if needed)
• Verify the file or directory exists and is readable
• Location settings come from flags, PROFITABILITY_* environment variables, or a .env file`

	case errors.CategoryParse:
		return `Parse error help:
• Verify the file is valid JSON
• Card data needs "card_products" and "card_services" arrays
• Transaction batches are JSON arrays of record objects
• The merchant fee table needs "categories" and "industryBenchmarks"`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and arguments
• Set required locations via flags or the PROFITABILITY_* environment
• Use 'profitability analyze --help' to see all available options`

	case errors.CategoryAnalysis:
		return `Analysis error help:
• Check that the card data file declares at least one product
• Verify the transaction data directory contains group subdirectories
• Each group directory holds per-customer *.json batch files`

	default:
		return ""
	}
}
