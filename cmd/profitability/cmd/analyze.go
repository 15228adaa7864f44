package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"card-profitability-service/cmd/profitability/config"
	"card-profitability-service/internal/analyzer"
	"card-profitability-service/internal/fees"
	"card-profitability-service/internal/mcc"
	"card-profitability-service/internal/models"
	"card-profitability-service/internal/parsers"
	"card-profitability-service/internal/reporter"
	"card-profitability-service/pkg/logger"
)

// Flags for the analyze command
var (
	cardFile      string
	maxGroups     int
	concurrency   int
	outputFormat  string
	outputFile    string
	writeTraces   bool
	skipMCCLookup bool
	showProgress  bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze the profitability of a card benefit program",
	Long: `Analyze replays the historical customer transaction batches against a
card's benefit rules and reports the resulting cost ratios per customer group
and across the portfolio.

Required locations come from flags, PROFITABILITY_* environment variables, or
a .env file: the card data directory, the merchant fee table path, and the
transaction data directory.

Examples:
  # Basic analysis
  profitability analyze --card-file premium_card.json

  # Limit the sampled groups and emit JSON
  profitability analyze --card-file premium_card.json --max-groups 10 \
    --output-format json --output-file report.json

  # Skip the external merchant classification lookup
  profitability analyze --card-file premium_card.json --skip-mcc-lookup`,

	PreRunE: validateAnalyzeFlags,
	RunE:    runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&cardFile, "card-file", "c", "", "card data JSON file name (required)")
	analyzeCmd.Flags().IntVar(&maxGroups, "max-groups", 50, "maximum number of customer groups to sample")
	analyzeCmd.Flags().IntVar(&concurrency, "concurrency", 4, "customer batches read concurrently within a group")
	analyzeCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json")
	analyzeCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	analyzeCmd.Flags().BoolVar(&writeTraces, "trace", true, "write per-customer and per-group audit traces")
	analyzeCmd.Flags().BoolVar(&skipMCCLookup, "skip-mcc-lookup", false, "skip the external merchant classification lookup")
	analyzeCmd.Flags().BoolVar(&showProgress, "progress", false, "show progress indicators")

	// Location flags; the PROFITABILITY_* environment fills any left unset.
	analyzeCmd.Flags().String("card-data-dir", "", "directory holding card data files")
	analyzeCmd.Flags().String("merchant-fee-path", "", "path to the merchant fee table")
	analyzeCmd.Flags().String("mcc-cache-path", "", "path to the merchant classification cache")
	analyzeCmd.Flags().String("transaction-data-dir", "", "directory holding per-group transaction batches")
	analyzeCmd.Flags().String("trace-dir", "", "directory for audit traces")

	analyzeCmd.MarkFlagRequired("card-file")

	viper.BindPFlag("card-file", analyzeCmd.Flags().Lookup("card-file"))
	viper.BindPFlag("max-groups", analyzeCmd.Flags().Lookup("max-groups"))
	viper.BindPFlag("concurrency", analyzeCmd.Flags().Lookup("concurrency"))
	viper.BindPFlag("output-format", analyzeCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", analyzeCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("card-data-dir", analyzeCmd.Flags().Lookup("card-data-dir"))
	viper.BindPFlag("merchant-fee-path", analyzeCmd.Flags().Lookup("merchant-fee-path"))
	viper.BindPFlag("mcc-cache-path", analyzeCmd.Flags().Lookup("mcc-cache-path"))
	viper.BindPFlag("transaction-data-dir", analyzeCmd.Flags().Lookup("transaction-data-dir"))
	viper.BindPFlag("trace-dir", analyzeCmd.Flags().Lookup("trace-dir"))
}

func validateAnalyzeFlags(cmd *cobra.Command, args []string) error {
	// Values may be overridden by config file or environment.
	cardFile = viper.GetString("card-file")
	maxGroups = viper.GetInt("max-groups")
	concurrency = viper.GetInt("concurrency")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")

	if cardFile == "" {
		return fmt.Errorf("card-file is required")
	}
	if maxGroups <= 0 {
		return fmt.Errorf("max-groups must be positive")
	}
	if concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}

	if !reporter.OutputFormat(outputFormat).IsValid() {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json", outputFormat)
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	log := buildLogger()

	locations := config.ResolveLocations()
	if err := locations.Validate(); err != nil {
		return err
	}

	cardData, err := parsers.LoadCardData(filepath.Join(locations.CardDataDir, cardFile))
	if err != nil {
		return err
	}

	feeTable, err := fees.Load(locations.MerchantFeePath)
	if err != nil {
		return err
	}

	cache := updateClassificationCache(ctx, cardData, locations, log)

	sink, traceDir := buildTraceSink(locations, log)

	analyzerConfig := config.CreateAnalyzerConfig(maxGroups, concurrency)
	portfolio, err := analyzer.NewPortfolioAnalyzer(analyzerConfig, cardData, config.CreateMatcherConfig(), sink)
	if err != nil {
		return err
	}

	if showProgress {
		portfolio.AddProgressCallback(func(progress *analyzer.Progress) {
			fmt.Fprintf(os.Stderr, "\r[%d/%d] %s", progress.CompletedGroups,
				progress.TotalGroups, progress.CurrentGroup)
		})
	}

	summary, err := portfolio.Analyze(ctx, locations.TransactionDataDir)
	if err != nil {
		return err
	}
	if showProgress {
		fmt.Fprintf(os.Stderr, "\n")
	}

	if cache != nil {
		if err := cache.Save(); err != nil {
			log.WithError(err).Warn("failed to persist classification cache")
		}
	}

	return writeReport(summary, cardData, feeTable, analyzerConfig, traceDir)
}

// buildLogger configures the global logger from the verbose flag.
func buildLogger() logger.Logger {
	cfg := logger.DefaultConfig()
	if viper.GetBool("verbose") {
		cfg = logger.DebugConfig()
	}
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return logger.GetGlobalLogger()
	}
	logger.SetGlobalLogger(log)
	return log.WithComponent("analyze")
}

// updateClassificationCache refreshes the MCC cache for any benefit merchants
// it does not know yet. Best effort: classification never gates the run.
func updateClassificationCache(ctx context.Context, cardData *models.CardData, locations *config.Locations, log logger.Logger) *mcc.Cache {
	if locations.MCCCachePath == "" {
		return nil
	}

	cache := mcc.LoadCache(locations.MCCCachePath)
	if skipMCCLookup {
		return cache
	}

	merchantLists := make([][]string, 0, len(cardData.Services))
	for _, service := range cardData.Services {
		merchantLists = append(merchantLists, service.Merchants)
	}
	missing := cache.Missing(mcc.ServiceMerchants(merchantLists))
	if len(missing) == 0 {
		return cache
	}

	log.Infof("classifying %d unknown merchants", len(missing))
	client := mcc.NewClient(config.CreateMCCClientConfig())
	cache.Update(client.LookupCodes(ctx, missing))
	return cache
}

// buildTraceSink creates the trace writer when tracing is enabled and a
// trace directory is configured.
func buildTraceSink(locations *config.Locations, log logger.Logger) (analyzer.TraceSink, string) {
	if !writeTraces || locations.TraceDir == "" {
		return nil, ""
	}
	writer, err := reporter.NewTraceWriter(locations.TraceDir)
	if err != nil {
		log.WithError(err).Warn("trace directory unavailable, continuing without traces")
		return nil, ""
	}
	return writer, writer.Dir()
}

// writeReport renders the portfolio summary to the chosen destination.
func writeReport(summary *models.PortfolioSummary, cardData *models.CardData, feeTable *fees.Table, analyzerConfig *analyzer.Config, traceDir string) error {
	reportConfig := config.CreateReportConfig(outputFormat, analyzerConfig.Thresholds)
	reportConfig.FeeTable = feeTable
	reportConfig.Benefits = cardData.ServiceMap()
	reportConfig.TraceDir = traceDir

	generator, err := reporter.NewGenerator(reportConfig)
	if err != nil {
		return fmt.Errorf("failed to create report generator: %w", err)
	}

	output := os.Stdout
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	}

	return generator.Generate(summary, output)
}
