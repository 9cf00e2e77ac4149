// Package cmd provides CLI command implementations
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChrisMcGann/lipidquant/pkg/config"
	"github.com/ChrisMcGann/lipidquant/pkg/metrics"
)

var (
	// Global flags
	cfgFile    string
	verbose    bool
	metricsOut string

	// Set up by setup before any subcommand runs
	cfg        config.Config
	logger     *zap.Logger
	appMetrics *metrics.Metrics
)

// flagKeys maps command line flags to the config keys they override
var flagKeys = map[string]string{
	"library":       "library",
	"elements":      "elements",
	"adducts":       "adducts",
	"rules":         "rules",
	"isotopes":      "isotopes.count",
	"internal":      "standards.internal-prefix",
	"external":      "standards.external-prefix",
	"max-isotopes":  "filter.max-isotopes",
	"area-cutoff":   "filter.area-cutoff",
	"min-area":      "filter.min-area",
	"modifications": "filter.modifications",
	"chain-top-n":   "filter.chain-top-n",
	"command":       "translate.command",
	"format":        "translate.format",
	"max-piece-mb":  "translate.max-piece-mb",
	"poll-interval": "translate.poll-interval",
}

var rootCmd = &cobra.Command{
	Use:   "lipidquant",
	Short: "lipidquant - Lipid MS quantification tool",
	Long: `lipidquant aggregates lipid identifications of LC-MS experiments into
quantified species records.

Supported workflows:
- Quantify hit lists (block text or XLSX) into per-species records
- Extrapolate unmeasured isotopes from predicted isotope distributions
- Build and inspect SQLite reference libraries (elements, adducts, rules)
- Translate raw chromatogram files with an external converter`,
	Version:            "1.0.0",
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(quantifyCmd)
	rootCmd.AddCommand(libraryCmd)
	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(formulaCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to a YAML config file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&metricsOut, "metrics-out", "", "Write prometheus metrics to this textfile after the run")
	flags.String("library", "", "Path to a SQLite reference library")
	flags.String("elements", "", "Path to an element CSV (symbol,offset,mass,abundance)")
	flags.String("adducts", "", "Path to an adduct CSV (name,formula,charge)")
	flags.String("rules", "", "Path to a rule CSV (class,modification,rtPostprocessing)")
	flags.Int("isotopes", 3, "Number of isotopes predicted per modification")
}

// setup loads the configuration and creates the logger and metrics shared by all commands
func setup(cmd *cobra.Command, args []string) error {
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return err
	}

	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("error binding flag %s: %w", name, err)
			}
		}
	}

	cfg, err = config.New(v)
	if err != nil {
		printErrors("Invalid configuration", err)
		return fmt.Errorf("invalid configuration")
	}

	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	appMetrics, err = metrics.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	if v.ConfigFileUsed() != "" {
		logger.Debug("loaded config", zap.String("path", v.ConfigFileUsed()))
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	defer logger.Sync() //nolint:errcheck

	if metricsOut != "" {
		if err := appMetrics.WriteTextfile(metricsOut); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

// printErrors prints every error collected in a multierror
func printErrors(title string, err error) {
	fmt.Fprintln(os.Stderr, title)
	if merr, ok := err.(*multierror.Error); ok {
		for _, e := range merr.Errors {
			fmt.Fprintln(os.Stderr, " ", e)
		}
		return
	}
	fmt.Fprintln(os.Stderr, " ", err)
}
