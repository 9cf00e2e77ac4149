package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChrisMcGann/lipidquant/pkg/aggregate"
	"github.com/ChrisMcGann/lipidquant/pkg/core"
	"github.com/ChrisMcGann/lipidquant/pkg/identification"
	"github.com/ChrisMcGann/lipidquant/pkg/isotope"
	"github.com/ChrisMcGann/lipidquant/pkg/reader/hitlist"
	"github.com/ChrisMcGann/lipidquant/pkg/reader/xlsx"
)

var (
	experimentName string
	quantifyOut    string
)

var quantifyCmd = &cobra.Command{
	Use:   "quantify [files...]",
	Short: "Aggregate identifications into quantified species records",
	Long: `Read hit lists, combine the identifications of every species and print one
record per experiment and species.

Files ending in .xlsx are read as one worksheet per lipid class; everything else
is read as a block hit list.

Examples:
  # Quantify a hit list with the built-in reference data
  lipidquant quantify run1.hits

  # Quantify spreadsheets with a reference library, keeping only [M+H]+ and [M+Na]+
  lipidquant quantify --library reference.db --modifications H,Na run1.xlsx run2.xlsx`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuantify,
}

func init() {
	flags := quantifyCmd.Flags()
	flags.StringVarP(&experimentName, "experiment", "e", "", "Experiment name for hits without one (default: file name)")
	flags.StringVarP(&quantifyOut, "out", "o", "", "Write the records to this file instead of stdout")
	flags.String("internal", "IS", "Name prefix of internal standards")
	flags.String("external", "ES", "Name prefix of external standards")
	flags.Int("max-isotopes", 0, "Keep only the first N isotopes of every hit (0 = no limit)")
	flags.Float64("area-cutoff", 0, "Drop probes below this % of the strongest probe of their isotope")
	flags.Float64("min-area", 0, "Drop hits whose monoisotopic area is below this value")
	flags.StringSlice("modifications", nil, "Comma-separated modifications to keep (e.g., 'H,Na')")
	flags.Int("chain-top-n", 0, "Keep only the N strongest chain combinations (0 = no limit)")
}

func runQuantify(cmd *cobra.Command, args []string) error {
	ref, err := loadReference()
	if err != nil {
		printErrors("Loading reference data failed", err)
		return fmt.Errorf("failed to load reference data")
	}
	defer ref.Close()

	hits, readErr := readHits(args)
	if readErr != nil {
		printErrors("Some identifications could not be read", readErr)
	}

	byExperiment, dropped := prepareHits(hits, ref.rules)
	fmt.Fprintf(os.Stderr, "Read %d identifications, dropped %d by filters\n", len(hits), dropped)

	builder := aggregate.NewBuilder(
		aggregate.WithLogger(logger),
		aggregate.WithMetrics(appMetrics),
		aggregate.WithStandardPrefixes(cfg.Standards.InternalPrefix, cfg.Standards.ExternalPrefix),
	)
	records, buildErr := builder.BuildAll(cmd.Context(), byExperiment)
	if records == nil && buildErr != nil {
		return fmt.Errorf("failed to build records: %w", buildErr)
	}
	if buildErr != nil {
		printErrors("Some identifications were skipped", buildErr)
	}

	out := io.Writer(os.Stdout)
	if quantifyOut != "" {
		f, err := os.Create(quantifyOut)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	calc := isotope.NewCalculator(ref.elements, cfg.Isotopes.CacheTTL)
	if err := writeRecords(out, records, calc); err != nil {
		return err
	}
	if quantifyOut != "" {
		fmt.Fprintf(os.Stderr, "Output: %s\n", quantifyOut)
	}
	return nil
}

// readHits reads every input file. Files that fail entirely and malformed blocks are
// collected; the hits that could be read are still returned.
func readHits(paths []string) ([]*identification.Hit, error) {
	var hits []*identification.Hit
	var errs *multierror.Error

	for _, path := range paths {
		experiment := experimentName
		if experiment == "" {
			experiment = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}

		if strings.EqualFold(filepath.Ext(path), ".xlsx") {
			fileHits, err := xlsx.Load(path, experiment)
			hits = append(hits, fileHits...)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", path, err))
			}
			continue
		}

		f, err := os.Open(path)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("failed to open input file: %w", err))
			continue
		}
		grouped, err := hitlist.ReadAll(hitlist.NewReader(f, experiment))
		f.Close()
		for _, exp := range sortedKeys(grouped) {
			hits = append(hits, grouped[exp]...)
		}
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", path, err))
		}
	}
	return hits, errs.ErrorOrNil()
}

// prepareHits filters the hits and groups them by experiment. Identifications that
// qualify for retention-time post-processing are logged.
func prepareHits(hits []*identification.Hit, lookup identification.RuleLookup) (map[string][]*identification.AnalyteIdentification, int) {
	filter := cfg.HitFilter()
	byExperiment := make(map[string][]*identification.AnalyteIdentification)
	dropped := 0

	for _, hit := range hits {
		if !filter.Apply(hit.AnalyteIdentification) {
			dropped++
			appMetrics.RecordHit("filtered")
			continue
		}

		suitable, err := hit.SuitableForRtProcessing(hit.ClassName, lookup)
		var rle *core.RuleLookupError
		switch {
		case errors.As(err, &rle):
			logger.Debug("no retention-time rule", zap.String("rule", rle.Rule))
		case err != nil:
			logger.Warn("retention-time rule lookup failed", zap.Error(err))
		case suitable:
			logger.Debug("suitable for retention-time processing",
				zap.String("experiment", hit.Experiment),
				zap.String("species", hit.NamePlusModHumanReadable()))
		}

		byExperiment[hit.Experiment] = append(byExperiment[hit.Experiment], hit.AnalyteIdentification)
	}
	return byExperiment, dropped
}

func writeRecords(out io.Writer, records map[string][]*aggregate.ResultArea, calc isotope.Predictor) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Experiment\tSpecies\tRt\tModifications\tFormula\tArea\tIsotopeArea\tNeutralMass\tChains\tStandard")

	failures := 0
	for _, exp := range sortedKeys(records) {
		for _, r := range records[exp] {
			theoretical, err := r.TheoreticalIsotopeValue(calc, cfg.Isotopes.Count)
			if err != nil {
				var merr *multierror.Error
				if errors.As(err, &merr) {
					failures += len(merr.Errors)
				} else {
					failures++
				}
				logger.Warn("isotope extrapolation incomplete",
					zap.String("species", r.MoleculeName()),
					zap.Error(err))
			}

			chains, _ := r.StrongestChainIdentification()
			standard := ""
			switch {
			case r.InternalStandard():
				standard = "internal"
			case r.ExternalStandard():
				standard = "external"
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.1f\t%.1f\t%.4f\t%s\t%s\n",
				r.Experiment(),
				r.MoleculeNameWithoutRt(),
				r.Rt(),
				strings.Join(r.Modifications(), ","),
				r.ChemicalFormulaBase(),
				r.TotalArea(r.MaxIsotope()),
				theoretical,
				r.NeutralMass(),
				chains,
				standard,
			)
		}
	}

	appMetrics.RecordIsotopeFailures(failures)
	if failures > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d isotope predictions failed\n", failures)
	}
	return w.Flush()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
