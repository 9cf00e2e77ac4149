package aggregate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ChrisMcGann/lipidquant/pkg/chain"
	"github.com/ChrisMcGann/lipidquant/pkg/core"
	"github.com/ChrisMcGann/lipidquant/pkg/identification"
	"github.com/ChrisMcGann/lipidquant/pkg/metrics"
)

// Default name prefixes marking standards
const (
	DefaultInternalStandardPrefix = "IS"
	DefaultExternalStandardPrefix = "ES"
)

// Builder folds the identifications of an experiment into result records
type Builder struct {
	logger         *zap.Logger
	metrics        *metrics.Metrics
	internalPrefix string
	externalPrefix string
}

// Option configures a Builder
type Option func(*Builder)

// WithLogger sets the logger multi-peak warnings and rejected hits are reported to
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics sets the counters the builder updates
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithStandardPrefixes sets the name prefixes of internal and external standards
func WithStandardPrefixes(internal, external string) Option {
	return func(b *Builder) {
		b.internalPrefix = internal
		b.externalPrefix = external
	}
}

// NewBuilder creates a Builder
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		logger:         zap.NewNop(),
		internalPrefix: DefaultInternalStandardPrefix,
		externalPrefix: DefaultExternalStandardPrefix,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type recordKey struct {
	name        string
	doubleBonds int
	rt          string
}

// window is the record of one retention-time label together with the area of the strongest
// monoisotopic probe seen per modification
type window struct {
	record *ResultArea
	apex   map[string]float64
}

type speciesKey struct {
	name        string
	doubleBonds int
}

// Build creates one record per species of an experiment, sorted by name. Hits are first
// grouped by retention-time label; the groups of a species are then combined. All hits of a
// label must share one percental split. Hits that cannot be added are skipped without changing
// any record and returned as a multierror next to the records.
func (b *Builder) Build(ctx context.Context, experiment string, hits []*identification.AnalyteIdentification) ([]*ResultArea, error) {
	log := b.logger.With(zap.String("experiment", experiment))

	var merr *multierror.Error
	windows := make(map[recordKey]*window)
	var order []recordKey

	for _, hit := range hits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key := recordKey{name: hit.Name(), doubleBonds: hit.DoubleBonds(), rt: hit.Rt()}
		w, known := windows[key]
		if !known {
			record, err := b.newRecord(experiment, hit)
			if err != nil {
				merr = multierror.Append(merr, err)
				b.metrics.RecordHit("error")
				log.Warn("skipping identification", zap.String("species", hit.NameString()), zap.Error(err))
				continue
			}
			w = &window{record: record, apex: make(map[string]float64)}
		}
		// a rejected hit leaves the record untouched; a record created for it is dropped
		if err := checkHit(w.record, hit); err != nil {
			merr = multierror.Append(merr, err)
			b.metrics.RecordHit("error")
			log.Warn("skipping identification", zap.String("species", hit.NamePlusModHumanReadable()), zap.Error(err))
			continue
		}
		if !known {
			windows[key] = w
			order = append(order, key)
			b.metrics.RecordRecord("created")
		}
		if err := b.addHit(log, w, hit); err != nil {
			merr = multierror.Append(merr, err)
			b.metrics.RecordHit("error")
			log.Warn("skipping identification", zap.String("species", hit.NamePlusModHumanReadable()), zap.Error(err))
			continue
		}
		b.metrics.RecordHit("accepted")
	}

	species := make(map[speciesKey]*ResultArea)
	var result []*ResultArea
	for _, key := range order {
		sk := speciesKey{name: key.name, doubleBonds: key.doubleBonds}
		record := windows[key].record
		base, ok := species[sk]
		if !ok {
			species[sk] = record
			result = append(result, record)
			continue
		}
		if err := base.Combine(record); err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		b.metrics.RecordRecord("combined")
		log.Debug("combined retention-time window",
			zap.String("species", base.MoleculeNameWithoutRt()),
			zap.String("rt", key.rt),
			zap.String("representative_rt", base.Rt()))
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].MoleculeNameWithoutRt() < result[j].MoleculeNameWithoutRt()
	})
	return result, merr.ErrorOrNil()
}

func (b *Builder) newRecord(experiment string, hit *identification.AnalyteIdentification) (*ResultArea, error) {
	formula, err := core.ParseFormula(hit.AnalyteFormula())
	if err != nil {
		return nil, fmt.Errorf("identification %s: %w", hit.NameString(), err)
	}
	neutralMass, err := core.CalculateNeutralMass(formula)
	if err != nil {
		return nil, fmt.Errorf("identification %s: %w", hit.NameString(), err)
	}
	split, _ := hit.PercentalSplit()
	return NewResultArea(Params{
		Name:             hit.Name(),
		DoubleBonds:      hit.DoubleBonds(),
		Rt:               hit.Rt(),
		Experiment:       experiment,
		ChemicalFormula:  hit.AnalyteFormula(),
		PercentalSplit:   split,
		NeutralMass:      neutralMass,
		InternalStandard: b.internalPrefix != "" && strings.HasPrefix(hit.Name(), b.internalPrefix),
		ExternalStandard: b.externalPrefix != "" && strings.HasPrefix(hit.Name(), b.externalPrefix),
	})
}

// checkHit reports why a hit cannot be added to record. It runs before anything is changed.
func checkHit(record *ResultArea, hit *identification.AnalyteIdentification) error {
	if _, err := core.ParseFormula(hit.ModificationFormula()); err != nil {
		return fmt.Errorf("identification %s: %w", hit.NamePlusModHumanReadable(), err)
	}

	split, _ := hit.PercentalSplit()
	if splitFactor(split) != record.PercentalSplit() {
		return &core.PreconditionError{
			Op:      "add identification",
			Message: fmt.Sprintf("split of %s differs from the split of its retention-time window", hit.NamePlusModHumanReadable()),
		}
	}

	if hit.MSn != nil {
		names := make([]string, 0, len(hit.MSn.ChainCombinations))
		for name := range hit.MSn.ChainCombinations {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if _, _, err := chain.Canonical(name); err != nil {
				return fmt.Errorf("identification %s: %w", hit.NamePlusModHumanReadable(), err)
			}
		}
	}
	return nil
}

func (b *Builder) addHit(log *zap.Logger, w *window, hit *identification.AnalyteIdentification) error {
	record := w.record
	mod := hit.ModificationName()
	experimentalMz := hit.Mz()
	strongest, found := hit.Peak.StrongestProbe(0)
	if found && strongest.Mz > 0 {
		experimentalMz = strongest.Mz
	}
	if err := record.AddResultPart(mod, hit.ModificationFormula(), hit.Mz(), experimentalMz, hit.Charge(), hit.Rt()); err != nil {
		return err
	}
	if found {
		if best, seen := w.apex[mod]; !seen || strongest.Area > best {
			w.apex[mod] = strongest.Area
			if err := record.SetRetentionTime(mod, strongest.Peak/60); err != nil {
				return err
			}
		}
	}

	for i := range hit.Peak.IsotopicProbes {
		insertion, err := record.AddArea(mod, i, hit.Peak.IsotopeArea(i))
		if err != nil {
			return err
		}
		if insertion.Kind == Merged {
			b.metrics.RecordMultiPeak(record.Experiment())
			log.Warn("more than one peak for isotope",
				zap.String("species", record.MoleculeName()),
				zap.String("modification", mod),
				zap.Int("isotope", i))
		}
	}

	if hit.MSn != nil {
		record.SetMsnEvidence(true)
		if len(hit.MSn.ChainCombinations) > 0 {
			if _, err := record.AddChainInformation(mod, hit.MSn.ChainCombinations); err != nil {
				return err
			}
		}
	}
	return nil
}

// BuildAll builds every experiment in its own goroutine. Each goroutine owns its records.
// Hit errors of all experiments are collected; a cancelled context aborts the whole run.
func (b *Builder) BuildAll(ctx context.Context, hits map[string][]*identification.AnalyteIdentification) (map[string][]*ResultArea, error) {
	experiments := make([]string, 0, len(hits))
	for exp := range hits {
		experiments = append(experiments, exp)
	}
	sort.Strings(experiments)

	results := make([][]*ResultArea, len(experiments))
	errs := make([]error, len(experiments))

	g, gctx := errgroup.WithContext(ctx)
	for i, exp := range experiments {
		i, exp := i, exp
		g.Go(func() error {
			records, err := b.Build(gctx, exp, hits[exp])
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			results[i] = records
			errs[i] = err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merr *multierror.Error
	out := make(map[string][]*ResultArea, len(experiments))
	for i, exp := range experiments {
		out[exp] = results[i]
		if errs[i] != nil {
			merr = multierror.Append(merr, fmt.Errorf("experiment %s: %w", exp, errs[i]))
		}
	}
	return out, merr.ErrorOrNil()
}
