package aggregate

import (
	"context"
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ChrisMcGann/lipidquant/pkg/core"
	"github.com/ChrisMcGann/lipidquant/pkg/identification"
	"github.com/ChrisMcGann/lipidquant/pkg/metrics"
)

func hit(t *testing.T, name string, dbs int, mod, modFormula, rt string, rtSeconds float64, areas ...float64) *identification.AnalyteIdentification {
	t.Helper()
	h, err := identification.New(identification.Params{
		Mz:                  760.5851,
		Name:                name,
		DoubleBonds:         dbs,
		ModificationName:    mod,
		Rt:                  rt,
		AnalyteFormula:      "C42 H82 N1 O8 P1",
		ModificationFormula: modFormula,
		Charge:              1,
	})
	require.NoError(t, err)
	for i, a := range areas {
		h.Peak.IsotopicProbes = append(h.Peak.IsotopicProbes, []identification.Probe{
			{Area: a, Peak: rtSeconds, Mz: 760.5851 + float64(i)*1.00335, IsotopeNumber: i},
		})
		h.Peak.Area += a
	}
	return h
}

func TestBuild(t *testing.T) {
	obs, logs := observer.New(zap.WarnLevel)
	registry := prometheus.NewRegistry()
	m, err := metrics.NewMetrics(registry)
	require.NoError(t, err)

	b := NewBuilder(WithLogger(zap.New(obs)), WithMetrics(m))

	hits := []*identification.AnalyteIdentification{
		hit(t, "PC", 34, "H", "H1", "5.0", 300, 100, 40),
		hit(t, "PC", 34, "Na", "Na1", "5.0", 301, 30),
		hit(t, "PC", 34, "H", "H1", "5.2", 312, 150),
		hit(t, "PE", 36, "-H", "H-1", "4.1", 246, 80),
		hit(t, "PE", 36, "-H", "H-1", "4.1", 250, 20),
	}
	hits[0].MSn = &identification.MSnEvidence{ChainCombinations: map[string]float64{"18:1_16:0": 10}}

	records, err := b.Build(context.Background(), "exp1", hits)
	require.NoError(t, err)
	require.Len(t, records, 2)

	pc := records[0]
	assert.Equal(t, "PC:34", pc.MoleculeNameWithoutRt())
	assert.Equal(t, "5.2", pc.Rt(), "the stronger window wins")
	assert.Equal(t, 320.0, pc.TotalArea(2))
	assert.ElementsMatch(t, []string{"5.0", "5.2"}, pc.OriginalRts("H"))
	assert.True(t, pc.MsnEvidence())
	strongest, ok := pc.StrongestChainIdentification()
	require.True(t, ok)
	assert.Equal(t, "16:0_18:1", strongest)
	rt, ok := pc.RetentionTime("H")
	require.True(t, ok)
	assert.InDelta(t, 5.2, rt, 1e-9)
	assert.Greater(t, pc.NeutralMass(), 759.0)

	pe := records[1]
	assert.Equal(t, 100.0, pe.TotalAreaOfModification("-H", 1))
	assert.True(t, pe.MoreThanOnePeak(1)["-H"])
	assert.Equal(t, "C42 H81 N1 O8 P1", pe.ChemicalFormula("-H"))

	assert.Equal(t, 1, logs.FilterMessage("more than one peak for isotope").Len())
	assert.Equal(t, 5, countHits(t, registry, "accepted"))
}

func TestBuildStandards(t *testing.T) {
	b := NewBuilder(WithStandardPrefixes("IS", "ES"))
	records, err := b.Build(context.Background(), "exp1", []*identification.AnalyteIdentification{
		hit(t, "IS PC", 28, "H", "H1", "3.0", 180, 10),
		hit(t, "PC", 34, "H", "H1", "5.0", 300, 10),
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].IsStandard())
	assert.True(t, records[0].InternalStandard())
	assert.False(t, records[1].IsStandard())
}

func TestBuildSkipsBadHits(t *testing.T) {
	b := NewBuilder()
	badChain := hit(t, "PC", 34, "H", "H1", "5.0", 312, 40)
	badChain.MSn = &identification.MSnEvidence{ChainCombinations: map[string]float64{"garbage": 1}}
	badFormula := hit(t, "PS", 38, "Q", "Q", "6.0", 360, 70)

	records, err := b.Build(context.Background(), "exp1", []*identification.AnalyteIdentification{
		hit(t, "PC", 34, "H", "H1", "5.0", 300, 100),
		badChain,
		badFormula,
		hit(t, "PE", 36, "-H", "H-1", "4.1", 246, 80),
	})
	require.Error(t, err)
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 2)

	require.Len(t, records, 2, "no record is left for a species whose only hit failed")
	pc := records[0]
	assert.Equal(t, "PC:34", pc.MoleculeNameWithoutRt())
	assert.Equal(t, 100.0, pc.TotalArea(1))
	assert.False(t, pc.MoreThanOnePeak(1)["H"])
	assert.False(t, pc.MsnEvidence())
	assert.Empty(t, pc.ChainInformationTotal())
	rt, ok := pc.RetentionTime("H")
	require.True(t, ok)
	assert.InDelta(t, 5.0, rt, 1e-9)
	assert.Equal(t, "PE:36", records[1].MoleculeNameWithoutRt())
}

func TestBuildRejectsDifferentSplit(t *testing.T) {
	split := hit(t, "PC", 34, "H", "H1", "5.0", 300, 100)
	split.SetPercentalSplit(50)

	records, err := NewBuilder().Build(context.Background(), "exp1", []*identification.AnalyteIdentification{
		split,
		hit(t, "PC", 34, "H", "H1", "5.0", 306, 60),
	})
	var pe *core.PreconditionError
	require.True(t, errors.As(err, &pe))
	require.Len(t, records, 1)
	assert.Equal(t, 50.0, records[0].TotalArea(1))
	assert.False(t, records[0].MoreThanOnePeak(1)["H"])
}

func TestBuildStrongestHitSetsRetentionTime(t *testing.T) {
	tests := []struct {
		name   string
		areas  [2]float64
		wantRt float64
	}{
		{"later hit stronger", [2]float64{100, 150}, 5.2},
		{"first hit stronger", [2]float64{150, 100}, 5.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := NewBuilder().Build(context.Background(), "exp1", []*identification.AnalyteIdentification{
				hit(t, "PC", 34, "H", "H1", "5.0", 300, tt.areas[0]),
				hit(t, "PC", 34, "H", "H1", "5.0", 312, tt.areas[1]),
			})
			require.NoError(t, err)
			require.Len(t, records, 1)
			rt, ok := records[0].RetentionTime("H")
			require.True(t, ok)
			assert.InDelta(t, tt.wantRt, rt, 1e-9)
			assert.Equal(t, 250.0, records[0].TotalArea(1))
		})
	}
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBuilder().Build(ctx, "exp1", []*identification.AnalyteIdentification{
		hit(t, "PC", 34, "H", "H1", "5.0", 300, 10),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildAll(t *testing.T) {
	b := NewBuilder()
	results, err := b.BuildAll(context.Background(), map[string][]*identification.AnalyteIdentification{
		"exp1": {hit(t, "PC", 34, "H", "H1", "5.0", 300, 100)},
		"exp2": {
			hit(t, "PC", 34, "H", "H1", "5.1", 306, 120),
			hit(t, "PE", 36, "-H", "H-1", "4.1", 246, 80),
		},
		"empty": nil,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Len(t, results["exp1"], 1)
	assert.Len(t, results["exp2"], 2)
	assert.Empty(t, results["empty"])
	assert.Equal(t, "exp2", results["exp2"][0].Experiment())
}

func TestBuildAllCollectsErrors(t *testing.T) {
	bad := hit(t, "PC", 34, "H", "H1", "5.0", 300, 10)
	bad.MSn = &identification.MSnEvidence{ChainCombinations: map[string]float64{"x": 1}}

	results, err := NewBuilder().BuildAll(context.Background(), map[string][]*identification.AnalyteIdentification{
		"exp1": {bad},
		"exp2": {hit(t, "PE", 36, "-H", "H-1", "4.1", 246, 80)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "experiment exp1")
	assert.Len(t, results["exp2"], 1)
}

func countHits(t *testing.T, registry *prometheus.Registry, status string) int {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "lipidquant_hits_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "status" && label.GetValue() == status {
					return int(metric.GetCounter().GetValue())
				}
			}
		}
	}
	return 0
}
