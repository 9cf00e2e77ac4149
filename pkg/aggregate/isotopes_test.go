package aggregate

import (
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/lipidquant/pkg/core"
	"github.com/ChrisMcGann/lipidquant/pkg/isotope"
)

type fixedPredictor struct {
	distributions map[string][]float64
	requested     []string
}

func (p *fixedPredictor) Predict(formula string, count int) ([]float64, error) {
	p.requested = append(p.requested, formula)
	d, ok := p.distributions[formula]
	if !ok {
		return nil, &core.SpectrumParseError{Source: formula, Message: "unknown formula"}
	}
	return d[:count], nil
}

func TestTheoreticalIsotopeValue(t *testing.T) {
	r := newRecord(t, 0)
	require.NoError(t, r.AddResultPart("H", "H1", 0, 0, 1, ""))
	require.NoError(t, r.AddResultPart("Na", "Na1", 0, 0, 1, ""))
	for i, a := range []float64{100, 45} {
		_, err := r.AddArea("H", i, a)
		require.NoError(t, err)
	}
	_, err := r.AddArea("Na", 0, 10)
	require.NoError(t, err)

	p := &fixedPredictor{distributions: map[string][]float64{
		"C42 H83 N1 O8 P1":     {1, 0.5, 0.2},
		"C42 H82 N1 O8 P1 Na1": {1, 0.5, 0.2},
	}}

	got, err := r.TheoreticalIsotopeValue(p, 3)
	require.NoError(t, err)
	// H: 100 + 45 + 100*0.2, Na: 10 + 10*0.5 + 10*0.2
	assert.InDelta(t, 182.0, got, 1e-9)
	assert.Equal(t, []string{"C42 H83 N1 O8 P1", "C42 H82 N1 O8 P1 Na1"}, p.requested)

	got, err = r.TheoreticalIsotopeValue(p, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestTheoreticalIsotopeValueCollectsFailures(t *testing.T) {
	r := newRecord(t, 0)
	require.NoError(t, r.AddResultPart("H", "H1", 0, 0, 1, ""))
	require.NoError(t, r.AddResultPart("K", "K1", 0, 0, 1, ""))
	require.NoError(t, r.AddResultPart("Na", "Na1", 0, 0, 1, ""))
	_, err := r.AddArea("H", 0, 100)
	require.NoError(t, err)
	_, err = r.AddArea("K", 0, 100)
	require.NoError(t, err)

	p := &fixedPredictor{distributions: map[string][]float64{
		"C42 H83 N1 O8 P1": {1, 0.5},
	}}

	got, err := r.TheoreticalIsotopeValue(p, 2)
	assert.InDelta(t, 150.0, got, 1e-9)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 2)
	var spe *core.SpectrumParseError
	assert.True(t, errors.As(merr.Errors[0], &spe))
	var pe *core.PreconditionError
	assert.True(t, errors.As(merr.Errors[1], &pe))
}

func TestTheoreticalIsotopeValueWithCalculator(t *testing.T) {
	r := newRecord(t, 0)
	require.NoError(t, r.AddResultPart("H", "H1", 0, 0, 1, ""))
	_, err := r.AddArea("H", 0, 1000)
	require.NoError(t, err)

	calc := isotope.NewCalculator(isotope.DefaultElementTable(), isotope.DefaultCacheTTL)
	got, err := r.TheoreticalIsotopeValue(calc, 2)
	require.NoError(t, err)
	// 42 carbons dominate the M+1 peak: roughly 42 * 1.08%
	assert.InDelta(t, 1000*(1+0.5), got, 100)
}

func TestWeightedNeutralMass(t *testing.T) {
	r := newRecord(t, 0)
	require.NoError(t, r.AddResultPart("H", "H1", 0, 0, 1, ""))
	require.NoError(t, r.AddResultPart("Na", "Na1", 0, 0, 1, ""))
	for i, a := range []float64{100, 50} {
		_, err := r.AddArea("H", i, a)
		require.NoError(t, err)
	}
	_, err := r.AddArea("Na", 0, 50)
	require.NoError(t, err)

	masses, err := r.WeightedNeutralMass()
	require.NoError(t, err)
	require.Len(t, masses, 2)
	assert.InDelta(t, 759.5778, masses[0], 1e-9)
	assert.InDelta(t, (150*759.5778+50*(759.5778+core.NeutronMass))/200, masses[1], 1e-9)
}

func TestWeightedNeutralMassNoArea(t *testing.T) {
	r := newRecord(t, 0)
	require.NoError(t, r.AddResultPart("H", "H1", 0, 0, 1, ""))
	_, err := r.AddArea("H", 0, 0)
	require.NoError(t, err)

	_, err = r.WeightedNeutralMass()
	assert.True(t, errors.Is(err, core.ErrNoArea))

	empty := newRecord(t, 0)
	masses, err := empty.WeightedNeutralMass()
	require.NoError(t, err)
	assert.Empty(t, masses)
}
