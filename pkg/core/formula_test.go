package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormula(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Formula
		wantErr bool
	}{
		{"spaced", "C10 H20", Formula{"C": 10, "H": 20}, false},
		{"compact", "C10H20N1O8P1", Formula{"C": 10, "H": 20, "N": 1, "O": 8, "P": 1}, false},
		{"implicit count", "Na", Formula{"Na": 1}, false},
		{"trailing negative count", "H-1", Formula{"H": -1}, false},
		{"leading sign", "-H1", Formula{"H": -1}, false},
		{"leading plus", "+Na", Formula{"Na": 1}, false},
		{"repeated element", "CH3COO", Formula{"C": 2, "H": 3, "O": 2}, false},
		{"two letter element", "Cl1 Na1", Formula{"Cl": 1, "Na": 1}, false},
		{"deuterium", "C16 D7 H24", Formula{"C": 16, "D": 7, "H": 24}, false},
		{"empty", "", Formula{}, false},
		{"unknown element", "C10 Xx2", nil, true},
		{"lowercase start", "c10", nil, true},
		{"dangling sign", "C10 -", nil, true},
		{"garbage", "C10 #", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormula(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				var fpe *FormulaParseError
				assert.True(t, errors.As(err, &fpe), "expected FormulaParseError, got %T", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormulaString(t *testing.T) {
	tests := []struct {
		name string
		f    Formula
		want string
	}{
		{"hill order", Formula{"P": 1, "O": 8, "H": 82, "C": 42, "N": 1}, "C42 H82 N1 O8 P1"},
		{"negative count", Formula{"C": 10, "H": -1}, "C10 H-1"},
		{"no carbon is alphabetical", Formula{"O": 1, "H": 2}, "H2 O1"},
		{"zero kept", Formula{"C": 1, "H": 0}, "C1 H0"},
		{"empty", Formula{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.f.String())
		})
	}
}

func TestFormulaRoundTrip(t *testing.T) {
	formulas := []Formula{
		{"C": 42, "H": 82, "N": 1, "O": 8, "P": 1},
		{"H": -1},
		{"C": 2, "H": -3, "Na": 1, "Cl": 0},
		{},
	}
	for _, f := range formulas {
		parsed, err := ParseFormula(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}
}

func TestFormulaDeltaString(t *testing.T) {
	assert.Equal(t, "-H1Na1", Formula{"H": -1, "Na": 1}.DeltaString())
	assert.Equal(t, "C1H1O2", Formula{"C": 1, "H": 1, "O": 2}.DeltaString())

	parsed, err := ParseFormula("-H1Na1")
	require.NoError(t, err)
	assert.Equal(t, Formula{"H": -1, "Na": 1}, parsed)
}

func TestCombineFormulas(t *testing.T) {
	tests := []struct {
		name        string
		analyte     string
		mod         string
		wantFull    Formula
		wantWithout Formula
	}{
		{
			name:        "protonation",
			analyte:     "C10H20",
			mod:         "H1",
			wantFull:    Formula{"C": 10, "H": 21},
			wantWithout: Formula{"C": 10, "H": 21},
		},
		{
			name:        "deprotonation ignored without deducts",
			analyte:     "C10H20",
			mod:         "H-1",
			wantFull:    Formula{"C": 10, "H": 19},
			wantWithout: Formula{"C": 10, "H": 20},
		},
		{
			name:        "new element",
			analyte:     "C42 H82 N1 O8 P1",
			mod:         "Na1",
			wantFull:    Formula{"C": 42, "H": 82, "N": 1, "O": 8, "P": 1, "Na": 1},
			wantWithout: Formula{"C": 42, "H": 82, "N": 1, "O": 8, "P": 1, "Na": 1},
		},
		{
			name:        "deduction of absent element",
			analyte:     "C10 H20",
			mod:         "Cl-1",
			wantFull:    Formula{"C": 10, "H": 20, "Cl": -1},
			wantWithout: Formula{"C": 10, "H": 20},
		},
		{
			name:        "mixed adduct",
			analyte:     "C10 H20 O2",
			mod:         "H-1 O-1",
			wantFull:    Formula{"C": 10, "H": 19, "O": 1},
			wantWithout: Formula{"C": 10, "H": 20, "O": 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			full, without, err := CombineFormulas(tt.analyte, tt.mod)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFull.String(), full)
			assert.Equal(t, tt.wantWithout.String(), without)
		})
	}
}

func TestCombineFormulasShortModification(t *testing.T) {
	for _, mod := range []string{"", "H"} {
		full, without, err := CombineFormulas("C10H20", mod)
		require.NoError(t, err)
		assert.Equal(t, "C10H20", full)
		assert.Equal(t, "C10H20", without)
	}
}

func TestCombineFormulasParseError(t *testing.T) {
	_, _, err := CombineFormulas("C10 Qq2", "H1")
	var fpe *FormulaParseError
	require.True(t, errors.As(err, &fpe))
	assert.Equal(t, "Qq", fpe.Token)

	_, _, err = CombineFormulas("C10 H20", "Zz1")
	require.True(t, errors.As(err, &fpe))
}
