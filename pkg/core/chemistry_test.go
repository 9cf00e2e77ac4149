package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateNeutralMass(t *testing.T) {
	tests := []struct {
		name      string
		formula   string
		wantMass  float64
		tolerance float64
	}{
		{
			name:      "water",
			formula:   "H2 O1",
			wantMass:  18.0106,
			tolerance: 0.0001,
		},
		{
			name:      "PC 34:1",
			formula:   "C42 H82 N1 O8 P1",
			wantMass:  759.5778,
			tolerance: 0.001,
		},
		{
			name:      "deduction",
			formula:   "C1 H-1",
			wantMass:  MassC - MassH,
			tolerance: 1e-9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateNeutralMass(MustParseFormula(tt.formula))
			require.NoError(t, err)
			if math.Abs(got-tt.wantMass) > tt.tolerance {
				t.Errorf("CalculateNeutralMass() = %.4f, want %.4f (within %.4f)", got, tt.wantMass, tt.tolerance)
			}
		})
	}
}

func TestCalculateNeutralMassUnknownElement(t *testing.T) {
	_, err := CalculateNeutralMass(Formula{"Xe": 1})
	assert.Error(t, err)
}

func TestCalculateMZ(t *testing.T) {
	neutral := 759.5778

	protonated := CalculateMZ(neutral, MassH, 1)
	assert.InDelta(t, neutral+ProtonMass, protonated, 1e-9)

	deprotonated := CalculateMZ(neutral, -MassH, -1)
	assert.InDelta(t, neutral-ProtonMass, deprotonated, 1e-9)

	doubly := CalculateMZ(neutral, 2*MassH, 2)
	assert.InDelta(t, (neutral+2*ProtonMass)/2, doubly, 1e-9)

	assert.Equal(t, neutral, CalculateMZ(neutral, 0, 0))
}

func TestRoundFloat(t *testing.T) {
	tests := []struct {
		name      string
		val       float64
		precision int
		want      float64
	}{
		{"round to 2 decimals", 3.14159, 2, 3.14},
		{"round to 4 decimals", 3.14159, 4, 3.1416},
		{"round to 0 decimals", 3.6, 0, 4.0},
		{"round negative", -3.14159, 2, -3.14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundFloat(tt.val, tt.precision)
			if got != tt.want {
				t.Errorf("RoundFloat() = %v, want %v", got, tt.want)
			}
		})
	}
}
