// Package core provides the chemistry primitives of lipidquant: elemental formulas,
// monoisotopic masses, adduct definitions and the typed errors shared by all packages.
package core

import (
	"fmt"
	"math"
)

// Atomic masses (monoisotopic)
const (
	MassH  = 1.0078250321
	MassD  = 2.0141017780
	MassC  = 12.0000000000
	MassN  = 14.0030740052
	MassO  = 15.9949146221
	MassS  = 31.9720706900
	MassP  = 30.9737615100
	MassNa = 22.9897692809
	MassK  = 38.9637066900
	MassLi = 7.0160040000
	MassCl = 34.9688527100
	MassF  = 18.9984032200
	MassI  = 126.9044730000

	// Proton mass for charge calculations
	ProtonMass = 1.00727646688
	// ElectronMass is removed per positive charge and added per negative charge
	ElectronMass = 0.00054857990946
	// NeutronMass is the spacing of consecutive isotope peaks (13C - 12C)
	NeutronMass = 1.0033548378
)

// MonoisotopicMasses maps element symbols to their monoisotopic masses.
var MonoisotopicMasses = map[string]float64{
	"H":  MassH,
	"D":  MassD,
	"C":  MassC,
	"N":  MassN,
	"O":  MassO,
	"S":  MassS,
	"P":  MassP,
	"Na": MassNa,
	"K":  MassK,
	"Li": MassLi,
	"Cl": MassCl,
	"F":  MassF,
	"I":  MassI,
}

// CalculateNeutralMass computes the monoisotopic mass of a formula. Elements without a known
// mass fail instead of contributing zero.
func CalculateNeutralMass(f Formula) (float64, error) {
	mass := 0.0
	for _, el := range f.Elements() {
		m, ok := MonoisotopicMasses[el]
		if !ok {
			return 0, fmt.Errorf("no monoisotopic mass for element %s", el)
		}
		mass += float64(f[el]) * m
	}
	return mass, nil
}

// CalculateMZ returns the m/z of a neutral analyte carrying a modification of modMass.
// Positive charges lose electrons, negative charges gain them.
func CalculateMZ(neutralMass, modMass float64, charge int) float64 {
	if charge == 0 {
		return neutralMass + modMass
	}
	ion := neutralMass + modMass - float64(charge)*ElectronMass
	return ion / math.Abs(float64(charge))
}

// RoundFloat rounds a float to n decimal places
func RoundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
