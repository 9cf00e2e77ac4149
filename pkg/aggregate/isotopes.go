package aggregate

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/ChrisMcGann/lipidquant/pkg/core"
	"github.com/ChrisMcGann/lipidquant/pkg/isotope"
)

// TheoreticalIsotopeValue estimates the area of the first n isotopes of every modification.
// Isotopes that were never measured are extrapolated from the monoisotopic area and the
// predicted distribution. A modification that cannot be predicted is skipped and its error is
// returned alongside the sum of the others.
func (r *ResultArea) TheoreticalIsotopeValue(p isotope.Predictor, n int) (float64, error) {
	if n <= 0 {
		return 0, nil
	}
	var merr *multierror.Error
	total := 0.0
	for _, mod := range r.order {
		areas := r.mods[mod].Areas
		if len(areas) == 0 {
			merr = multierror.Append(merr, &core.PreconditionError{
				Op:      "theoretical isotope value",
				Message: fmt.Sprintf("modification %q of %s has no areas", mod, r.MoleculeName()),
			})
			continue
		}
		distribution, err := p.Predict(r.ChemicalFormula(mod), n)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("modification %s of %s: %w", mod, r.MoleculeName(), err))
			continue
		}
		for i := 0; i < n; i++ {
			if i < len(areas) {
				total += areas[i]
			} else {
				total += areas[0] * distribution[i]
			}
		}
	}
	return total, merr.ErrorOrNil()
}

// WeightedNeutralMass returns, for every isotope window 1..MaxIsotope, the area-weighted mean
// of the neutral masses of the isotopes inside the window.
func (r *ResultArea) WeightedNeutralMass() ([]float64, error) {
	maxIsotope := r.MaxIsotope()
	masses := make([]float64, 0, maxIsotope)
	for i := 0; i < maxIsotope; i++ {
		totalArea := 0.0
		totalMassArea := 0.0
		for _, mod := range r.order {
			areas := r.mods[mod].Areas
			for j := 0; j <= i && j < len(areas); j++ {
				mass := r.neutralMass + core.NeutronMass*float64(j)
				totalArea += areas[j]
				totalMassArea += areas[j] * mass
			}
		}
		if totalArea == 0 {
			return nil, fmt.Errorf("weighted neutral mass of %s: %w", r.MoleculeName(), core.ErrNoArea)
		}
		masses = append(masses, totalMassArea/totalArea)
	}
	return masses, nil
}
