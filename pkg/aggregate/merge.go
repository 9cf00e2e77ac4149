package aggregate

import (
	"github.com/ChrisMcGann/lipidquant/pkg/core"
)

// Combine merges other, a record of the same species from another retention-time window, into r.
//
// For the monoisotopic area of each modification two comparisons decide which retention time is
// reported: against the previous area of the same modification (the modification's retention
// time) and against the strongest monoisotopic area of r before the merge (the record's label).
// Areas of other are already scaled by its split and are added unscaled.
func (r *ResultArea) Combine(other *ResultArea) error {
	if other == nil {
		return &core.PreconditionError{Op: "combine", Message: "nil record"}
	}

	highestArea := 0.0
	for _, m := range r.mods {
		if len(m.Areas) > 0 && m.Areas[0] > highestArea {
			highestArea = m.Areas[0]
		}
	}

	for _, mod := range other.order {
		om := other.mods[mod]
		highestZeroArea := float64(r.HighestZeroIsoArea(mod))
		if !r.HasModification(mod) {
			r.addPart(mod, om.Formula.Clone(), om.TheoreticalMz, om.ExperimentalMz, om.Charge, "")
		}
		for i, area := range om.Areas {
			if _, err := r.addScaled(mod, i, area); err != nil {
				return err
			}
			if i != 0 {
				continue
			}
			if area > highestZeroArea && om.RetentionTime != nil {
				rt := *om.RetentionTime
				r.mods[mod].RetentionTime = &rt
			}
			if area > highestArea {
				r.SetRtOriginal(other.rtOriginal)
			}
		}
		for rt := range om.OriginalRts {
			r.mods[mod].OriginalRts[rt] = struct{}{}
		}
	}
	return nil
}
