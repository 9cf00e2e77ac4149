// Package aggregate folds lipid identifications into one result record per species and
// experiment: isotope areas per adduct, retention-time labels and chain evidence.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/ChrisMcGann/lipidquant/pkg/core"
	"github.com/ChrisMcGann/lipidquant/pkg/identification"
)

// InsertionKind tells whether AddArea opened a new isotope slot or added to an existing one
type InsertionKind int

const (
	Inserted InsertionKind = iota
	Merged
)

func (k InsertionKind) String() string {
	if k == Merged {
		return "merged"
	}
	return "inserted"
}

// AreaInsertion is the outcome of AddArea. Flags is only set for Merged and holds a copy
// of all more-than-one-peak flags of the modification.
type AreaInsertion struct {
	Kind  InsertionKind
	Flags map[int]bool
}

// Params are the identity values of a result record
type Params struct {
	Name             string
	DoubleBonds      int
	Rt               string
	Experiment       string
	ChemicalFormula  string // analyte formula without any modification
	PercentalSplit   float64
	NeutralMass      float64
	InternalStandard bool
	ExternalStandard bool
}

// ModificationResult holds everything a record knows about one adduct
type ModificationResult struct {
	Formula         core.Formula // delta to the base formula
	TheoreticalMz   float64
	ExperimentalMz  float64
	Charge          int
	RetentionTime   *float64
	Areas           []float64 // dense, index 0 is the monoisotopic peak
	MoreThanOnePeak []bool    // parallel to Areas
	OriginalRts     map[string]struct{}
}

// ResultArea is the aggregated quantification of one species in one experiment
type ResultArea struct {
	name             string
	doubleBonds      int
	experiment       string
	rt               string
	rtOriginal       string
	formula          core.Formula
	neutralMass      float64
	percentalSplit   float64
	internalStandard bool
	externalStandard bool
	msnEvidence      bool

	mods  map[string]*ModificationResult
	order []string

	chainsPerMod map[string]ChainAreas
	chainsTotal  ChainAreas
}

// NewResultArea creates an empty record. A split >= 1 is read as a percentage;
// smaller values leave the areas unscaled.
func NewResultArea(p Params) (*ResultArea, error) {
	formula, err := core.ParseFormula(p.ChemicalFormula)
	if err != nil {
		return nil, fmt.Errorf("result %s: %w", identification.GenerateNameString(p.Name, p.DoubleBonds, p.Rt), err)
	}
	return &ResultArea{
		name:             p.Name,
		doubleBonds:      p.DoubleBonds,
		experiment:       p.Experiment,
		rt:               p.Rt,
		rtOriginal:       p.Rt,
		formula:          formula,
		neutralMass:      p.NeutralMass,
		percentalSplit:   splitFactor(p.PercentalSplit),
		internalStandard: p.InternalStandard,
		externalStandard: p.ExternalStandard,
		mods:             make(map[string]*ModificationResult),
		chainsPerMod:     make(map[string]ChainAreas),
	}, nil
}

func (r *ResultArea) Name() string                 { return r.name }
func (r *ResultArea) DoubleBonds() int             { return r.doubleBonds }
func (r *ResultArea) Experiment() string           { return r.experiment }
func (r *ResultArea) NeutralMass() float64         { return r.neutralMass }
func (r *ResultArea) PercentalSplit() float64      { return r.percentalSplit }
func (r *ResultArea) InternalStandard() bool       { return r.internalStandard }
func (r *ResultArea) ExternalStandard() bool       { return r.externalStandard }
func (r *ResultArea) MsnEvidence() bool            { return r.msnEvidence }
func (r *ResultArea) SetMsnEvidence(evidence bool) { r.msnEvidence = evidence }
func (r *ResultArea) Rt() string                   { return r.rt }
func (r *ResultArea) SetRt(rt string)              { r.rt = rt }
func (r *ResultArea) RtOriginal() string           { return r.rtOriginal }

// ChemicalFormulaElements returns a copy of the base formula
func (r *ResultArea) ChemicalFormulaElements() core.Formula { return r.formula.Clone() }

// SetRtOriginal replaces both the original and the representative retention-time label
func (r *ResultArea) SetRtOriginal(rt string) {
	r.rtOriginal = rt
	r.rt = rt
}

// IsStandard reports whether the record is an internal or external standard
func (r *ResultArea) IsStandard() bool {
	return r.internalStandard || r.externalStandard
}

// MoleculeName is "name:dbs_rt"
func (r *ResultArea) MoleculeName() string {
	return identification.GenerateNameString(r.name, r.doubleBonds, r.rt)
}

// MoleculeNameWithoutRt is "name:dbs"
func (r *ResultArea) MoleculeNameWithoutRt() string {
	return identification.GenerateNameString(r.name, r.doubleBonds, "")
}

// Modifications returns the modification names in the order they were added
func (r *ResultArea) Modifications() []string {
	return append([]string(nil), r.order...)
}

// Modification returns the row of one modification
func (r *ResultArea) Modification(mod string) (*ModificationResult, bool) {
	m, ok := r.mods[mod]
	return m, ok
}

// splitFactor converts a percental split into the factor applied to raw areas
func splitFactor(percent float64) float64 {
	if percent >= 1 {
		return percent / 100
	}
	return 1.0
}

// AddResultPart registers a modification. A known modification only records the
// retention-time label; an empty label records nothing.
func (r *ResultArea) AddResultPart(mod, modFormula string, theoreticalMz, experimentalMz float64, charge int, rt string) error {
	delta, err := core.ParseFormula(modFormula)
	if err != nil {
		return fmt.Errorf("modification %s of %s: %w", mod, r.MoleculeName(), err)
	}
	r.addPart(mod, delta, theoreticalMz, experimentalMz, charge, rt)
	return nil
}

func (r *ResultArea) addPart(mod string, delta core.Formula, theoreticalMz, experimentalMz float64, charge int, rt string) {
	m, ok := r.mods[mod]
	if !ok {
		m = &ModificationResult{
			Formula:         delta,
			TheoreticalMz:   theoreticalMz,
			ExperimentalMz:  experimentalMz,
			Charge:          charge,
			Areas:           []float64{},
			MoreThanOnePeak: []bool{},
			OriginalRts:     make(map[string]struct{}),
		}
		r.mods[mod] = m
		r.order = append(r.order, mod)
	}
	if rt != "" {
		m.OriginalRts[rt] = struct{}{}
	}
}

// AddArea adds the split-scaled raw area to an isotope slot. Negative isotope numbers share
// the slot of their absolute value. Isotopes must be added without gaps.
func (r *ResultArea) AddArea(mod string, isotope int, rawArea float64) (AreaInsertion, error) {
	return r.addScaled(mod, isotope, rawArea*r.percentalSplit)
}

func (r *ResultArea) addScaled(mod string, isotope int, area float64) (AreaInsertion, error) {
	m, ok := r.mods[mod]
	if !ok {
		return AreaInsertion{}, &core.PreconditionError{Op: "add area", Message: fmt.Sprintf("unknown modification %q in %s", mod, r.MoleculeName())}
	}
	if isotope < 0 {
		isotope = -isotope
	}
	switch {
	case isotope == len(m.Areas):
		m.Areas = append(m.Areas, area)
		m.MoreThanOnePeak = append(m.MoreThanOnePeak, false)
		return AreaInsertion{Kind: Inserted}, nil
	case isotope < len(m.Areas):
		m.Areas[isotope] += area
		m.MoreThanOnePeak[isotope] = true
		flags := make(map[int]bool, len(m.MoreThanOnePeak))
		for i, f := range m.MoreThanOnePeak {
			flags[i] = f
		}
		return AreaInsertion{Kind: Merged, Flags: flags}, nil
	default:
		return AreaInsertion{}, &core.PreconditionError{
			Op:      "add area",
			Message: fmt.Sprintf("isotope %d of %s in %s leaves a gap after %d stored isotopes", isotope, mod, r.MoleculeName(), len(m.Areas)),
		}
	}
}

// TotalArea sums the first n isotopes of every modification
func (r *ResultArea) TotalArea(n int) float64 {
	total := 0.0
	for _, mod := range r.order {
		total += sumAreas(r.mods[mod].Areas, n)
	}
	return total
}

// TotalAreaOfModification sums the first n isotopes of one modification, 0 if unknown
func (r *ResultArea) TotalAreaOfModification(mod string, n int) float64 {
	m, ok := r.mods[mod]
	if !ok {
		return 0
	}
	return sumAreas(m.Areas, n)
}

func sumAreas(areas []float64, n int) float64 {
	total := 0.0
	for i := 0; i < len(areas) && i < n; i++ {
		total += areas[i]
	}
	return total
}

// MaxIsotope is the highest number of stored isotopes over all modifications
func (r *ResultArea) MaxIsotope() int {
	max := 0
	for _, m := range r.mods {
		if len(m.Areas) > max {
			max = len(m.Areas)
		}
	}
	return max
}

// HighestZeroIsoArea returns the monoisotopic area of a modification at single precision
func (r *ResultArea) HighestZeroIsoArea(mod string) float32 {
	m, ok := r.mods[mod]
	if !ok || len(m.Areas) == 0 {
		return 0
	}
	return float32(m.Areas[0])
}

// MoreThanOnePeak reports per modification whether any of the first n isotopes merged several peaks
func (r *ResultArea) MoreThanOnePeak(n int) map[string]bool {
	out := make(map[string]bool, len(r.mods))
	for mod, m := range r.mods {
		found := false
		for i := 0; i < len(m.MoreThanOnePeak) && i < n; i++ {
			if m.MoreThanOnePeak[i] {
				found = true
				break
			}
		}
		out[mod] = found
	}
	return out
}

// SetMoreThanOnePeak replaces the flags of a modification. Isotopes missing from flags are false.
func (r *ResultArea) SetMoreThanOnePeak(mod string, flags map[int]bool) error {
	m, ok := r.mods[mod]
	if !ok {
		return &core.PreconditionError{Op: "set more than one peak", Message: fmt.Sprintf("unknown modification %q", mod)}
	}
	for i := range m.MoreThanOnePeak {
		m.MoreThanOnePeak[i] = flags[i]
	}
	return nil
}

// RetentionTime returns the retention time recorded for a modification
func (r *ResultArea) RetentionTime(mod string) (float64, bool) {
	m, ok := r.mods[mod]
	if !ok || m.RetentionTime == nil {
		return 0, false
	}
	return *m.RetentionTime, true
}

// SetRetentionTime sets the retention time of a known modification
func (r *ResultArea) SetRetentionTime(mod string, rt float64) error {
	m, ok := r.mods[mod]
	if !ok {
		return &core.PreconditionError{Op: "set retention time", Message: fmt.Sprintf("unknown modification %q", mod)}
	}
	m.RetentionTime = &rt
	return nil
}

// HasModification reports whether a modification was added
func (r *ResultArea) HasModification(mod string) bool {
	_, ok := r.mods[mod]
	return ok
}

// ContainsAllModifications reports whether every listed modification is present
func (r *ResultArea) ContainsAllModifications(mods []string) bool {
	for _, mod := range mods {
		if !r.HasModification(mod) {
			return false
		}
	}
	return true
}

// BelongsRtToThisRecord reports whether rt is one of the original labels of a modification
func (r *ResultArea) BelongsRtToThisRecord(rt, mod string) bool {
	m, ok := r.mods[mod]
	if !ok {
		return false
	}
	_, ok = m.OriginalRts[rt]
	return ok
}

// OriginalRts lists the original retention-time labels of a modification, sorted
func (r *ResultArea) OriginalRts(mod string) []string {
	m, ok := r.mods[mod]
	if !ok {
		return nil
	}
	rts := make([]string, 0, len(m.OriginalRts))
	for rt := range m.OriginalRts {
		rts = append(rts, rt)
	}
	sort.Strings(rts)
	return rts
}

// Charge returns the charge of a modification
func (r *ResultArea) Charge(mod string) (int, bool) {
	m, ok := r.mods[mod]
	if !ok {
		return 0, false
	}
	return m.Charge, true
}

// TheoreticalMass returns the theoretical m/z of a modification
func (r *ResultArea) TheoreticalMass(mod string) (float64, bool) {
	m, ok := r.mods[mod]
	if !ok {
		return 0, false
	}
	return m.TheoreticalMz, true
}

// ExperimentalMass returns the measured m/z of a modification
func (r *ResultArea) ExperimentalMass(mod string) (float64, bool) {
	m, ok := r.mods[mod]
	if !ok {
		return 0, false
	}
	return m.ExperimentalMz, true
}

// ModificationFormula renders the delta of a modification, e.g. "-H1", "" if unknown
func (r *ResultArea) ModificationFormula(mod string) string {
	m, ok := r.mods[mod]
	if !ok {
		return ""
	}
	return m.Formula.DeltaString()
}

// ChemicalFormula renders the base formula plus the delta of mod. Carbon comes first, then the
// remaining base elements, then elements only the modification contributes.
func (r *ResultArea) ChemicalFormula(mod string) string {
	var delta core.Formula
	if m, ok := r.mods[mod]; ok {
		delta = m.Formula
	}
	combined := core.Formula{}
	var order []string
	for _, el := range r.formula.Elements() {
		combined[el] = r.formula[el] + delta[el]
		order = append(order, el)
	}
	for _, el := range delta.Elements() {
		if !r.formula.Has(el) {
			combined[el] = delta[el]
			order = append(order, el)
		}
	}
	return renderOrdered(combined, order)
}

// ChemicalFormulaBase is the formula of the unmodified analyte
func (r *ResultArea) ChemicalFormulaBase() string {
	return r.ChemicalFormula("")
}

func renderOrdered(f core.Formula, order []string) string {
	s := ""
	for _, el := range order {
		if s != "" {
			s += " "
		}
		s += fmt.Sprintf("%s%d", el, f[el])
	}
	return s
}
