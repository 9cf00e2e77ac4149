// Package identification holds one detected lipid species/adduct/retention-time hit:
// its peak quantification, the derived chemical formulas and the retention-time
// disambiguation state that later passes may revise.
package identification

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/lipidquant/pkg/core"
)

const (
	// ModSeparator joins the species name and the modification in lookup keys
	ModSeparator = "_-_"
	// ModSeparatorHR joins the species name and the modification for display
	ModSeparatorHR = "_"
)

// RuleLookup answers whether retention-time postprocessing is enabled for a class/modification pair
type RuleLookup interface {
	IsRtPostprocessing(className, modification string) (bool, error)
}

// MSnEvidence is the fragment-level evidence attached to an identification
type MSnEvidence struct {
	Status            int                // confidence level reported by the fragment matcher
	ChainCombinations map[string]float64 // chain combination name -> explained area
}

// Params are the values an identification is constructed from
type Params struct {
	Mz                  float64
	Name                string // lipid class or species name, e.g. "PC"
	DoubleBonds         int    // negative if the species carries no double-bond information
	OhNumber            int    // total number of hydroxylation sites
	ModificationName    string
	Rt                  string // retention-time label, not necessarily numeric
	AnalyteFormula      string
	ModificationFormula string
	Charge              int
}

// AnalyteIdentification is one detected peak of one species with one adduct
type AnalyteIdentification struct {
	Peak PeakParameters
	MSn  *MSnEvidence

	name                          string
	doubleBonds                   int
	ohNumber                      int
	modificationName              string
	analyteFormula                string
	modificationFormula           string
	chemicalFormula               string
	chemicalFormulaWithoutDeducts string
	charge                        int
	rt                            string

	lowerRtHardLimit *float64
	upperRtHardLimit *float64
	percentalSplit   *float64

	chooseMoreLikelyRtWhenEqualMSn bool
}

// New creates an identification and computes its chemical formulas. A formula that cannot
// be parsed aborts construction.
func New(p Params) (*AnalyteIdentification, error) {
	formula, withoutDeducts, err := core.CombineFormulas(p.AnalyteFormula, p.ModificationFormula)
	if err != nil {
		return nil, fmt.Errorf("identification %s: %w", generateNameString(p.Name, p.DoubleBonds, p.Rt), err)
	}
	return &AnalyteIdentification{
		Peak:                          PeakParameters{Mz: []float64{p.Mz}},
		name:                          p.Name,
		doubleBonds:                   p.DoubleBonds,
		ohNumber:                      p.OhNumber,
		modificationName:              p.ModificationName,
		analyteFormula:                p.AnalyteFormula,
		modificationFormula:           p.ModificationFormula,
		chemicalFormula:               formula,
		chemicalFormulaWithoutDeducts: withoutDeducts,
		charge:                        p.Charge,
		rt:                            p.Rt,
	}, nil
}

// Clone returns a deep copy
func (a *AnalyteIdentification) Clone() *AnalyteIdentification {
	c := *a
	c.Peak = a.Peak.clone()
	c.lowerRtHardLimit = copyFloat(a.lowerRtHardLimit)
	c.upperRtHardLimit = copyFloat(a.upperRtHardLimit)
	c.percentalSplit = copyFloat(a.percentalSplit)
	if a.MSn != nil {
		msn := *a.MSn
		msn.ChainCombinations = make(map[string]float64, len(a.MSn.ChainCombinations))
		for k, v := range a.MSn.ChainCombinations {
			msn.ChainCombinations[k] = v
		}
		c.MSn = &msn
	}
	return &c
}

func (a *AnalyteIdentification) Name() string                { return a.name }
func (a *AnalyteIdentification) DoubleBonds() int            { return a.doubleBonds }
func (a *AnalyteIdentification) OhNumber() int               { return a.ohNumber }
func (a *AnalyteIdentification) ModificationName() string    { return a.modificationName }
func (a *AnalyteIdentification) AnalyteFormula() string      { return a.analyteFormula }
func (a *AnalyteIdentification) ModificationFormula() string { return a.modificationFormula }
func (a *AnalyteIdentification) Charge() int                 { return a.charge }
func (a *AnalyteIdentification) Rt() string                  { return a.rt }

// ChemicalFormula is the formula of the analyte including its modification
func (a *AnalyteIdentification) ChemicalFormula() string { return a.chemicalFormula }

// ChemicalFormulaWithoutDeducts ignores any deductions by ionization
func (a *AnalyteIdentification) ChemicalFormulaWithoutDeducts() string {
	return a.chemicalFormulaWithoutDeducts
}

func (a *AnalyteIdentification) SetRt(rt string)                 { a.rt = rt }
func (a *AnalyteIdentification) SetCharge(charge int)            { a.charge = charge }
func (a *AnalyteIdentification) SetModificationName(name string) { a.modificationName = name }

// Mz returns the anticipated monoisotopic m/z
func (a *AnalyteIdentification) Mz() float64 {
	if len(a.Peak.Mz) == 0 {
		return 0
	}
	return a.Peak.Mz[0]
}

// LowerRtHardLimit is set on one side of an isobaric peak split
func (a *AnalyteIdentification) LowerRtHardLimit() (float64, bool) { return deref(a.lowerRtHardLimit) }

// UpperRtHardLimit is set on one side of an isobaric peak split
func (a *AnalyteIdentification) UpperRtHardLimit() (float64, bool) { return deref(a.upperRtHardLimit) }

func (a *AnalyteIdentification) SetLowerRtHardLimit(v float64) { a.lowerRtHardLimit = &v }
func (a *AnalyteIdentification) SetUpperRtHardLimit(v float64) { a.upperRtHardLimit = &v }
func (a *AnalyteIdentification) ClearRtHardLimits() {
	a.lowerRtHardLimit = nil
	a.upperRtHardLimit = nil
}

// PercentalSplit is the percentage (0-100) of a shared peak attributed to this identification
func (a *AnalyteIdentification) PercentalSplit() (float64, bool) { return deref(a.percentalSplit) }

// SetPercentalSplit stores the percentage of the usable peak intensity
func (a *AnalyteIdentification) SetPercentalSplit(percent float64) { a.percentalSplit = &percent }

func (a *AnalyteIdentification) ClearPercentalSplit() { a.percentalSplit = nil }

// ChooseMoreLikelyRtWhenEqualMSn reports whether two equally matching adducts are
// resolved by retention time
func (a *AnalyteIdentification) ChooseMoreLikelyRtWhenEqualMSn() bool {
	return a.chooseMoreLikelyRtWhenEqualMSn
}

func (a *AnalyteIdentification) SetChooseMoreLikelyRtWhenEqualMSn(v bool) {
	a.chooseMoreLikelyRtWhenEqualMSn = v
}

// TotalArea returns the peak's total area, respecting the percental split
func (a *AnalyteIdentification) TotalArea() float64 {
	return a.split(a.Peak.Area)
}

// Area returns the area of isotopes 0..maxIsotope, respecting the percental split
func (a *AnalyteIdentification) Area(maxIsotope int) float64 {
	area := 0.0
	for i := 0; i <= maxIsotope && i < len(a.Peak.IsotopicProbes); i++ {
		for _, probe := range a.Peak.IsotopicProbes[i] {
			area += probe.Area
		}
	}
	return a.split(area)
}

func (a *AnalyteIdentification) split(fullArea float64) float64 {
	if a.percentalSplit != nil {
		return (fullArea * *a.percentalSplit) / 100
	}
	return fullArea
}

// MinIsotope returns the lowest isotope number among the probes, 0 if none is negative.
// Without flat probes the first probe of every isotope group is inspected.
func (a *AnalyteIdentification) MinIsotope() int {
	isotope := 0
	if len(a.Peak.Probes) > 0 {
		for _, probe := range a.Peak.Probes {
			if probe.IsotopeNumber < isotope {
				isotope = probe.IsotopeNumber
			}
		}
		return isotope
	}
	for _, group := range a.Peak.IsotopicProbes {
		if len(group) > 0 && group[0].IsotopeNumber < isotope {
			isotope = group[0].IsotopeNumber
		}
	}
	return isotope
}

// SuitableForRtProcessing reports whether the hit is confident enough to serve as a model point
// for the retention-time prediction curve. The rule lookup is only consulted when the hit has
// MSn evidence and neither hard limits nor a percental split.
func (a *AnalyteIdentification) SuitableForRtProcessing(className string, rules RuleLookup) (bool, error) {
	if a.MSn == nil || a.lowerRtHardLimit != nil || a.upperRtHardLimit != nil || a.percentalSplit != nil {
		return false, nil
	}
	return rules.IsRtPostprocessing(className, a.modificationName)
}

// NameString returns "name:dbs_rt"
func (a *AnalyteIdentification) NameString() string {
	return generateNameString(a.name, a.doubleBonds, a.rt)
}

// NameStringWithoutRt returns "name:dbs"
func (a *AnalyteIdentification) NameStringWithoutRt() string {
	return generateNameString(a.name, a.doubleBonds, "")
}

// NameIncludingModification is the lookup key "name:dbs_rt_-_mod"
func (a *AnalyteIdentification) NameIncludingModification() string {
	return a.NameString() + ModSeparator + a.modificationName
}

// NamePlusModHumanReadable is "name:dbs_rt_mod", or the name string alone when unmodified
func (a *AnalyteIdentification) NamePlusModHumanReadable() string {
	name := a.NameString()
	if a.modificationName != "" {
		name += ModSeparatorHR + a.modificationName
	}
	return name
}

// SetNameString parses "name:dbs_rt" or "name:dbs" into name, double bonds and retention time
func (a *AnalyteIdentification) SetNameString(s string) error {
	colon := strings.LastIndex(s, ":")
	if colon < 0 {
		return &core.ValidationError{Field: "name", Message: fmt.Sprintf("%q lacks ':'", s)}
	}
	dbsPart, rt, _ := strings.Cut(s[colon+1:], "_")
	dbs, err := strconv.Atoi(dbsPart)
	if err != nil {
		return &core.ValidationError{Field: "name", Message: fmt.Sprintf("invalid double bonds in %q", s)}
	}
	a.name = s[:colon]
	a.doubleBonds = dbs
	a.rt = rt
	return nil
}

// GenerateNameString formats a species name the way all lipidquant reports do
func GenerateNameString(name string, doubleBonds int, rt string) string {
	return generateNameString(name, doubleBonds, rt)
}

func generateNameString(name string, doubleBonds int, rt string) string {
	s := name
	if doubleBonds >= 0 {
		s += ":" + strconv.Itoa(doubleBonds)
	}
	if rt != "" {
		s += "_" + rt
	}
	return s
}

func deref(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Hit is an identification read from a hit list together with its origin
type Hit struct {
	Experiment string
	ClassName  string
	*AnalyteIdentification
}
