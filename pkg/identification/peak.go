package identification

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ChrisMcGann/lipidquant/pkg/core"
)

// Probe is one integrated chromatographic peak of one isotope
type Probe struct {
	Area          float64
	AreaError     float64
	Peak          float64 // apex retention time in seconds
	LowerValley   float64 // peak start in seconds
	UpperValley   float64 // peak end in seconds
	Mz            float64
	IsotopeNumber int // may be negative for peaks below the monoisotopic mass
	Charge        int
}

// PeakParameters is the generic quantification result a lipid identification builds on
type PeakParameters struct {
	Mz          []float64 // anticipated m/z per isotope, index 0 is the monoisotopic one
	Area        float64   // total area of the peak
	AreaError   float64
	LowerMzBand float64
	UpperMzBand float64

	Probes         []Probe   // flat list of probes, if the detector reports them that way
	IsotopicProbes [][]Probe // probes grouped by isotope index
}

// IsotopeArea returns the summed area of the probes of one isotope group
func (p *PeakParameters) IsotopeArea(isotope int) float64 {
	if isotope < 0 || isotope >= len(p.IsotopicProbes) {
		return 0
	}
	area := 0.0
	for _, probe := range p.IsotopicProbes[isotope] {
		area += probe.Area
	}
	return area
}

// StrongestProbe returns the probe with the highest area of one isotope group
func (p *PeakParameters) StrongestProbe(isotope int) (Probe, bool) {
	if isotope < 0 || isotope >= len(p.IsotopicProbes) || len(p.IsotopicProbes[isotope]) == 0 {
		return Probe{}, false
	}
	best := p.IsotopicProbes[isotope][0]
	for _, probe := range p.IsotopicProbes[isotope][1:] {
		if probe.Area > best.Area {
			best = probe
		}
	}
	return best, true
}

// SortProbes orders the probes of every isotope group by retention time
func (p *PeakParameters) SortProbes() {
	for _, group := range p.IsotopicProbes {
		sort.Slice(group, func(i, j int) bool { return group[i].Peak < group[j].Peak })
	}
}

// Validate checks the peak for non-finite or negative values
func (p *PeakParameters) Validate() error {
	var errs []string

	for i, mz := range p.Mz {
		if math.IsNaN(mz) || math.IsInf(mz, 0) || mz <= 0 {
			errs = append(errs, fmt.Sprintf("m/z %d is invalid", i))
		}
	}
	for iso, group := range p.IsotopicProbes {
		for i, probe := range group {
			if math.IsNaN(probe.Area) || math.IsInf(probe.Area, 0) {
				errs = append(errs, fmt.Sprintf("isotope %d probe %d has invalid area", iso, i))
			}
			if probe.Area < 0 {
				errs = append(errs, fmt.Sprintf("isotope %d probe %d area must be non-negative", iso, i))
			}
		}
	}

	if len(errs) > 0 {
		return &core.ValidationError{
			Field:   "PeakParameters",
			Message: strings.Join(errs, "; "),
		}
	}

	return nil
}

func (p PeakParameters) clone() PeakParameters {
	c := p
	c.Mz = append([]float64(nil), p.Mz...)
	c.Probes = append([]Probe(nil), p.Probes...)
	c.IsotopicProbes = make([][]Probe, len(p.IsotopicProbes))
	for i, group := range p.IsotopicProbes {
		c.IsotopicProbes[i] = append([]Probe(nil), group...)
	}
	return c
}
