// Package filter provides identification filtering and trimming functions
package filter

import (
	"sort"

	"github.com/ChrisMcGann/lipidquant/pkg/identification"
)

// Config holds filtering configuration
type Config struct {
	MaxIsotopes   int      // Keep only the first N isotope groups (0 = no limit)
	AreaCutoff    float64  // Keep only probes above this % of the strongest probe of their isotope (0 = no cutoff)
	MinArea       float64  // Drop identifications whose monoisotopic area is below this value (0 = keep all)
	Modifications []string // Keep only identifications with these modifications (nil = all)
	ChainTopN     int      // Keep only the N strongest chain combinations of the MSn evidence (0 = no limit)
}

// Apply applies all configured filters to an identification and reports whether it is kept
func (c *Config) Apply(hit *identification.AnalyteIdentification) bool {
	// Filter by modification first
	if len(c.Modifications) > 0 && !matchesModification(hit.ModificationName(), c.Modifications) {
		return false
	}

	RemoveZeroAreaProbes(hit)

	if c.MaxIsotopes > 0 {
		c.limitIsotopes(hit)
	}

	if c.AreaCutoff > 0 {
		c.filterByArea(hit)
	}

	if c.ChainTopN > 0 {
		c.filterChainTopN(hit)
	}

	// Ensure probes are sorted after all filtering
	hit.Peak.SortProbes()

	return hit.Area(0) >= c.MinArea && len(hit.Peak.IsotopicProbes) > 0
}

// Hits returns the identifications Apply keeps, in their original order
func (c *Config) Hits(hits []*identification.AnalyteIdentification) (kept []*identification.AnalyteIdentification, dropped int) {
	for _, hit := range hits {
		if c.Apply(hit) {
			kept = append(kept, hit)
		} else {
			dropped++
		}
	}
	return kept, dropped
}

func matchesModification(mod string, allowed []string) bool {
	for _, m := range allowed {
		if m == mod {
			return true
		}
	}
	return false
}

// limitIsotopes drops isotope groups beyond MaxIsotopes
func (c *Config) limitIsotopes(hit *identification.AnalyteIdentification) {
	if len(hit.Peak.IsotopicProbes) > c.MaxIsotopes {
		hit.Peak.IsotopicProbes = hit.Peak.IsotopicProbes[:c.MaxIsotopes]
	}
}

// filterByArea removes probes below the area cutoff percentage of their isotope
func (c *Config) filterByArea(hit *identification.AnalyteIdentification) {
	for i, group := range hit.Peak.IsotopicProbes {
		maxArea := 0.0
		for _, probe := range group {
			if probe.Area > maxArea {
				maxArea = probe.Area
			}
		}

		threshold := (c.AreaCutoff / 100.0) * maxArea

		var filtered []identification.Probe
		for _, probe := range group {
			if probe.Area >= threshold {
				filtered = append(filtered, probe)
			}
		}
		hit.Peak.IsotopicProbes[i] = filtered
	}
}

// filterChainTopN keeps only the N chain combinations explaining the most area
func (c *Config) filterChainTopN(hit *identification.AnalyteIdentification) {
	if hit.MSn == nil || len(hit.MSn.ChainCombinations) <= c.ChainTopN {
		return
	}

	names := make([]string, 0, len(hit.MSn.ChainCombinations))
	for name := range hit.MSn.ChainCombinations {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ai, aj := hit.MSn.ChainCombinations[names[i]], hit.MSn.ChainCombinations[names[j]]
		if ai != aj {
			return ai > aj
		}
		return names[i] < names[j]
	})

	for _, name := range names[c.ChainTopN:] {
		delete(hit.MSn.ChainCombinations, name)
	}
}

// RemoveZeroAreaProbes removes probes with zero or negative area. Trailing isotope groups
// left empty are dropped so the isotopes stay dense.
func RemoveZeroAreaProbes(hit *identification.AnalyteIdentification) {
	for i, group := range hit.Peak.IsotopicProbes {
		var filtered []identification.Probe
		for _, probe := range group {
			if probe.Area > 0 {
				filtered = append(filtered, probe)
			}
		}
		hit.Peak.IsotopicProbes[i] = filtered
	}
	for len(hit.Peak.IsotopicProbes) > 0 && len(hit.Peak.IsotopicProbes[len(hit.Peak.IsotopicProbes)-1]) == 0 {
		hit.Peak.IsotopicProbes = hit.Peak.IsotopicProbes[:len(hit.Peak.IsotopicProbes)-1]
	}
}
