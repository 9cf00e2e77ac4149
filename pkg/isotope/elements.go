// Package isotope predicts relative isotope intensities of chemical formulas from an
// element configuration table.
package isotope

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/ChrisMcGann/lipidquant/pkg/core"
)

// abundanceTolerance is how far the abundances of one element may stray from 1
const abundanceTolerance = 0.02

// Isotope is one stable isotope of an element
type Isotope struct {
	Offset    int     // neutron offset from the monoisotopic isotope
	Mass      float64 // exact mass
	Abundance float64 // natural abundance, 0..1
}

// Element lists the isotopes of one element
type Element struct {
	Symbol   string
	Isotopes []Isotope
}

// ElementTable is the element configuration the calculator works on
type ElementTable struct {
	elements map[string]*Element
}

// NewElementTable creates an empty table
func NewElementTable() *ElementTable {
	return &ElementTable{elements: make(map[string]*Element)}
}

// Add appends an isotope to the element, creating the element if needed
func (t *ElementTable) Add(symbol string, iso Isotope) {
	el, ok := t.elements[symbol]
	if !ok {
		el = &Element{Symbol: symbol}
		t.elements[symbol] = el
	}
	el.Isotopes = append(el.Isotopes, iso)
	sort.SliceStable(el.Isotopes, func(i, j int) bool { return el.Isotopes[i].Offset < el.Isotopes[j].Offset })
}

// Get returns the element for symbol
func (t *ElementTable) Get(symbol string) (*Element, bool) {
	el, ok := t.elements[symbol]
	return el, ok
}

// Symbols returns all element symbols, sorted
func (t *ElementTable) Symbols() []string {
	out := make([]string, 0, len(t.elements))
	for s := range t.elements {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Validate checks that every element is a known symbol and its abundances sum to ~1
func (t *ElementTable) Validate() error {
	var errs *multierror.Error
	for _, symbol := range t.Symbols() {
		el := t.elements[symbol]
		if !core.IsElement(symbol) {
			errs = multierror.Append(errs, &core.SpectrumParseError{Source: symbol, Message: "unknown element symbol"})
			continue
		}
		sum := 0.0
		for _, iso := range el.Isotopes {
			sum += iso.Abundance
		}
		if math.Abs(sum-1) > abundanceTolerance {
			errs = multierror.Append(errs, &core.SpectrumParseError{
				Source:  symbol,
				Message: fmt.Sprintf("abundances sum to %.4f", sum),
			})
		}
	}
	return errs.ErrorOrNil()
}

// LoadFromCSV loads isotopes from a CSV file (format: symbol,offset,mass,abundance).
// Every malformed line is reported, not just the first.
func (t *ElementTable) LoadFromCSV(r io.Reader) error {
	scanner := bufio.NewScanner(r)

	// Skip header line
	scanner.Scan()

	var errs *multierror.Error
	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 4 {
			errs = multierror.Append(errs, &core.SpectrumParseError{
				Source:  fmt.Sprintf("line %d", lineNum),
				Message: "expected 4 comma-separated fields",
			})
			continue
		}

		symbol := strings.TrimSpace(parts[0])
		offset, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			errs = multierror.Append(errs, &core.SpectrumParseError{Source: fmt.Sprintf("line %d", lineNum), Message: "invalid offset", Err: err})
			continue
		}
		mass, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			errs = multierror.Append(errs, &core.SpectrumParseError{Source: fmt.Sprintf("line %d", lineNum), Message: "invalid mass", Err: err})
			continue
		}
		abundance, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || abundance < 0 {
			errs = multierror.Append(errs, &core.SpectrumParseError{Source: fmt.Sprintf("line %d", lineNum), Message: "invalid abundance", Err: err})
			continue
		}

		t.Add(symbol, Isotope{Offset: offset, Mass: mass, Abundance: abundance})
	}

	if err := scanner.Err(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("error reading CSV: %w", err))
	}
	if errs.ErrorOrNil() != nil {
		return errs
	}

	return t.Validate()
}

// DefaultElementTable returns the natural isotope abundances of the elements found in lipids
// and their common adducts
func DefaultElementTable() *ElementTable {
	t := NewElementTable()

	t.Add("H", Isotope{Offset: 0, Mass: 1.0078250321, Abundance: 0.999885})
	t.Add("H", Isotope{Offset: 1, Mass: 2.0141017780, Abundance: 0.000115})

	t.Add("D", Isotope{Offset: 0, Mass: 2.0141017780, Abundance: 1.0})

	t.Add("C", Isotope{Offset: 0, Mass: 12.0000000000, Abundance: 0.9893})
	t.Add("C", Isotope{Offset: 1, Mass: 13.0033548378, Abundance: 0.0107})

	t.Add("N", Isotope{Offset: 0, Mass: 14.0030740052, Abundance: 0.99636})
	t.Add("N", Isotope{Offset: 1, Mass: 15.0001088984, Abundance: 0.00364})

	t.Add("O", Isotope{Offset: 0, Mass: 15.9949146221, Abundance: 0.99757})
	t.Add("O", Isotope{Offset: 1, Mass: 16.9991315000, Abundance: 0.00038})
	t.Add("O", Isotope{Offset: 2, Mass: 17.9991604000, Abundance: 0.00205})

	t.Add("P", Isotope{Offset: 0, Mass: 30.9737615100, Abundance: 1.0})

	t.Add("S", Isotope{Offset: 0, Mass: 31.9720706900, Abundance: 0.9499})
	t.Add("S", Isotope{Offset: 1, Mass: 32.9714585000, Abundance: 0.0075})
	t.Add("S", Isotope{Offset: 2, Mass: 33.9678668300, Abundance: 0.0425})
	t.Add("S", Isotope{Offset: 4, Mass: 35.9670808800, Abundance: 0.0001})

	t.Add("Na", Isotope{Offset: 0, Mass: 22.9897692809, Abundance: 1.0})

	t.Add("K", Isotope{Offset: 0, Mass: 38.9637066900, Abundance: 0.932581})
	t.Add("K", Isotope{Offset: 1, Mass: 39.9639986000, Abundance: 0.000117})
	t.Add("K", Isotope{Offset: 2, Mass: 40.9618252600, Abundance: 0.067302})

	// 6Li sits one neutron below the monoisotopic 7Li and never reaches a positive bin
	t.Add("Li", Isotope{Offset: -1, Mass: 6.0151228000, Abundance: 0.0759})
	t.Add("Li", Isotope{Offset: 0, Mass: 7.0160040000, Abundance: 0.9241})

	t.Add("Cl", Isotope{Offset: 0, Mass: 34.9688527100, Abundance: 0.7576})
	t.Add("Cl", Isotope{Offset: 2, Mass: 36.9659026000, Abundance: 0.2424})

	t.Add("F", Isotope{Offset: 0, Mass: 18.9984032200, Abundance: 1.0})
	t.Add("I", Isotope{Offset: 0, Mass: 126.9044730000, Abundance: 1.0})

	return t
}
