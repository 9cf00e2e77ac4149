package core

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Adduct is an ionizing modification: the elements added to (or removed from) the neutral
// analyte and the resulting charge.
type Adduct struct {
	Name    string
	Formula string // e.g. "H1", "Na1", "H-1", "C1 H1 O2"
	Charge  int    // signed; negative for anions
}

// Mass returns the mass shift the adduct applies to the neutral analyte.
func (a Adduct) Mass() (float64, error) {
	f, err := ParseFormula(a.Formula)
	if err != nil {
		return 0, err
	}
	return CalculateNeutralMass(f)
}

// AdductDatabase stores adduct definitions
type AdductDatabase struct {
	adducts map[string]Adduct
}

// NewAdductDatabase creates an empty adduct database
func NewAdductDatabase() *AdductDatabase {
	return &AdductDatabase{
		adducts: make(map[string]Adduct),
	}
}

// LoadFromCSV loads adducts from a CSV file (format: name,formula,charge)
func (db *AdductDatabase) LoadFromCSV(r io.Reader) error {
	scanner := bufio.NewScanner(r)

	// Skip header line
	scanner.Scan()

	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 3 {
			return fmt.Errorf("line %d: invalid format, expected 3 comma-separated fields", lineNum)
		}

		name := strings.TrimSpace(parts[0])
		formula := strings.TrimSpace(parts[1])
		chargeStr := strings.TrimSpace(parts[2])

		if _, err := ParseFormula(formula); err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		charge, err := strconv.Atoi(chargeStr)
		if err != nil {
			return fmt.Errorf("line %d: invalid charge value '%s': %w", lineNum, chargeStr, err)
		}

		db.Add(Adduct{Name: name, Formula: formula, Charge: charge})
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading CSV: %w", err)
	}

	return nil
}

// Get returns the adduct registered under name
func (db *AdductDatabase) Get(name string) (Adduct, bool) {
	a, ok := db.adducts[name]
	return a, ok
}

// Add adds or updates an adduct
func (db *AdductDatabase) Add(a Adduct) {
	db.adducts[a.Name] = a
}

// All returns every adduct ordered by name.
func (db *AdductDatabase) All() []Adduct {
	out := make([]Adduct, 0, len(db.adducts))
	for _, a := range db.adducts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of adducts
func (db *AdductDatabase) Len() int {
	return len(db.adducts)
}

// DefaultAdductDatabase returns an AdductDatabase pre-loaded with the common ESI adducts
func DefaultAdductDatabase() *AdductDatabase {
	db := NewAdductDatabase()

	// positive mode
	db.Add(Adduct{Name: "H", Formula: "H1", Charge: 1})
	db.Add(Adduct{Name: "Na", Formula: "Na1", Charge: 1})
	db.Add(Adduct{Name: "NH4", Formula: "N1 H4", Charge: 1})
	db.Add(Adduct{Name: "K", Formula: "K1", Charge: 1})
	db.Add(Adduct{Name: "Li", Formula: "Li1", Charge: 1})
	db.Add(Adduct{Name: "-OH", Formula: "H-1 O-1", Charge: 1})

	// negative mode
	db.Add(Adduct{Name: "-H", Formula: "H-1", Charge: -1})
	db.Add(Adduct{Name: "-CH3", Formula: "C-1 H-3", Charge: -1})
	db.Add(Adduct{Name: "HCOO", Formula: "C1 H1 O2", Charge: -1})
	db.Add(Adduct{Name: "CH3COO", Formula: "C2 H3 O2", Charge: -1})
	db.Add(Adduct{Name: "Cl", Formula: "Cl1", Charge: -1})

	return db
}
