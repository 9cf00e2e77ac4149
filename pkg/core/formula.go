package core

import (
	"sort"
	"strconv"
	"strings"
)

// Formula maps element symbols to signed atom counts. Negative counts are deductions,
// e.g. the proton lost in [M-H]- ionization.
type Formula map[string]int

// knownElements holds every symbol ParseFormula accepts. D is deuterium, used by labelled standards.
var knownElements = map[string]bool{}

func init() {
	symbols := `H He Li Be B C N O F Ne Na Mg Al Si P S Cl Ar K Ca Sc Ti V Cr Mn Fe Co Ni Cu Zn
		Ga Ge As Se Br Kr Rb Sr Y Zr Nb Mo Tc Ru Rh Pd Ag Cd In Sn Sb Te I Xe Cs Ba La Ce Pr Nd
		Pm Sm Eu Gd Tb Dy Ho Er Tm Yb Lu Hf Ta W Re Os Ir Pt Au Hg Tl Pb Bi Po At Rn Fr Ra Ac Th
		Pa U Np Pu Am Cm Bk Cf Es Fm Md No Lr Rf Db Sg Bh Hs Mt Ds Rg Cn Nh Fl Mc Lv Ts Og D`
	for _, s := range strings.Fields(symbols) {
		knownElements[s] = true
	}
}

// IsElement reports whether symbol is a known element symbol.
func IsElement(symbol string) bool {
	return knownElements[symbol]
}

// ParseFormula parses formulas like "C10 H20", "C10H20", "H-1", "-H1" or "Na".
// A missing count means 1; a leading sign applies to the element that follows it.
// Repeated elements are summed.
func ParseFormula(s string) (Formula, error) {
	f := Formula{}
	runes := []rune(s)
	i := 0
	for i < len(runes) {
		r := runes[i]
		if r == ' ' || r == '\t' {
			i++
			continue
		}

		sign := 1
		if r == '-' || r == '+' {
			if r == '-' {
				sign = -1
			}
			i++
			if i >= len(runes) || !isUpper(runes[i]) {
				return nil, &FormulaParseError{Formula: s, Token: string(r), Message: "sign without element"}
			}
			r = runes[i]
		}

		if !isUpper(r) {
			return nil, &FormulaParseError{Formula: s, Token: string(r), Message: "unexpected character"}
		}
		start := i
		i++
		for i < len(runes) && isLower(runes[i]) {
			i++
		}
		symbol := string(runes[start:i])
		if !IsElement(symbol) {
			return nil, &FormulaParseError{Formula: s, Token: symbol, Message: "unknown element"}
		}

		numStart := i
		if i < len(runes) && (runes[i] == '-' || runes[i] == '+') && i+1 < len(runes) && isDigit(runes[i+1]) {
			i++
		}
		for i < len(runes) && isDigit(runes[i]) {
			i++
		}
		count := 1
		if i > numStart {
			n, err := strconv.Atoi(string(runes[numStart:i]))
			if err != nil {
				return nil, &FormulaParseError{Formula: s, Token: string(runes[numStart:i]), Message: "invalid count"}
			}
			count = n
		}

		f[symbol] += sign * count
	}
	return f, nil
}

// MustParseFormula is like ParseFormula but panics on error. Intended for package-level tables and tests.
func MustParseFormula(s string) Formula {
	f, err := ParseFormula(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Elements returns the element symbols in Hill order: C, H, then alphabetical.
// Without carbon every symbol is alphabetical.
func (f Formula) Elements() []string {
	elements := make([]string, 0, len(f))
	for el := range f {
		elements = append(elements, el)
	}
	hasCarbon := f.Has("C")
	sort.Slice(elements, func(i, j int) bool {
		ri, rj := hillRank(elements[i], hasCarbon), hillRank(elements[j], hasCarbon)
		if ri != rj {
			return ri < rj
		}
		return elements[i] < elements[j]
	})
	return elements
}

func hillRank(el string, hasCarbon bool) int {
	if !hasCarbon {
		return 2
	}
	switch el {
	case "C":
		return 0
	case "H":
		return 1
	}
	return 2
}

// Has reports whether the element is present, regardless of its count.
func (f Formula) Has(element string) bool {
	_, ok := f[element]
	return ok
}

// Clone returns an independent copy.
func (f Formula) Clone() Formula {
	c := make(Formula, len(f))
	for k, v := range f {
		c[k] = v
	}
	return c
}

// String renders the formula as "C10 H21 N1".
func (f Formula) String() string {
	parts := make([]string, 0, len(f))
	for _, el := range f.Elements() {
		parts = append(parts, el+strconv.Itoa(f[el]))
	}
	return strings.Join(parts, " ")
}

// DeltaString renders a modification delta with the sign in front of the element, e.g. "-H1Na1".
func (f Formula) DeltaString() string {
	var b strings.Builder
	for _, el := range f.Elements() {
		amount := f[el]
		if amount < 0 {
			b.WriteString("-")
			amount = -amount
		}
		b.WriteString(el)
		b.WriteString(strconv.Itoa(amount))
	}
	return b.String()
}

// CombineFormulas adds a modification formula to an analyte formula. The second result ignores
// deductions: an element the modification removes keeps the analyte's original count.
// Modification strings of length <= 1 leave the analyte formula untouched.
func CombineFormulas(analyte, modification string) (formula, withoutDeducts string, err error) {
	if len(modification) <= 1 {
		return analyte, analyte, nil
	}

	anal, err := ParseFormula(analyte)
	if err != nil {
		return "", "", err
	}
	mod, err := ParseFormula(modification)
	if err != nil {
		return "", "", err
	}

	combined := anal.Clone()
	wo := anal.Clone()
	for _, el := range mod.Elements() {
		amount := mod[el]
		amountWO := amount
		if anal.Has(el) {
			amount += combined[el]
			if amountWO > 0 {
				amountWO += wo[el]
			} else {
				amountWO = wo[el]
			}
		}
		combined[el] = amount
		if amountWO > 0 {
			wo[el] = amountWO
		}
	}
	return combined.String(), wo.String(), nil
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool { return r >= '0' && r <= '9' }
