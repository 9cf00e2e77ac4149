// Package chain decodes and encodes chain-combination names such as "16:0_18:1" or
// "O-16:0_20:4" and provides the order-independent canonical form used to aggregate
// permutations of the same chain set.
package chain

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/lipidquant/pkg/core"
)

const (
	// Separator joins chains whose positions are unknown
	Separator = "_"
	// PositionSeparator joins chains with assigned positions; decoding treats it like Separator
	PositionSeparator = "/"
	// Empty marks an unoccupied chain position
	Empty = "-"
)

// chainPattern matches "16:0", "O-16:0", "P-18:1", "d18:1", "18:1;O2"
var chainPattern = regexp.MustCompile(`^([A-Za-z]+-?)?(\d+):(\d+)(;[A-Za-z0-9]+)?$`)

// Chain is one fatty acyl, alkyl or long chain base identifier
type Chain struct {
	Prefix      string // "O-", "P-", "d", "t", or empty
	Carbons     int
	DoubleBonds int
	Suffix      string // oxidation suffix such as ";O2"
	empty       bool
}

// IsEmpty reports whether the chain is the unoccupied placeholder
func (c Chain) IsEmpty() bool {
	return c.empty
}

// String renders the chain in the notation Decode accepts
func (c Chain) String() string {
	if c.empty {
		return Empty
	}
	return c.Prefix + strconv.Itoa(c.Carbons) + ":" + strconv.Itoa(c.DoubleBonds) + c.Suffix
}

// ParseChain parses a single chain identifier
func ParseChain(s string) (Chain, error) {
	s = strings.TrimSpace(s)
	if s == Empty {
		return Chain{empty: true}, nil
	}
	m := chainPattern.FindStringSubmatch(s)
	if m == nil {
		return Chain{}, &core.ChainEncodingError{Combination: s, Message: "invalid chain identifier"}
	}
	carbons, _ := strconv.Atoi(m[2])
	dbs, _ := strconv.Atoi(m[3])
	return Chain{
		Prefix:      m[1],
		Carbons:     carbons,
		DoubleBonds: dbs,
		Suffix:      m[4],
	}, nil
}

// Decode splits a chain combination into its chain identifiers, keeping their order
func Decode(combination string) ([]Chain, error) {
	if strings.TrimSpace(combination) == "" {
		return nil, &core.ChainEncodingError{Combination: combination, Message: "empty combination"}
	}
	normalized := strings.ReplaceAll(combination, PositionSeparator, Separator)
	parts := strings.Split(normalized, Separator)
	chains := make([]Chain, 0, len(parts))
	for _, part := range parts {
		c, err := ParseChain(part)
		if err != nil {
			return nil, &core.ChainEncodingError{Combination: combination, Message: "invalid chain identifier " + strconv.Quote(part)}
		}
		chains = append(chains, c)
	}
	return chains, nil
}

// Encode joins chains with Separator in the given order
func Encode(chains []Chain) string {
	parts := make([]string, len(chains))
	for i, c := range chains {
		parts[i] = c.String()
	}
	return strings.Join(parts, Separator)
}

// Sort orders chains by carbons, double bonds, prefix and suffix; empty placeholders go last.
func Sort(chains []Chain) []Chain {
	sorted := make([]Chain, len(chains))
	copy(sorted, chains)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.empty != b.empty {
			return b.empty
		}
		if a.Carbons != b.Carbons {
			return a.Carbons < b.Carbons
		}
		if a.DoubleBonds != b.DoubleBonds {
			return a.DoubleBonds < b.DoubleBonds
		}
		if a.Prefix != b.Prefix {
			return a.Prefix < b.Prefix
		}
		return a.Suffix < b.Suffix
	})
	return sorted
}

// Canonical returns the order-independent name of a combination and its number of chains.
// "18:1_16:0" and "16:0/18:1" both become "16:0_18:1".
func Canonical(combination string) (string, int, error) {
	chains, err := Decode(combination)
	if err != nil {
		return "", 0, err
	}
	return Encode(Sort(chains)), len(chains), nil
}
