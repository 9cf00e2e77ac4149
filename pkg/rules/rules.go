// Package rules answers whether retention-time postprocessing is enabled for a lipid class
// and adduct combination.
package rules

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/lipidquant/pkg/core"
)

// RuleName builds the lookup key of a class/modification pair, e.g. "PC_H"
func RuleName(className, modification string) string {
	return className + "_" + modification
}

// Rule is the retention-time postprocessing setting of one class/modification pair
type Rule struct {
	ClassName        string
	Modification     string
	RtPostprocessing bool
}

// Name returns the rule's lookup key
func (r Rule) Name() string {
	return RuleName(r.ClassName, r.Modification)
}

// Set is an in-memory rule lookup
type Set struct {
	rules map[string]Rule
}

// NewSet creates a Set holding rules
func NewSet(rules ...Rule) *Set {
	s := &Set{rules: make(map[string]Rule)}
	for _, r := range rules {
		s.Add(r)
	}
	return s
}

// Add adds or replaces a rule
func (s *Set) Add(r Rule) {
	s.rules[r.Name()] = r
}

// All returns the rules ordered by name
func (s *Set) All() []Rule {
	out := make([]Rule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// IsRtPostprocessing reports whether the rule for className/modification enables
// retention-time postprocessing. A missing rule is a *core.RuleLookupError.
func (s *Set) IsRtPostprocessing(className, modification string) (bool, error) {
	r, ok := s.rules[RuleName(className, modification)]
	if !ok {
		return false, &core.RuleLookupError{Rule: RuleName(className, modification)}
	}
	return r.RtPostprocessing, nil
}

// LoadFromCSV loads rules (format: class,modification,rtPostprocessing)
func (s *Set) LoadFromCSV(r io.Reader) error {
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
			return &core.RuleLookupError{
				Rule: fmt.Sprintf("line %d", lineNum),
				Err:  fmt.Errorf("expected 3 comma-separated fields, got %d", len(parts)),
			}
		}

		enabled, err := strconv.ParseBool(strings.TrimSpace(parts[2]))
		if err != nil {
			return &core.RuleLookupError{Rule: fmt.Sprintf("line %d", lineNum), Err: err}
		}

		s.Add(Rule{
			ClassName:        strings.TrimSpace(parts[0]),
			Modification:     strings.TrimSpace(parts[1]),
			RtPostprocessing: enabled,
		})
	}

	if err := scanner.Err(); err != nil {
		return &core.RuleLookupError{Rule: "rules file", Err: err}
	}

	return nil
}
