package core

import (
	"errors"
	"fmt"
)

// ErrNoArea is returned when an area-weighted value is requested for a record without any area.
var ErrNoArea = errors.New("no area available")

// FormulaParseError is returned when a chemical formula contains an unknown or malformed element token.
type FormulaParseError struct {
	Formula string
	Token   string
	Message string
}

func (e *FormulaParseError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("formula %q: %s (token %q)", e.Formula, e.Message, e.Token)
	}
	return fmt.Sprintf("formula %q: %s", e.Formula, e.Message)
}

// ChainEncodingError is returned for malformed chain-combination names.
type ChainEncodingError struct {
	Combination string
	Message     string
}

func (e *ChainEncodingError) Error() string {
	return fmt.Sprintf("chain combination %q: %s", e.Combination, e.Message)
}

// RuleLookupError is returned when no rule exists for a class/modification pair
// or the rule source cannot be read.
type RuleLookupError struct {
	Rule string
	Err  error
}

func (e *RuleLookupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rule %s: %v", e.Rule, e.Err)
	}
	return fmt.Sprintf("rule %s: no rule defined", e.Rule)
}

func (e *RuleLookupError) Unwrap() error {
	return e.Err
}

// SpectrumParseError is returned for element configurations or formulas
// the isotope calculator cannot work with.
type SpectrumParseError struct {
	Source  string
	Message string
	Err     error
}

func (e *SpectrumParseError) Error() string {
	msg := fmt.Sprintf("isotope configuration %s: %s", e.Source, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SpectrumParseError) Unwrap() error {
	return e.Err
}

// PreconditionError reports a call that would leave a record in an inconsistent state.
type PreconditionError struct {
	Op      string
	Message string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// ValidationError represents an error found during hit validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}
