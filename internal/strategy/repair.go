package strategy

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrorKind classifies a single schema failure.
type ErrorKind string

const (
	KindTooSmall       ErrorKind = "too_small"
	KindTooBig         ErrorKind = "too_big"
	KindTooShort       ErrorKind = "too_short"
	KindMissingNumber  ErrorKind = "missing_number"
	KindMissingString  ErrorKind = "missing_string"
	KindMissingSection ErrorKind = "missing_section"
	KindInvalid        ErrorKind = "invalid"
)

const (
	// RepairSuffix is appended once to strings under their minimum length.
	RepairSuffix = " (technical-indicator basis)"

	PlaceholderAction  = "position adjustment required"
	PlaceholderGeneric = "market-dependent"
)

// NumberDefaults are substituted for missing required ratios, keyed by JSON field name.
var NumberDefaults = map[string]float64{
	"entryRatio":  30,
	"exitRatio":   50,
	"actionRatio": 25,
}

// Constraint describes the rule a field violated.
type Constraint struct {
	Field  string // JSON path, e.g. phase1.entryRatio
	Name   string // JSON leaf name
	Tag    string
	Param  string
	MinLen int
}

// Bound parses Param as a number.
func (c Constraint) Bound() (float64, bool) {
	v, err := strconv.ParseFloat(c.Param, 64)
	return v, err == nil
}

// RepairFunc returns the replacement value, or false when the value cannot be repaired.
type RepairFunc func(current any, c Constraint) (any, bool)

// DefaultRepairs returns a fresh copy of the error-kind to repair table.
// MissingSection and Invalid have no entry and are never repaired.
func DefaultRepairs() map[ErrorKind]RepairFunc {
	return map[ErrorKind]RepairFunc{
		KindTooSmall:      clampToBound,
		KindTooBig:        clampToBound,
		KindTooShort:      appendSuffix,
		KindMissingNumber: defaultNumber,
		KindMissingString: placeholder,
	}
}

// clampToBound 取被违反的边界值；gt/lt 这类开区间夹到边界后仍会在复检时失败。
func clampToBound(current any, c Constraint) (any, bool) {
	if _, ok := current.(float64); !ok {
		return nil, false
	}
	b, ok := c.Bound()
	if !ok {
		return nil, false
	}
	return b, true
}

func appendSuffix(current any, c Constraint) (any, bool) {
	s, ok := current.(string)
	if !ok {
		return nil, false
	}
	return s + RepairSuffix, true
}

func defaultNumber(_ any, c Constraint) (any, bool) {
	v, ok := NumberDefaults[c.Name]
	return v, ok
}

func placeholder(_ any, c Constraint) (any, bool) {
	text := PlaceholderGeneric
	if strings.Contains(strings.ToLower(c.Name), "action") {
		text = PlaceholderAction
	}
	if utf8.RuneCountInString(text) < c.MinLen {
		text += RepairSuffix
	}
	return text, true
}
