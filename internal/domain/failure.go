package domain

import (
	"fmt"
	"strings"
)

// FailureType is the closed set of fault categories reported by the PHM 2018 tools.
type FailureType int

const (
	FlowCoolPressureDroppedBelowLimit FailureType = iota
	FlowcoolPressureTooHighCheckFlowcoolPump
	FlowcoolLeak
)

// declaration order is the prefix-match tie-break
var failureTypes = [...]struct {
	name string
	text string
}{
	FlowCoolPressureDroppedBelowLimit:        {"FlowCoolPressureDroppedBelowLimit", "FlowCool Pressure Dropped Below Limit"},
	FlowcoolPressureTooHighCheckFlowcoolPump: {"FlowcoolPressureTooHighCheckFlowcoolPump", "Flowcool Pressure Too High Check Flowcool Pump"},
	FlowcoolLeak:                             {"FlowcoolLeak", "Flowcool leak"},
}

// FailureTypes returns every known category in declaration order.
func FailureTypes() []FailureType {
	out := make([]FailureType, len(failureTypes))
	for i := range failureTypes {
		out[i] = FailureType(i)
	}
	return out
}

func (f FailureType) valid() bool { return f >= 0 && int(f) < len(failureTypes) }

// Name is the identifier used in life file names.
func (f FailureType) Name() string {
	if !f.valid() {
		return fmt.Sprintf("FailureType(%d)", int(f))
	}
	return failureTypes[f].name
}

// Text is the canonical fault description stored in the manifest.
func (f FailureType) Text() string {
	if !f.valid() {
		return ""
	}
	return failureTypes[f].text
}

func (f FailureType) String() string { return f.Name() }

// MatchFailureType returns the first category whose text prefixes the description.
func MatchFailureType(description string) (FailureType, bool) {
	for i, ft := range failureTypes {
		if strings.HasPrefix(description, ft.text) {
			return FailureType(i), true
		}
	}
	return 0, false
}

// ParseFailureType accepts either the identifier or the canonical text of a category.
func ParseFailureType(s string) (FailureType, error) {
	s = strings.TrimSpace(s)
	for i, ft := range failureTypes {
		if strings.EqualFold(s, ft.name) || s == ft.text {
			return FailureType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFailureType, s)
}

// ParseFailureTypes parses a list, returning every category when the list is empty.
func ParseFailureTypes(values []string) ([]FailureType, error) {
	if len(values) == 0 {
		return FailureTypes(), nil
	}
	out := make([]FailureType, 0, len(values))
	for _, v := range values {
		ft, err := ParseFailureType(v)
		if err != nil {
			return nil, err
		}
		out = append(out, ft)
	}
	return out, nil
}
