package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FunctionSpec describes a callable for the LLM function-calling protocol.
// A nil Parameters means the function takes no arguments.
type FunctionSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// FunctionCall represents an LLM's request to invoke a function.
type FunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Args are the shaped arguments handed to a Function.
type Args struct {
	Ticker string
	Period string
	Amount Amount
}

// Function is the interface every registered callable implements.
type Function interface {
	Spec() FunctionSpec
	Invoke(ctx context.Context, args Args) (FunctionOutput, error)
}

// Amount is a numeric argument in the literal form the model supplied,
// so results echo the caller's own formatting.
type Amount struct {
	literal string
	present bool
	numeric bool
	isFloat bool
}

// ParseAmount reads a raw JSON value. Absent and null values yield an
// Amount that is not Present.
func ParseAmount(raw json.RawMessage) Amount {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return Amount{}
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err == nil {
			s = str
		}
		return Amount{literal: s, present: true}
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return Amount{literal: s, present: true}
	}
	return Amount{
		literal: s,
		present: true,
		numeric: true,
		isFloat: strings.ContainsAny(s, ".eE"),
	}
}

// AmountOf builds an Amount from a Go number.
func AmountOf(v float64) Amount {
	return Amount{literal: FormatFloat(v), present: true, numeric: true, isFloat: true}
}

// Present reports whether a value was supplied at all.
func (a Amount) Present() bool { return a.present }

// Float returns the numeric value or ErrArgumentCoercion.
func (a Amount) Float() (float64, error) {
	if !a.present {
		return 0, NewDomainError("Amount.Float", ErrArgumentCoercion, "amount missing")
	}
	if !a.numeric {
		return 0, NewDomainError("Amount.Float", ErrArgumentCoercion, fmt.Sprintf("amount %q is not a number", a.literal))
	}
	v, err := strconv.ParseFloat(a.literal, 64)
	if err != nil {
		return 0, NewDomainError("Amount.Float", ErrArgumentCoercion, err.Error())
	}
	return v, nil
}

func (a Amount) String() string {
	if !a.present {
		return "None"
	}
	if a.isFloat {
		if v, err := strconv.ParseFloat(a.literal, 64); err == nil {
			return FormatFloat(v)
		}
	}
	return a.literal
}

// FormatFloat renders a float the way the quote service's clients have
// always printed them: shortest round-trip digits, with a trailing ".0"
// for integral values and exponent form outside [1e-4, 1e16).
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
