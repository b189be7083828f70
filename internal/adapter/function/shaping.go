package function

import (
	"bytes"
	"encoding/json"
	"fmt"

	"cryptochat/internal/domain"
)

// DefaultPeriod is used when the model omits "period".
const DefaultPeriod = "1mo"

// argPolicy says which arguments a function receives.
type argPolicy int

const (
	argsTicker argPolicy = iota
	argsNone
	argsConversion
)

// argPolicies is fixed by name. Anything not listed takes a ticker and an
// optional period. A new function that needs a different shape must be
// added here.
var argPolicies = map[string]argPolicy{
	GetHighestGainers:  argsNone,
	GetTrendingCryptos: argsNone,
	ConvertToFiat:      argsConversion,
	ConvertToCrypto:    argsConversion,
}

// ArgumentsFor shapes the model's raw JSON arguments for the named function.
// Zero-argument functions ignore whatever was supplied. Conversion functions
// get ticker and amount; a missing amount is passed through and fails later
// at the numeric stage. All others get ticker and period.
func ArgumentsFor(name string, raw json.RawMessage) (domain.Args, error) {
	policy := argPolicies[name]
	if policy == argsNone {
		return domain.Args{}, nil
	}

	fields := map[string]json.RawMessage{}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return domain.Args{}, domain.NewDomainError("function.ArgumentsFor", domain.ErrArgumentCoercion,
				fmt.Sprintf("%s arguments: %v", name, err))
		}
	}

	args := domain.Args{Ticker: scalarText(fields["ticker"])}
	switch policy {
	case argsConversion:
		args.Amount = domain.ParseAmount(fields["amount"])
	default:
		args.Period = DefaultPeriod
		if p := scalarText(fields["period"]); p != "" {
			args.Period = p
		}
	}
	return args, nil
}

// scalarText returns a JSON string's value, or the raw literal for any
// other non-null value.
func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
