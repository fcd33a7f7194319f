package dnds

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind tells if an estimate has a finite value.
type Kind int

const (
	// Defined is a finite value.
	Defined Kind = iota
	// Infinite is a positive ratio with zero denominator.
	Infinite
	// Undefined means there were no sites to normalize by.
	Undefined
)

func (k Kind) String() string {
	switch k {
	case Defined:
		return "defined"
	case Infinite:
		return "infinite"
	case Undefined:
		return "undefined"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Estimate is a rate or a ratio which may be infinite or undefined.
// Value is only meaningful for Defined estimates; it is never NaN.
type Estimate struct {
	Value float64
	Kind  Kind
}

// Value returns a defined estimate.
func Value(v float64) Estimate {
	return Estimate{Value: v}
}

// Inf is an infinite estimate.
var Inf = Estimate{Kind: Infinite}

// NA is an undefined estimate.
var NA = Estimate{Kind: Undefined}

// rate returns count/sites, undefined if there are no sites.
func rate(count int, sites float64) Estimate {
	if sites <= 0 {
		return NA
	}
	return Value(float64(count) / sites)
}

// ratio returns dN/dS. Zero dS gives infinity.
func ratio(dN, dS Estimate) Estimate {
	if dN.Kind != Defined || dS.Kind != Defined {
		return NA
	}
	if dS.Value == 0 {
		return Inf
	}
	return Value(dN.Value / dS.Value)
}

func (e Estimate) String() string {
	switch e.Kind {
	case Infinite:
		return "Inf"
	case Undefined:
		return "NA"
	}
	return strconv.FormatFloat(e.Value, 'f', 6, 64)
}

// MarshalJSON encodes defined estimates as numbers, infinite as
// "Infinity" and undefined as null.
func (e Estimate) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case Infinite:
		return []byte(`"Infinity"`), nil
	case Undefined:
		return []byte("null"), nil
	}
	return json.Marshal(e.Value)
}

// UnmarshalJSON reverses MarshalJSON.
func (e *Estimate) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch string(b) {
	case "null":
		*e = NA
		return nil
	case `"Infinity"`:
		*e = Inf
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("estimate: %v", err)
	}
	*e = Value(v)
	return nil
}
