package models

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

const (
	priceFractionDigits = 2
	priceScale          = int64(100)
)

// Price represents a course price stored in minor units (hundredths of the
// major currency) to avoid floating point rounding issues. JSON encoding and
// string formatting expose the canonical decimal representation while all
// internal operations use the fixed-precision integer value.
type Price struct {
	minorUnits int64
}

// NewPriceFromMinorUnits constructs a Price value from its minor-unit
// representation.
func NewPriceFromMinorUnits(units int64) Price {
	return Price{minorUnits: units}
}

// MinorUnits exposes the internal integer representation scaled by 1e-2.
func (p Price) MinorUnits() int64 {
	return p.minorUnits
}

// Positive reports whether the amount is strictly greater than zero.
func (p Price) Positive() bool {
	return p.minorUnits > 0
}

// DecimalString returns the canonical decimal representation with up to two
// fractional digits.
func (p Price) DecimalString() string {
	units := p.minorUnits
	negative := units < 0
	if negative {
		units = -units
	}
	whole := units / priceScale
	fraction := units % priceScale
	var builder strings.Builder
	if negative {
		builder.WriteByte('-')
	}
	fmt.Fprintf(&builder, "%d", whole)
	if fraction != 0 {
		text := fmt.Sprintf("%02d", fraction)
		text = strings.TrimRight(text, "0")
		builder.WriteByte('.')
		builder.WriteString(text)
	}
	return builder.String()
}

// String implements fmt.Stringer.
func (p Price) String() string {
	return p.DecimalString()
}

// MarshalJSON encodes the fixed-precision amount as a JSON number.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.DecimalString()), nil
}

// UnmarshalJSON decodes a JSON number or string into the fixed-precision minor
// unit representation. A JSON null resets the value to zero.
func (p *Price) UnmarshalJSON(data []byte) error {
	if p == nil {
		return fmt.Errorf("models: cannot decode into nil Price pointer")
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*p = Price{}
		return nil
	}
	var raw string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("price must be a number")
		}
	} else {
		raw = trimmed
	}
	price, err := ParsePrice(raw)
	if err != nil {
		return err
	}
	*p = price
	return nil
}

// ParsePrice parses a decimal string into a Price value with up to two
// fractional digits.
func ParsePrice(value string) (Price, error) {
	trimmed := strings.TrimSpace(value)
	if !plainDecimal(trimmed) {
		return Price{}, fmt.Errorf("price must be a number")
	}
	rat, ok := new(big.Rat).SetString(trimmed)
	if !ok {
		return Price{}, fmt.Errorf("price must be a number")
	}
	rat.Mul(rat, big.NewRat(priceScale, 1))
	if !rat.IsInt() {
		return Price{}, fmt.Errorf("price supports up to %d decimal places", priceFractionDigits)
	}
	numerator := rat.Num()
	if !numerator.IsInt64() {
		return Price{}, fmt.Errorf("price out of range")
	}
	return Price{minorUnits: numerator.Int64()}, nil
}

// plainDecimal reports whether the string is an optionally signed decimal
// number. big.Rat also accepts fractions and exponent notation, which are not
// valid price inputs.
func plainDecimal(value string) bool {
	rest := value
	if strings.HasPrefix(rest, "-") || strings.HasPrefix(rest, "+") {
		rest = rest[1:]
	}
	whole, fraction, dotted := strings.Cut(rest, ".")
	if whole == "" || (dotted && fraction == "") {
		return false
	}
	for _, part := range []string{whole, fraction} {
		for _, r := range part {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

// MustParsePrice panics if the value cannot be parsed. It is intended for
// tests and static initialisation.
func MustParsePrice(value string) Price {
	price, err := ParsePrice(value)
	if err != nil {
		panic(err)
	}
	return price
}
