package stats

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

const percent = 100

// oneDecimal renders v with exactly one fractional digit.
func oneDecimal(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(1)
}

// Dominance is the average win share per pick (or entry) as a percentage.
// When there were no picks it is undefined and encodes as the number 0;
// otherwise it encodes as a one-decimal string such as "50.0".
type Dominance struct {
	pct     float64
	defined bool
}

func newDominance(totalShare float64, denominator int) Dominance {
	if denominator == 0 {
		return Dominance{}
	}
	return Dominance{pct: totalShare / float64(denominator) * percent, defined: true}
}

// Defined reports whether the denominator was non-zero.
func (d Dominance) Defined() bool { return d.defined }

// Float returns the percentage, 0 when undefined.
func (d Dominance) Float() float64 { return d.pct }

// String returns "0" when undefined and the one-decimal percentage otherwise.
func (d Dominance) String() string {
	if !d.defined {
		return "0"
	}
	return oneDecimal(d.pct)
}

// MarshalJSON implements json.Marshaler.
func (d Dominance) MarshalJSON() ([]byte, error) {
	if !d.defined {
		return []byte("0"), nil
	}
	return json.Marshal(oneDecimal(d.pct))
}

// UnmarshalJSON implements json.Unmarshaler. It accepts either encoding
// produced by MarshalJSON.
func (d *Dominance) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode dominance: %w", err)
	}
	switch v := raw.(type) {
	case float64:
		*d = Dominance{pct: v, defined: v != 0}
	case string:
		p, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("decode dominance %q: %w", v, err)
		}
		*d = Dominance{pct: p.InexactFloat64(), defined: true}
	default:
		return fmt.Errorf("decode dominance: unexpected %s", string(b))
	}
	return nil
}

// Rate is a count over a denominator, kept both as a raw fraction and as a
// one-decimal percentage string. A zero denominator yields fraction 0 and "0.0".
type Rate struct {
	Count    int     `json:"count"`
	Of       int     `json:"of"`
	Fraction float64 `json:"fraction"`
	Display  string  `json:"display"`
}

func newRate(count, of int) Rate {
	r := Rate{Count: count, Of: of, Display: "0.0"}
	if of == 0 {
		return r
	}
	r.Fraction = float64(count) / float64(of)
	r.Display = oneDecimal(r.Fraction * percent)
	return r
}
