// Package scale maps word counts onto a bounded integer weight range (font
// sizes in the rendered cloud) by min/max normalization over the selected
// entries.
package scale

import (
	"math/bits"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/errors"
)

// MaxWeight bounds both ends of a Range. Weights are font sizes in pixels and
// the stylesheet carries one rule per weight in the range.
const MaxWeight = 1000

// Range is a closed weight interval with 0 <= Min < Max <= MaxWeight.
type Range struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// DefaultRange is the font size range of the classic tag cloud page.
var DefaultRange = Range{Min: 11, Max: 48}

func (r Range) Validate() error {
	if r.Min < 0 || r.Max > MaxWeight {
		return apperrors.Invalidf("weights must lie within [0, %d], got [%d, %d]", MaxWeight, r.Min, r.Max)
	}
	if r.Min >= r.Max {
		return apperrors.Invalidf("min weight %d must be below max weight %d", r.Min, r.Max)
	}
	return nil
}

// Weighted is a ranked entry with its computed weight.
type Weighted struct {
	ranker.Entry
	Weight int `json:"weight"`
}

// Extremes returns the smallest and largest count among entries, or zeros
// when entries is empty.
func Extremes(entries []ranker.Entry) (minCount, maxCount int) {
	if len(entries) == 0 {
		return 0, 0
	}
	minCount, maxCount = entries[0].Count, entries[0].Count
	for _, e := range entries[1:] {
		if e.Count < minCount {
			minCount = e.Count
		}
		if e.Count > maxCount {
			maxCount = e.Count
		}
	}
	return minCount, maxCount
}

// Weight linearly maps count from [minCount, maxCount] onto r, rounding up.
// The minimum count, and every count when all counts are equal, maps to
// r.Min; the maximum count maps to r.Max.
func Weight(count, minCount, maxCount int, r Range) int {
	if count <= minCount || maxCount <= minCount {
		return r.Min
	}
	if count >= maxCount {
		return r.Max
	}
	if r.Max <= r.Min {
		return r.Min
	}
	// Differences of ordered ints fit in uint64 and the 128-bit product
	// cannot overflow. The quotient is at most span, so Div64 cannot panic
	// and Min plus it lands in [Min, Max] even when span exceeds MaxInt.
	span := uint64(r.Max) - uint64(r.Min)
	den := uint64(maxCount) - uint64(minCount)
	hi, lo := bits.Mul64(span, uint64(count)-uint64(minCount))
	lo, carry := bits.Add64(lo, den-1, 0)
	q, _ := bits.Div64(hi+carry, lo, den)
	return r.Min + int(q)
}

// Apply weighs every entry against the extremes of entries themselves and
// keeps their order.
func Apply(entries []ranker.Entry, r Range) ([]Weighted, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	minCount, maxCount := Extremes(entries)
	out := make([]Weighted, len(entries))
	for i, e := range entries {
		out[i] = Weighted{Entry: e, Weight: Weight(e.Count, minCount, maxCount, r)}
	}
	return out, nil
}
