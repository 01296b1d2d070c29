package vat

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidArgument is returned by Compute for a negative amount or a
// rate outside [0,1].
var ErrInvalidArgument = errors.New("invalid vat argument")

// round2 rounds half away from zero to 2 decimal places. The same
// policy is applied to the VAT amount and to the total, so the two
// never disagree by a rounding step.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Compute returns the VAT amount and gross total for a subtotal at the
// given decimal rate, both rounded to 2 decimal places. It is pure and
// deterministic; on a constraint violation nothing is computed.
func Compute(amount, rate float64) (vat, total float64, err error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return 0, 0, fmt.Errorf("%w: amount %v must be a non-negative number", ErrInvalidArgument, amount)
	}
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return 0, 0, fmt.Errorf("%w: rate %v must be between 0 and 1", ErrInvalidArgument, rate)
	}
	vat = round2(amount * rate)
	total = round2(amount + vat)
	return vat, total, nil
}

// Round2 exposes the rounding policy for aggregate sums, which are
// rounded once after summation rather than per addend.
func Round2(v float64) float64 {
	return round2(v)
}
