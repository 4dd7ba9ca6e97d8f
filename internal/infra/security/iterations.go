package security

import (
	"math"
	"time"
)

// IterationPolicy derives the PBKDF2 work factor from an explicit as-of time.
// The iteration count doubles every DoublingPeriodYears from the epoch year,
// so hashes written later in the deployment's life carry more work.
type IterationPolicy struct {
	BaseIterations      int
	DoublingPeriodYears int
	EpochYear           int
}

// DefaultIterationPolicy matches 128k iterations in 2014, doubling every two years.
func DefaultIterationPolicy() IterationPolicy {
	return IterationPolicy{
		BaseIterations:      128000,
		DoublingPeriodYears: 2,
		EpochYear:           2014,
	}
}

// IterationsFor returns the work factor for hashes written at the given time.
// The result is monotonically non-decreasing over time and clamps at MaxInt32.
func (p IterationPolicy) IterationsFor(asOf time.Time) int {
	base := p.BaseIterations
	if base <= 0 {
		base = DefaultIterationPolicy().BaseIterations
	}

	period := p.DoublingPeriodYears
	if period <= 0 {
		period = DefaultIterationPolicy().DoublingPeriodYears
	}

	years := asOf.Year() - p.EpochYear
	if years <= 0 {
		return base
	}

	iterations := base
	for i := 0; i < years/period; i++ {
		if iterations > math.MaxInt32/2 {
			return math.MaxInt32
		}
		iterations *= 2
	}

	return iterations
}
