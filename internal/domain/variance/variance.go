// Package variance compares current-year and prior-year trial balances.
//
// Each account gets an absolute variance, a percentage variance and a flag:
//
//	variance   = current - prior
//	percentage = variance / |prior| * 100      (prior != 0)
//	percentage = sign(current) * 100           (prior == 0)
//
// The flag is derived from |percentage| against two thresholds. The significant
// threshold wins when both are met, and equality counts as meeting a threshold.
package variance

import "math"

// Flag is the severity assigned to an account variance.
type Flag string

const (
	FlagNone        Flag = "none"
	FlagModerate    Flag = "moderate"
	FlagSignificant Flag = "significant"
)

// ZeroPriorPercentage is the magnitude reported when the prior balance is zero
// and the current balance is not.
const ZeroPriorPercentage = 100.0

// Default thresholds, in percent.
const (
	DefaultModeratePct    = 10.0
	DefaultSignificantPct = 25.0
)

// Thresholds holds the two percentage cut-offs used to flag an account.
// Moderate is expected to be <= Significant but this is not enforced.
type Thresholds struct {
	Moderate    float64 `json:"moderate" yaml:"moderate"`
	Significant float64 `json:"significant" yaml:"significant"`
}

// DefaultThresholds returns the standard 10% / 25% thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Moderate:    DefaultModeratePct,
		Significant: DefaultSignificantPct,
	}
}

// Result is the outcome of classifying a single pair of balances.
type Result struct {
	Variance           float64
	VariancePercentage float64
	Flag               Flag
}

// Classify computes the variance between current and prior and flags it.
//
// It never fails: a zero prior balance is handled explicitly and NaN inputs
// propagate into Variance and VariancePercentage with FlagNone.
func Classify(current, prior, moderatePct, significantPct float64) Result {
	diff := current - prior
	pct := Percentage(current, prior)

	return Result{
		Variance:           diff,
		VariancePercentage: pct,
		Flag:               FlagFor(pct, moderatePct, significantPct),
	}
}

// Percentage returns the variance of current against prior as a percentage of |prior|.
func Percentage(current, prior float64) float64 {
	if prior == 0 {
		switch {
		case current > 0:
			return ZeroPriorPercentage
		case current < 0:
			return -ZeroPriorPercentage
		default:
			return 0
		}
	}
	return (current - prior) / math.Abs(prior) * 100
}

// FlagFor maps a variance percentage onto a flag.
func FlagFor(pct, moderatePct, significantPct float64) Flag {
	magnitude := math.Abs(pct)
	switch {
	case magnitude >= significantPct:
		return FlagSignificant
	case magnitude >= moderatePct:
		return FlagModerate
	default:
		return FlagNone
	}
}

// ParseFlag converts a string to a Flag. Unknown values return false.
func ParseFlag(s string) (Flag, bool) {
	switch Flag(s) {
	case FlagNone, FlagModerate, FlagSignificant:
		return Flag(s), true
	}
	return "", false
}
