package sampling

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
)

// Strategy names a sampling method.
type Strategy string

const (
	StrategySystematic Strategy = "systematic"
	StrategyStratified Strategy = "stratified"
	StrategyRandom     Strategy = "random"
	StrategyRiskBased  Strategy = "risk-based"
)

// ErrUnknownStrategy is returned for a Strategy outside the supported set.
var ErrUnknownStrategy = errors.New("unknown sampling strategy")

// Strategies lists the supported strategies in display order.
func Strategies() []Strategy {
	return []Strategy{StrategySystematic, StrategyStratified, StrategyRandom, StrategyRiskBased}
}

// ParseStrategy validates a strategy name. "risk_based" and "riskbased" are
// accepted as aliases of "risk-based".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "systematic":
		return StrategySystematic, nil
	case "stratified":
		return StrategyStratified, nil
	case "random":
		return StrategyRandom, nil
	case "risk-based", "risk_based", "riskbased":
		return StrategyRiskBased, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// Stratum and risk-based constants, in percent.
const (
	HighStratumPct   = 100.0
	MediumStratumPct = 50.0
	LowStratumPct    = 10.0

	RiskTopPct        = 20.0
	RiskRemainderCut  = 10.0
	RiskRemainderMinP = 5.0
)

// Defaults used when the caller does not override them.
const (
	DefaultPercentage      = 10.0
	DefaultHighThreshold   = 50000.0
	DefaultMediumThreshold = 10000.0
)

// MinSampleSize is the smallest sample drawn from a non-empty population by
// the percentage-based strategies.
const MinSampleSize = 1

// Params configures a selection.
type Params struct {
	Strategy Strategy `json:"strategy"`

	// Percentage is the sampling rate for systematic, random and risk-based
	// selection. Values outside [0, 100] are clamped.
	Percentage float64 `json:"percentage"`

	HighThreshold   float64 `json:"high_threshold"`
	MediumThreshold float64 `json:"medium_threshold"`

	RelatedParties        []string `json:"related_parties,omitempty"`
	IncludeRelatedParties bool     `json:"include_related_parties"`
}

// DefaultParams returns stratified-ready defaults with the given strategy.
func DefaultParams(strategy Strategy) Params {
	return Params{
		Strategy:        strategy,
		Percentage:      DefaultPercentage,
		HighThreshold:   DefaultHighThreshold,
		MediumThreshold: DefaultMediumThreshold,
	}
}

// ParseRelatedParties splits a comma-separated list of party name fragments,
// trimming blanks and dropping empty entries.
func ParseRelatedParties(list string) []string {
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Source is the randomness used by the sampling strategies.
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	// IntN returns a value in [0, n). n is always > 0.
	IntN(n int) int
}

// NewSource returns a deterministic Source for seed.
func NewSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
