// Package sampling selects audit samples from a transaction population.
//
// A selection runs in three steps:
//
//  1. the chosen strategy picks transactions from a copy of the population
//  2. the related-party overlay optionally adds every matching transaction
//  3. the result is deduplicated by ID and sorted by date
//
// The population slice is never modified. All randomness comes from the
// Source passed to NewSelector, so a seeded source gives repeatable samples.
package sampling

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

// Result is a finished selection.
type Result struct {
	Strategy       Strategy      `json:"strategy"`
	PopulationSize int           `json:"population_size"`
	Sample         []Transaction `json:"sample"`

	// StrategySelected is how many distinct transactions the strategy picked
	// before the related-party overlay.
	StrategySelected int `json:"strategy_selected"`

	// RelatedPartyAdded is how many transactions the overlay added.
	RelatedPartyAdded int `json:"related_party_added"`

	// Strata is set for stratified selections only.
	Strata *Strata `json:"strata,omitempty"`
}

// Strata reports population and selected counts per stratum.
type Strata struct {
	High   StratumCount `json:"high"`
	Medium StratumCount `json:"medium"`
	Low    StratumCount `json:"low"`
}

// StratumCount is the size of a stratum and how many of it were selected.
type StratumCount struct {
	Population int `json:"population"`
	Selected   int `json:"selected"`
}

// Selector runs selections against an injected Source.
type Selector struct {
	rng Source
}

// NewSelector creates a Selector. A nil rng is replaced by a fixed-seed source.
func NewSelector(rng Source) *Selector {
	if rng == nil {
		rng = NewSource(0)
	}
	return &Selector{rng: rng}
}

// Select draws a sample from population according to p.
// An empty population yields an empty sample. The only error is ErrUnknownStrategy.
func (s *Selector) Select(population []Transaction, p Params) (*Result, error) {
	strategy, err := ParseStrategy(string(p.Strategy))
	if err != nil {
		return nil, err
	}
	p.Strategy = strategy

	result := &Result{
		Strategy:       p.Strategy,
		PopulationSize: len(population),
		Sample:         []Transaction{},
	}
	if len(population) == 0 {
		return result, nil
	}

	pct := clampPct(p.Percentage)

	var picked []Transaction
	switch p.Strategy {
	case StrategySystematic:
		picked = systematic(population, pct, s.rng)
	case StrategyStratified:
		var strata Strata
		picked, strata = stratified(population, p.HighThreshold, p.MediumThreshold, s.rng)
		result.Strata = &strata
	case StrategyRandom:
		picked = randomSample(population, pct, s.rng)
	case StrategyRiskBased:
		picked = riskBased(population, pct, s.rng)
	}
	result.StrategySelected = countDistinct(picked)

	if p.IncludeRelatedParties {
		var added int
		picked, added = overlayRelatedParties(population, picked, p.RelatedParties)
		result.RelatedPartyAdded = added
	}

	result.Sample = finalize(population, picked)
	return result, nil
}

// overlayRelatedParties appends every population member matching one of the
// party fragments whose ID is not already in picked.
func overlayRelatedParties(population, picked []Transaction, parties []string) ([]Transaction, int) {
	fragments := make([]string, 0, len(parties))
	for _, p := range parties {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			fragments = append(fragments, p)
		}
	}
	if len(fragments) == 0 {
		return picked, 0
	}

	present := make(map[string]bool, len(picked))
	for _, t := range picked {
		present[t.ID] = true
	}

	out := slices.Clone(picked)
	added := 0
	for _, t := range population {
		if present[t.ID] || !t.MatchesParty(fragments) {
			continue
		}
		present[t.ID] = true
		out = append(out, t)
		added++
	}
	return out, added
}

// finalize collapses picked by ID (last write wins) and sorts by date.
// Transactions on the same date keep their population order.
func finalize(population, picked []Transaction) []Transaction {
	position := make(map[string]int, len(population))
	for i, t := range population {
		if _, ok := position[t.ID]; !ok {
			position[t.ID] = i
		}
	}

	byID := make(map[string]Transaction, len(picked))
	ids := make([]string, 0, len(picked))
	for _, t := range picked {
		if _, ok := byID[t.ID]; !ok {
			ids = append(ids, t.ID)
		}
		byID[t.ID] = t
	}

	out := make([]Transaction, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}

	slices.SortStableFunc(out, func(a, b Transaction) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(position[a.ID], position[b.ID])
	})
	return out
}

func countDistinct(ts []Transaction) int {
	seen := make(map[string]struct{}, len(ts))
	for _, t := range ts {
		seen[t.ID] = struct{}{}
	}
	return len(seen)
}

func clampPct(pct float64) float64 {
	if math.IsNaN(pct) || pct < 0 {
		return 0
	}
	return math.Min(pct, 100)
}
