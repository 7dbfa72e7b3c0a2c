package sampling

import (
	"cmp"
	"math"
	"slices"
)

// sampleSize is ceil(n * pct / 100), at least MinSampleSize and at most n.
func sampleSize(n int, pct float64) int {
	if n == 0 {
		return 0
	}
	size := portion(n, pct)
	if size < MinSampleSize {
		size = MinSampleSize
	}
	return min(size, n)
}

// portion is ceil(n * pct / 100) without a minimum.
func portion(n int, pct float64) int {
	return min(int(math.Ceil(float64(n)*pct/100)), n)
}

// systematic takes every interval-th transaction from a random start.
func systematic(population []Transaction, pct float64, rng Source) []Transaction {
	n := len(population)
	count := sampleSize(n, pct)
	interval := max(n/count, 1)

	out := make([]Transaction, 0, count)
	for i := rng.IntN(interval); i < n && len(out) < count; i += interval {
		out = append(out, population[i])
	}
	return out
}

// stratified keeps the whole high stratum and random shares of the rest.
func stratified(population []Transaction, high, medium float64, rng Source) ([]Transaction, Strata) {
	var hi, mid, lo []Transaction
	for _, t := range population {
		switch {
		case t.Amount >= high:
			hi = append(hi, t)
		case t.Amount >= medium:
			mid = append(mid, t)
		default:
			lo = append(lo, t)
		}
	}

	hiPick := randomSubset(hi, portion(len(hi), HighStratumPct), rng)
	midPick := randomSubset(mid, portion(len(mid), MediumStratumPct), rng)
	loPick := randomSubset(lo, portion(len(lo), LowStratumPct), rng)

	strata := Strata{
		High:   StratumCount{Population: len(hi), Selected: len(hiPick)},
		Medium: StratumCount{Population: len(mid), Selected: len(midPick)},
		Low:    StratumCount{Population: len(lo), Selected: len(loPick)},
	}

	out := make([]Transaction, 0, len(hiPick)+len(midPick)+len(loPick))
	out = append(out, hiPick...)
	out = append(out, midPick...)
	out = append(out, loPick...)
	return out, strata
}

// randomSample shuffles a copy and takes the first sampleSize transactions.
func randomSample(population []Transaction, pct float64, rng Source) []Transaction {
	return randomSubset(population, sampleSize(len(population), pct), rng)
}

// riskBased always keeps the largest RiskTopPct of transactions by amount and
// samples the remainder at max(RiskRemainderMinP, pct-RiskRemainderCut).
func riskBased(population []Transaction, pct float64, rng Source) []Transaction {
	sorted := slices.Clone(population)
	slices.SortStableFunc(sorted, func(a, b Transaction) int {
		return cmp.Compare(b.Amount, a.Amount)
	})

	top := portion(len(sorted), RiskTopPct)
	rest := sorted[top:]
	restPct := math.Max(RiskRemainderMinP, pct-RiskRemainderCut)

	out := slices.Clone(sorted[:top])
	return append(out, randomSubset(rest, portion(len(rest), restPct), rng)...)
}

// randomSubset returns k transactions chosen by a Fisher-Yates shuffle of a copy.
func randomSubset(items []Transaction, k int, rng Source) []Transaction {
	if k <= 0 || len(items) == 0 {
		return nil
	}
	shuffled := slices.Clone(items)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:min(k, len(shuffled))]
}
