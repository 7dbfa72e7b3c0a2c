package variance

import (
	"math"

	"github.com/shopspring/decimal"
)

// AccountBalance is one trial-balance row: the same account in two periods.
type AccountBalance struct {
	AccountCode        string  `json:"account_code"`
	AccountDescription string  `json:"account_description"`
	CurrentYearBalance float64 `json:"current_year_balance"`
	PriorYearBalance   float64 `json:"prior_year_balance"`
}

// AccountVariance is an AccountBalance with its computed variance and flag.
// Values are recomputed from the balances, never edited in place.
type AccountVariance struct {
	AccountCode        string  `json:"account_code"`
	AccountDescription string  `json:"account_description"`
	CurrentYearBalance float64 `json:"current_year_balance"`
	PriorYearBalance   float64 `json:"prior_year_balance"`
	Variance           float64 `json:"variance"`
	VariancePercentage float64 `json:"variance_percentage"`
	Flag               Flag    `json:"flag"`
}

// ClassifyAccount classifies a single account against t.
func ClassifyAccount(acct AccountBalance, t Thresholds) AccountVariance {
	r := Classify(acct.CurrentYearBalance, acct.PriorYearBalance, t.Moderate, t.Significant)
	return AccountVariance{
		AccountCode:        acct.AccountCode,
		AccountDescription: acct.AccountDescription,
		CurrentYearBalance: acct.CurrentYearBalance,
		PriorYearBalance:   acct.PriorYearBalance,
		Variance:           r.Variance,
		VariancePercentage: r.VariancePercentage,
		Flag:               r.Flag,
	}
}

// Analyze classifies every account and returns a new slice in input order.
func Analyze(accounts []AccountBalance, t Thresholds) []AccountVariance {
	out := make([]AccountVariance, len(accounts))
	for i, acct := range accounts {
		out[i] = ClassifyAccount(acct, t)
	}
	return out
}

// Reclassify recomputes flags for already analyzed records under new thresholds.
func Reclassify(records []AccountVariance, t Thresholds) []AccountVariance {
	out := make([]AccountVariance, len(records))
	for i, rec := range records {
		out[i] = ClassifyAccount(AccountBalance{
			AccountCode:        rec.AccountCode,
			AccountDescription: rec.AccountDescription,
			CurrentYearBalance: rec.CurrentYearBalance,
			PriorYearBalance:   rec.PriorYearBalance,
		}, t)
	}
	return out
}

// FilterByFlag returns the records whose flag is one of flags.
// With no flags given it returns every record that is not FlagNone.
func FilterByFlag(records []AccountVariance, flags ...Flag) []AccountVariance {
	want := make(map[Flag]bool, len(flags))
	for _, f := range flags {
		want[f] = true
	}

	out := make([]AccountVariance, 0, len(records))
	for _, rec := range records {
		if len(want) == 0 {
			if rec.Flag != FlagNone {
				out = append(out, rec)
			}
			continue
		}
		if want[rec.Flag] {
			out = append(out, rec)
		}
	}
	return out
}

// Summary aggregates an analysis for display.
type Summary struct {
	AccountCount     int     `json:"account_count"`
	SignificantCount int     `json:"significant_count"`
	ModerateCount    int     `json:"moderate_count"`
	NoneCount        int     `json:"none_count"`
	TotalCurrent     float64 `json:"total_current"`
	TotalPrior       float64 `json:"total_prior"`
	TotalVariance    float64 `json:"total_variance"`

	// NonFinite counts records excluded from the totals because a balance
	// was NaN or infinite.
	NonFinite int `json:"non_finite,omitempty"`
}

// Summarize counts flags and totals balances. Totals are summed in decimal
// and rounded to cents.
func Summarize(records []AccountVariance) Summary {
	s := Summary{AccountCount: len(records)}
	current, prior := decimal.Zero, decimal.Zero

	for _, rec := range records {
		switch rec.Flag {
		case FlagSignificant:
			s.SignificantCount++
		case FlagModerate:
			s.ModerateCount++
		default:
			s.NoneCount++
		}

		if !isFinite(rec.CurrentYearBalance) || !isFinite(rec.PriorYearBalance) {
			s.NonFinite++
			continue
		}
		current = current.Add(decimal.NewFromFloat(rec.CurrentYearBalance))
		prior = prior.Add(decimal.NewFromFloat(rec.PriorYearBalance))
	}

	s.TotalCurrent = current.Round(2).InexactFloat64()
	s.TotalPrior = prior.Round(2).InexactFloat64()
	s.TotalVariance = current.Sub(prior).Round(2).InexactFloat64()
	return s
}

// FlaggedCount is the number of moderate and significant records.
func (s Summary) FlaggedCount() int {
	return s.SignificantCount + s.ModerateCount
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
