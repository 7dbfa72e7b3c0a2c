package cli

import (
	"errors"
	"fmt"

	"github.com/eshaffer321/auditflow/internal/domain/sampling"
	"github.com/eshaffer321/auditflow/internal/domain/variance"
)

// VarianceOptions are the flags of the variance command. Nil thresholds
// fall back to the configured defaults.
type VarianceOptions struct {
	Files          []string
	ModeratePct    *float64
	SignificantPct *float64
	Out            string
	ClientID       string
	Name           string
	Save           bool
	FlaggedOnly    bool
}

// Validate checks flag combinations.
func (o VarianceOptions) Validate() error {
	if len(o.Files) == 0 {
		return errors.New("at least one --file is required")
	}
	if len(o.Files) > 1 && (o.Save || o.Out != "") {
		return errors.New("--save and --out work with a single --file")
	}
	return nil
}

// Thresholds merges the overrides onto defaults.
func (o VarianceOptions) Thresholds(defaults variance.Thresholds) variance.Thresholds {
	t := defaults
	if o.ModeratePct != nil {
		t.Moderate = *o.ModeratePct
	}
	if o.SignificantPct != nil {
		t.Significant = *o.SignificantPct
	}
	return t
}

// SampleOptions are the flags of the sample command.
type SampleOptions struct {
	File            string
	Module          string
	Strategy        string
	Percentage      *float64
	HighThreshold   *float64
	MediumThreshold *float64
	Seed            *uint64
	Related         string
	IncludeRelated  bool
	Out             string
	ClientID        string
	Name            string
	Save            bool
}

// Validate checks required flags.
func (o SampleOptions) Validate() error {
	if o.File == "" {
		return errors.New("--file is required")
	}
	if o.IncludeRelated && len(sampling.ParseRelatedParties(o.Related)) == 0 {
		return errors.New("--include-related needs --related")
	}
	return nil
}

// ModuleKind parses --module, defaulting to purchase.
func (o SampleOptions) ModuleKind() (sampling.ModuleKind, error) {
	if o.Module == "" {
		return sampling.ModulePurchase, nil
	}
	return sampling.ParseModuleKind(o.Module)
}

// Params resolves --strategy and merges the overrides onto the defaults for it.
func (o SampleOptions) Params(defaults func(sampling.Strategy) sampling.Params) (sampling.Params, error) {
	strategy, err := sampling.ParseStrategy(o.Strategy)
	if err != nil {
		return sampling.Params{}, fmt.Errorf("--strategy: %w", err)
	}

	p := defaults(strategy)
	if o.Percentage != nil {
		p.Percentage = *o.Percentage
	}
	if o.HighThreshold != nil {
		p.HighThreshold = *o.HighThreshold
	}
	if o.MediumThreshold != nil {
		p.MediumThreshold = *o.MediumThreshold
	}
	p.RelatedParties = sampling.ParseRelatedParties(o.Related)
	p.IncludeRelatedParties = o.IncludeRelated
	return p, nil
}
