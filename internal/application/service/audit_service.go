package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eshaffer321/auditflow/internal/domain/sampling"
	"github.com/eshaffer321/auditflow/internal/domain/variance"
	"github.com/eshaffer321/auditflow/internal/infrastructure/config"
	"github.com/eshaffer321/auditflow/internal/infrastructure/storage"
)

// Validation errors returned by the service. Handlers map these to 400s.
var (
	ErrInvalidThresholds = errors.New("thresholds must be finite and non-negative")
	ErrInvalidPercentage = errors.New("percentage must be finite")
	ErrUnknownClient     = errors.New("unknown client")
	ErrUnknownAnalysis   = errors.New("unknown variance analysis")
)

// VarianceRequest holds the inputs of a variance analysis.
type VarianceRequest struct {
	ClientID string
	Name     string
	Accounts []variance.AccountBalance

	// Thresholds overrides the configured defaults when set
	Thresholds *variance.Thresholds

	// Save persists the analysis
	Save bool
}

// SampleRequest holds the inputs of a sample selection.
type SampleRequest struct {
	ClientID   string
	Name       string
	Module     sampling.ModuleKind
	Population []sampling.Transaction
	Params     sampling.Params

	// Seed fixes the random source. Nil uses the configured seed, or the
	// clock when none is configured.
	Seed *uint64

	Save bool
}

// VarianceBatch is one independent trial balance in AnalyzeBatches.
type VarianceBatch struct {
	Name     string
	Accounts []variance.AccountBalance
}

// BatchResult is the classified form of a VarianceBatch.
type BatchResult struct {
	Name    string
	Records []variance.AccountVariance
	Summary variance.Summary
}

// AuditService runs variance analyses and sample selections and records them.
type AuditService struct {
	cfg     *config.Config
	storage storage.Repository
	logger  *slog.Logger

	// Workers bounds AnalyzeBatches concurrency
	Workers int

	now func() time.Time
}

// NewAuditService creates a new audit service. A nil cfg uses environment
// defaults and a nil logger discards output.
func NewAuditService(cfg *config.Config, store storage.Repository, logger *slog.Logger) *AuditService {
	if cfg == nil {
		cfg = config.LoadFromEnv()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AuditService{
		cfg:     cfg,
		storage: store,
		logger:  logger,
		Workers: runtime.GOMAXPROCS(0),
		now:     time.Now,
	}
}

// DefaultThresholds returns the configured variance thresholds.
func (s *AuditService) DefaultThresholds() variance.Thresholds {
	return s.cfg.Variance.Thresholds()
}

// DefaultParams returns the configured sampling parameters for strategy.
func (s *AuditService) DefaultParams(strategy sampling.Strategy) sampling.Params {
	return s.cfg.Sampling.Params(strategy)
}

// RunVariance classifies every account and optionally saves the analysis.
// The returned analysis has an empty ID when it was not saved.
func (s *AuditService) RunVariance(ctx context.Context, req VarianceRequest) (*storage.VarianceAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	thresholds := s.DefaultThresholds()
	if req.Thresholds != nil {
		thresholds = *req.Thresholds
	}
	if err := validateThresholds(thresholds); err != nil {
		return nil, err
	}
	if err := s.checkClient(req.ClientID, req.Save); err != nil {
		return nil, err
	}

	records := variance.Analyze(req.Accounts, thresholds)
	analysis := &storage.VarianceAnalysis{
		ClientID:   req.ClientID,
		Name:       defaultName(req.Name, "Variance analysis", s.now()),
		Thresholds: thresholds,
		Records:    records,
		Summary:    variance.Summarize(records),
		CreatedAt:  s.now().UTC(),
	}

	s.logger.Info("variance analysis complete",
		"accounts", analysis.Summary.AccountCount,
		"significant", analysis.Summary.SignificantCount,
		"moderate", analysis.Summary.ModerateCount,
		"moderate_pct", thresholds.Moderate,
		"significant_pct", thresholds.Significant,
	)
	if analysis.Summary.NonFinite > 0 {
		s.logger.Warn("accounts with non-finite balances excluded from totals",
			"count", analysis.Summary.NonFinite)
	}

	if !req.Save {
		return analysis, nil
	}
	if err := s.storage.SaveVarianceAnalysis(analysis); err != nil {
		return nil, fmt.Errorf("failed to save variance analysis: %w", err)
	}
	s.logger.Info("variance analysis saved", "analysis_id", analysis.ID, "client_id", req.ClientID)
	return analysis, nil
}

// ReclassifyVariance re-flags a saved analysis under new thresholds and
// saves it in place. Balances and variances are unchanged.
func (s *AuditService) ReclassifyVariance(ctx context.Context, id string, thresholds variance.Thresholds) (*storage.VarianceAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateThresholds(thresholds); err != nil {
		return nil, err
	}

	analysis, err := s.storage.GetVarianceAnalysis(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load variance analysis: %w", err)
	}
	if analysis == nil {
		return nil, ErrUnknownAnalysis
	}

	analysis.Records = variance.Reclassify(analysis.Records, thresholds)
	analysis.Summary = variance.Summarize(analysis.Records)
	analysis.Thresholds = thresholds
	if err := s.storage.SaveVarianceAnalysis(analysis); err != nil {
		return nil, fmt.Errorf("failed to save variance analysis: %w", err)
	}

	s.logger.Info("variance analysis reclassified",
		"analysis_id", analysis.ID,
		"moderate_pct", thresholds.Moderate,
		"significant_pct", thresholds.Significant,
		"significant", analysis.Summary.SignificantCount,
	)
	return analysis, nil
}

// RunSample selects a sample from the population and optionally saves it.
// The seed used is returned on the run so a selection can be repeated.
func (s *AuditService) RunSample(ctx context.Context, req SampleRequest) (*storage.SampleRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if math.IsNaN(req.Params.Percentage) {
		return nil, ErrInvalidPercentage
	}
	if _, err := sampling.ParseStrategy(string(req.Params.Strategy)); err != nil {
		return nil, err
	}
	if err := s.checkClient(req.ClientID, req.Save); err != nil {
		return nil, err
	}

	seed := s.pickSeed(req.Seed)
	result, err := sampling.NewSelector(sampling.NewSource(seed)).Select(req.Population, req.Params)
	if err != nil {
		return nil, err
	}

	run := &storage.SampleRun{
		ClientID:  req.ClientID,
		Name:      defaultName(req.Name, "Sample", s.now()),
		Module:    req.Module,
		Params:    req.Params,
		Seed:      seed,
		Result:    *result,
		CreatedAt: s.now().UTC(),
	}

	s.logger.Info("sample selected",
		"strategy", result.Strategy,
		"module", req.Module,
		"population", result.PopulationSize,
		"sample", len(result.Sample),
		"related_party_added", result.RelatedPartyAdded,
		"seed", seed,
	)

	if !req.Save {
		return run, nil
	}
	if err := s.storage.SaveSampleRun(run); err != nil {
		return nil, fmt.Errorf("failed to save sample run: %w", err)
	}
	s.logger.Info("sample run saved", "run_id", run.ID, "client_id", req.ClientID)
	return run, nil
}

// AnalyzeBatches classifies independent trial balances concurrently with
// the same thresholds. Results are returned in input order. Cancelling ctx
// stops batches that have not started.
func (s *AuditService) AnalyzeBatches(ctx context.Context, batches []VarianceBatch, thresholds variance.Thresholds) ([]BatchResult, error) {
	if err := validateThresholds(thresholds); err != nil {
		return nil, err
	}

	results := make([]BatchResult, len(batches))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.Workers, 1))

	for i, batch := range batches {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			records := variance.Analyze(batch.Accounts, thresholds)
			results[i] = BatchResult{
				Name:    batch.Name,
				Records: records,
				Summary: variance.Summarize(records),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Debug("batch analysis complete", "batches", len(batches))
	return results, nil
}

// checkClient verifies a referenced client exists before saving against it
func (s *AuditService) checkClient(clientID string, save bool) error {
	if clientID == "" || !save {
		return nil
	}
	client, err := s.storage.GetClient(clientID)
	if err != nil {
		return fmt.Errorf("failed to look up client: %w", err)
	}
	if client == nil {
		return fmt.Errorf("%w: %s", ErrUnknownClient, clientID)
	}
	return nil
}

func (s *AuditService) pickSeed(seed *uint64) uint64 {
	switch {
	case seed != nil:
		return *seed
	case s.cfg.Sampling.Seed != 0:
		return s.cfg.Sampling.Seed
	default:
		return uint64(s.now().UnixNano())
	}
}

func validateThresholds(t variance.Thresholds) error {
	for _, v := range []float64{t.Moderate, t.Significant} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return ErrInvalidThresholds
		}
	}
	return nil
}

func defaultName(name, prefix string, now time.Time) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return prefix + " " + now.Format("2006-01-02 15:04")
}
