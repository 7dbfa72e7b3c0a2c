package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/eshaffer321/auditflow/internal/adapters/export"
	"github.com/eshaffer321/auditflow/internal/application/service"
	"github.com/eshaffer321/auditflow/internal/domain/sampling"
	"github.com/eshaffer321/auditflow/internal/domain/variance"
	"github.com/eshaffer321/auditflow/internal/infrastructure/config"
	"github.com/eshaffer321/auditflow/internal/infrastructure/storage"
)

const trialBalanceCSV = `Account Code,Account Description,Current Year,Prior Year
4000,Revenue,120000,100000
5000,Cost of sales,80000,50000
1000,Cash,50500,50000
`

const ledgerCSV = `Date,Reference,Supplier,Description,Amount
2024-01-05,PO-1,Acme Supplies,Paper,1200
2024-01-09,PO-2,Globex,Toner,75000
2024-02-11,PO-3,Acme Supplies,Chairs,15000
2024-02-20,PO-4,Initech,Licences,900
2024-03-02,PO-5,Umbrella,Cleaning,300
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newRunner(t *testing.T) (*Runner, *bytes.Buffer, *storage.MockRepository) {
	t.Helper()
	repo := storage.NewMockRepository()
	var out bytes.Buffer
	return &Runner{Service: service.NewAuditService(&config.Config{}, repo, nil), Out: &out}, &out, repo
}

func ptr[T any](v T) *T { return &v }

func TestVarianceOptions_Validate(t *testing.T) {
	assert.Error(t, VarianceOptions{}.Validate())
	assert.NoError(t, VarianceOptions{Files: []string{"a.csv"}, Save: true}.Validate())
	assert.Error(t, VarianceOptions{Files: []string{"a.csv", "b.csv"}, Save: true}.Validate())
	assert.Error(t, VarianceOptions{Files: []string{"a.csv", "b.csv"}, Out: "x.xlsx"}.Validate())
}

func TestVarianceOptions_Thresholds(t *testing.T) {
	defaults := variance.DefaultThresholds()
	assert.Equal(t, defaults, VarianceOptions{}.Thresholds(defaults))
	assert.Equal(t, variance.Thresholds{Moderate: 5, Significant: 25},
		VarianceOptions{ModeratePct: ptr(5.0)}.Thresholds(defaults))
}

func TestSampleOptions(t *testing.T) {
	t.Run("requires a file", func(t *testing.T) {
		assert.Error(t, SampleOptions{}.Validate())
	})

	t.Run("include related needs parties", func(t *testing.T) {
		assert.Error(t, SampleOptions{File: "gl.csv", IncludeRelated: true, Related: " , "}.Validate())
	})

	t.Run("module defaults to purchase", func(t *testing.T) {
		kind, err := SampleOptions{}.ModuleKind()
		require.NoError(t, err)
		assert.Equal(t, sampling.ModulePurchase, kind)

		_, err = SampleOptions{Module: "payroll"}.ModuleKind()
		assert.Error(t, err)
	})

	t.Run("params merge overrides", func(t *testing.T) {
		opts := SampleOptions{
			Strategy:       "risk_based",
			Percentage:     ptr(30.0),
			Related:        "Acme, Globex",
			IncludeRelated: true,
		}
		p, err := opts.Params(sampling.DefaultParams)
		require.NoError(t, err)
		assert.Equal(t, sampling.StrategyRiskBased, p.Strategy)
		assert.Equal(t, 30.0, p.Percentage)
		assert.Equal(t, sampling.DefaultHighThreshold, p.HighThreshold)
		assert.Equal(t, []string{"Acme", "Globex"}, p.RelatedParties)
		assert.True(t, p.IncludeRelatedParties)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		_, err := SampleOptions{Strategy: "haphazard"}.Params(sampling.DefaultParams)
		assert.ErrorIs(t, err, sampling.ErrUnknownStrategy)
	})
}

func TestRunner_Variance(t *testing.T) {
	t.Run("prints report and writes workbook", func(t *testing.T) {
		runner, out, repo := newRunner(t)
		tb := writeFile(t, "tb.csv", trialBalanceCSV)
		xlsx := filepath.Join(t.TempDir(), "report.xlsx")

		err := runner.Variance(context.Background(), VarianceOptions{Files: []string{tb}, Out: xlsx, FlaggedOnly: true})
		require.NoError(t, err)

		report := out.String()
		assert.Contains(t, report, "auditflow: variance (PREVIEW mode)")
		assert.Contains(t, report, "tb.csv")
		assert.Contains(t, report, "Revenue")
		assert.NotContains(t, report, "Cash", "flagged-only hides unflagged accounts")
		assert.Contains(t, report, "Significant=1 Moderate=1 None=1")
		assert.Contains(t, report, "Workbook written to "+xlsx)
		assert.False(t, repo.SaveAnalysisCalled)

		f, err := excelize.OpenFile(xlsx)
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		rows, err := f.GetRows(export.SheetVariance)
		require.NoError(t, err)
		assert.Len(t, rows, 4)
	})

	t.Run("save stores the analysis", func(t *testing.T) {
		runner, out, repo := newRunner(t)
		tb := writeFile(t, "tb.csv", trialBalanceCSV)

		err := runner.Variance(context.Background(), VarianceOptions{Files: []string{tb}, Name: "FY24", Save: true})
		require.NoError(t, err)

		require.NotNil(t, repo.LastSavedAnalysis)
		assert.Equal(t, "FY24", repo.LastSavedAnalysis.Name)
		assert.Contains(t, out.String(), "Saved as "+repo.LastSavedAnalysis.ID)
	})

	t.Run("several files run as a batch", func(t *testing.T) {
		runner, out, _ := newRunner(t)
		a := writeFile(t, "entity-a.csv", trialBalanceCSV)
		b := writeFile(t, "entity-b.csv", "Account,Current,Prior\nRent,100,100\n")

		err := runner.Variance(context.Background(), VarianceOptions{Files: []string{a, b}})
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 4)
		assert.Contains(t, lines[2], "entity-a.csv")
		assert.Contains(t, lines[3], "entity-b.csv")
	})

	t.Run("missing file", func(t *testing.T) {
		runner, _, _ := newRunner(t)
		err := runner.Variance(context.Background(), VarianceOptions{Files: []string{"/does/not/exist.csv"}})
		assert.Error(t, err)
	})
}

func TestRunner_Sample(t *testing.T) {
	t.Run("stratified sample with related parties", func(t *testing.T) {
		runner, out, _ := newRunner(t)
		gl := writeFile(t, "gl.csv", ledgerCSV)
		xlsx := filepath.Join(t.TempDir(), "sample.xlsx")

		err := runner.Sample(context.Background(), SampleOptions{
			File:           gl,
			Strategy:       "stratified",
			Seed:           ptr(uint64(11)),
			Related:        "umbrella",
			IncludeRelated: true,
			Out:            xlsx,
		})
		require.NoError(t, err)

		report := out.String()
		assert.Contains(t, report, "Strategy: stratified | Seed: 11")
		assert.Contains(t, report, "PO-2")
		assert.Contains(t, report, "PO-5")
		assert.Contains(t, report, "Strata: High 1/1")
		assert.FileExists(t, xlsx)
	})

	t.Run("same seed prints the same sample", func(t *testing.T) {
		gl := writeFile(t, "gl.csv", ledgerCSV)
		opts := SampleOptions{File: gl, Strategy: "random", Percentage: ptr(40.0), Seed: ptr(uint64(3))}

		first, firstOut, _ := newRunner(t)
		second, secondOut, _ := newRunner(t)
		require.NoError(t, first.Sample(context.Background(), opts))
		require.NoError(t, second.Sample(context.Background(), opts))

		assert.Equal(t, firstOut.String(), secondOut.String())
	})

	t.Run("save stores the run", func(t *testing.T) {
		runner, _, repo := newRunner(t)
		gl := writeFile(t, "gl.csv", ledgerCSV)

		err := runner.Sample(context.Background(), SampleOptions{File: gl, Strategy: "systematic", Save: true})
		require.NoError(t, err)
		require.NotNil(t, repo.LastSavedSampleRun)
		assert.Equal(t, "gl.csv", repo.LastSavedSampleRun.Name)
	})

	t.Run("bad module", func(t *testing.T) {
		runner, _, _ := newRunner(t)
		err := runner.Sample(context.Background(), SampleOptions{File: "gl.csv", Module: "payroll", Strategy: "random"})
		assert.ErrorContains(t, err, "--module")
	})
}

func TestRunMigrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "auditflow.db")
	var out bytes.Buffer

	require.NoError(t, RunMigrate(context.Background(), dbPath, &out))

	report := out.String()
	assert.Contains(t, report, "schema version 4")
	assert.Contains(t, report, "00001")
	assert.Contains(t, report, "applied")
	assert.NotContains(t, report, "pending")
}

func TestPrintSampleReport_Unsaved(t *testing.T) {
	var out bytes.Buffer
	PrintSampleReport(&out, &storage.SampleRun{
		Name:   "Preview",
		Module: sampling.ModuleSales,
		Seed:   9,
		Result: sampling.Result{
			Strategy:       sampling.StrategyRandom,
			PopulationSize: 2,
			Sample: []sampling.Transaction{{
				ID:      "S-1",
				Date:    time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
				Amount:  10,
				Details: sampling.SalesDetails{Customer: "Initech"},
			}},
			StrategySelected: 1,
		},
	})

	report := out.String()
	assert.Contains(t, report, "Initech")
	assert.Contains(t, report, "2024-05-01")
	assert.Contains(t, report, "Population=2 Sample=1")
	assert.NotContains(t, report, "Saved as")
	assert.NotContains(t, report, "Strata")
}
