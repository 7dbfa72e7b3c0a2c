package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/eshaffer321/auditflow/internal/adapters/export"
	"github.com/eshaffer321/auditflow/internal/adapters/importer"
	"github.com/eshaffer321/auditflow/internal/application/service"
	"github.com/eshaffer321/auditflow/internal/domain/variance"
	"github.com/eshaffer321/auditflow/internal/infrastructure/storage"
)

// Runner executes the analysis commands and prints reports to Out.
type Runner struct {
	Service *service.AuditService
	Out     io.Writer
}

// Variance classifies one trial balance, or several concurrently when more
// than one file is given.
func (r *Runner) Variance(ctx context.Context, opts VarianceOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	thresholds := opts.Thresholds(r.Service.DefaultThresholds())

	if len(opts.Files) > 1 {
		batches := make([]service.VarianceBatch, 0, len(opts.Files))
		for _, path := range opts.Files {
			accounts, err := readTrialBalance(path)
			if err != nil {
				return err
			}
			batches = append(batches, service.VarianceBatch{Name: filepath.Base(path), Accounts: accounts})
		}

		results, err := r.Service.AnalyzeBatches(ctx, batches, thresholds)
		if err != nil {
			return err
		}
		PrintHeader(r.Out, "variance", false)
		PrintBatchReport(r.Out, results)
		return nil
	}

	path := opts.Files[0]
	accounts, err := readTrialBalance(path)
	if err != nil {
		return err
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(path)
	}
	analysis, err := r.Service.RunVariance(ctx, service.VarianceRequest{
		ClientID:   opts.ClientID,
		Name:       name,
		Accounts:   accounts,
		Thresholds: &thresholds,
		Save:       opts.Save,
	})
	if err != nil {
		return err
	}

	PrintHeader(r.Out, "variance", opts.Save)
	PrintVarianceReport(r.Out, analysis, opts.FlaggedOnly)

	if opts.Out != "" {
		err := writeWorkbook(opts.Out, func(w io.Writer) error {
			return export.WriteVarianceWorkbook(w, analysis.Records, analysis.Summary)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(r.Out, "Workbook written to %s\n", opts.Out)
	}
	return nil
}

// Sample selects a sample from a ledger file.
func (r *Runner) Sample(ctx context.Context, opts SampleOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	module, err := opts.ModuleKind()
	if err != nil {
		return fmt.Errorf("--module: %w", err)
	}
	params, err := opts.Params(r.Service.DefaultParams)
	if err != nil {
		return err
	}

	table, err := importer.ReadFile(opts.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", opts.File, err)
	}
	population, err := importer.ParseTransactions(table, module)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", opts.File, err)
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(opts.File)
	}
	run, err := r.Service.RunSample(ctx, service.SampleRequest{
		ClientID:   opts.ClientID,
		Name:       name,
		Module:     module,
		Population: population,
		Params:     params,
		Seed:       opts.Seed,
		Save:       opts.Save,
	})
	if err != nil {
		return err
	}

	PrintHeader(r.Out, "sample", opts.Save)
	PrintSampleReport(r.Out, run)

	if opts.Out != "" {
		err := writeWorkbook(opts.Out, func(w io.Writer) error {
			return export.WriteSampleWorkbook(w, &run.Result)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(r.Out, "Workbook written to %s\n", opts.Out)
	}
	return nil
}

// RunMigrate opens the database, which applies pending migrations, and
// prints the migration status.
func RunMigrate(ctx context.Context, dbPath string, w io.Writer) error {
	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	states, err := store.MigrationStatus(ctx)
	if err != nil {
		return err
	}
	version, err := store.MigrationVersion(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Database: %s (schema version %d)\n\n", dbPath, version)
	PrintMigrationStatus(w, states)
	return nil
}

func readTrialBalance(path string) ([]variance.AccountBalance, error) {
	table, err := importer.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	accounts, err := importer.ParseTrialBalance(table)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return accounts, nil
}

func writeWorkbook(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
