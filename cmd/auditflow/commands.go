package main

import (
	"github.com/spf13/cobra"

	"github.com/eshaffer321/auditflow/internal/application/service"
	"github.com/eshaffer321/auditflow/internal/cli"
	"github.com/eshaffer321/auditflow/internal/infrastructure/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the audit API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		return cli.RunServe(loadConfig(), cli.ServeOptions{Port: port, Verbose: verbose})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and show their status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		return cli.RunMigrate(cmd.Context(), cfg.Storage.DatabasePath, cmd.OutOrStdout())
	},
}

var varianceOpts cli.VarianceOptions

var varianceCmd = &cobra.Command{
	Use:   "variance",
	Short: "Classify year-over-year variances in a trial balance",
	Long: `Classify each account of a trial balance (CSV or XLSX) by its
year-over-year variance percentage.

Several --file flags analyze the trial balances concurrently and print
one summary line per file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("moderate") {
			v, _ := flags.GetFloat64("moderate")
			varianceOpts.ModeratePct = &v
		}
		if flags.Changed("significant") {
			v, _ := flags.GetFloat64("significant")
			varianceOpts.SignificantPct = &v
		}

		runner, done, err := newRunner(cmd, "variance", varianceOpts.Save)
		if err != nil {
			return err
		}
		defer done()
		return runner.Variance(cmd.Context(), varianceOpts)
	},
}

var sampleOpts cli.SampleOptions

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Select an audit sample from a purchase, sales or expense ledger",
	Long: `Select transactions from a ledger (CSV or XLSX) using one of the
strategies: systematic, stratified, random, risk_based.

Passing the same --seed reproduces a selection exactly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		for name, dst := range map[string]**float64{
			"pct":    &sampleOpts.Percentage,
			"high":   &sampleOpts.HighThreshold,
			"medium": &sampleOpts.MediumThreshold,
		} {
			if flags.Changed(name) {
				v, _ := flags.GetFloat64(name)
				*dst = &v
			}
		}
		if flags.Changed("seed") {
			v, _ := flags.GetUint64("seed")
			sampleOpts.Seed = &v
		}

		runner, done, err := newRunner(cmd, "sampling", sampleOpts.Save)
		if err != nil {
			return err
		}
		defer done()
		return runner.Sample(cmd.Context(), sampleOpts)
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "port to listen on (default from config)")

	vf := varianceCmd.Flags()
	vf.StringArrayVarP(&varianceOpts.Files, "file", "f", nil, "trial balance file (repeatable)")
	vf.Float64("moderate", 0, "moderate threshold percentage (default from config)")
	vf.Float64("significant", 0, "significant threshold percentage (default from config)")
	vf.StringVarP(&varianceOpts.Out, "out", "o", "", "write an xlsx workbook to this path")
	vf.StringVar(&varianceOpts.ClientID, "client", "", "client ID to record the analysis against")
	vf.StringVar(&varianceOpts.Name, "name", "", "analysis name (default: file name)")
	vf.BoolVar(&varianceOpts.Save, "save", false, "save the analysis to the database")
	vf.BoolVar(&varianceOpts.FlaggedOnly, "flagged", false, "print only moderate and significant accounts")

	sf := sampleCmd.Flags()
	sf.StringVarP(&sampleOpts.File, "file", "f", "", "ledger file")
	sf.StringVar(&sampleOpts.Module, "module", "purchase", "ledger kind: purchase, sales or expense")
	sf.StringVarP(&sampleOpts.Strategy, "strategy", "s", "stratified", "systematic, stratified, random or risk_based")
	sf.Float64("pct", 0, "sampling percentage (default from config)")
	sf.Float64("high", 0, "high stratum threshold (default from config)")
	sf.Float64("medium", 0, "medium stratum threshold (default from config)")
	sf.Uint64("seed", 0, "random seed for a reproducible selection")
	sf.StringVar(&sampleOpts.Related, "related", "", "comma-separated related party names")
	sf.BoolVar(&sampleOpts.IncludeRelated, "include-related", false, "always include related party transactions")
	sf.StringVarP(&sampleOpts.Out, "out", "o", "", "write an xlsx workbook to this path")
	sf.StringVar(&sampleOpts.ClientID, "client", "", "client ID to record the run against")
	sf.StringVar(&sampleOpts.Name, "name", "", "run name (default: file name)")
	sf.BoolVar(&sampleOpts.Save, "save", false, "save the run to the database")
}

// newRunner builds a runner writing to the command's output. The database is
// only opened when the result will be saved.
func newRunner(cmd *cobra.Command, system string, save bool) (*cli.Runner, func(), error) {
	cfg := loadConfig()
	logger := cli.Logger(cfg, system, verbose)

	var repo storage.Repository
	done := func() {}
	if save {
		store, err := storage.NewStorageWithLogger(cfg.Storage.DatabasePath, logger)
		if err != nil {
			return nil, nil, err
		}
		repo = store
		done = func() { _ = store.Close() }
	}

	return &cli.Runner{
		Service: service.NewAuditService(cfg, repo, logger),
		Out:     cmd.OutOrStdout(),
	}, done, nil
}
