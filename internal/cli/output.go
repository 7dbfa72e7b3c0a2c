package cli

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/eshaffer321/auditflow/internal/application/service"
	"github.com/eshaffer321/auditflow/internal/domain/sampling"
	"github.com/eshaffer321/auditflow/internal/domain/variance"
	"github.com/eshaffer321/auditflow/internal/infrastructure/storage"
)

// PrintHeader prints the command header
func PrintHeader(w io.Writer, command string, save bool) {
	mode := "PREVIEW"
	if save {
		mode = "SAVE"
	}
	fmt.Fprintf(w, "auditflow: %s (%s mode)\n", command, mode)
}

// PrintVarianceReport prints one row per account followed by the summary.
func PrintVarianceReport(w io.Writer, a *storage.VarianceAnalysis, flaggedOnly bool) {
	fmt.Fprintf(w, "%s | Thresholds: moderate %.2f%% significant %.2f%%\n\n",
		a.Name, a.Thresholds.Moderate, a.Thresholds.Significant)

	records := a.Records
	if flaggedOnly {
		records = variance.FilterByFlag(records)
	}
	printVarianceTable(w, records)
	printVarianceSummary(w, a.Summary)

	if a.ID != "" {
		fmt.Fprintf(w, "\nSaved as %s\n", a.ID)
	}
}

// PrintBatchReport prints the summary line of each batch.
func PrintBatchReport(w io.Writer, results []service.BatchResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tACCOUNTS\tSIGNIFICANT\tMODERATE\tTOTAL VARIANCE")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", r.Name,
			r.Summary.AccountCount, r.Summary.SignificantCount, r.Summary.ModerateCount,
			formatAmount(r.Summary.TotalVariance))
	}
	_ = tw.Flush()
}

func printVarianceTable(w io.Writer, records []variance.AccountVariance) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "CODE\tDESCRIPTION\tCURRENT\tPRIOR\tVARIANCE\tVAR %\tFLAG\t")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.AccountCode, r.AccountDescription,
			formatAmount(r.CurrentYearBalance), formatAmount(r.PriorYearBalance),
			formatAmount(r.Variance), formatPct(r.VariancePercentage), r.Flag)
	}
	_ = tw.Flush()
}

func printVarianceSummary(w io.Writer, s variance.Summary) {
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Summary: Accounts=%d Significant=%d Moderate=%d None=%d\n",
		s.AccountCount, s.SignificantCount, s.ModerateCount, s.NoneCount)
	fmt.Fprintf(w, "Totals: Current=%s Prior=%s Variance=%s\n",
		formatAmount(s.TotalCurrent), formatAmount(s.TotalPrior), formatAmount(s.TotalVariance))
	if s.NonFinite > 0 {
		fmt.Fprintf(w, "Warning: %d account(s) with non-numeric balances excluded from totals\n", s.NonFinite)
	}
}

// PrintSampleReport prints the selected transactions and selection counts.
func PrintSampleReport(w io.Writer, run *storage.SampleRun) {
	res := run.Result
	fmt.Fprintf(w, "%s | Module: %s | Strategy: %s | Seed: %d\n\n", run.Name, run.Module, res.Strategy, run.Seed)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tAMOUNT\tPARTY\tDESCRIPTION")
	for _, t := range res.Sample {
		party := t.Vendor()
		if party == "" {
			party = t.Customer()
		}
		date := ""
		if !t.Date.IsZero() {
			date = t.Date.Format(sampling.DateLayout)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, date, formatAmount(t.Amount), party, t.Description)
	}
	_ = tw.Flush()

	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Summary: Population=%d Sample=%d Strategy=%d RelatedParty=%d\n",
		res.PopulationSize, len(res.Sample), res.StrategySelected, res.RelatedPartyAdded)
	if s := res.Strata; s != nil {
		fmt.Fprintf(w, "Strata: High %d/%d  Medium %d/%d  Low %d/%d\n",
			s.High.Selected, s.High.Population,
			s.Medium.Selected, s.Medium.Population,
			s.Low.Selected, s.Low.Population)
	}
	if run.ID != "" {
		fmt.Fprintf(w, "\nSaved as %s\n", run.ID)
	}
}

// PrintMigrationStatus prints each migration and whether it is applied.
func PrintMigrationStatus(w io.Writer, states []storage.MigrationState) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATE\tFILE")
	for _, s := range states {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		fmt.Fprintf(tw, "%05d\t%s\t%s\n", s.Version, state, s.Path)
	}
	_ = tw.Flush()
}

func formatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

func formatPct(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v)
}
