// Package export writes analysis results as xlsx workbooks.
package export

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/eshaffer321/auditflow/internal/domain/sampling"
	"github.com/eshaffer321/auditflow/internal/domain/variance"
)

// Sheet names used in exported workbooks.
const (
	SheetVariance = "Variance"
	SheetSummary  = "Summary"
	SheetSample   = "Sample"
)

// ContentType is the MIME type of the generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var varianceHeader = []any{
	"Account Code", "Account Description", "Current Year", "Prior Year", "Variance", "Variance %", "Flag",
}

var sampleHeader = []any{
	"ID", "Date", "Amount", "Description", "Module", "Vendor", "Customer", "Invoice Number", "Category", "Payment Method",
}

// WriteVarianceWorkbook writes one row per account plus a summary sheet.
func WriteVarianceWorkbook(w io.Writer, records []variance.AccountVariance, summary variance.Summary) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetVariance); err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetVariance, "A1", &varianceHeader); err != nil {
		return err
	}

	for i, rec := range records {
		row := []any{
			rec.AccountCode,
			rec.AccountDescription,
			rec.CurrentYearBalance,
			rec.PriorYearBalance,
			rec.Variance,
			roundPct(rec.VariancePercentage),
			string(rec.Flag),
		}
		if err := f.SetSheetRow(SheetVariance, cell(1, i+2), &row); err != nil {
			return fmt.Errorf("failed to write account %s: %w", rec.AccountCode, err)
		}
	}

	if _, err := f.NewSheet(SheetSummary); err != nil {
		return err
	}
	summaryRows := [][]any{
		{"Accounts", summary.AccountCount},
		{"Significant", summary.SignificantCount},
		{"Moderate", summary.ModerateCount},
		{"None", summary.NoneCount},
		{"Total Current Year", summary.TotalCurrent},
		{"Total Prior Year", summary.TotalPrior},
		{"Total Variance", summary.TotalVariance},
	}
	for i, row := range summaryRows {
		if err := f.SetSheetRow(SheetSummary, cell(1, i+1), &row); err != nil {
			return err
		}
	}

	return f.Write(w)
}

// WriteSampleWorkbook writes the selected transactions, one per row.
func WriteSampleWorkbook(w io.Writer, result *sampling.Result) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetSample); err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetSample, "A1", &sampleHeader); err != nil {
		return err
	}

	if result != nil {
		for i, txn := range result.Sample {
			row := sampleRow(txn)
			if err := f.SetSheetRow(SheetSample, cell(1, i+2), &row); err != nil {
				return fmt.Errorf("failed to write transaction %s: %w", txn.ID, err)
			}
		}
	}

	return f.Write(w)
}

func sampleRow(txn sampling.Transaction) []any {
	date := ""
	if !txn.Date.IsZero() {
		date = txn.Date.Format(sampling.DateLayout)
	}

	var invoice, category, payment string
	switch d := txn.Details.(type) {
	case sampling.PurchaseDetails:
		invoice, payment = d.InvoiceNumber, d.PaymentMethod
	case sampling.SalesDetails:
		invoice = d.InvoiceNumber
	case sampling.ExpenseDetails:
		category, payment = d.Category, d.PaymentMethod
	}

	return []any{
		txn.ID, date, txn.Amount, txn.Description, string(txn.Kind()),
		txn.Vendor(), txn.Customer(), invoice, category, payment,
	}
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// roundPct rounds to two decimals. Non-finite values are written as text.
func roundPct(pct float64) any {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return fmt.Sprint(pct)
	}
	return math.Round(pct*100) / 100
}
