package importer

import (
	"fmt"

	"github.com/eshaffer321/auditflow/internal/domain/variance"
)

// ParseTrialBalance converts a table with current and prior balance columns
// into account balances. Blank separator rows and rows labelled total,
// subtotal or grand total are skipped.
func ParseTrialBalance(table *Table) ([]variance.AccountBalance, error) {
	if table == nil {
		return nil, ErrEmptySheet
	}

	cols := detectColumns(table.Headers,
		fieldAccountCode, fieldAccountDescription, fieldCurrentBalance, fieldPriorBalance,
	)
	if err := cols.require(fieldCurrentBalance, fieldPriorBalance); err != nil {
		return nil, err
	}
	_, hasCode := cols[fieldAccountCode]
	_, hasDesc := cols[fieldAccountDescription]
	if !hasCode && !hasDesc {
		return nil, fmt.Errorf("%w: %s or %s", ErrMissingColumn, fieldAccountCode, fieldAccountDescription)
	}

	out := make([]variance.AccountBalance, 0, len(table.Rows))
	for _, row := range table.Rows {
		code := cols.value(row, fieldAccountCode)
		desc := cols.value(row, fieldAccountDescription)
		if code == "" && desc == "" {
			continue
		}
		if isTotalLabel(code) || isTotalLabel(desc) {
			continue
		}

		current, err := ParseFloatAmount(cols.value(row, fieldCurrentBalance))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: current balance: %w", ErrInvalidRow, row.Line, err)
		}
		prior, err := ParseFloatAmount(cols.value(row, fieldPriorBalance))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: prior balance: %w", ErrInvalidRow, row.Line, err)
		}

		out = append(out, variance.AccountBalance{
			AccountCode:        code,
			AccountDescription: desc,
			CurrentYearBalance: current,
			PriorYearBalance:   prior,
		})
	}

	return out, nil
}

// isTotalLabel reports whether a cell marks a summary row: "Total",
// "Sub-total:", "GRAND TOTAL" and the like.
func isTotalLabel(cell string) bool {
	switch NormalizeHeader(cell) {
	case "total", "totals", "subtotal", "sub total", "grand total":
		return true
	}
	return false
}
