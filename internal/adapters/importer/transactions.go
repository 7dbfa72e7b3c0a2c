package importer

import (
	"fmt"

	"github.com/eshaffer321/auditflow/internal/domain/sampling"
)

// ParseTransactions converts a table into a sampling population for the
// given module. Date and amount columns are required. When no ID column is
// present, IDs are assigned as TXN-0001, TXN-0002, ... in row order.
func ParseTransactions(table *Table, kind sampling.ModuleKind) ([]sampling.Transaction, error) {
	if table == nil {
		return nil, ErrEmptySheet
	}

	cols := detectColumns(table.Headers,
		fieldID, fieldDate, fieldAmount, fieldDescription,
		fieldVendor, fieldCustomer, fieldInvoiceNumber, fieldCategory, fieldPaymentMethod,
	)
	if err := cols.require(fieldDate, fieldAmount); err != nil {
		return nil, err
	}

	out := make([]sampling.Transaction, 0, len(table.Rows))
	for i, row := range table.Rows {
		date, err := ParseDate(cols.value(row, fieldDate))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrInvalidRow, row.Line, err)
		}
		amount, err := ParseFloatAmount(cols.value(row, fieldAmount))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrInvalidRow, row.Line, err)
		}

		id := cols.value(row, fieldID)
		if id == "" {
			id = fmt.Sprintf("TXN-%04d", i+1)
		}

		out = append(out, sampling.Transaction{
			ID:          id,
			Date:        date,
			Amount:      amount,
			Description: cols.value(row, fieldDescription),
			Details:     details(kind, cols, row),
		})
	}

	return out, nil
}

func details(kind sampling.ModuleKind, cols columnMap, row Row) sampling.Details {
	switch kind {
	case sampling.ModulePurchase:
		return sampling.PurchaseDetails{
			Vendor:        cols.value(row, fieldVendor),
			InvoiceNumber: cols.value(row, fieldInvoiceNumber),
			PaymentMethod: cols.value(row, fieldPaymentMethod),
		}
	case sampling.ModuleSales:
		return sampling.SalesDetails{
			Customer:      cols.value(row, fieldCustomer),
			InvoiceNumber: cols.value(row, fieldInvoiceNumber),
		}
	case sampling.ModuleExpense:
		return sampling.ExpenseDetails{
			Vendor:        cols.value(row, fieldVendor),
			Category:      cols.value(row, fieldCategory),
			PaymentMethod: cols.value(row, fieldPaymentMethod),
		}
	}
	return nil
}
