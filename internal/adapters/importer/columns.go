package importer

import (
	"fmt"
	"strings"
)

// field is a logical column a parser needs.
type field string

const (
	fieldID            field = "id"
	fieldDate          field = "date"
	fieldAmount        field = "amount"
	fieldDescription   field = "description"
	fieldVendor        field = "vendor"
	fieldCustomer      field = "customer"
	fieldInvoiceNumber field = "invoice_number"
	fieldCategory      field = "category"
	fieldPaymentMethod field = "payment_method"

	fieldAccountCode        field = "account_code"
	fieldAccountDescription field = "account_description"
	fieldCurrentBalance     field = "current_year_balance"
	fieldPriorBalance       field = "prior_year_balance"
)

// aliases are normalized header spellings per field, most specific first.
var aliases = map[field][]string{
	fieldID:            {"id", "transaction id", "txn id", "reference", "reference number", "ref", "ref no", "voucher", "voucher number", "document number", "doc no"},
	fieldDate:          {"date", "transaction date", "txn date", "posting date", "invoice date", "entry date"},
	fieldAmount:        {"amount", "total", "net amount", "gross amount", "value", "amount usd"},
	fieldDescription:   {"description", "memo", "narration", "details", "particulars"},
	fieldVendor:        {"vendor", "vendor name", "supplier", "supplier name", "payee"},
	fieldCustomer:      {"customer", "customer name", "client", "client name", "buyer"},
	fieldInvoiceNumber: {"invoice number", "invoice no", "invoice", "invoice num"},
	fieldCategory:      {"category", "expense category", "expense type"},
	fieldPaymentMethod: {"payment method", "payment type", "payment", "method", "paid by"},

	fieldAccountCode:        {"account code", "account number", "account no", "acct no", "acct", "gl code", "code"},
	fieldAccountDescription: {"account description", "account name", "description", "name", "account"},
	fieldCurrentBalance:     {"current year balance", "current year", "current balance", "current", "cy balance", "cy", "this year"},
	fieldPriorBalance:       {"prior year balance", "prior year", "prior balance", "prior", "py balance", "py", "previous year", "last year"},
}

// columnMap maps fields to the normalized header that holds them.
type columnMap map[field]string

// detectColumns assigns each wanted field to a distinct header. Exact alias
// matches are tried for all fields before falling back to headers that
// contain an alias of four or more characters.
func detectColumns(headers []string, wanted ...field) columnMap {
	cols := make(columnMap, len(wanted))
	used := make(map[string]bool, len(headers))

	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		if h != "" {
			present[h] = true
		}
	}

	for _, f := range wanted {
		for _, alias := range aliases[f] {
			if present[alias] && !used[alias] {
				cols[f] = alias
				used[alias] = true
				break
			}
		}
	}

	for _, f := range wanted {
		if _, ok := cols[f]; ok {
			continue
		}
	search:
		for _, alias := range aliases[f] {
			if len(alias) < 4 {
				continue
			}
			for _, h := range headers {
				if h != "" && !used[h] && strings.Contains(h, alias) {
					cols[f] = h
					used[h] = true
					break search
				}
			}
		}
	}

	return cols
}

func (c columnMap) require(fields ...field) error {
	var missing []string
	for _, f := range fields {
		if _, ok := c[f]; !ok {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// value returns the cell for f, or "" when f was not detected.
func (c columnMap) value(row Row, f field) string {
	h, ok := c[f]
	if !ok {
		return ""
	}
	return row.Get(h)
}
