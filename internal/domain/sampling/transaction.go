package sampling

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ModuleKind identifies which ledger a transaction was uploaded from.
type ModuleKind string

const (
	ModulePurchase ModuleKind = "purchase"
	ModuleSales    ModuleKind = "sales"
	ModuleExpense  ModuleKind = "expense"
)

// ModuleKinds lists the supported ledgers.
func ModuleKinds() []ModuleKind {
	return []ModuleKind{ModulePurchase, ModuleSales, ModuleExpense}
}

// ParseModuleKind validates a module name.
func ParseModuleKind(s string) (ModuleKind, error) {
	switch k := ModuleKind(strings.ToLower(strings.TrimSpace(s))); k {
	case ModulePurchase, ModuleSales, ModuleExpense:
		return k, nil
	}
	return "", fmt.Errorf("unknown module %q", s)
}

// Details carries the fields that only exist for one module kind.
// Implementations are PurchaseDetails, SalesDetails and ExpenseDetails.
type Details interface {
	Kind() ModuleKind
}

// PurchaseDetails are the extra fields of a purchase ledger row.
type PurchaseDetails struct {
	Vendor        string
	InvoiceNumber string
	PaymentMethod string
}

func (PurchaseDetails) Kind() ModuleKind { return ModulePurchase }

// SalesDetails are the extra fields of a sales ledger row.
type SalesDetails struct {
	Customer      string
	InvoiceNumber string
}

func (SalesDetails) Kind() ModuleKind { return ModuleSales }

// ExpenseDetails are the extra fields of an expense ledger row.
type ExpenseDetails struct {
	Vendor        string
	Category      string
	PaymentMethod string
}

func (ExpenseDetails) Kind() ModuleKind { return ModuleExpense }

// Transaction is a single population member. ID is the identity used for
// deduplication; Details may be nil for rows without module-specific data.
type Transaction struct {
	ID          string
	Date        time.Time
	Amount      float64
	Description string
	Details     Details
}

// Kind returns the module kind, or "" when the transaction has no details.
func (t Transaction) Kind() ModuleKind {
	if t.Details == nil {
		return ""
	}
	return t.Details.Kind()
}

// Vendor returns the vendor for purchase and expense rows.
func (t Transaction) Vendor() string {
	switch d := t.Details.(type) {
	case PurchaseDetails:
		return d.Vendor
	case ExpenseDetails:
		return d.Vendor
	}
	return ""
}

// Customer returns the customer for sales rows.
func (t Transaction) Customer() string {
	if d, ok := t.Details.(SalesDetails); ok {
		return d.Customer
	}
	return ""
}

// MatchesParty reports whether any of the lower-cased fragments occurs in the
// vendor, customer or description of t.
func (t Transaction) MatchesParty(fragments []string) bool {
	if len(fragments) == 0 {
		return false
	}
	fields := []string{
		strings.ToLower(t.Vendor()),
		strings.ToLower(t.Customer()),
		strings.ToLower(t.Description),
	}
	for _, frag := range fragments {
		for _, f := range fields {
			if f != "" && strings.Contains(f, frag) {
				return true
			}
		}
	}
	return false
}

// DateLayout is the date format used when transactions are serialized.
const DateLayout = "2006-01-02"

// WireTransaction is the flat JSON form of a Transaction.
type WireTransaction struct {
	ID            string     `json:"id"`
	Date          string     `json:"date"`
	Amount        float64    `json:"amount"`
	Description   string     `json:"description"`
	Module        ModuleKind `json:"module,omitempty"`
	Vendor        string     `json:"vendor,omitempty"`
	Customer      string     `json:"customer,omitempty"`
	InvoiceNumber string     `json:"invoice_number,omitempty"`
	Category      string     `json:"category,omitempty"`
	PaymentMethod string     `json:"payment_method,omitempty"`
}

// MarshalJSON flattens the module details into the transaction object.
func (t Transaction) MarshalJSON() ([]byte, error) {
	w := WireTransaction{
		ID:          t.ID,
		Amount:      t.Amount,
		Description: t.Description,
		Module:      t.Kind(),
	}
	if !t.Date.IsZero() {
		w.Date = t.Date.Format(DateLayout)
	}

	switch d := t.Details.(type) {
	case PurchaseDetails:
		w.Vendor, w.InvoiceNumber, w.PaymentMethod = d.Vendor, d.InvoiceNumber, d.PaymentMethod
	case SalesDetails:
		w.Customer, w.InvoiceNumber = d.Customer, d.InvoiceNumber
	case ExpenseDetails:
		w.Vendor, w.Category, w.PaymentMethod = d.Vendor, d.Category, d.PaymentMethod
	}

	return json.Marshal(w)
}

// UnmarshalJSON reads the flat wire form. The module field selects which
// details are kept; without it the transaction carries no details.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var w WireTransaction
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	tx, err := w.Transaction("")
	if err != nil {
		return err
	}
	*t = tx
	return nil
}

// Transaction builds the domain form. A wire transaction without a module
// takes module; fields that do not belong to the resulting module are dropped.
func (w WireTransaction) Transaction(module ModuleKind) (Transaction, error) {
	t := Transaction{ID: w.ID, Amount: w.Amount, Description: w.Description}

	if w.Date != "" {
		d, err := parseWireDate(w.Date)
		if err != nil {
			return Transaction{}, fmt.Errorf("transaction %s: %w", w.ID, err)
		}
		t.Date = d
	}

	if w.Module != "" {
		module = w.Module
	}
	switch module {
	case "":
	case ModulePurchase:
		t.Details = PurchaseDetails{Vendor: w.Vendor, InvoiceNumber: w.InvoiceNumber, PaymentMethod: w.PaymentMethod}
	case ModuleSales:
		t.Details = SalesDetails{Customer: w.Customer, InvoiceNumber: w.InvoiceNumber}
	case ModuleExpense:
		t.Details = ExpenseDetails{Vendor: w.Vendor, Category: w.Category, PaymentMethod: w.PaymentMethod}
	default:
		return Transaction{}, fmt.Errorf("transaction %s: unknown module %q", w.ID, module)
	}

	return t, nil
}

func parseWireDate(s string) (time.Time, error) {
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d, nil
	}
	d, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return d, nil
}
