package sampling

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_JSONFlattensDetails(t *testing.T) {
	txn := Transaction{
		ID:          "INV-1001",
		Date:        time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Amount:      1250.50,
		Description: "Office chairs",
		Details:     PurchaseDetails{Vendor: "Acme", InvoiceNumber: "A-77", PaymentMethod: "wire"},
	}

	data, err := json.Marshal(txn)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "2024-03-15", raw["date"])
	assert.Equal(t, "purchase", raw["module"])
	assert.Equal(t, "Acme", raw["vendor"])
	assert.NotContains(t, raw, "customer")

	var decoded Transaction
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, txn, decoded)
}

func TestTransaction_UnmarshalDropsForeignFields(t *testing.T) {
	var txn Transaction
	err := json.Unmarshal([]byte(`{"id":"S-1","date":"2024-05-01","amount":10,"module":"sales","customer":"Globex","vendor":"ignored"}`), &txn)
	require.NoError(t, err)

	assert.Equal(t, SalesDetails{Customer: "Globex"}, txn.Details)
	assert.Equal(t, "", txn.Vendor())
	assert.Equal(t, "Globex", txn.Customer())
}

func TestTransaction_UnmarshalRejectsUnknownModule(t *testing.T) {
	var txn Transaction
	err := json.Unmarshal([]byte(`{"id":"X","module":"payroll"}`), &txn)
	assert.Error(t, err)
}

func TestTransaction_MatchesParty(t *testing.T) {
	expense := Transaction{Description: "Team lunch", Details: ExpenseDetails{Vendor: "Acme Catering", Category: "Meals"}}

	assert.True(t, expense.MatchesParty([]string{"acme"}))
	assert.True(t, expense.MatchesParty([]string{"lunch"}))
	assert.False(t, expense.MatchesParty([]string{"meals"}), "category is not a party field")
	assert.False(t, expense.MatchesParty(nil))
	assert.Equal(t, ModuleExpense, expense.Kind())
}

func TestParseModuleKind(t *testing.T) {
	k, err := ParseModuleKind(" Sales ")
	require.NoError(t, err)
	assert.Equal(t, ModuleSales, k)

	_, err = ParseModuleKind("payroll")
	assert.Error(t, err)
}

func TestWireTransaction_DefaultModule(t *testing.T) {
	w := WireTransaction{ID: "A", Date: "2024-01-01", Amount: 10, Vendor: "Acme Corp", Customer: "ignored"}

	txn, err := w.Transaction(ModulePurchase)
	require.NoError(t, err)
	assert.Equal(t, PurchaseDetails{Vendor: "Acme Corp"}, txn.Details)

	bare, err := w.Transaction("")
	require.NoError(t, err)
	assert.Nil(t, bare.Details)

	w.Module = ModuleSales
	own, err := w.Transaction(ModulePurchase)
	require.NoError(t, err)
	assert.Equal(t, SalesDetails{Customer: "ignored"}, own.Details, "a transaction's own module wins")
}

func TestModuleKinds_AllParse(t *testing.T) {
	for _, k := range ModuleKinds() {
		parsed, err := ParseModuleKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
}
