package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/eshaffer321/auditflow/internal/domain/sampling"
	"github.com/eshaffer321/auditflow/internal/domain/variance"
)

func TestWriteVarianceWorkbook(t *testing.T) {
	records := variance.Analyze([]variance.AccountBalance{
		{AccountCode: "1000", AccountDescription: "Cash", CurrentYearBalance: 120000, PriorYearBalance: 100000},
		{AccountCode: "4000", AccountDescription: "Revenue", CurrentYearBalance: 1000, PriorYearBalance: 3000},
	}, variance.DefaultThresholds())

	var buf bytes.Buffer
	require.NoError(t, WriteVarianceWorkbook(&buf, records, variance.Summarize(records)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetVariance, SheetSummary}, f.GetSheetList())

	rows, err := f.GetRows(SheetVariance)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Account Code", rows[0][0])
	assert.Equal(t, []string{"1000", "Cash", "120000", "100000", "20000", "20", "moderate"}, rows[1])
	assert.Equal(t, "-66.67", rows[2][5])
	assert.Equal(t, "significant", rows[2][6])

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Significant", "1"}, summary[1])
}

func TestWriteSampleWorkbook(t *testing.T) {
	result := &sampling.Result{
		Strategy: sampling.StrategyRandom,
		Sample: []sampling.Transaction{
			{
				ID:          "PO-1",
				Date:        time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC),
				Amount:      99.5,
				Description: "Paper",
				Details:     sampling.PurchaseDetails{Vendor: "Acme", InvoiceNumber: "INV-1", PaymentMethod: "Card"},
			},
			{
				ID:      "S-9",
				Date:    time.Date(2024, 2, 4, 0, 0, 0, 0, time.UTC),
				Amount:  10,
				Details: sampling.SalesDetails{Customer: "Globex"},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSampleWorkbook(&buf, result))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetSample)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"PO-1", "2024-02-03", "99.5", "Paper", "purchase", "Acme", "", "INV-1", "", "Card"}, rows[1])
	assert.Equal(t, "Globex", rows[2][6])
}
