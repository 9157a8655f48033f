package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xwms/xwms/internal/reportfilter"
)

func registered(t *testing.T) *reportfilter.Registry {
	t.Helper()
	reg := reportfilter.NewRegistry()
	require.NoError(t, RegisterFilters(reg))
	return reg
}

func names(report reportfilter.Report) []string {
	out := make([]string, 0, len(report.Filters))
	for _, d := range report.Filters {
		out = append(out, d.Name)
	}
	return out
}

func TestStockBalanceFilters(t *testing.T) {
	report, ok := registered(t).Get(StockBalance)
	require.True(t, ok)
	assert.Equal(t, []string{"posting_date", "item", "warehouse"}, names(report))

	posting, _ := report.Lookup("posting_date")
	assert.Equal(t, reportfilter.FieldTypeDate, posting.Type)
	assert.Equal(t, "Posting Date", posting.Label)
	assert.True(t, posting.Required)

	now := time.Date(2025, time.May, 16, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "2025-05-16", report.Defaults(now)["posting_date"])
}

func TestStockLedgerFilters(t *testing.T) {
	report, ok := registered(t).Get(StockLedger)
	require.True(t, ok)
	assert.Equal(t, []string{"item", "warehouse", "from_date", "to_date"}, names(report))

	defaults := report.Defaults(time.Date(2025, time.May, 16, 8, 0, 0, 0, time.UTC))
	assert.Equal(t, "2025-04-01", defaults["from_date"])
	assert.Equal(t, "2025-05-16", defaults["to_date"])

	defaults = report.Defaults(time.Date(2025, time.January, 3, 8, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-12-01", defaults["from_date"])

	for _, name := range []string{"from_date", "to_date"} {
		d, _ := report.Lookup(name)
		assert.False(t, d.Required, name)
	}
}

func TestItemAndWarehouseAreOptionalLinks(t *testing.T) {
	reg := registered(t)
	for _, name := range []string{StockBalance, StockLedger} {
		report, _ := reg.Get(name)
		item, ok := report.Lookup("item")
		require.True(t, ok)
		assert.Equal(t, reportfilter.FieldTypeLink, item.Type)
		assert.Equal(t, "Item", item.Options)
		assert.False(t, item.Required)

		warehouse, ok := report.Lookup("warehouse")
		require.True(t, ok)
		assert.Equal(t, reportfilter.FieldTypeLink, warehouse.Type)
		assert.Equal(t, "Warehouse", warehouse.Options)
		assert.False(t, warehouse.Required)
	}
}

func TestFilterNamesAreUnique(t *testing.T) {
	for _, report := range []reportfilter.Report{StockBalanceFilters(), StockLedgerFilters()} {
		seen := map[string]bool{}
		for _, name := range names(report) {
			assert.False(t, seen[name], "%s repeats %s", report.Name, name)
			seen[name] = true
		}
		require.NoError(t, report.Validate())
	}
}

func TestRegisterFiltersTwiceKeepsLatest(t *testing.T) {
	reg := registered(t)
	require.NoError(t, RegisterFilters(reg))
	assert.Equal(t, []string{StockBalance, StockLedger}, reg.Names())

	report, _ := reg.Get(StockBalance)
	assert.Len(t, report.Filters, 3)
}
