package reports

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerWhereNumbersPlaceholdersInOrder(t *testing.T) {
	var w ledgerWhere
	w.item("TV-01")
	w.warehouse("All Warehouses")
	w.add("posting_date <= ?", "2025-05-16")

	assert.Equal(t, "WHERE item = $1 AND warehouse IN (SELECT name FROM warehouse_scope) AND posting_date <= $3", w.clause())
	assert.Contains(t, w.with, "WHERE name = $2")
	assert.Equal(t, []any{"TV-01", "All Warehouses", "2025-05-16"}, w.args)
}

func TestLedgerWhereEmpty(t *testing.T) {
	var w ledgerWhere
	w.item("")
	w.warehouse("")
	assert.Empty(t, w.clause())
	assert.Empty(t, w.with)
	assert.Empty(t, w.args)
}

func TestSettleBalanceAppliesValuationPolicy(t *testing.T) {
	rows := settleBalance([]BalanceRow{
		{Item: "TV-01", Warehouse: "Stores", Qty: decimal.NewFromInt(3), StockValue: decimal.NewFromInt(31)},
		{Item: "RADIO-02", Warehouse: "Stores", Qty: decimal.NewFromInt(-2), StockValue: decimal.NewFromInt(-8)},
		{Item: "TV-01", Warehouse: "Finished Goods", Qty: decimal.Zero, StockValue: decimal.NewFromInt(4)},
		{Item: "AMP-03", Warehouse: "Stores", Qty: decimal.NewFromInt(4), StockValue: decimal.NewFromInt(10)},
	})

	require.Len(t, rows, 3)
	assert.Equal(t, "AMP-03", rows[0].Item)
	assert.True(t, rows[0].ValuationRate.Equal(decimal.RequireFromString("2.5")))

	assert.Equal(t, "Finished Goods", rows[1].Warehouse)
	assert.True(t, rows[1].Qty.IsZero())
	assert.True(t, rows[1].ValuationRate.IsZero())
	assert.True(t, rows[1].StockValue.Equal(decimal.NewFromInt(4)))

	assert.Equal(t, "Stores", rows[2].Warehouse)
	assert.Equal(t, "10.333333333", rows[2].ValuationRate.String())
}

func TestSettleBalanceEmpty(t *testing.T) {
	assert.Empty(t, settleBalance(nil))
}

// testPool connects to XWMS_TEST_PG_DSN and loads the schema into a fresh
// Postgres schema that is dropped when the test ends.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("XWMS_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("XWMS_TEST_PG_DSN not set")
	}
	ctx := context.Background()

	admin, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(admin.Close)
	schema := fmt.Sprintf("xwms_reports_%d", time.Now().UnixNano())
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
	})

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	ddl, err := os.ReadFile(filepath.Join("..", "..", "migrations", "0001_init.up.sql"))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(ddl))
	require.NoError(t, err)
	return pool
}

func seedLedger(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
INSERT INTO items (code, item_name) VALUES ('TV-01', 'TV'), ('RADIO-02', 'Radio');
INSERT INTO warehouses (name, parent_warehouse, is_group) VALUES
	('All Warehouses', NULL, TRUE),
	('Stores', 'All Warehouses', FALSE),
	('Finished Goods', 'All Warehouses', FALSE),
	('Elsewhere', NULL, FALSE);
INSERT INTO stock_ledger_entries (posting_date, item, warehouse, actual_quantity, valuation_rate, voucher_type, voucher_no) VALUES
	('2025-05-01', 'TV-01', 'Stores', 5, 10, 'Stock Entry', 'V-1'),
	('2025-05-01', 'RADIO-02', 'Stores', 1, 4, 'Stock Entry', 'V-2'),
	('2025-05-02', 'TV-01', 'Finished Goods', 2, 8, 'Stock Entry', 'V-3'),
	('2025-05-02', 'RADIO-02', 'Stores', -3, 4, 'Stock Entry', 'V-4'),
	('2025-05-03', 'TV-01', 'Finished Goods', -2, 8, 'Stock Entry', 'V-5'),
	('2025-05-10', 'TV-01', 'Stores', -2, 10, 'Stock Entry', 'V-6'),
	('2025-05-01', 'TV-01', 'Elsewhere', 1, 1, 'Stock Entry', 'V-7'),
	('2025-06-01', 'TV-01', 'Stores', 100, 1, 'Stock Entry', 'V-8');
`)
	require.NoError(t, err)
}

func TestPgRepositoryStockBalance(t *testing.T) {
	pool := testPool(t)
	seedLedger(t, pool)
	repo := NewRepository(pool)
	ctx := context.Background()

	rows, err := repo.StockBalance(ctx, BalanceQuery{
		Warehouse:   "All Warehouses",
		PostingDate: time.Date(2025, time.May, 16, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "TV-01", rows[0].Item)
	assert.Equal(t, "Finished Goods", rows[0].Warehouse)
	assert.True(t, rows[0].Qty.IsZero())
	assert.True(t, rows[0].ValuationRate.IsZero())

	assert.Equal(t, "Stores", rows[1].Warehouse)
	assert.True(t, rows[1].Qty.Equal(decimal.NewFromInt(3)), rows[1].Qty.String())
	assert.True(t, rows[1].ValuationRate.Equal(decimal.NewFromInt(10)))
	assert.True(t, rows[1].StockValue.Equal(decimal.NewFromInt(30)))

	rows, err = repo.StockBalance(ctx, BalanceQuery{Item: "TV-01", Warehouse: "Elsewhere"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Qty.Equal(decimal.NewFromInt(1)))
}

func TestPgRepositoryStockLedger(t *testing.T) {
	pool := testPool(t)
	seedLedger(t, pool)
	repo := NewRepository(pool)
	ctx := context.Background()

	rows, err := repo.StockLedger(ctx, LedgerQuery{
		Warehouse: "All Warehouses",
		From:      time.Date(2025, time.May, 2, 0, 0, 0, 0, time.UTC),
		To:        time.Date(2025, time.May, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	vouchers := make([]string, 0, len(rows))
	for _, row := range rows {
		vouchers = append(vouchers, row.VoucherNo)
	}
	assert.Equal(t, []string{"V-3", "V-4", "V-5", "V-6"}, vouchers)
	assert.True(t, rows[1].Value.Equal(decimal.NewFromInt(-12)), rows[1].Value.String())

	rows, err = repo.StockLedger(ctx, LedgerQuery{Item: "RADIO-02"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "V-2", rows[0].VoucherNo)
	assert.Equal(t, "V-4", rows[1].VoucherNo)
}
