package reports

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xwms/xwms/internal/platform/db"
)

// Repository reads report data from the stock ledger.
type Repository interface {
	StockBalance(ctx context.Context, q BalanceQuery) ([]BalanceRow, error)
	StockLedger(ctx context.Context, q LedgerQuery) ([]LedgerRow, error)
}

// PgRepository implements Repository on PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PgRepository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// warehouseScopeCTE expands a warehouse into itself and every descendant,
// so a group warehouse filter covers the leaves below it.
const warehouseScopeCTE = `WITH RECURSIVE warehouse_scope(name) AS (
	SELECT name FROM warehouses WHERE name = $%d
	UNION ALL
	SELECT w.name FROM warehouses w JOIN warehouse_scope s ON w.parent_warehouse = s.name
)
`

type ledgerWhere struct {
	with  string
	conds []string
	args  []any
}

func (w *ledgerWhere) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(w.args))))
}

func (w *ledgerWhere) item(item string) {
	if item != "" {
		w.add("item = ?", item)
	}
}

func (w *ledgerWhere) warehouse(name string) {
	if name == "" {
		return
	}
	w.args = append(w.args, name)
	w.with = strings.Replace(warehouseScopeCTE, "$%d", "$"+strconv.Itoa(len(w.args)), 1)
	w.conds = append(w.conds, "warehouse IN (SELECT name FROM warehouse_scope)")
}

func (w *ledgerWhere) clause() string {
	if len(w.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conds, " AND ")
}

// StockBalance sums ledger quantities and values per item and warehouse up
// to the posting date. settleBalance applies the valuation policy.
func (r *PgRepository) StockBalance(ctx context.Context, q BalanceQuery) ([]BalanceRow, error) {
	var where ledgerWhere
	where.item(q.Item)
	where.warehouse(q.Warehouse)
	if !q.PostingDate.IsZero() {
		where.add("posting_date <= ?", pgtype.Date{Time: q.PostingDate, Valid: true})
	}

	query := where.with + `SELECT item, warehouse,
	SUM(actual_quantity) AS qty,
	SUM(actual_quantity * valuation_rate) AS stock_value
FROM stock_ledger_entries
` + where.clause() + `
GROUP BY item, warehouse`

	rows, err := r.pool.Query(ctx, query, where.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []BalanceRow
	for rows.Next() {
		var (
			row        BalanceRow
			qty, value pgtype.Numeric
		)
		if err := rows.Scan(&row.Item, &row.Warehouse, &qty, &value); err != nil {
			return nil, err
		}
		row.Qty = db.Decimal(qty)
		row.StockValue = db.Decimal(value)
		groups = append(groups, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return settleBalance(groups), nil
}

// settleBalance drops groups with negative quantity, derives the valuation
// rate as stock value over quantity (zero when quantity is not positive) and
// orders the result by item then warehouse.
func settleBalance(groups []BalanceRow) []BalanceRow {
	out := make([]BalanceRow, 0, len(groups))
	for _, g := range groups {
		if g.Qty.IsNegative() {
			continue
		}
		g.ValuationRate = decimal.Zero
		if g.Qty.IsPositive() {
			g.ValuationRate = g.StockValue.Div(g.Qty).Round(9)
		}
		out = append(out, g)
	}
	slices.SortStableFunc(out, func(a, b BalanceRow) int {
		if c := cmp.Compare(a.Item, b.Item); c != 0 {
			return c
		}
		return cmp.Compare(a.Warehouse, b.Warehouse)
	})
	return out
}

// StockLedger lists movements between the two dates, inclusive.
func (r *PgRepository) StockLedger(ctx context.Context, q LedgerQuery) ([]LedgerRow, error) {
	var where ledgerWhere
	where.item(q.Item)
	where.warehouse(q.Warehouse)
	if !q.From.IsZero() {
		where.add("posting_date >= ?", pgtype.Date{Time: q.From, Valid: true})
	}
	if !q.To.IsZero() {
		where.add("posting_date <= ?", pgtype.Date{Time: q.To, Valid: true})
	}

	query := where.with + `SELECT posting_date, item, warehouse, actual_quantity, valuation_rate,
	actual_quantity * valuation_rate AS value, voucher_type, voucher_no
FROM stock_ledger_entries
` + where.clause() + `
ORDER BY posting_date, id`

	rows, err := r.pool.Query(ctx, query, where.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LedgerRow
	for rows.Next() {
		var (
			row              LedgerRow
			date             pgtype.Date
			qty, rate, value pgtype.Numeric
		)
		if err := rows.Scan(&date, &row.Item, &row.Warehouse, &qty, &rate, &value, &row.VoucherType, &row.VoucherNo); err != nil {
			return nil, err
		}
		row.PostingDate = date.Time
		row.ActualQuantity = db.Decimal(qty)
		row.ValuationRate = db.Decimal(rate)
		row.Value = db.Decimal(value)
		out = append(out, row)
	}
	return out, rows.Err()
}
