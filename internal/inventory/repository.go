package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xwms/xwms/internal/platform/db"
	"github.com/xwms/xwms/internal/platform/httpx"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	InsertStockEntry(ctx context.Context, entry StockEntry) error
	GetBinForUpdate(ctx context.Context, item, warehouse string) (Bin, error)
	UpsertBin(ctx context.Context, bin Bin) error
	InsertLedgerEntry(ctx context.Context, entry LedgerEntry) (int64, error)
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// GetStockEntry loads a stock entry and its rows.
func (r *Repository) GetStockEntry(ctx context.Context, name string) (StockEntry, error) {
	var (
		entry       StockEntry
		entryType   string
		postingDate time.Time
		from, to    pgtype.Text
	)
	err := r.pool.QueryRow(ctx, `SELECT name, entry_type, posting_date, from_warehouse, to_warehouse, created_by, created_at
FROM stock_entries WHERE name = $1`, name).Scan(&entry.Name, &entryType, &postingDate, &from, &to, &entry.CreatedBy, &entry.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return StockEntry{}, fmt.Errorf("stock entry %s: %w", name, httpx.ErrNotFound)
	}
	if err != nil {
		return StockEntry{}, err
	}
	entry.Type = EntryType(entryType)
	entry.PostingDate = postingDate.Format(DateLayout)
	entry.FromWarehouse = from.String
	entry.ToWarehouse = to.String

	rows, err := r.pool.Query(ctx, `SELECT item, quantity, valuation_rate FROM stock_entry_items
WHERE stock_entry = $1 ORDER BY idx`, name)
	if err != nil {
		return StockEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			row       StockEntryItem
			qty, rate pgtype.Numeric
		)
		if err := rows.Scan(&row.Item, &qty, &rate); err != nil {
			return StockEntry{}, err
		}
		row.Quantity = db.Decimal(qty)
		row.ValuationRate = db.Decimal(rate)
		entry.Items = append(entry.Items, row)
	}
	return entry, rows.Err()
}

// ListLedgerByVoucher returns ledger rows posted by one voucher.
func (r *Repository) ListLedgerByVoucher(ctx context.Context, voucherType, voucherNo string) ([]LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, posting_date, item, warehouse, actual_quantity, valuation_rate,
qty_after_transaction, voucher_type, voucher_no
FROM stock_ledger_entries WHERE voucher_type = $1 AND voucher_no = $2 ORDER BY id`, voucherType, voucherNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		var (
			e                   LedgerEntry
			qty, rate, qtyAfter pgtype.Numeric
		)
		if err := rows.Scan(&e.ID, &e.PostingDate, &e.Item, &e.Warehouse, &qty, &rate, &qtyAfter, &e.VoucherType, &e.VoucherNo); err != nil {
			return nil, err
		}
		e.ActualQuantity = db.Decimal(qty)
		e.ValuationRate = db.Decimal(rate)
		e.QtyAfterTransaction = db.Decimal(qtyAfter)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListBins lists bins matching the filter.
func (r *Repository) ListBins(ctx context.Context, filter BinFilter) ([]Bin, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Item != "" {
		args = append(args, filter.Item)
		conds = append(conds, "item = $"+strconv.Itoa(len(args)))
	}
	if filter.Warehouse != "" {
		args = append(args, filter.Warehouse)
		conds = append(conds, "warehouse = $"+strconv.Itoa(len(args)))
	}
	query := "SELECT item, warehouse, actual_qty, valuation_rate, updated_at FROM bins"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY item, warehouse"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Bin
	for rows.Next() {
		var (
			b         Bin
			qty, rate pgtype.Numeric
		)
		if err := rows.Scan(&b.Item, &b.Warehouse, &qty, &rate, &b.UpdatedAt); err != nil {
			return nil, err
		}
		b.Qty = db.Decimal(qty)
		b.ValuationRate = db.Decimal(rate)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *txRepo) InsertStockEntry(ctx context.Context, entry StockEntry) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_entries (name, entry_type, posting_date, from_warehouse, to_warehouse, created_by, created_at)
VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)`,
		entry.Name, string(entry.Type), entry.PostingDate, entry.FromWarehouse, entry.ToWarehouse, entry.CreatedBy, entry.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ErrAlreadySubmitted, entry.Name)
		}
		return err
	}
	batch := &pgx.Batch{}
	for i, row := range entry.Items {
		batch.Queue(`INSERT INTO stock_entry_items (stock_entry, idx, item, quantity, valuation_rate) VALUES ($1, $2, $3, $4, $5)`,
			entry.Name, i+1, row.Item, db.Numeric(row.Quantity), db.Numeric(row.ValuationRate))
	}
	return r.tx.SendBatch(ctx, batch).Close()
}

func (r *txRepo) GetBinForUpdate(ctx context.Context, item, warehouse string) (Bin, error) {
	var (
		bin       Bin
		qty, rate pgtype.Numeric
	)
	err := r.tx.QueryRow(ctx, `SELECT item, warehouse, actual_qty, valuation_rate, updated_at FROM bins
WHERE item = $1 AND warehouse = $2 FOR UPDATE`, item, warehouse).Scan(&bin.Item, &bin.Warehouse, &qty, &rate, &bin.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Bin{Item: item, Warehouse: warehouse}, ErrBinNotFound
	}
	if err != nil {
		return Bin{}, err
	}
	bin.Qty = db.Decimal(qty)
	bin.ValuationRate = db.Decimal(rate)
	return bin, nil
}

func (r *txRepo) UpsertBin(ctx context.Context, bin Bin) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO bins (item, warehouse, actual_qty, valuation_rate, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (item, warehouse) DO UPDATE SET actual_qty = EXCLUDED.actual_qty,
	valuation_rate = EXCLUDED.valuation_rate, updated_at = EXCLUDED.updated_at`,
		bin.Item, bin.Warehouse, db.Numeric(bin.Qty), db.Numeric(bin.ValuationRate), bin.UpdatedAt)
	return err
}

func (r *txRepo) InsertLedgerEntry(ctx context.Context, entry LedgerEntry) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_ledger_entries (posting_date, item, warehouse, actual_quantity,
valuation_rate, qty_after_transaction, voucher_type, voucher_no)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		pgtype.Date{Time: entry.PostingDate, Valid: true}, entry.Item, entry.Warehouse,
		db.Numeric(entry.ActualQuantity), db.Numeric(entry.ValuationRate),
		db.Numeric(entry.QtyAfterTransaction), entry.VoucherType, entry.VoucherNo).Scan(&id)
	return id, err
}
