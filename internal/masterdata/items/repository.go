package items

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xwms/xwms/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Item, int, error)
	Get(ctx context.Context, code string) (Item, error)
	Create(ctx context.Context, item Item) (Item, error)
	Update(ctx context.Context, code string, item Item) error
	Delete(ctx context.Context, code string) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const itemColumns = `code, item_name, unit, valuation_rate, created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.Code, &it.ItemName, &it.Unit, &it.ValuationRate, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

// List uses a dynamic query because the filter set varies per request.
func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Item, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := strconv.Itoa(len(args))
		where += ` AND (code ILIKE $` + n + ` OR item_name ILIKE $` + n + `)`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM items`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + itemColumns + ` FROM items` + where + ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)
	if filters.Limit > 0 {
		args = append(args, filters.Limit, filters.Offset())
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, code string) (Item, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, fmt.Errorf("item %s: %w", code, shared.ErrNotFound)
	}
	return it, err
}

func (r *repository) Create(ctx context.Context, item Item) (Item, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, `INSERT INTO items (code, item_name, unit, valuation_rate, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW())
RETURNING `+itemColumns, item.Code, item.ItemName, item.Unit, item.ValuationRate))
	if shared.IsUniqueViolation(err) {
		return Item{}, fmt.Errorf("item %s: %w", item.Code, shared.ErrDuplicate)
	}
	return it, err
}

func (r *repository) Update(ctx context.Context, code string, item Item) error {
	tag, err := r.pool.Exec(ctx, `UPDATE items SET item_name = $2, unit = $3, valuation_rate = $4, updated_at = NOW() WHERE code = $1`,
		code, item.ItemName, item.Unit, item.ValuationRate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %s: %w", code, shared.ErrNotFound)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM items WHERE code = $1`, code)
	if shared.IsForeignKeyViolation(err) {
		return fmt.Errorf("item %s is referenced by stock ledger entries: %w", code, shared.ErrConflict)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %s: %w", code, shared.ErrNotFound)
	}
	return nil
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == shared.SortDesc {
		dir = "DESC"
	}
	switch sortBy {
	case "name":
		return "item_name " + dir
	default:
		return "code " + dir
	}
}
