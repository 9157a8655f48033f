package warehouses

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
	List(ctx context.Context, filters shared.ListFilters) ([]Warehouse, int, error)
	Get(ctx context.Context, name string) (Warehouse, error)
	Create(ctx context.Context, warehouse Warehouse) (Warehouse, error)
	Update(ctx context.Context, name string, warehouse Warehouse) error
	Delete(ctx context.Context, name string) error
	CountChildren(ctx context.Context, name string) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const warehouseColumns = `name, COALESCE(parent_warehouse, ''), is_group, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Warehouse, int, error) {
	where := ` WHERE 1=1`
	args := []any{}

	if filters.Parent != nil {
		args = append(args, *filters.Parent)
		where += ` AND parent_warehouse = $` + strconv.Itoa(len(args))
	}
	if filters.IsGroup != nil {
		args = append(args, *filters.IsGroup)
		where += ` AND is_group = $` + strconv.Itoa(len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND name ILIKE $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM warehouses`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + warehouseColumns + ` FROM warehouses` + where + ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)
	if filters.Limit > 0 {
		args = append(args, filters.Limit, filters.Offset())
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	warehouses := []Warehouse{}
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.Name, &w.ParentWarehouse, &w.IsGroup, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, 0, err
		}
		warehouses = append(warehouses, w)
	}
	return warehouses, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, name string) (Warehouse, error) {
	var w Warehouse
	err := r.pool.QueryRow(ctx, `SELECT `+warehouseColumns+` FROM warehouses WHERE name = $1`, name).
		Scan(&w.Name, &w.ParentWarehouse, &w.IsGroup, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Warehouse{}, fmt.Errorf("warehouse %s: %w", name, shared.ErrNotFound)
	}
	return w, err
}

func (r *repository) Create(ctx context.Context, warehouse Warehouse) (Warehouse, error) {
	var w Warehouse
	err := r.pool.QueryRow(ctx, `INSERT INTO warehouses (name, parent_warehouse, is_group, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW())
RETURNING `+warehouseColumns, warehouse.Name, nullString(warehouse.ParentWarehouse), warehouse.IsGroup).
		Scan(&w.Name, &w.ParentWarehouse, &w.IsGroup, &w.CreatedAt, &w.UpdatedAt)
	if shared.IsUniqueViolation(err) {
		return Warehouse{}, fmt.Errorf("warehouse %s: %w", warehouse.Name, shared.ErrDuplicate)
	}
	return w, err
}

func (r *repository) Update(ctx context.Context, name string, warehouse Warehouse) error {
	tag, err := r.pool.Exec(ctx, `UPDATE warehouses SET parent_warehouse = $2, is_group = $3, updated_at = NOW() WHERE name = $1`,
		name, nullString(warehouse.ParentWarehouse), warehouse.IsGroup)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("warehouse %s: %w", name, shared.ErrNotFound)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, name string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM warehouses WHERE name = $1`, name)
	if shared.IsForeignKeyViolation(err) {
		return fmt.Errorf("warehouse %s is referenced by stock ledger entries: %w", name, shared.ErrConflict)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("warehouse %s: %w", name, shared.ErrNotFound)
	}
	return nil
}

func (r *repository) CountChildren(ctx context.Context, name string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM warehouses WHERE parent_warehouse = $1`, name).Scan(&n)
	return n, err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == shared.SortDesc {
		dir = "DESC"
	}
	switch sortBy {
	case "parent":
		return "parent_warehouse " + dir + " NULLS FIRST, name " + dir
	case "created":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
