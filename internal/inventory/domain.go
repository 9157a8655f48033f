package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xwms/xwms/internal/platform/httpx"
)

// EntryType enumerates supported stock movements.
type EntryType string

const (
	// EntryTypeReceipt brings stock into a warehouse.
	EntryTypeReceipt EntryType = "Receipt"
	// EntryTypeConsume takes stock out of a warehouse.
	EntryTypeConsume EntryType = "Consume"
	// EntryTypeTransfer moves stock between two warehouses.
	EntryTypeTransfer EntryType = "Transfer"
)

// VoucherTypeStockEntry tags ledger rows posted by stock entries.
const VoucherTypeStockEntry = "Stock Entry"

// DateLayout is the wire format of posting dates.
const DateLayout = "2006-01-02"

// StockEntry is the document that moves stock.
type StockEntry struct {
	Name          string           `json:"name" validate:"max=140"`
	Type          EntryType        `json:"type" validate:"required,oneof=Receipt Consume Transfer"`
	PostingDate   string           `json:"posting_date" validate:"omitempty,datetime=2006-01-02"`
	FromWarehouse string           `json:"from_warehouse,omitempty"`
	ToWarehouse   string           `json:"to_warehouse,omitempty"`
	Items         []StockEntryItem `json:"items" validate:"dive"`
	CreatedBy     int64            `json:"created_by,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// StockEntryItem is one row of a stock entry.
type StockEntryItem struct {
	Item          string          `json:"item" validate:"required"`
	Quantity      decimal.Decimal `json:"quantity"`
	ValuationRate decimal.Decimal `json:"valuation_rate"`
}

// LedgerEntry is an immutable stock ledger row.
type LedgerEntry struct {
	ID                  int64           `json:"id"`
	PostingDate         time.Time       `json:"posting_date"`
	Item                string          `json:"item"`
	Warehouse           string          `json:"warehouse"`
	ActualQuantity      decimal.Decimal `json:"actual_quantity"`
	ValuationRate       decimal.Decimal `json:"valuation_rate"`
	QtyAfterTransaction decimal.Decimal `json:"qty_after_transaction"`
	VoucherType         string          `json:"voucher_type"`
	VoucherNo           string          `json:"voucher_no"`
}

// Bin summarises stock of an item in a warehouse.
type Bin struct {
	Item          string          `json:"item"`
	Warehouse     string          `json:"warehouse"`
	Qty           decimal.Decimal `json:"actual_qty"`
	ValuationRate decimal.Decimal `json:"valuation_rate"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// StockValue is Qty * ValuationRate.
func (b Bin) StockValue() decimal.Decimal {
	return b.Qty.Mul(b.ValuationRate)
}

// BinFilter narrows bin listings.
type BinFilter struct {
	Item      string
	Warehouse string
}

var (
	// ErrNoItems is returned for a stock entry without rows.
	ErrNoItems = fmt.Errorf("%w: please add at least one item to the stock entry", httpx.ErrValidation)
	// ErrInvalidQuantity indicates a non-positive row quantity.
	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be greater than zero", httpx.ErrValidation)
	// ErrInvalidRate indicates a negative valuation rate.
	ErrInvalidRate = fmt.Errorf("%w: valuation rate must be >= 0", httpx.ErrValidation)
	// ErrWarehouseRole indicates from/to warehouses that do not fit the entry type.
	ErrWarehouseRole = fmt.Errorf("%w: warehouse does not fit entry type", httpx.ErrValidation)
	// ErrGroupWarehouse indicates posting against a group warehouse.
	ErrGroupWarehouse = fmt.Errorf("%w: warehouse must be a leaf node (not a group)", httpx.ErrValidation)
	// ErrUnknownReference indicates an item or warehouse that does not exist.
	ErrUnknownReference = fmt.Errorf("%w: unknown reference", httpx.ErrValidation)
	// ErrInsufficientStock is returned when a posting would make stock negative.
	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", httpx.ErrValidation)
	// ErrAlreadySubmitted is returned when a stock entry name was posted before.
	ErrAlreadySubmitted = fmt.Errorf("%w: stock entry already submitted", httpx.ErrConflict)
)

// ErrBinNotFound indicates missing bin row.
var ErrBinNotFound = errors.New("inventory: bin not found")
