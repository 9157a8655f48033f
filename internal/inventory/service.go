package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xwms/xwms/internal/shared"
)

// rateScale bounds the precision of moving-average rates.
const rateScale = 9

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetStockEntry(ctx context.Context, name string) (StockEntry, error)
	ListLedgerByVoucher(ctx context.Context, voucherType, voucherNo string) ([]LedgerEntry, error)
	ListBins(ctx context.Context, filter BinFilter) ([]Bin, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards against submitting the same voucher twice.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service coordinates inventory operations.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	warehouses  WarehouseLookup
	items       ItemLookup
	hook        PostingHook
	logger      *slog.Logger
	allowNeg    bool
	now         func() time.Time
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	AllowNegativeStock bool
}

// Deps bundles the collaborators of Service. Nil members are skipped.
type Deps struct {
	Audit       AuditPort
	Idempotency IdempotencyPort
	Warehouses  WarehouseLookup
	Items       ItemLookup
	Hook        PostingHook
	Logger      *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, deps Deps, cfg ServiceConfig) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		audit:       deps.Audit,
		idempotency: deps.Idempotency,
		warehouses:  deps.Warehouses,
		items:       deps.Items,
		hook:        deps.Hook,
		logger:      logger,
		allowNeg:    cfg.AllowNegativeStock,
		now:         time.Now,
	}
}

// Posting is the outcome of a submitted stock entry.
type Posting struct {
	Entry  StockEntry    `json:"entry"`
	Ledger []LedgerEntry `json:"ledger"`
}

// Submit validates a stock entry and posts it to the stock ledger.
func (s *Service) Submit(ctx context.Context, entry StockEntry) (Posting, error) {
	entry = normalizeEntry(entry)
	if err := validateEntry(entry); err != nil {
		return Posting{}, err
	}
	if err := s.validateReferences(ctx, entry); err != nil {
		return Posting{}, err
	}

	now := s.now().UTC()
	if entry.Name == "" {
		entry.Name = newEntryName()
	}
	if entry.PostingDate == "" {
		entry.PostingDate = now.Format(DateLayout)
	}
	postingDate, err := time.Parse(DateLayout, entry.PostingDate)
	if err != nil {
		return Posting{}, fmt.Errorf("inventory: posting date: %w", err)
	}
	entry.CreatedAt = now

	key := "stock_entry:" + entry.Name
	insertedKey := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "inventory"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Posting{}, fmt.Errorf("%w: %s", ErrAlreadySubmitted, entry.Name)
			}
			return Posting{}, err
		}
		insertedKey = true
	}

	var ledger []LedgerEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ledger = ledger[:0]
		if err := tx.InsertStockEntry(ctx, entry); err != nil {
			return err
		}
		for _, row := range entry.Items {
			rows, err := s.postRow(ctx, tx, entry, postingDate, row)
			if err != nil {
				return err
			}
			ledger = append(ledger, rows...)
		}
		return nil
	})
	if err != nil {
		if insertedKey {
			if derr := s.idempotency.Delete(context.WithoutCancel(ctx), key); derr != nil {
				s.logger.Warn("release idempotency key failed", "voucher", entry.Name, "error", derr)
			}
		}
		return Posting{}, err
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  entry.CreatedBy,
			Action:   "inventory:submit",
			Entity:   "stock_entry",
			EntityID: entry.Name,
			Meta: map[string]any{
				"type":           string(entry.Type),
				"posting_date":   entry.PostingDate,
				"from_warehouse": entry.FromWarehouse,
				"to_warehouse":   entry.ToWarehouse,
				"rows":           len(entry.Items),
			},
			At: now,
		}); err != nil {
			s.logger.Warn("audit stock entry failed", "voucher", entry.Name, "error", err)
		}
	}
	if s.hook != nil {
		if err := s.hook.HandleStockPosted(ctx, postedEvent(entry, postingDate)); err != nil {
			s.logger.Warn("stock posting hook failed", "voucher", entry.Name, "error", err)
		}
	}
	return Posting{Entry: entry, Ledger: ledger}, nil
}

// Get returns a stock entry with its ledger rows.
func (s *Service) Get(ctx context.Context, name string) (Posting, error) {
	entry, err := s.repo.GetStockEntry(ctx, strings.TrimSpace(name))
	if err != nil {
		return Posting{}, err
	}
	ledger, err := s.repo.ListLedgerByVoucher(ctx, VoucherTypeStockEntry, entry.Name)
	if err != nil {
		return Posting{}, err
	}
	return Posting{Entry: entry, Ledger: ledger}, nil
}

// ListBins returns current stock per item and warehouse.
func (s *Service) ListBins(ctx context.Context, filter BinFilter) ([]Bin, error) {
	return s.repo.ListBins(ctx, filter)
}

func (s *Service) postRow(ctx context.Context, tx TxRepository, entry StockEntry, postingDate time.Time, row StockEntryItem) ([]LedgerEntry, error) {
	m := movement{
		PostingDate: postingDate,
		Item:        row.Item,
		VoucherNo:   entry.Name,
	}
	switch entry.Type {
	case EntryTypeReceipt:
		m.Warehouse, m.QtyChange, m.Rate = entry.ToWarehouse, row.Quantity, row.ValuationRate
		in, err := s.postMovement(ctx, tx, m)
		if err != nil {
			return nil, err
		}
		return []LedgerEntry{in}, nil
	case EntryTypeConsume:
		m.Warehouse, m.QtyChange = entry.FromWarehouse, row.Quantity.Neg()
		out, err := s.postMovement(ctx, tx, m)
		if err != nil {
			return nil, err
		}
		return []LedgerEntry{out}, nil
	case EntryTypeTransfer:
		m.Warehouse, m.QtyChange = entry.FromWarehouse, row.Quantity.Neg()
		out, err := s.postMovement(ctx, tx, m)
		if err != nil {
			return nil, err
		}
		m.Warehouse, m.QtyChange, m.Rate = entry.ToWarehouse, row.Quantity, out.ValuationRate
		in, err := s.postMovement(ctx, tx, m)
		if err != nil {
			return nil, err
		}
		return []LedgerEntry{out, in}, nil
	default:
		return nil, fmt.Errorf("inventory: unsupported entry type %q", entry.Type)
	}
}

type movement struct {
	PostingDate time.Time
	Item        string
	Warehouse   string
	QtyChange   decimal.Decimal
	// Rate applies to inbound movements only; outbound uses the bin average.
	Rate      decimal.Decimal
	VoucherNo string
}

func (s *Service) postMovement(ctx context.Context, tx TxRepository, m movement) (LedgerEntry, error) {
	bin, err := tx.GetBinForUpdate(ctx, m.Item, m.Warehouse)
	if err != nil && !errors.Is(err, ErrBinNotFound) {
		return LedgerEntry{}, err
	}
	if errors.Is(err, ErrBinNotFound) {
		bin = Bin{Item: m.Item, Warehouse: m.Warehouse}
	}

	newQty := bin.Qty.Add(m.QtyChange)
	if newQty.IsNegative() && !s.allowNeg {
		return LedgerEntry{}, fmt.Errorf("%w: %s units of %s needed in %s, %s available",
			ErrInsufficientStock, m.QtyChange.Neg().String(), m.Item, m.Warehouse, bin.Qty.String())
	}

	var rate, newAvg decimal.Decimal
	if m.QtyChange.IsPositive() {
		rate = m.Rate
		newAvg = movingAverage(bin, m.QtyChange, rate)
	} else {
		rate = bin.ValuationRate
		newAvg = bin.ValuationRate
		if !newQty.IsPositive() && !s.allowNeg {
			newAvg = decimal.Zero
		}
	}

	bin.Qty = newQty
	bin.ValuationRate = newAvg
	bin.UpdatedAt = s.now().UTC()
	if err := tx.UpsertBin(ctx, bin); err != nil {
		return LedgerEntry{}, err
	}

	entry := LedgerEntry{
		PostingDate:         m.PostingDate,
		Item:                m.Item,
		Warehouse:           m.Warehouse,
		ActualQuantity:      m.QtyChange,
		ValuationRate:       rate,
		QtyAfterTransaction: newQty,
		VoucherType:         VoucherTypeStockEntry,
		VoucherNo:           m.VoucherNo,
	}
	id, err := tx.InsertLedgerEntry(ctx, entry)
	if err != nil {
		return LedgerEntry{}, err
	}
	entry.ID = id
	return entry, nil
}

// movingAverage is (qty*avg + in*rate) / (qty+in). A bin that was empty or
// negative restarts at the incoming rate.
func movingAverage(bin Bin, in, rate decimal.Decimal) decimal.Decimal {
	if !bin.Qty.IsPositive() {
		return rate
	}
	total := bin.Qty.Mul(bin.ValuationRate).Add(in.Mul(rate))
	return total.DivRound(bin.Qty.Add(in), rateScale)
}

func postedEvent(entry StockEntry, postingDate time.Time) StockPostedEvent {
	items := make(map[string]struct{}, len(entry.Items))
	for _, row := range entry.Items {
		items[row.Item] = struct{}{}
	}
	var warehouses []string
	for _, name := range []string{entry.FromWarehouse, entry.ToWarehouse} {
		if name != "" {
			warehouses = append(warehouses, name)
		}
	}
	evt := StockPostedEvent{
		VoucherNo:   entry.Name,
		Type:        entry.Type,
		PostingDate: postingDate,
		Warehouses:  warehouses,
	}
	for item := range items {
		evt.Items = append(evt.Items, item)
	}
	sort.Strings(evt.Items)
	return evt
}

func newEntryName() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "STE-" + id[:10]
}
