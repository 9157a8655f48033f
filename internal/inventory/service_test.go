package inventory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xwms/xwms/internal/platform/httpx"
	"github.com/xwms/xwms/internal/shared"
)

type memoryRepo struct {
	entries map[string]StockEntry
	bins    map[string]Bin
	ledger  []LedgerEntry
	nextID  int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{entries: make(map[string]StockEntry), bins: make(map[string]Bin)}
}

func binKey(item, warehouse string) string {
	return fmt.Sprintf("%s::%s", item, warehouse)
}

// WithTx restores the previous state when fn fails.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	bins := make(map[string]Bin, len(r.bins))
	for k, v := range r.bins {
		bins[k] = v
	}
	entries := make(map[string]StockEntry, len(r.entries))
	for k, v := range r.entries {
		entries[k] = v
	}
	ledger, nextID := len(r.ledger), r.nextID
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.bins, r.entries, r.ledger, r.nextID = bins, entries, r.ledger[:ledger], nextID
		return err
	}
	return nil
}

func (r *memoryRepo) GetStockEntry(_ context.Context, name string) (StockEntry, error) {
	entry, ok := r.entries[name]
	if !ok {
		return StockEntry{}, fmt.Errorf("stock entry %s: %w", name, httpx.ErrNotFound)
	}
	return entry, nil
}

func (r *memoryRepo) ListLedgerByVoucher(_ context.Context, voucherType, voucherNo string) ([]LedgerEntry, error) {
	var out []LedgerEntry
	for _, e := range r.ledger {
		if e.VoucherType == voucherType && e.VoucherNo == voucherNo {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListBins(_ context.Context, filter BinFilter) ([]Bin, error) {
	var out []Bin
	for _, b := range r.bins {
		if filter.Item != "" && b.Item != filter.Item {
			continue
		}
		if filter.Warehouse != "" && b.Warehouse != filter.Warehouse {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (tx *memoryTx) InsertStockEntry(_ context.Context, entry StockEntry) error {
	tx.repo.entries[entry.Name] = entry
	return nil
}

func (tx *memoryTx) GetBinForUpdate(_ context.Context, item, warehouse string) (Bin, error) {
	if bin, ok := tx.repo.bins[binKey(item, warehouse)]; ok {
		return bin, nil
	}
	return Bin{Item: item, Warehouse: warehouse}, ErrBinNotFound
}

func (tx *memoryTx) UpsertBin(_ context.Context, bin Bin) error {
	tx.repo.bins[binKey(bin.Item, bin.Warehouse)] = bin
	return nil
}

func (tx *memoryTx) InsertLedgerEntry(_ context.Context, entry LedgerEntry) (int64, error) {
	tx.repo.nextID++
	entry.ID = tx.repo.nextID
	tx.repo.ledger = append(tx.repo.ledger, entry)
	return entry.ID, nil
}

func (r *memoryRepo) bin(item, warehouse string) Bin {
	return r.bins[binKey(item, warehouse)]
}

type memoryIdempotency struct {
	keys      map[string]bool
	deleteErr error
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, _ string) error {
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryIdempotency) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.keys, key)
	return nil
}

// warehouseTree maps warehouse name to its is_group flag.
type warehouseTree map[string]bool

func (t warehouseTree) IsGroup(_ context.Context, name string) (bool, error) {
	group, ok := t[name]
	if !ok {
		return false, fmt.Errorf("warehouse %s: %w", name, httpx.ErrNotFound)
	}
	return group, nil
}

type itemSet map[string]bool

func (s itemSet) Exists(_ context.Context, code string) (bool, error) {
	return s[code], nil
}

type recordingHook struct {
	events []StockPostedEvent
}

func (h *recordingHook) HandleStockPosted(_ context.Context, evt StockPostedEvent) error {
	h.events = append(h.events, evt)
	return nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type fixture struct {
	svc   *Service
	repo  *memoryRepo
	idem  *memoryIdempotency
	hook  *recordingHook
	audit *recordingAudit
}

func newFixture(cfg ServiceConfig) fixture {
	f := fixture{
		repo:  newMemoryRepo(),
		idem:  &memoryIdempotency{keys: map[string]bool{}},
		hook:  &recordingHook{},
		audit: &recordingAudit{},
	}
	f.svc = NewService(f.repo, Deps{
		Audit:       f.audit,
		Idempotency: f.idem,
		Warehouses:  warehouseTree{"All Warehouses": true, "Stores": false, "Finished Goods": false},
		Items:       itemSet{"TV-01": true, "RADIO-02": true},
		Hook:        f.hook,
	}, cfg)
	f.svc.now = func() time.Time { return time.Date(2025, time.May, 16, 10, 0, 0, 0, time.UTC) }
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func receipt(name, warehouse, item, qty, rate string) StockEntry {
	return StockEntry{
		Name:        name,
		Type:        EntryTypeReceipt,
		PostingDate: "2025-05-15",
		ToWarehouse: warehouse,
		Items:       []StockEntryItem{{Item: item, Quantity: dec(qty), ValuationRate: dec(rate)}},
	}
}

func consume(name, warehouse, item, qty string) StockEntry {
	return StockEntry{
		Name:          name,
		Type:          EntryTypeConsume,
		PostingDate:   "2025-05-16",
		FromWarehouse: warehouse,
		Items:         []StockEntryItem{{Item: item, Quantity: dec(qty)}},
	}
}

func TestReceiptThenConsumeUsesMovingAverage(t *testing.T) {
	f := newFixture(ServiceConfig{})
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, receipt("STE-1", "Stores", "TV-01", "10", "100"))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, receipt("STE-2", "Stores", "TV-01", "10", "200"))
	require.NoError(t, err)

	bin := f.repo.bin("TV-01", "Stores")
	assert.True(t, bin.Qty.Equal(dec("20")))
	assert.True(t, bin.ValuationRate.Equal(dec("150")), bin.ValuationRate.String())

	posting, err := f.svc.Submit(ctx, consume("STE-3", "Stores", "TV-01", "5"))
	require.NoError(t, err)
	require.Len(t, posting.Ledger, 1)
	out := posting.Ledger[0]
	assert.True(t, out.ActualQuantity.Equal(dec("-5")))
	assert.True(t, out.ValuationRate.Equal(dec("150")))
	assert.True(t, out.QtyAfterTransaction.Equal(dec("15")))
	assert.Equal(t, VoucherTypeStockEntry, out.VoucherType)
	assert.Equal(t, "STE-3", out.VoucherNo)
}

func TestConsumeMoreThanAvailableFails(t *testing.T) {
	f := newFixture(ServiceConfig{})
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, receipt("STE-1", "Stores", "TV-01", "2", "10000"))
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, consume("STE-2", "Stores", "TV-01", "3"))
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.ErrorIs(t, err, httpx.ErrValidation)

	assert.True(t, f.repo.bin("TV-01", "Stores").Qty.Equal(dec("2")))
	assert.Len(t, f.repo.ledger, 1)
	assert.False(t, f.idem.keys["stock_entry:STE-2"], "failed posting must release its key")
}

func TestConsumeEmptiesBinAndResetsRate(t *testing.T) {
	f := newFixture(ServiceConfig{})
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, receipt("STE-1", "Stores", "TV-01", "4", "25"))
	require.NoError(t, err)
	posting, err := f.svc.Submit(ctx, consume("STE-2", "Stores", "TV-01", "4"))
	require.NoError(t, err)

	assert.True(t, posting.Ledger[0].ValuationRate.Equal(dec("25")))
	bin := f.repo.bin("TV-01", "Stores")
	assert.True(t, bin.Qty.IsZero())
	assert.True(t, bin.ValuationRate.IsZero())
}

func TestAllowNegativeStock(t *testing.T) {
	f := newFixture(ServiceConfig{AllowNegativeStock: true})
	posting, err := f.svc.Submit(context.Background(), consume("STE-1", "Stores", "TV-01", "3"))
	require.NoError(t, err)
	assert.True(t, posting.Ledger[0].QtyAfterTransaction.Equal(dec("-3")))
}

func TestTransferMovesStockAtSourceRate(t *testing.T) {
	f := newFixture(ServiceConfig{})
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, receipt("STE-1", "Stores", "RADIO-02", "3", "10"))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, receipt("STE-2", "Stores", "RADIO-02", "1", "14"))
	require.NoError(t, err)

	posting, err := f.svc.Submit(ctx, StockEntry{
		Name:          "STE-3",
		Type:          EntryTypeTransfer,
		PostingDate:   "2025-05-16",
		FromWarehouse: "Stores",
		ToWarehouse:   "Finished Goods",
		Items:         []StockEntryItem{{Item: "RADIO-02", Quantity: dec("2"), ValuationRate: dec("999")}},
	})
	require.NoError(t, err)
	require.Len(t, posting.Ledger, 2)

	out, in := posting.Ledger[0], posting.Ledger[1]
	assert.Equal(t, "Stores", out.Warehouse)
	assert.True(t, out.ActualQuantity.Equal(dec("-2")))
	assert.Equal(t, "Finished Goods", in.Warehouse)
	assert.True(t, in.ActualQuantity.Equal(dec("2")))
	assert.True(t, in.ValuationRate.Equal(dec("11")), in.ValuationRate.String())
	assert.True(t, out.ValuationRate.Equal(in.ValuationRate))

	assert.True(t, f.repo.bin("RADIO-02", "Stores").Qty.Equal(dec("2")))
	assert.True(t, f.repo.bin("RADIO-02", "Finished Goods").ValuationRate.Equal(dec("11")))
}

func TestSubmitValidation(t *testing.T) {
	cases := map[string]struct {
		entry StockEntry
		want  error
	}{
		"no items": {
			entry: StockEntry{Type: EntryTypeReceipt, ToWarehouse: "Stores"},
			want:  ErrNoItems,
		},
		"zero quantity": {
			entry: receipt("", "Stores", "TV-01", "0", "10"),
			want:  ErrInvalidQuantity,
		},
		"negative rate": {
			entry: receipt("", "Stores", "TV-01", "1", "-1"),
			want:  ErrInvalidRate,
		},
		"receipt with source": {
			entry: func() StockEntry { e := receipt("", "Stores", "TV-01", "1", "1"); e.FromWarehouse = "Finished Goods"; return e }(),
			want:  ErrWarehouseRole,
		},
		"consume without source": {
			entry: consume("", "", "TV-01", "1"),
			want:  ErrWarehouseRole,
		},
		"transfer to itself": {
			entry: StockEntry{Type: EntryTypeTransfer, FromWarehouse: "Stores", ToWarehouse: "Stores",
				Items: []StockEntryItem{{Item: "TV-01", Quantity: dec("1")}}},
			want: ErrWarehouseRole,
		},
		"group warehouse": {
			entry: receipt("", "All Warehouses", "TV-01", "1", "1"),
			want:  ErrGroupWarehouse,
		},
		"unknown warehouse": {
			entry: receipt("", "Nowhere", "TV-01", "1", "1"),
			want:  ErrUnknownReference,
		},
		"unknown item": {
			entry: receipt("", "Stores", "Nonexistent Item", "1", "1"),
			want:  ErrUnknownReference,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(ServiceConfig{})
			_, err := f.svc.Submit(context.Background(), tc.entry)
			require.ErrorIs(t, err, tc.want)
			require.ErrorIs(t, err, httpx.ErrValidation)
			assert.Empty(t, f.repo.ledger)
		})
	}
}

func TestSubmitRejectsUnknownType(t *testing.T) {
	f := newFixture(ServiceConfig{})
	entry := receipt("", "Stores", "TV-01", "1", "1")
	entry.Type = "Scrap"
	_, err := f.svc.Submit(context.Background(), entry)

	var fields shared.FieldErrors
	require.True(t, errors.As(err, &fields))
	assert.Contains(t, fields, "type")
}

func TestSubmitIsIdempotentPerVoucher(t *testing.T) {
	f := newFixture(ServiceConfig{})
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, receipt("STE-1", "Stores", "TV-01", "1", "5"))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, receipt("STE-1", "Stores", "TV-01", "1", "5"))
	require.ErrorIs(t, err, ErrAlreadySubmitted)
	require.ErrorIs(t, err, httpx.ErrConflict)
	assert.True(t, f.repo.bin("TV-01", "Stores").Qty.Equal(dec("1")))
}

func TestSubmitReleasesKeyWhenCallerCanceled(t *testing.T) {
	f := newFixture(ServiceConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Submit(ctx, consume("STE-9", "Stores", "TV-01", "1"))
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.NotContains(t, f.idem.keys, "stock_entry:STE-9")

	_, err = f.svc.Submit(context.Background(), receipt("STE-8", "Stores", "TV-01", "1", "5"))
	require.NoError(t, err)
	_, err = f.svc.Submit(context.Background(), consume("STE-9", "Stores", "TV-01", "1"))
	require.NoError(t, err)
}

func TestSubmitLogsKeyReleaseFailure(t *testing.T) {
	var buf bytes.Buffer
	idem := &memoryIdempotency{keys: map[string]bool{}, deleteErr: errors.New("db gone")}
	svc := NewService(newMemoryRepo(), Deps{
		Idempotency: idem,
		Warehouses:  warehouseTree{"Stores": false},
		Items:       itemSet{"TV-01": true},
		Logger:      slog.New(slog.NewTextHandler(&buf, nil)),
	}, ServiceConfig{})

	_, err := svc.Submit(context.Background(), consume("STE-9", "Stores", "TV-01", "1"))
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, buf.String(), "release idempotency key failed")
	assert.Contains(t, buf.String(), "db gone")
}

func TestSubmitDefaultsAndNotifies(t *testing.T) {
	f := newFixture(ServiceConfig{})
	entry := receipt("", "Stores", "TV-01", "1", "5")
	entry.PostingDate = ""

	posting, err := f.svc.Submit(context.Background(), entry)
	require.NoError(t, err)
	assert.Regexp(t, `^STE-[0-9A-F]{10}$`, posting.Entry.Name)
	assert.Equal(t, "2025-05-16", posting.Entry.PostingDate)

	require.Len(t, f.hook.events, 1)
	evt := f.hook.events[0]
	assert.Equal(t, posting.Entry.Name, evt.VoucherNo)
	assert.Equal(t, []string{"TV-01"}, evt.Items)
	assert.Equal(t, []string{"Stores"}, evt.Warehouses)

	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, "stock_entry", f.audit.logs[0].Entity)
	assert.Equal(t, posting.Entry.Name, f.audit.logs[0].EntityID)
}

func TestGetReturnsEntryWithLedger(t *testing.T) {
	f := newFixture(ServiceConfig{})
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, receipt("STE-1", "Stores", "TV-01", "2", "7"))
	require.NoError(t, err)

	posting, err := f.svc.Get(ctx, "STE-1")
	require.NoError(t, err)
	assert.Equal(t, EntryTypeReceipt, posting.Entry.Type)
	require.Len(t, posting.Ledger, 1)

	_, err = f.svc.Get(ctx, "STE-404")
	require.ErrorIs(t, err, httpx.ErrNotFound)
}
