package reports

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xwms/xwms/internal/platform/httpx"
	"github.com/xwms/xwms/internal/reportfilter"
)

// ErrUnknownReport is returned for names without a registered report.
var ErrUnknownReport = fmt.Errorf("%w: unknown report", httpx.ErrNotFound)

// Row is one output record keyed by column fieldname. Numbers are float64,
// dates are YYYY-MM-DD strings.
type Row map[string]any

// Result is a fully executed report.
type Result struct {
	Report      string              `json:"report"`
	Filters     reportfilter.Values `json:"filters"`
	Columns     []Column            `json:"columns"`
	Rows        []Row               `json:"rows"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// FilterField is the JSON rendering of a filter descriptor.
type FilterField struct {
	Fieldname string `json:"fieldname"`
	Label     string `json:"label"`
	Fieldtype string `json:"fieldtype"`
	Options   string `json:"options,omitempty"`
	Default   string `json:"default,omitempty"`
	Reqd      int    `json:"reqd"`
}

// FilterSet describes the inputs of a report.
type FilterSet struct {
	Report  string        `json:"report"`
	Filters []FilterField `json:"filters"`
}

// BalanceQuery parameterises the stock balance query.
type BalanceQuery struct {
	PostingDate time.Time
	Item        string
	Warehouse   string
}

// LedgerQuery parameterises the stock ledger query. Zero dates are open.
type LedgerQuery struct {
	From      time.Time
	To        time.Time
	Item      string
	Warehouse string
}

// BalanceRow aggregates ledger rows of one item in one warehouse.
type BalanceRow struct {
	Item          string
	Warehouse     string
	Qty           decimal.Decimal
	ValuationRate decimal.Decimal
	StockValue    decimal.Decimal
}

// LedgerRow is one stock ledger movement.
type LedgerRow struct {
	PostingDate    time.Time
	Item           string
	Warehouse      string
	ActualQuantity decimal.Decimal
	ValuationRate  decimal.Decimal
	Value          decimal.Decimal
	VoucherType    string
	VoucherNo      string
}

func (r BalanceRow) row() Row {
	return Row{
		"item":           r.Item,
		"warehouse":      r.Warehouse,
		"qty":            r.Qty.InexactFloat64(),
		"valuation_rate": r.ValuationRate.InexactFloat64(),
		"stock_value":    r.StockValue.InexactFloat64(),
	}
}

func (r LedgerRow) row() Row {
	return Row{
		"posting_date":    r.PostingDate.Format(reportfilter.DateLayout),
		"item":            r.Item,
		"warehouse":       r.Warehouse,
		"actual_quantity": r.ActualQuantity.InexactFloat64(),
		"valuation_rate":  r.ValuationRate.InexactFloat64(),
		"value":           r.Value.InexactFloat64(),
		"voucher_type":    r.VoucherType,
		"voucher_no":      r.VoucherNo,
	}
}
