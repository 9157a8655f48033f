package inventory

import "time"

// StockPostedEvent describes a submitted stock entry.
type StockPostedEvent struct {
	VoucherNo   string
	Type        EntryType
	PostingDate time.Time
	Items       []string
	Warehouses  []string
}
