package items

import "time"

// Item is a stock keeping unit. ValuationRate is always stored as zero: the
// rate of stock on hand comes from the ledger, not from the item master.
type Item struct {
	Code          string    `json:"code" validate:"required,max=140"`
	ItemName      string    `json:"item_name" validate:"required,max=140"`
	Unit          string    `json:"unit" validate:"required,max=40"`
	ValuationRate float64   `json:"valuation_rate"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
