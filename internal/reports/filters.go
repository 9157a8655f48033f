// Package reports declares the stock query reports and runs them against
// the stock ledger.
package reports

import (
	"github.com/xwms/xwms/internal/reportfilter"
)

// Report names as registered in the filter registry.
const (
	StockBalance = "Stock Balance Report"
	StockLedger  = "Stock Ledger Report"
)

// Link targets used by report filters.
const (
	linkItem      = "Item"
	linkWarehouse = "Warehouse"
)

// StockBalanceFilters lists the inputs of the stock balance report.
func StockBalanceFilters() reportfilter.Report {
	return reportfilter.Report{
		Name: StockBalance,
		Filters: []reportfilter.Descriptor{
			{
				Name:     "posting_date",
				Label:    "Posting Date",
				Type:     reportfilter.FieldTypeDate,
				Default:  reportfilter.Today(),
				Required: true,
			},
			{
				Name:    "item",
				Label:   "Item",
				Type:    reportfilter.FieldTypeLink,
				Options: linkItem,
			},
			{
				Name:    "warehouse",
				Label:   "Warehouse",
				Type:    reportfilter.FieldTypeLink,
				Options: linkWarehouse,
			},
		},
	}
}

// StockLedgerFilters lists the inputs of the stock ledger report.
func StockLedgerFilters() reportfilter.Report {
	return reportfilter.Report{
		Name: StockLedger,
		Filters: []reportfilter.Descriptor{
			{
				Name:    "item",
				Label:   "Item",
				Type:    reportfilter.FieldTypeLink,
				Options: linkItem,
			},
			{
				Name:    "warehouse",
				Label:   "Warehouse",
				Type:    reportfilter.FieldTypeLink,
				Options: linkWarehouse,
			},
			{
				Name:    "from_date",
				Label:   "From Date",
				Type:    reportfilter.FieldTypeDate,
				Default: reportfilter.FirstDayOfPreviousMonth(),
			},
			{
				Name:    "to_date",
				Label:   "To Date",
				Type:    reportfilter.FieldTypeDate,
				Default: reportfilter.Today(),
			},
		},
	}
}

// RegisterFilters registers the filters of every stock report.
func RegisterFilters(reg *reportfilter.Registry) error {
	for _, report := range []reportfilter.Report{StockBalanceFilters(), StockLedgerFilters()} {
		if err := reg.Register(report); err != nil {
			return err
		}
	}
	return nil
}
