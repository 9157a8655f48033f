package reports

// Column describes one output column of a report.
type Column struct {
	Label     string `json:"label"`
	Fieldname string `json:"fieldname"`
	Fieldtype string `json:"fieldtype"`
	Options   string `json:"options,omitempty"`
	Width     int    `json:"width"`
}

// Column field types.
const (
	FieldData        = "Data"
	FieldDate        = "Date"
	FieldLink        = "Link"
	FieldDynamicLink = "Dynamic Link"
	FieldFloat       = "Float"
	FieldCurrency    = "Currency"
)

func stockBalanceColumns() []Column {
	return []Column{
		{Label: "Item", Fieldname: "item", Fieldtype: FieldLink, Options: linkItem, Width: 150},
		{Label: "Warehouse", Fieldname: "warehouse", Fieldtype: FieldLink, Options: linkWarehouse, Width: 120},
		{Label: "Quantity", Fieldname: "qty", Fieldtype: FieldFloat, Width: 120},
		{Label: "Valuation Rate", Fieldname: "valuation_rate", Fieldtype: FieldCurrency, Width: 150},
		{Label: "Stock Value", Fieldname: "stock_value", Fieldtype: FieldCurrency, Width: 150},
	}
}

func stockLedgerColumns() []Column {
	return []Column{
		{Label: "Posting Date", Fieldname: "posting_date", Fieldtype: FieldDate, Width: 100},
		{Label: "Item", Fieldname: "item", Fieldtype: FieldLink, Options: linkItem, Width: 150},
		{Label: "Warehouse", Fieldname: "warehouse", Fieldtype: FieldLink, Options: linkWarehouse, Width: 150},
		{Label: "Actual Quantity", Fieldname: "actual_quantity", Fieldtype: FieldFloat, Width: 100},
		{Label: "Valuation Rate", Fieldname: "valuation_rate", Fieldtype: FieldCurrency, Width: 120},
		{Label: "Value", Fieldname: "value", Fieldtype: FieldCurrency, Width: 120},
		{Label: "Voucher Type", Fieldname: "voucher_type", Fieldtype: FieldData, Width: 120},
		{Label: "Voucher No", Fieldname: "voucher_no", Fieldtype: FieldDynamicLink, Options: "voucher_type", Width: 120},
	}
}
