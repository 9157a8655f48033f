package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/xwms/xwms/internal/reportfilter"
)

// WriteCSV serialises a result with one header record of column labels.
func WriteCSV(w io.Writer, result Result) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := make([]string, len(result.Columns))
	for i, col := range result.Columns {
		header[i] = col.Label
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range result.Rows {
		record := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			record[i] = formatCell(col, row[col.Fieldname])
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatCell(col Column, v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if col.Fieldtype == FieldCurrency {
			return strconv.FormatFloat(val, 'f', 2, 64)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

var tableTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"cell":     formatCell,
	"isNumber": isNumber,
}).Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Report}}</title>
<style>
body { font-family: sans-serif; font-size: 11px; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 4px 6px; }
td.num { text-align: right; }
</style></head>
<body>
<h1>{{.Report}}</h1>
<p>{{range $i, $f := .Filters}}{{if $i}} · {{end}}{{$f.Name}}: {{$f.Value}}{{end}}</p>
<table>
<thead><tr>{{range .Columns}}<th style="width: {{.Width}}px">{{.Label}}</th>{{end}}</tr></thead>
<tbody>
{{range $row := .Rows}}<tr>{{range $col := $.Columns}}<td{{if isNumber $col}} class="num"{{end}}>{{cell $col (index $row $col.Fieldname)}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
</body></html>`))

type filterPair struct {
	Name  string
	Value string
}

type tableView struct {
	Report  string
	Filters []filterPair
	Columns []Column
	Rows    []Row
}

func isNumber(col Column) bool {
	return col.Fieldtype == FieldFloat || col.Fieldtype == FieldCurrency
}

// RenderHTML lays a result out as a printable HTML table headed by the
// applied filters in declaration order.
func RenderHTML(result Result, report reportfilter.Report) (string, error) {
	view := tableView{Report: result.Report, Columns: result.Columns, Rows: result.Rows}
	for _, d := range report.Filters {
		if v := result.Filters.String(d.Name); v != "" {
			view.Filters = append(view.Filters, filterPair{Name: d.Label, Value: v})
		}
	}
	var buf bytes.Buffer
	if err := tableTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// PDFRenderer converts HTML to PDF; *report.Client implements it.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}
