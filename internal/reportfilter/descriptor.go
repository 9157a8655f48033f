// Package reportfilter describes the input controls of query reports and
// resolves user supplied values against them.
package reportfilter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DateLayout is the wire format of Date filter values.
const DateLayout = "2006-01-02"

// FieldType selects the control and validation applied to a filter value.
type FieldType string

const (
	// FieldTypeDate holds a calendar date in DateLayout.
	FieldTypeDate FieldType = "Date"
	// FieldTypeLink names an instance of another entity type.
	FieldTypeLink FieldType = "Link"
	// FieldTypeData is free text.
	FieldTypeData FieldType = "Data"
	// FieldTypeSelect is one of the newline separated options.
	FieldTypeSelect FieldType = "Select"
	// FieldTypeCheck is a 0/1 flag.
	FieldTypeCheck FieldType = "Check"
	// FieldTypeFloat is a decimal number.
	FieldTypeFloat FieldType = "Float"
)

func (t FieldType) valid() bool {
	switch t {
	case FieldTypeDate, FieldTypeLink, FieldTypeData, FieldTypeSelect, FieldTypeCheck, FieldTypeFloat:
		return true
	}
	return false
}

// Descriptor declares one report input control.
type Descriptor struct {
	Name     string
	Label    string
	Type     FieldType
	Options  string
	Default  Default
	Required bool
}

// Report is the ordered filter list of a named report.
type Report struct {
	Name    string
	Filters []Descriptor
}

// ErrInvalidReport is returned when a report declaration is malformed.
var ErrInvalidReport = errors.New("reportfilter: invalid report")

// Validate checks the declaration before registration.
func (r Report) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name required", ErrInvalidReport)
	}
	seen := make(map[string]struct{}, len(r.Filters))
	for i, d := range r.Filters {
		if strings.TrimSpace(d.Name) == "" {
			return fmt.Errorf("%w: %s filter #%d has no name", ErrInvalidReport, r.Name, i)
		}
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("%w: %s declares %q twice", ErrInvalidReport, r.Name, d.Name)
		}
		seen[d.Name] = struct{}{}
		if !d.Type.valid() {
			return fmt.Errorf("%w: %s.%s has unknown type %q", ErrInvalidReport, r.Name, d.Name, d.Type)
		}
		switch d.Type {
		case FieldTypeLink:
			if strings.TrimSpace(d.Options) == "" {
				return fmt.Errorf("%w: %s.%s links to nothing", ErrInvalidReport, r.Name, d.Name)
			}
		case FieldTypeSelect:
			if len(d.choices()) == 0 {
				return fmt.Errorf("%w: %s.%s has no options", ErrInvalidReport, r.Name, d.Name)
			}
		}
		if lit, ok := d.Default.(literal); ok && d.Type == FieldTypeDate {
			if _, err := time.Parse(DateLayout, string(lit)); err != nil {
				return fmt.Errorf("%w: %s.%s default %q is not a date", ErrInvalidReport, r.Name, d.Name, string(lit))
			}
		}
	}
	return nil
}

// Lookup returns the descriptor with the given name.
func (r Report) Lookup(name string) (Descriptor, bool) {
	for _, d := range r.Filters {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Defaults resolves every declared default at now, keyed by filter name.
// Filters without a default are omitted.
func (r Report) Defaults(now time.Time) Values {
	values := make(Values, len(r.Filters))
	for _, d := range r.Filters {
		if d.Default == nil {
			continue
		}
		values[d.Name] = d.Default.Resolve(now)
	}
	return values
}

func (d Descriptor) choices() []string {
	var out []string
	for _, opt := range strings.Split(d.Options, "\n") {
		if opt = strings.TrimSpace(opt); opt != "" {
			out = append(out, opt)
		}
	}
	return out
}

func (r Report) clone() Report {
	filters := make([]Descriptor, len(r.Filters))
	copy(filters, r.Filters)
	for i := range filters {
		filters[i].Label = filters[i].label()
	}
	return Report{Name: r.Name, Filters: filters}
}

// labelFor derives "Posting Date" from "posting_date".
func labelFor(name string) string {
	caser := cases.Title(language.English)
	return caser.String(strings.ReplaceAll(name, "_", " "))
}

func (d Descriptor) label() string {
	if d.Label != "" {
		return d.Label
	}
	return labelFor(d.Name)
}
