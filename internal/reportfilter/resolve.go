package reportfilter

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidFilters is wrapped by ValidationError.
var ErrInvalidFilters = errors.New("reportfilter: invalid filters")

// ValidationError lists per-filter problems found while resolving values.
type ValidationError struct {
	Report string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("%s: %s", e.Report, strings.Join(parts, "; "))
}

// Unwrap lets errors.Is match ErrInvalidFilters.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidFilters
}

// Add records a problem for field, keeping the first message.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// LinkResolver reports whether an instance of target named value exists.
type LinkResolver interface {
	LinkExists(ctx context.Context, target, value string) (bool, error)
}

// Values is a resolved parameter set keyed by filter name.
type Values map[string]string

// String returns the value or "" when unset.
func (v Values) String(name string) string {
	return v[name]
}

// Date parses a Date value. ok is false when the value is unset.
func (v Values) Date(name string) (time.Time, bool) {
	raw, present := v[name]
	if !present || raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Key renders the values in report order, suitable for cache keys. Names and
// values are query-escaped so a value containing '&' or '=' cannot collide
// with a different set of values.
func (v Values) Key(report Report) string {
	parts := make([]string, 0, len(report.Filters))
	for _, d := range report.Filters {
		parts = append(parts, url.QueryEscape(d.Name)+"="+url.QueryEscape(v[d.Name]))
	}
	return strings.Join(parts, "&")
}

// Resolve merges raw over the declared defaults and validates the result.
// Keys in raw that the report does not declare are dropped. links may be nil,
// in which case Link values are accepted as given.
func (r Report) Resolve(ctx context.Context, raw map[string]string, now time.Time, links LinkResolver) (Values, error) {
	values := r.Defaults(now)
	for _, d := range r.Filters {
		if v := strings.TrimSpace(raw[d.Name]); v != "" {
			values[d.Name] = v
		}
	}

	verr := &ValidationError{Report: r.Name}
	for _, d := range r.Filters {
		value := values[d.Name]
		if value == "" {
			delete(values, d.Name)
			if d.Required {
				verr.Add(d.Name, d.label()+" is required")
			}
			continue
		}
		switch d.Type {
		case FieldTypeDate:
			if _, err := time.Parse(DateLayout, value); err != nil {
				verr.Add(d.Name, d.label()+" must be a date (YYYY-MM-DD)")
			}
		case FieldTypeCheck:
			if value != "0" && value != "1" {
				verr.Add(d.Name, d.label()+" must be 0 or 1")
			}
		case FieldTypeFloat:
			if _, err := decimal.NewFromString(value); err != nil {
				verr.Add(d.Name, d.label()+" must be a number")
			}
		case FieldTypeSelect:
			if !slices.Contains(d.choices(), value) {
				verr.Add(d.Name, d.label()+" is not a valid option")
			}
		case FieldTypeLink:
			if links == nil {
				continue
			}
			ok, err := links.LinkExists(ctx, d.Options, value)
			if err != nil {
				return nil, fmt.Errorf("reportfilter: resolve %s.%s: %w", r.Name, d.Name, err)
			}
			if !ok {
				verr.Add(d.Name, fmt.Sprintf("%s %s not found", d.Options, value))
			}
		}
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}
	return values, nil
}

// FieldMap exposes the per-filter messages.
func (e *ValidationError) FieldMap() map[string]string {
	return e.Fields
}
