package reportfilter

import (
	"sort"
	"sync"
)

// Registry maps report names to their filter declarations. It is safe for
// concurrent use; entries are copied in and out so callers cannot mutate a
// registered declaration.
type Registry struct {
	mu      sync.RWMutex
	reports map[string]Report
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{reports: make(map[string]Report)}
}

// Register validates and stores the report. Registering a name again
// replaces the previous declaration.
func (r *Registry) Register(report Report) error {
	if err := report.Validate(); err != nil {
		return err
	}
	stored := report.clone()
	r.mu.Lock()
	r.reports[stored.Name] = stored
	r.mu.Unlock()
	return nil
}

// MustRegister registers each report and panics on the first invalid one.
func (r *Registry) MustRegister(reports ...Report) {
	for _, report := range reports {
		if err := r.Register(report); err != nil {
			panic(err)
		}
	}
}

// Get returns a copy of the named report.
func (r *Registry) Get(name string) (Report, bool) {
	r.mu.RLock()
	report, ok := r.reports[name]
	r.mu.RUnlock()
	if !ok {
		return Report{}, false
	}
	return report.clone(), true
}

// Names lists registered report names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.reports))
	for name := range r.reports {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}
