package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/xwms/xwms/internal/inventory"
	"github.com/xwms/xwms/internal/reportfilter"
)

// runner executes one report against resolved filter values.
type runner struct {
	columns func() []Column
	check   func(report string, values reportfilter.Values) error
	run     func(ctx context.Context, repo Repository, values reportfilter.Values) ([]Row, error)
}

var runners = map[string]runner{
	StockBalance: {columns: stockBalanceColumns, run: runStockBalance},
	StockLedger:  {columns: stockLedgerColumns, check: checkLedgerRange, run: runStockLedger},
}

// Service resolves report filters and executes reports.
type Service struct {
	registry *reportfilter.Registry
	repo     Repository
	links    reportfilter.LinkResolver
	cache    *Cache
	logger   *slog.Logger
	group    singleflight.Group
	now      func() time.Time
}

// NewService wires the service. links and cache may be nil.
func NewService(registry *reportfilter.Registry, repo Repository, links reportfilter.LinkResolver, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		registry: registry,
		repo:     repo,
		links:    links,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
}

// Reports lists registered report names that can be executed.
func (s *Service) Reports() []string {
	var out []string
	for _, name := range s.registry.Names() {
		if _, ok := runners[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func (s *Service) lookup(name string) (reportfilter.Report, runner, error) {
	report, ok := s.registry.Get(name)
	if !ok {
		return reportfilter.Report{}, runner{}, fmt.Errorf("%w: %s", ErrUnknownReport, name)
	}
	r, ok := runners[name]
	if !ok {
		return reportfilter.Report{}, runner{}, fmt.Errorf("%w: %s has no data source", ErrUnknownReport, name)
	}
	return report, r, nil
}

// Describe returns the registered filter declaration of a report.
func (s *Service) Describe(name string) (reportfilter.Report, error) {
	report, _, err := s.lookup(name)
	return report, err
}

// Filters describes the inputs of a report with defaults resolved now.
func (s *Service) Filters(name string) (FilterSet, error) {
	report, _, err := s.lookup(name)
	if err != nil {
		return FilterSet{}, err
	}
	defaults := report.Defaults(s.now())
	set := FilterSet{Report: report.Name, Filters: make([]FilterField, 0, len(report.Filters))}
	for _, d := range report.Filters {
		field := FilterField{
			Fieldname: d.Name,
			Label:     d.Label,
			Fieldtype: string(d.Type),
			Options:   d.Options,
			Default:   defaults[d.Name],
		}
		if d.Required {
			field.Reqd = 1
		}
		set.Filters = append(set.Filters, field)
	}
	return set, nil
}

// Run resolves raw filter values and executes the report. Results are
// served from the cache while the stock ledger is unchanged.
func (s *Service) Run(ctx context.Context, name string, raw map[string]string) (Result, error) {
	report, r, err := s.lookup(name)
	if err != nil {
		return Result{}, err
	}
	now := s.now()
	values, err := report.Resolve(ctx, raw, now, s.links)
	if err != nil {
		return Result{}, err
	}
	if r.check != nil {
		if err := r.check(report.Name, values); err != nil {
			return Result{}, err
		}
	}

	key, err := s.cache.BuildKey(ctx, report.Name, values.Key(report))
	if err != nil {
		s.logger.Warn("report cache unavailable", "report", report.Name, "error", err)
		return s.execute(ctx, report, r, values, now)
	}

	ch := s.group.DoChan(key, func() (any, error) {
		// Shared by every caller waiting on key, so it must outlive the
		// request that started it.
		sctx := context.WithoutCancel(ctx)
		var result Result
		err := s.cache.FetchJSON(sctx, key, &result, func(ctx context.Context) (any, error) {
			return s.execute(ctx, report, r, values, now)
		})
		return result, err
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Result{}, res.Err
		}
		return res.Val.(Result), nil
	}
}

func (s *Service) execute(ctx context.Context, report reportfilter.Report, r runner, values reportfilter.Values, now time.Time) (Result, error) {
	rows, err := r.run(ctx, s.repo, values)
	if err != nil {
		return Result{}, fmt.Errorf("reports: run %s: %w", report.Name, err)
	}
	if rows == nil {
		rows = []Row{}
	}
	return Result{
		Report:      report.Name,
		Filters:     values,
		Columns:     r.columns(),
		Rows:        rows,
		GeneratedAt: now.UTC(),
	}, nil
}

// Warm runs a report with its default filters so the first request after
// a ledger change is served from the cache. It returns the row count.
func (s *Service) Warm(ctx context.Context, name string) (int, error) {
	result, err := s.Run(ctx, name, nil)
	if err != nil {
		return 0, err
	}
	return len(result.Rows), nil
}

// HandleStockPosted invalidates cached results after a ledger posting.
func (s *Service) HandleStockPosted(ctx context.Context, evt inventory.StockPostedEvent) error {
	if err := s.cache.Bump(ctx); err != nil {
		return fmt.Errorf("reports: bump cache after %s: %w", evt.VoucherNo, err)
	}
	return nil
}

func runStockBalance(ctx context.Context, repo Repository, values reportfilter.Values) ([]Row, error) {
	q := BalanceQuery{Item: values.String("item"), Warehouse: values.String("warehouse")}
	q.PostingDate, _ = values.Date("posting_date")
	data, err := repo.StockBalance(ctx, q)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(data))
	for _, d := range data {
		rows = append(rows, d.row())
	}
	return rows, nil
}

func runStockLedger(ctx context.Context, repo Repository, values reportfilter.Values) ([]Row, error) {
	q := LedgerQuery{Item: values.String("item"), Warehouse: values.String("warehouse")}
	q.From, _ = values.Date("from_date")
	q.To, _ = values.Date("to_date")
	data, err := repo.StockLedger(ctx, q)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(data))
	for _, d := range data {
		rows = append(rows, d.row())
	}
	return rows, nil
}

func checkLedgerRange(report string, values reportfilter.Values) error {
	from, okFrom := values.Date("from_date")
	to, okTo := values.Date("to_date")
	if okFrom && okTo && from.After(to) {
		verr := &reportfilter.ValidationError{Report: report}
		verr.Add("to_date", "To Date cannot be before From Date")
		return verr
	}
	return nil
}
