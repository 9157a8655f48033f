package inventory

import (
	"context"
	"errors"
)

// PostingHook receives stock postings, e.g. to invalidate report caches.
type PostingHook interface {
	HandleStockPosted(ctx context.Context, evt StockPostedEvent) error
}

// PostingHooks fans a posting out to every hook in order. All hooks run even
// when an earlier one fails; the failures are joined.
type PostingHooks []PostingHook

// HandleStockPosted implements PostingHook.
func (hooks PostingHooks) HandleStockPosted(ctx context.Context, evt StockPostedEvent) error {
	var errs []error
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		if err := hook.HandleStockPosted(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
