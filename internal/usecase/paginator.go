package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/xavierca1/salesops-sync/internal/infra/integration/kommo"
	"github.com/xavierca1/salesops-sync/internal/infra/logging"
)

// RetryPolicy is the page-level retry applied on top of the client's own retries.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration

	// Sleep waits between attempts; nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

var DefaultPageRetry = RetryPolicy{Attempts: 3, Delay: 5 * time.Second}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// PageFunc fetches one 1-based page.
type PageFunc[T any] func(ctx context.Context, page int) ([]T, error)

// FetchWithRetry fetches one page, retrying transient failures up to
// policy.Attempts times. Permanent errors are returned on the first failure.
func FetchWithRetry[T any](ctx context.Context, policy RetryPolicy, label string, page int, fetch PageFunc[T]) ([]T, error) {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		items, err := fetch(ctx, page)
		if err == nil {
			return items, nil
		}
		lastErr = err

		if !kommo.IsRetryable(err) {
			return nil, fmt.Errorf("%s page %d: %w", label, page, err)
		}
		if attempt == attempts {
			break
		}

		logging.Ctx(ctx).Warn().
			Err(err).
			Str("resource", label).
			Int("page", page).
			Int("attempt", attempt).
			Msgf("⚠️ Page fetch failed, retrying %d/%d in %s", attempt, attempts-1, policy.Delay)

		if err := policy.sleep(ctx, policy.Delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%s page %d failed after %d attempts: %w", label, page, attempts, lastErr)
}

// Paginate walks pages 1..n until the provider returns an empty page, handing
// every non-empty page to handle. It returns the number of non-empty pages.
func Paginate[T any](ctx context.Context, policy RetryPolicy, label string, fetch PageFunc[T], handle func(page int, items []T) error) (int, error) {
	pages := 0
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return pages, err
		}

		items, err := FetchWithRetry(ctx, policy, label, page, fetch)
		if err != nil {
			return pages, err
		}
		if len(items) == 0 {
			return pages, nil
		}

		pages++
		if err := handle(page, items); err != nil {
			return pages, err
		}
	}
}
