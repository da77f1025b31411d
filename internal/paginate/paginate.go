// ABOUTME: Bounded cursor-driven pagination and aggregation over rate-limited list APIs.
// ABOUTME: Supports early-exit exact search, substring filtering, and time/count budgets.

package paginate

import (
	"context"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// MaxLimit is the largest record count a single collect call will target.
const MaxLimit = 200

// DefaultBudget bounds a collect call's wall-clock time when the caller does
// not supply one.
const DefaultBudget = 15 * time.Second

// Page is one page of upstream records plus its continuation cursor. An
// empty NextCursor signals the final page.
type Page[R any] struct {
	Records    []R
	NextCursor string
}

// FetchFunc retrieves a single page from the upstream. The cursor is opaque
// and must only ever be forwarded back to the endpoint that issued it.
type FetchFunc[R any] func(ctx context.Context, cursor string, limit int) (Page[R], error)

// Request describes one collect call.
type Request struct {
	// Limit is the target number of collected records, clamped to [1,MaxLimit].
	Limit int

	// Cursor resumes a previous enumeration.
	Cursor string

	// Budget bounds wall-clock time across all page fetches.
	Budget time.Duration

	// ExactQuery short-circuits the enumeration: the first record whose
	// normalized key equals it (case-insensitive) is returned alone.
	ExactQuery string

	// SubstringQuery keeps only records whose normalized key contains it
	// (case-insensitive).
	SubstringQuery string
}

// Policy fixes the per-record behavior of a collect call: how records are
// keyed for search, which ones are eligible at all, and how they are
// projected for output.
type Policy[R, P any] struct {
	// Key extracts the normalized search key of a record.
	Key func(R) string

	// Keep is the liveness predicate applied before any query filtering.
	// Nil keeps every record.
	Keep func(R) bool

	// Project converts a kept record to its public projection. Results never
	// carry the raw upstream record.
	Project func(R) P

	// SinglePageWithoutQuery stops after one page when the request has no
	// exact or substring query. Used by channel listing to keep the
	// no-query default cheap.
	SinglePageWithoutQuery bool

	// IsThrottle classifies an upstream error as a rate-limit signal, which
	// truncates the enumeration gracefully instead of failing it.
	IsThrottle func(error) bool

	// Clock is injectable for tests. Nil means the real clock.
	Clock clockwork.Clock
}

// Result is the outcome of a collect call. NextCursor is set only when the
// enumeration stopped for a reason other than cursor exhaustion.
type Result[P any] struct {
	Items      []P
	NextCursor string
}

// Collect drives fetch across pages under the request's limit and time
// budget.
//
// A rate-limited page truncates the enumeration: whatever was collected so
// far is returned together with the cursor that would retry the throttled
// page. Any other fetch error discards the partial accumulation and fails
// the whole call, so callers never see a result with an inconsistent
// cursor. Empty pages do not terminate the loop as long as a cursor and
// budget remain.
func Collect[R, P any](ctx context.Context, fetch FetchFunc[R], req Request, pol Policy[R, P]) (*Result[P], error) {
	limit := req.Limit
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	budget := req.Budget
	if budget <= 0 {
		budget = DefaultBudget
	}

	clock := pol.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	exact := strings.ToLower(req.ExactQuery)
	substr := strings.ToLower(req.SubstringQuery)
	hasQuery := exact != "" || substr != ""

	start := clock.Now()
	cursor := req.Cursor
	var collected []P

	for {
		page, err := fetch(ctx, cursor, limit)
		if err != nil {
			if pol.IsThrottle != nil && pol.IsThrottle(err) {
				// Partial result; cursor still points at the throttled page.
				return &Result[P]{Items: collected, NextCursor: cursor}, nil
			}
			return nil, err
		}

		for _, rec := range page.Records {
			if pol.Keep != nil && !pol.Keep(rec) {
				continue
			}

			key := strings.ToLower(pol.Key(rec))

			if exact != "" && key == exact {
				return &Result[P]{Items: []P{pol.Project(rec)}}, nil
			}

			if substr != "" && !strings.Contains(key, substr) {
				continue
			}

			collected = append(collected, pol.Project(rec))
		}

		cursor = page.NextCursor

		if cursor == "" {
			return &Result[P]{Items: capped(collected, limit)}, nil
		}
		if len(collected) >= limit {
			return &Result[P]{Items: capped(collected, limit), NextCursor: cursor}, nil
		}
		if clock.Now().Sub(start) >= budget {
			return &Result[P]{Items: capped(collected, limit), NextCursor: cursor}, nil
		}
		if pol.SinglePageWithoutQuery && !hasQuery {
			return &Result[P]{Items: capped(collected, limit), NextCursor: cursor}, nil
		}
	}
}

// capped hard-caps the collected items at the effective limit.
func capped[P any](items []P, limit int) []P {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
