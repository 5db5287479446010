// Package pagination implements range-based fetching of large result
// sets in fixed-size pages.
package pagination

import (
	"context"

	"github.com/pkg/errors"
)

// DefaultPageSize is the number of rows requested per page.
const DefaultPageSize = 1000

// PageFunc fetches one page of rows starting at offset. Implementations
// return fewer than limit rows on the final page.
type PageFunc[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// FetchAll pulls every page until a short page signals the end of the
// result set. Any page error aborts the fetch.
func FetchAll[T any](ctx context.Context, pageSize int, fetch PageFunc[T]) ([]T, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var all []T
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := fetch(ctx, offset, pageSize)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch page at offset %d", offset)
		}

		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
		offset += pageSize
	}
}
