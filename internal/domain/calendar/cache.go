package calendar

import (
	"context"
	"time"
)

// YearCache memoizes year indexes keyed by a query fingerprint.
type YearCache interface {
	GetYears(ctx context.Context, key string) ([]int, bool, error)
	PutYears(ctx context.Context, key string, years []int, ttl time.Duration) error
}
