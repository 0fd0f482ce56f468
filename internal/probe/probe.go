package probe

import (
	"context"

	"github.com/linkmark/linkmark/internal/domain"
)

// Outcome is the classified result of a single probe attempt.
//
// HTTPStatus is set only when a response came back (HEALTHY, or DEAD from a
// non-2xx response). ResponseTimeMS is always measured, success or failure.
type Outcome struct {
	Status         domain.CheckStatus
	HTTPStatus     *int
	ResponseTimeMS int64
}

// Checker performs a single check for a given bookmark URL.
type Checker interface {
	Check(ctx context.Context, target string) Outcome
}
