package probe

import (
	"context"
	"net/http"
	"time"

	"github.com/linkmark/linkmark/internal/domain"
)

type HTTPChecker struct {
	Client *http.Client
}

func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	return &HTTPChecker{
		Client: &http.Client{Timeout: timeout},
	}
}

// Check issues one HEAD request against target. Classification, first match
// wins:
//
//  1. response with 2xx            -> HEALTHY, code recorded
//  2. response with anything else  -> DEAD, code recorded
//  3. transport-level failure      -> TIMEOUT (timeout, refused, DNS failure)
//  4. anything before the request  -> DEAD, no code
func (h *HTTPChecker) Check(ctx context.Context, target string) Outcome {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return Outcome{Status: domain.StatusDead, ResponseTimeMS: elapsedMS(start)}
	}

	resp, err := h.Client.Do(req)
	elapsed := elapsedMS(start)
	if err != nil {
		return Outcome{Status: domain.StatusTimeout, ResponseTimeMS: elapsed}
	}
	defer resp.Body.Close()

	code := resp.StatusCode
	status := domain.StatusDead
	if code >= 200 && code < 300 {
		status = domain.StatusHealthy
	}
	return Outcome{Status: status, HTTPStatus: &code, ResponseTimeMS: elapsed}
}

func elapsedMS(start time.Time) int64 {
	ms := time.Since(start).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}
