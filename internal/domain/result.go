package domain

import "time"

// CheckStatus classifies the outcome of one link-health probe.
type CheckStatus string

const (
	StatusHealthy CheckStatus = "HEALTHY"
	StatusDead    CheckStatus = "DEAD"
	StatusTimeout CheckStatus = "TIMEOUT"
)

// CheckResult is one probe outcome for one bookmark. Results are append-only:
// every probe produces a fresh row, and the current health of a bookmark is
// the row with the greatest CheckedAt.
type CheckResult struct {
	ID             int64       `json:"id"`
	BookmarkID     BookmarkID  `json:"bookmark_id"`
	Status         CheckStatus `json:"status"`
	HTTPStatus     *int        `json:"http_status"` // nil when no response was received
	ResponseTimeMS int64       `json:"response_time_ms"`
	CheckedAt      time.Time   `json:"checked_at"`
	CreatedAt      time.Time   `json:"created_at"`
}
