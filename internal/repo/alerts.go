package repo

import (
	"context"
	"time"

	"github.com/linkmark/linkmark/internal/domain"
)

// AlertRecord holds the last health state we notified about for a bookmark.
// LastSentAt is the last time a notification went out (used for cooldown).
type AlertRecord struct {
	BookmarkID domain.BookmarkID
	LastStatus domain.CheckStatus
	LastSentAt *time.Time
}

// AlertStore persists alert state between poller passes.
type AlertStore interface {
	// AlertState returns nil, nil if there's no record yet.
	AlertState(ctx context.Context, id domain.BookmarkID) (*AlertRecord, error)
	// SetAlertState upserts the record. A zero sentAt keeps the previous send
	// time, so cooldown tracking survives state-only updates.
	SetAlertState(ctx context.Context, id domain.BookmarkID, status domain.CheckStatus, sentAt time.Time) error
}
