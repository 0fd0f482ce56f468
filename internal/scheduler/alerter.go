package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/linkmark/linkmark/internal/domain"
	"github.com/linkmark/linkmark/internal/notify"
	"github.com/linkmark/linkmark/internal/repo"
)

type AlerterConfig struct {
	AlertOnRecovery bool
	Cooldown        time.Duration
	PollInterval    time.Duration
}

// Alerter polls each active bookmark's latest check result and notifies when
// its health state transitions. Cooldown suppresses repeated dead-link noise.
type Alerter struct {
	log       *zap.Logger
	bookmarks repo.BookmarkStore
	results   repo.ResultStore
	alertDB   repo.AlertStore
	notifier  notify.Notifier
	cfg       AlerterConfig
}

func NewAlerter(
	log *zap.Logger,
	bookmarks repo.BookmarkStore,
	results repo.ResultStore,
	alertDB repo.AlertStore,
	notifier notify.Notifier,
	cfg AlerterConfig,
) *Alerter {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Minute
	}
	return &Alerter{
		log:       log,
		bookmarks: bookmarks,
		results:   results,
		alertDB:   alertDB,
		notifier:  notifier,
		cfg:       cfg,
	}
}

func (a *Alerter) Run(ctx context.Context) error {
	t := time.NewTicker(a.cfg.PollInterval)
	defer t.Stop()

	// initial pass
	_ = a.scanOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			_ = a.scanOnce(ctx)
		}
	}
}

func (a *Alerter) scanOnce(ctx context.Context) error {
	bms, err := a.bookmarks.ActiveBookmarks(ctx)
	if err != nil {
		a.log.Warn("alerter_list_error", zap.Error(err))
		return err
	}

	now := time.Now()

	for _, bm := range bms {
		cr, err := a.results.LastResultByBookmark(ctx, bm.ID)
		if err != nil {
			// never checked, or a transient store error: nothing to compare
			continue
		}

		rec, _ := a.alertDB.AlertState(ctx, bm.ID)

		stateChanged := rec == nil || rec.LastStatus != cr.Status
		healthy := cr.Status == domain.StatusHealthy

		// Cooldown only suppresses repeated dead-link alerts.
		cooled := true
		if rec != nil && rec.LastSentAt != nil {
			cooled = now.Sub(*rec.LastSentAt) >= a.cfg.Cooldown
		}

		deadAlert := stateChanged && !healthy && cooled
		recoveryAlert := stateChanged && healthy && rec != nil && a.cfg.AlertOnRecovery

		if deadAlert || recoveryAlert {
			title := "Link DEAD: " + bm.Title
			if cr.Status == domain.StatusTimeout {
				title = "Link TIMEOUT: " + bm.Title
			} else if healthy {
				title = "Link recovered: " + bm.Title
			}

			httpTxt := "n/a"
			if cr.HTTPStatus != nil {
				httpTxt = fmt.Sprintf("%d", *cr.HTTPStatus)
			}
			text := fmt.Sprintf(
				"URL: %s\nHTTP: %s\nResponse time: %d ms\nChecked: %s",
				bm.URL, httpTxt, cr.ResponseTimeMS, cr.CheckedAt.Format(time.RFC3339),
			)

			// best-effort send, then record the send time
			_ = a.notifier.Send(ctx, title, text)
			_ = a.alertDB.SetAlertState(ctx, bm.ID, cr.Status, now)
			continue
		}

		// Record a state change we chose not to alert on (cooldown, or
		// recovery alerts disabled) without touching the send time.
		if stateChanged {
			_ = a.alertDB.SetAlertState(ctx, bm.ID, cr.Status, time.Time{})
		}
	}

	return nil
}
