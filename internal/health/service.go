package health

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/linkmark/linkmark/internal/domain"
	"github.com/linkmark/linkmark/internal/metrics"
	"github.com/linkmark/linkmark/internal/pool"
	"github.com/linkmark/linkmark/internal/probe"
	"github.com/linkmark/linkmark/internal/repo"
)

// ErrNotOwner is returned when a caller checks a bookmark they do not own.
var ErrNotOwner = errors.New("no permission for this bookmark")

// ResultView is a check result enriched with the bookmark's title and URL.
type ResultView struct {
	BookmarkID     domain.BookmarkID  `json:"bookmark_id"`
	BookmarkTitle  string             `json:"bookmark_title"`
	BookmarkURL    string             `json:"bookmark_url"`
	Status         domain.CheckStatus `json:"status"`
	HTTPStatus     *int               `json:"http_status"`
	ResponseTimeMS int64              `json:"response_time_ms"`
	CheckedAt      time.Time          `json:"checked_at"`
}

// Service runs link-health probes: the scheduled full batch through the
// worker pool, the synchronous on-demand path, and the latest-result query.
type Service struct {
	log       *zap.Logger
	bookmarks repo.BookmarkStore
	results   repo.ResultStore
	checker   probe.Checker
	pool      *pool.Pool
}

func NewService(
	log *zap.Logger,
	bookmarks repo.BookmarkStore,
	results repo.ResultStore,
	checker probe.Checker,
	p *pool.Pool,
) *Service {
	return &Service{
		log:       log,
		bookmarks: bookmarks,
		results:   results,
		checker:   checker,
		pool:      p,
	}
}

// CheckAll fans one probe per active bookmark out across the worker pool. It
// returns once every probe is enqueued; it never waits for completion.
func (s *Service) CheckAll(ctx context.Context) {
	bms, err := s.bookmarks.ActiveBookmarks(ctx)
	if err != nil {
		s.log.Warn("batch_list_error", zap.Error(err))
		return
	}
	s.log.Info("batch_dispatch", zap.Int("bookmarks", len(bms)))

	for _, bm := range bms {
		bm := bm
		// tasks outlive the dispatching call; the probe's own client
		// timeout bounds each one
		err := s.pool.Submit(func() {
			s.checkAndRecord(context.Background(), bm)
		})
		if err != nil {
			metrics.ProbesRejected.Inc()
			s.log.Warn("probe_rejected",
				zap.Int64("bookmark_id", int64(bm.ID)),
				zap.Error(err),
			)
		}
	}
}

// CheckNow probes one bookmark synchronously on behalf of userID. It returns
// repo.ErrNotFound for missing or soft-deleted bookmarks and ErrNotOwner when
// the bookmark belongs to someone else; neither writes a result.
func (s *Service) CheckNow(ctx context.Context, id domain.BookmarkID, userID domain.UserID) (*ResultView, error) {
	bm, err := s.bookmarks.BookmarkByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if bm.UserID != userID {
		return nil, ErrNotOwner
	}

	cr := s.checkAndRecord(ctx, bm)
	s.log.Info("check_now",
		zap.Int64("bookmark_id", int64(id)),
		zap.String("status", string(cr.Status)),
	)
	return view(bm, cr), nil
}

// Results returns the most recent result for each of userID's active
// bookmarks. Never-checked bookmarks are omitted.
func (s *Service) Results(ctx context.Context, userID domain.UserID) ([]ResultView, error) {
	bms, err := s.bookmarks.BookmarksByUser(ctx, userID, repo.BookmarkFilter{})
	if err != nil {
		return nil, err
	}

	out := make([]ResultView, 0, len(bms))
	for _, bm := range bms {
		cr, err := s.results.LastResultByBookmark(ctx, bm.ID)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *view(bm, cr))
	}
	return out, nil
}

// checkAndRecord runs one probe and persists exactly one result. Probe
// failures are data, not errors: every outcome, including a panicking
// checker, becomes a classified row.
func (s *Service) checkAndRecord(ctx context.Context, bm *domain.Bookmark) *domain.CheckResult {
	out := s.safeCheck(ctx, bm)

	metrics.ProbesTotal.WithLabelValues(string(out.Status)).Inc()
	metrics.ProbeDuration.Observe(float64(out.ResponseTimeMS) / 1000)

	cr := &domain.CheckResult{
		BookmarkID:     bm.ID,
		Status:         out.Status,
		HTTPStatus:     out.HTTPStatus,
		ResponseTimeMS: out.ResponseTimeMS,
		CheckedAt:      time.Now().UTC(),
	}
	if err := s.results.AppendResult(ctx, cr); err != nil {
		s.log.Warn("result_append_error",
			zap.Int64("bookmark_id", int64(bm.ID)),
			zap.String("url", bm.URL),
			zap.Error(err),
		)
	} else {
		s.log.Debug("probe_checked",
			zap.Int64("bookmark_id", int64(bm.ID)),
			zap.String("url", bm.URL),
			zap.String("status", string(cr.Status)),
			zap.Int64("response_time_ms", cr.ResponseTimeMS),
		)
	}
	return cr
}

func (s *Service) safeCheck(ctx context.Context, bm *domain.Bookmark) (out probe.Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = probe.Outcome{
				Status:         domain.StatusDead,
				ResponseTimeMS: time.Since(start).Milliseconds(),
			}
			s.log.Warn("probe_panic",
				zap.Int64("bookmark_id", int64(bm.ID)),
				zap.Any("panic", r),
			)
		}
	}()
	return s.checker.Check(ctx, bm.URL)
}

func view(bm *domain.Bookmark, cr *domain.CheckResult) *ResultView {
	return &ResultView{
		BookmarkID:     bm.ID,
		BookmarkTitle:  bm.Title,
		BookmarkURL:    bm.URL,
		Status:         cr.Status,
		HTTPStatus:     cr.HTTPStatus,
		ResponseTimeMS: cr.ResponseTimeMS,
		CheckedAt:      cr.CheckedAt,
	}
}
