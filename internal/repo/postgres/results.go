package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/linkmark/linkmark/internal/domain"
	"github.com/linkmark/linkmark/internal/repo"
)

// ---- ResultStore ----

func (s *Store) AppendResult(ctx context.Context, r *domain.CheckResult) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO link_check_result
		   (bookmark_id, status, http_status, response_time_ms, checked_at, created_at)
		 VALUES
		   ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		int64(r.BookmarkID), string(r.Status), r.HTTPStatus, r.ResponseTimeMS,
		r.CheckedAt, r.CreatedAt,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *Store) LastResultByBookmark(ctx context.Context, id domain.BookmarkID) (*domain.CheckResult, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, bookmark_id, status, http_status, response_time_ms, checked_at, created_at
		   FROM link_check_result
		  WHERE bookmark_id = $1
		  ORDER BY checked_at DESC
		  LIMIT 1`, int64(id))

	var r domain.CheckResult
	var status string
	err := row.Scan(&r.ID, &r.BookmarkID, &status, &r.HTTPStatus, &r.ResponseTimeMS,
		&r.CheckedAt, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("scan result: %w", err)
	}
	r.Status = domain.CheckStatus(status)
	return &r, nil
}

// ---- AlertStore ----

func (s *Store) AlertState(ctx context.Context, id domain.BookmarkID) (*repo.AlertRecord, error) {
	const q = `SELECT last_status, last_sent_at FROM link_alert WHERE bookmark_id = $1`
	var rec repo.AlertRecord
	rec.BookmarkID = id
	var status string
	var lastSent *time.Time
	err := s.pool.QueryRow(ctx, q, int64(id)).Scan(&status, &lastSent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("alert state: %w", err)
	}
	rec.LastStatus = domain.CheckStatus(status)
	rec.LastSentAt = lastSent
	return &rec, nil
}

func (s *Store) SetAlertState(ctx context.Context, id domain.BookmarkID, status domain.CheckStatus, sentAt time.Time) error {
	const q = `
		INSERT INTO link_alert (bookmark_id, last_status, last_sent_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (bookmark_id)
		DO UPDATE SET last_status = EXCLUDED.last_status,
		              last_sent_at = COALESCE(EXCLUDED.last_sent_at, link_alert.last_sent_at)
	`
	var ts *time.Time
	if !sentAt.IsZero() {
		ts = &sentAt
	}
	if _, err := s.pool.Exec(ctx, q, int64(id), string(status), ts); err != nil {
		return fmt.Errorf("set alert state: %w", err)
	}
	return nil
}
