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

func (s *Store) CreateBookmark(ctx context.Context, b *domain.Bookmark) error {
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	err := s.pool.QueryRow(ctx,
		`INSERT INTO bookmark (app_user_id, category_id, title, url, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		int64(b.UserID), categoryArg(b.CategoryID), b.Title, b.URL, b.Description,
		b.CreatedAt, b.UpdatedAt,
	).Scan(&b.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return repo.ErrDuplicateURL
		}
		return fmt.Errorf("insert bookmark: %w", err)
	}
	return nil
}

func (s *Store) BookmarkByID(ctx context.Context, id domain.BookmarkID, includeDeleted bool) (*domain.Bookmark, error) {
	q := `SELECT id, app_user_id, category_id, title, url, description, created_at, updated_at, deleted_at
	        FROM bookmark
	       WHERE id = $1`
	if !includeDeleted {
		q += ` AND deleted_at IS NULL`
	}
	return scanBookmark(s.pool.QueryRow(ctx, q, int64(id)))
}

func (s *Store) BookmarksByUser(ctx context.Context, userID domain.UserID, f repo.BookmarkFilter) ([]*domain.Bookmark, error) {
	q := `SELECT DISTINCT b.id, b.app_user_id, b.category_id, b.title, b.url, b.description,
	             b.created_at, b.updated_at, b.deleted_at
	        FROM bookmark b
	        LEFT JOIN bookmark_tag_map m ON m.bookmark_id = b.id
	        LEFT JOIN tag t ON t.id = m.tag_id
	       WHERE b.app_user_id = $1 AND b.deleted_at IS NULL`
	args := []any{int64(userID)}
	if f.CategoryID != nil {
		args = append(args, int64(*f.CategoryID))
		q += fmt.Sprintf(" AND b.category_id = $%d", len(args))
	}
	if f.Keyword != "" {
		args = append(args, "%"+f.Keyword+"%")
		n := len(args)
		q += fmt.Sprintf(` AND (b.title ILIKE $%d OR b.url ILIKE $%d OR b.description ILIKE $%d OR t.name ILIKE $%d)`, n, n, n, n)
	}
	q += " ORDER BY b.id"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()
	return scanBookmarks(rows)
}

func (s *Store) ActiveBookmarks(ctx context.Context) ([]*domain.Bookmark, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, app_user_id, category_id, title, url, description, created_at, updated_at, deleted_at
		   FROM bookmark
		  WHERE deleted_at IS NULL
		  ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("active bookmarks: %w", err)
	}
	defer rows.Close()
	return scanBookmarks(rows)
}

func (s *Store) UpdateBookmark(ctx context.Context, b *domain.Bookmark) error {
	b.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE bookmark
		    SET category_id = $1, title = $2, url = $3, description = $4, updated_at = $5
		  WHERE id = $6 AND deleted_at IS NULL`,
		categoryArg(b.CategoryID), b.Title, b.URL, b.Description, b.UpdatedAt, int64(b.ID))
	if err != nil {
		if isUniqueViolation(err) {
			return repo.ErrDuplicateURL
		}
		return fmt.Errorf("update bookmark: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) SoftDeleteBookmark(ctx context.Context, id domain.BookmarkID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE bookmark SET deleted_at = $1, updated_at = $1
		  WHERE id = $2 AND deleted_at IS NULL`,
		time.Now().UTC(), int64(id))
	if err != nil {
		return fmt.Errorf("soft delete bookmark: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func categoryArg(id *domain.CategoryID) any {
	if id == nil {
		return nil
	}
	return int64(*id)
}

func scanBookmark(row pgx.Row) (*domain.Bookmark, error) {
	var b domain.Bookmark
	var catID *int64
	err := row.Scan(&b.ID, &b.UserID, &catID, &b.Title, &b.URL, &b.Description,
		&b.CreatedAt, &b.UpdatedAt, &b.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("scan bookmark: %w", err)
	}
	if catID != nil {
		v := domain.CategoryID(*catID)
		b.CategoryID = &v
	}
	return &b, nil
}

func scanBookmarks(rows pgx.Rows) ([]*domain.Bookmark, error) {
	var out []*domain.Bookmark
	for rows.Next() {
		var b domain.Bookmark
		var catID *int64
		if err := rows.Scan(&b.ID, &b.UserID, &catID, &b.Title, &b.URL, &b.Description,
			&b.CreatedAt, &b.UpdatedAt, &b.DeletedAt); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		if catID != nil {
			v := domain.CategoryID(*catID)
			b.CategoryID = &v
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}
