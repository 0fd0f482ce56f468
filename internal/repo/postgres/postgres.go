package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/linkmark/linkmark/internal/domain"
	"github.com/linkmark/linkmark/internal/repo"
)

var _ repo.UserStore = (*Store)(nil)
var _ repo.BookmarkStore = (*Store)(nil)
var _ repo.CategoryStore = (*Store)(nil)
var _ repo.TagStore = (*Store)(nil)
var _ repo.ResultStore = (*Store)(nil)
var _ repo.AlertStore = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ---- UserStore ----

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	err := s.pool.QueryRow(ctx,
		`INSERT INTO app_user (email, password_hash, name, user_role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		u.Email, u.PasswordHash, u.Name, string(u.Role), u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return repo.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, name, user_role, created_at, updated_at
		   FROM app_user
		  WHERE email = $1 AND deleted_at IS NULL`, email)
	return scanUser(row)
}

func (s *Store) UserByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, name, user_role, created_at, updated_at
		   FROM app_user
		  WHERE id = $1 AND deleted_at IS NULL`, int64(id))
	return scanUser(row)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Role = domain.Role(role)
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE app_user
		    SET email = $1, password_hash = $2, name = $3, user_role = $4, updated_at = $5
		  WHERE id = $6 AND deleted_at IS NULL`,
		u.Email, u.PasswordHash, u.Name, string(u.Role), u.UpdatedAt, int64(u.ID))
	if err != nil {
		if isUniqueViolation(err) {
			return repo.ErrDuplicate
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// ---- CategoryStore ----

func (s *Store) CreateCategory(ctx context.Context, c *domain.Category) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO category (app_user_id, name, created_at)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		int64(c.UserID), c.Name, c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return repo.ErrDuplicate
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (s *Store) CategoryByID(ctx context.Context, id domain.CategoryID) (*domain.Category, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, app_user_id, name, created_at FROM category WHERE id = $1`, int64(id))
	var c domain.Category
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("scan category: %w", err)
	}
	return &c, nil
}

func (s *Store) CategoriesByUser(ctx context.Context, userID domain.UserID) ([]*domain.Category, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, app_user_id, name, created_at
		   FROM category
		  WHERE app_user_id = $1
		  ORDER BY id`, int64(userID))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []*domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCategory(ctx context.Context, c *domain.Category) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE category SET name = $1 WHERE id = $2`, c.Name, int64(c.ID))
	if err != nil {
		if isUniqueViolation(err) {
			return repo.ErrDuplicate
		}
		return fmt.Errorf("update category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, id domain.CategoryID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM category WHERE id = $1`, int64(id))
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// ---- TagStore ----

func (s *Store) SetBookmarkTags(ctx context.Context, id domain.BookmarkID, names []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM bookmark_tag_map WHERE bookmark_id = $1`, int64(id)); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var tagID int64
		err := tx.QueryRow(ctx,
			`INSERT INTO tag (name) VALUES ($1)
			 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			 RETURNING id`, name).Scan(&tagID)
		if err != nil {
			return fmt.Errorf("upsert tag: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO bookmark_tag_map (bookmark_id, tag_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`, int64(id), tagID); err != nil {
			return fmt.Errorf("map tag: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) TagsByBookmark(ctx context.Context, id domain.BookmarkID) ([]*domain.Tag, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT t.id, t.name
		   FROM tag t
		   JOIN bookmark_tag_map m ON m.tag_id = t.id
		  WHERE m.bookmark_id = $1
		  ORDER BY t.id`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("tags by bookmark: %w", err)
	}
	defer rows.Close()
	return scanTags(rows)
}

func (s *Store) TagsByUser(ctx context.Context, userID domain.UserID) ([]*domain.Tag, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT t.id, t.name
		   FROM tag t
		   JOIN bookmark_tag_map m ON m.tag_id = t.id
		   JOIN bookmark b ON b.id = m.bookmark_id
		  WHERE b.app_user_id = $1 AND b.deleted_at IS NULL
		  ORDER BY t.id`, int64(userID))
	if err != nil {
		return nil, fmt.Errorf("tags by user: %w", err)
	}
	defer rows.Close()
	return scanTags(rows)
}

func scanTags(rows pgx.Rows) ([]*domain.Tag, error) {
	var out []*domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
