package repo

import (
	"context"
	"errors"

	"github.com/linkmark/linkmark/internal/domain"
)

// Ports (interfaces) — swap in any DB adapter later.

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("already exists")
	ErrDuplicateURL = errors.New("bookmark URL already saved for user")
)

type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	UserByEmail(ctx context.Context, email string) (*domain.User, error)
	UserByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	UpdateUser(ctx context.Context, u *domain.User) error
}

// BookmarkFilter narrows bookmark listings. Zero value means "all active
// bookmarks of the user".
type BookmarkFilter struct {
	Keyword    string
	CategoryID *domain.CategoryID
}

type BookmarkStore interface {
	CreateBookmark(ctx context.Context, b *domain.Bookmark) error
	BookmarkByID(ctx context.Context, id domain.BookmarkID, includeDeleted bool) (*domain.Bookmark, error)
	BookmarksByUser(ctx context.Context, userID domain.UserID, f BookmarkFilter) ([]*domain.Bookmark, error)
	ActiveBookmarks(ctx context.Context) ([]*domain.Bookmark, error)
	UpdateBookmark(ctx context.Context, b *domain.Bookmark) error
	SoftDeleteBookmark(ctx context.Context, id domain.BookmarkID) error
}

type CategoryStore interface {
	CreateCategory(ctx context.Context, c *domain.Category) error
	CategoryByID(ctx context.Context, id domain.CategoryID) (*domain.Category, error)
	CategoriesByUser(ctx context.Context, userID domain.UserID) ([]*domain.Category, error)
	UpdateCategory(ctx context.Context, c *domain.Category) error
	DeleteCategory(ctx context.Context, id domain.CategoryID) error
}

type TagStore interface {
	// SetBookmarkTags replaces the bookmark's tag set, creating tags by name
	// as needed.
	SetBookmarkTags(ctx context.Context, id domain.BookmarkID, names []string) error
	TagsByBookmark(ctx context.Context, id domain.BookmarkID) ([]*domain.Tag, error)
	TagsByUser(ctx context.Context, userID domain.UserID) ([]*domain.Tag, error)
}

type ResultStore interface {
	AppendResult(ctx context.Context, r *domain.CheckResult) error
	LastResultByBookmark(ctx context.Context, id domain.BookmarkID) (*domain.CheckResult, error)
}
