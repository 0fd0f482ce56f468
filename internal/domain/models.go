package domain

import "time"

type UserID int64
type BookmarkID int64
type CategoryID int64
type TagID int64

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	ID           UserID     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

type Bookmark struct {
	ID          BookmarkID  `json:"id"`
	UserID      UserID      `json:"user_id"`
	CategoryID  *CategoryID `json:"category_id,omitempty"`
	Title       string      `json:"title"`
	URL         string      `json:"url"`
	Description string      `json:"description,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	DeletedAt   *time.Time  `json:"deleted_at,omitempty"`
}

func (b *Bookmark) Deleted() bool { return b.DeletedAt != nil }

type Category struct {
	ID        CategoryID `json:"id"`
	UserID    UserID     `json:"user_id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
}

type Tag struct {
	ID   TagID  `json:"id"`
	Name string `json:"name"`
}
