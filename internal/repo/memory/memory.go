package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/linkmark/linkmark/internal/domain"
	"github.com/linkmark/linkmark/internal/repo"
)

// Store is an in-memory adapter for every repo port. Used for tests and for
// running the API without a database.
type Store struct {
	mu sync.RWMutex

	nextUser     int64
	nextBookmark int64
	nextCategory int64
	nextTag      int64
	nextResult   int64

	users      map[domain.UserID]*domain.User
	bookmarks  map[domain.BookmarkID]*domain.Bookmark
	categories map[domain.CategoryID]*domain.Category
	tags       map[domain.TagID]*domain.Tag
	tagMap     map[domain.BookmarkID][]domain.TagID
	results    []*domain.CheckResult
	alerts     map[domain.BookmarkID]*repo.AlertRecord
}

func New() *Store {
	return &Store{
		users:      make(map[domain.UserID]*domain.User),
		bookmarks:  make(map[domain.BookmarkID]*domain.Bookmark),
		categories: make(map[domain.CategoryID]*domain.Category),
		tags:       make(map[domain.TagID]*domain.Tag),
		tagMap:     make(map[domain.BookmarkID][]domain.TagID),
		results:    make([]*domain.CheckResult, 0, 128),
		alerts:     make(map[domain.BookmarkID]*repo.AlertRecord),
	}
}

// ---- UserStore ----

func (m *Store) CreateUser(ctx context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email && existing.DeletedAt == nil {
			return repo.ErrDuplicate
		}
	}
	m.nextUser++
	u.ID = domain.UserID(m.nextUser)
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *Store) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email && u.DeletedAt == nil {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *Store) UserByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Store) UpdateUser(ctx context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.users[u.ID]
	if !ok || cur.DeletedAt != nil {
		return repo.ErrNotFound
	}
	for _, existing := range m.users {
		if existing.ID != u.ID && existing.Email == u.Email && existing.DeletedAt == nil {
			return repo.ErrDuplicate
		}
	}
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

// ---- BookmarkStore ----

func (m *Store) CreateBookmark(ctx context.Context, b *domain.Bookmark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.bookmarks {
		if existing.UserID == b.UserID && existing.URL == b.URL && existing.DeletedAt == nil {
			return repo.ErrDuplicateURL
		}
	}
	m.nextBookmark++
	b.ID = domain.BookmarkID(m.nextBookmark)
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	cp := *b
	m.bookmarks[b.ID] = &cp
	return nil
}

func (m *Store) BookmarkByID(ctx context.Context, id domain.BookmarkID, includeDeleted bool) (*domain.Bookmark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookmarks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if b.DeletedAt != nil && !includeDeleted {
		return nil, repo.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *Store) BookmarksByUser(ctx context.Context, userID domain.UserID, f repo.BookmarkFilter) ([]*domain.Bookmark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	kw := strings.ToLower(f.Keyword)
	var out []*domain.Bookmark
	for _, b := range m.bookmarks {
		if b.UserID != userID || b.DeletedAt != nil {
			continue
		}
		if f.CategoryID != nil && (b.CategoryID == nil || *b.CategoryID != *f.CategoryID) {
			continue
		}
		if kw != "" && !m.matchesKeyword(b, kw) {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// matchesKeyword checks title, URL, description and tag names. Caller holds mu.
func (m *Store) matchesKeyword(b *domain.Bookmark, kw string) bool {
	if strings.Contains(strings.ToLower(b.Title), kw) ||
		strings.Contains(strings.ToLower(b.URL), kw) ||
		strings.Contains(strings.ToLower(b.Description), kw) {
		return true
	}
	for _, tid := range m.tagMap[b.ID] {
		if t := m.tags[tid]; t != nil && strings.Contains(strings.ToLower(t.Name), kw) {
			return true
		}
	}
	return false
}

func (m *Store) ActiveBookmarks(ctx context.Context) ([]*domain.Bookmark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Bookmark
	for _, b := range m.bookmarks {
		if b.DeletedAt == nil {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Store) UpdateBookmark(ctx context.Context, b *domain.Bookmark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.bookmarks[b.ID]
	if !ok || cur.DeletedAt != nil {
		return repo.ErrNotFound
	}
	for _, existing := range m.bookmarks {
		if existing.ID != b.ID && existing.UserID == b.UserID &&
			existing.URL == b.URL && existing.DeletedAt == nil {
			return repo.ErrDuplicateURL
		}
	}
	b.CreatedAt = cur.CreatedAt
	b.UpdatedAt = time.Now().UTC()
	cp := *b
	m.bookmarks[b.ID] = &cp
	return nil
}

func (m *Store) SoftDeleteBookmark(ctx context.Context, id domain.BookmarkID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookmarks[id]
	if !ok || b.DeletedAt != nil {
		return repo.ErrNotFound
	}
	now := time.Now().UTC()
	b.DeletedAt = &now
	b.UpdatedAt = now
	return nil
}

// ---- CategoryStore ----

func (m *Store) CreateCategory(ctx context.Context, c *domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.categories {
		if existing.UserID == c.UserID && existing.Name == c.Name {
			return repo.ErrDuplicate
		}
	}
	m.nextCategory++
	c.ID = domain.CategoryID(m.nextCategory)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	cp := *c
	m.categories[c.ID] = &cp
	return nil
}

func (m *Store) CategoryByID(ctx context.Context, id domain.CategoryID) (*domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Store) CategoriesByUser(ctx context.Context, userID domain.UserID) ([]*domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Category
	for _, c := range m.categories {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Store) UpdateCategory(ctx context.Context, c *domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.categories[c.ID]
	if !ok {
		return repo.ErrNotFound
	}
	for _, existing := range m.categories {
		if existing.ID != c.ID && existing.UserID == c.UserID && existing.Name == c.Name {
			return repo.ErrDuplicate
		}
	}
	c.CreatedAt = cur.CreatedAt
	cp := *c
	m.categories[c.ID] = &cp
	return nil
}

func (m *Store) DeleteCategory(ctx context.Context, id domain.CategoryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.categories, id)
	// bookmarks keep working with no category
	for _, b := range m.bookmarks {
		if b.CategoryID != nil && *b.CategoryID == id {
			b.CategoryID = nil
		}
	}
	return nil
}

// ---- TagStore ----

func (m *Store) SetBookmarkTags(ctx context.Context, id domain.BookmarkID, names []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookmarks[id]; !ok {
		return repo.ErrNotFound
	}
	ids := make([]domain.TagID, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		ids = append(ids, m.tagIDByName(name))
	}
	m.tagMap[id] = ids
	return nil
}

// tagIDByName finds or creates a tag. Caller holds mu.
func (m *Store) tagIDByName(name string) domain.TagID {
	for _, t := range m.tags {
		if strings.EqualFold(t.Name, name) {
			return t.ID
		}
	}
	m.nextTag++
	id := domain.TagID(m.nextTag)
	m.tags[id] = &domain.Tag{ID: id, Name: name}
	return id
}

func (m *Store) TagsByBookmark(ctx context.Context, id domain.BookmarkID) ([]*domain.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Tag
	for _, tid := range m.tagMap[id] {
		if t := m.tags[tid]; t != nil {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Store) TagsByUser(ctx context.Context, userID domain.UserID) ([]*domain.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[domain.TagID]bool)
	var out []*domain.Tag
	for bid, tids := range m.tagMap {
		b := m.bookmarks[bid]
		if b == nil || b.UserID != userID || b.DeletedAt != nil {
			continue
		}
		for _, tid := range tids {
			if seen[tid] {
				continue
			}
			seen[tid] = true
			if t := m.tags[tid]; t != nil {
				cp := *t
				out = append(out, &cp)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- ResultStore ----

func (m *Store) AppendResult(ctx context.Context, r *domain.CheckResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextResult++
	r.ID = m.nextResult
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	cp := *r
	m.results = append(m.results, &cp)
	return nil
}

func (m *Store) LastResultByBookmark(ctx context.Context, id domain.BookmarkID) (*domain.CheckResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *domain.CheckResult
	for _, r := range m.results {
		if r.BookmarkID != id {
			continue
		}
		if latest == nil || r.CheckedAt.After(latest.CheckedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, repo.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

// ---- AlertStore ----

func (m *Store) AlertState(ctx context.Context, id domain.BookmarkID) (*repo.AlertRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.alerts[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *Store) SetAlertState(ctx context.Context, id domain.BookmarkID, status domain.CheckStatus, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := &repo.AlertRecord{BookmarkID: id, LastStatus: status}
	if !sentAt.IsZero() {
		t := sentAt
		rec.LastSentAt = &t
	} else if prev, ok := m.alerts[id]; ok {
		rec.LastSentAt = prev.LastSentAt
	}
	m.alerts[id] = rec
	return nil
}
