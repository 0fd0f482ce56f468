package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/linkmark/linkmark/internal/domain"
	apimw "github.com/linkmark/linkmark/internal/httpapi/middleware"
	"github.com/linkmark/linkmark/internal/repo"
)

type bookmarkResponse struct {
	*domain.Bookmark
	Tags []string `json:"tags"`
}

func (s *Server) bookmarkResponse(ctx context.Context, b *domain.Bookmark) bookmarkResponse {
	names := []string{}
	if tags, err := s.Tags.TagsByBookmark(ctx, b.ID); err == nil {
		for _, t := range tags {
			names = append(names, t.Name)
		}
	}
	return bookmarkResponse{Bookmark: b, Tags: names}
}

func (s *Server) handleListBookmarks(w http.ResponseWriter, r *http.Request) {
	claims, _ := apimw.ClaimsFrom(r.Context())

	f := repo.BookmarkFilter{Keyword: strings.TrimSpace(r.URL.Query().Get("q"))}
	if raw := r.URL.Query().Get("category"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad category id")
			return
		}
		id := domain.CategoryID(n)
		f.CategoryID = &id
	}

	bms, err := s.Bookmarks.BookmarksByUser(r.Context(), claims.UserID, f)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	out := make([]bookmarkResponse, 0, len(bms))
	for _, b := range bms {
		out = append(out, s.bookmarkResponse(r.Context(), b))
	}
	writeJSON(w, http.StatusOK, out)
}

type bookmarkPayload struct {
	Title       string             `json:"title"`
	URL         string             `json:"url"`
	Description string             `json:"description"`
	CategoryID  *domain.CategoryID `json:"category_id"`
	Tags        *[]string          `json:"tags"`
}

func (s *Server) handleCreateBookmark(w http.ResponseWriter, r *http.Request) {
	claims, _ := apimw.ClaimsFrom(r.Context())

	var p bookmarkPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" || !isValidHTTPURL(p.URL) {
		writeError(w, http.StatusBadRequest, "title and an http(s) url are required")
		return
	}
	if p.CategoryID != nil && !s.ownsCategory(r.Context(), w, claims.UserID, *p.CategoryID) {
		return
	}

	b := &domain.Bookmark{
		UserID:      claims.UserID,
		CategoryID:  p.CategoryID,
		Title:       p.Title,
		URL:         normalizeHTTPURL(p.URL),
		Description: p.Description,
	}
	if err := s.Bookmarks.CreateBookmark(r.Context(), b); err != nil {
		s.writeStoreError(w, err)
		return
	}
	if p.Tags != nil {
		if err := s.Tags.SetBookmarkTags(r.Context(), b.ID, *p.Tags); err != nil {
			s.writeStoreError(w, err)
			return
		}
	}

	s.Logger.Info("bookmark_created",
		zap.Int64("user_id", int64(claims.UserID)),
		zap.Int64("bookmark_id", int64(b.ID)),
		zap.String("url", b.URL),
	)
	writeJSON(w, http.StatusCreated, s.bookmarkResponse(r.Context(), b))
}

func (s *Server) handleGetBookmark(w http.ResponseWriter, r *http.Request) {
	b, ok := s.ownBookmark(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.bookmarkResponse(r.Context(), b))
}

func (s *Server) handleUpdateBookmark(w http.ResponseWriter, r *http.Request) {
	claims, _ := apimw.ClaimsFrom(r.Context())
	b, ok := s.ownBookmark(w, r)
	if !ok {
		return
	}

	var p bookmarkPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	// blank title/url keep the current value; description always overwrites
	if t := strings.TrimSpace(p.Title); t != "" {
		b.Title = t
	}
	if p.URL != "" {
		if !isValidHTTPURL(p.URL) {
			writeError(w, http.StatusBadRequest, "url must be http(s)")
			return
		}
		b.URL = normalizeHTTPURL(p.URL)
	}
	b.Description = p.Description
	if p.CategoryID != nil {
		if !s.ownsCategory(r.Context(), w, claims.UserID, *p.CategoryID) {
			return
		}
		b.CategoryID = p.CategoryID
	}

	if err := s.Bookmarks.UpdateBookmark(r.Context(), b); err != nil {
		s.writeStoreError(w, err)
		return
	}
	if p.Tags != nil {
		if err := s.Tags.SetBookmarkTags(r.Context(), b.ID, *p.Tags); err != nil {
			s.writeStoreError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.bookmarkResponse(r.Context(), b))
}

func (s *Server) handleDeleteBookmark(w http.ResponseWriter, r *http.Request) {
	b, ok := s.ownBookmark(w, r)
	if !ok {
		return
	}
	if err := s.Bookmarks.SoftDeleteBookmark(r.Context(), b.ID); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownBookmark loads the active bookmark from the URL and enforces ownership:
// 404 when missing or soft-deleted, 403 when owned by someone else.
func (s *Server) ownBookmark(w http.ResponseWriter, r *http.Request) (*domain.Bookmark, bool) {
	claims, _ := apimw.ClaimsFrom(r.Context())
	id, ok := idParam(r, "bookmarkID")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad bookmark id")
		return nil, false
	}
	b, err := s.Bookmarks.BookmarkByID(r.Context(), domain.BookmarkID(id), false)
	if err != nil {
		s.writeStoreError(w, err)
		return nil, false
	}
	if b.UserID != claims.UserID {
		writeError(w, http.StatusForbidden, "forbidden")
		return nil, false
	}
	return b, true
}

func (s *Server) ownsCategory(ctx context.Context, w http.ResponseWriter, userID domain.UserID, id domain.CategoryID) bool {
	c, err := s.Categories.CategoryByID(ctx, id)
	if err != nil {
		s.writeStoreError(w, err)
		return false
	}
	if c.UserID != userID {
		writeError(w, http.StatusForbidden, "forbidden")
		return false
	}
	return true
}
