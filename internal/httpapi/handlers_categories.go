package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/linkmark/linkmark/internal/domain"
	apimw "github.com/linkmark/linkmark/internal/httpapi/middleware"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	claims, _ := apimw.ClaimsFrom(r.Context())
	cats, err := s.Categories.CategoriesByUser(r.Context(), claims.UserID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if cats == nil {
		cats = []*domain.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	claims, _ := apimw.ClaimsFrom(r.Context())

	var p struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || strings.TrimSpace(p.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	c := &domain.Category{UserID: claims.UserID, Name: strings.TrimSpace(p.Name)}
	if err := s.Categories.CreateCategory(r.Context(), c); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	claims, _ := apimw.ClaimsFrom(r.Context())
	id, ok := idParam(r, "categoryID")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad category id")
		return
	}
	c, err := s.Categories.CategoryByID(r.Context(), domain.CategoryID(id))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if c.UserID != claims.UserID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var p struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || strings.TrimSpace(p.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	c.Name = strings.TrimSpace(p.Name)
	if err := s.Categories.UpdateCategory(r.Context(), c); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	claims, _ := apimw.ClaimsFrom(r.Context())
	id, ok := idParam(r, "categoryID")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad category id")
		return
	}
	c, err := s.Categories.CategoryByID(r.Context(), domain.CategoryID(id))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if c.UserID != claims.UserID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	if err := s.Categories.DeleteCategory(r.Context(), c.ID); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	claims, _ := apimw.ClaimsFrom(r.Context())
	tags, err := s.Tags.TagsByUser(r.Context(), claims.UserID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if tags == nil {
		tags = []*domain.Tag{}
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if !isValidHTTPURL(target) {
		writeError(w, http.StatusBadRequest, "url must be http(s)")
		return
	}
	meta, err := s.Metadata.Fetch(r.Context(), target)
	if err != nil {
		writeError(w, http.StatusBadGateway, "could not fetch page metadata")
		return
	}
	writeJSON(w, http.StatusOK, meta)
}
