package httpapi

import (
	"net/http"

	"github.com/linkmark/linkmark/internal/domain"
	apimw "github.com/linkmark/linkmark/internal/httpapi/middleware"
)

func (s *Server) handleHealthResults(w http.ResponseWriter, r *http.Request) {
	claims, _ := apimw.ClaimsFrom(r.Context())
	results, err := s.Health.Results(r.Context(), claims.UserID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleCheckNow(w http.ResponseWriter, r *http.Request) {
	claims, _ := apimw.ClaimsFrom(r.Context())
	id, ok := idParam(r, "bookmarkID")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad bookmark id")
		return
	}
	result, err := s.Health.CheckNow(r.Context(), domain.BookmarkID(id), claims.UserID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
