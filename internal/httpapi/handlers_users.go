package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/linkmark/linkmark/internal/auth"
	"github.com/linkmark/linkmark/internal/domain"
	apimw "github.com/linkmark/linkmark/internal/httpapi/middleware"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, _ := apimw.ClaimsFrom(r.Context())
	u, err := s.Users.UserByID(r.Context(), claims.UserID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type profilePayload struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// handleUpdateMe updates the caller's own profile. Blank fields keep their
// current value; a new password must be at least 8 characters.
func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	claims, _ := apimw.ClaimsFrom(r.Context())
	u, err := s.Users.UserByID(r.Context(), claims.UserID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	var p profilePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	if name := strings.TrimSpace(p.Name); name != "" {
		u.Name = name
	}
	if p.Password != "" {
		if len(p.Password) < 8 {
			writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
			return
		}
		hash, err := auth.HashPassword(p.Password)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		u.PasswordHash = hash
	}

	if err := s.Users.UpdateUser(r.Context(), u); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// handleUpdateRole changes another user's role. Admin only; the target keeps
// their old role inside any already issued token until it expires.
func (s *Server) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	claims, _ := apimw.ClaimsFrom(r.Context())
	if claims.Role != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, "admin only")
		return
	}
	id, ok := idParam(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad user id")
		return
	}

	var p struct {
		Role domain.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil ||
		(p.Role != domain.RoleUser && p.Role != domain.RoleAdmin) {
		writeError(w, http.StatusBadRequest, "role must be USER or ADMIN")
		return
	}

	u, err := s.Users.UserByID(r.Context(), domain.UserID(id))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	u.Role = p.Role
	if err := s.Users.UpdateUser(r.Context(), u); err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.Logger.Info("user_role_changed",
		zap.Int64("user_id", int64(u.ID)),
		zap.String("role", string(u.Role)),
		zap.Int64("changed_by", int64(claims.UserID)),
	)
	writeJSON(w, http.StatusOK, u)
}
