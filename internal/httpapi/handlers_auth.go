package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/linkmark/linkmark/internal/auth"
	"github.com/linkmark/linkmark/internal/domain"
	"github.com/linkmark/linkmark/internal/repo"
)

type signupPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var p signupPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	p.Email = strings.TrimSpace(strings.ToLower(p.Email))
	p.Name = strings.TrimSpace(p.Name)
	if p.Email == "" || !strings.Contains(p.Email, "@") || p.Name == "" || len(p.Password) < 8 {
		writeError(w, http.StatusBadRequest, "email, name and a password of at least 8 characters are required")
		return
	}

	hash, err := auth.HashPassword(p.Password)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	u := &domain.User{
		Email:        p.Email,
		PasswordHash: hash,
		Name:         p.Name,
		Role:         domain.RoleUser,
	}
	if err := s.Users.CreateUser(r.Context(), u); err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.Logger.Info("user_signup", zap.Int64("user_id", int64(u.ID)))
	writeJSON(w, http.StatusCreated, u)
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var p loginPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	p.Email = strings.TrimSpace(strings.ToLower(p.Email))

	u, err := s.Users.UserByEmail(r.Context(), p.Email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.writeStoreError(w, err)
		return
	}
	if !auth.CheckPassword(u.PasswordHash, p.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.Tokens.Issue(u.ID, u.Role)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  u,
	})
}
