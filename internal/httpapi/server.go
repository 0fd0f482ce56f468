package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/linkmark/linkmark/internal/auth"
	"github.com/linkmark/linkmark/internal/health"
	apimw "github.com/linkmark/linkmark/internal/httpapi/middleware"
	"github.com/linkmark/linkmark/internal/metadata"
	"github.com/linkmark/linkmark/internal/repo"
)

type Server struct {
	Logger     *zap.Logger
	Users      repo.UserStore
	Bookmarks  repo.BookmarkStore
	Categories repo.CategoryStore
	Tags       repo.TagStore
	Health     *health.Service
	Tokens     *auth.TokenProvider
	Metadata   *metadata.Fetcher
}

func NewServer(
	l *zap.Logger,
	users repo.UserStore,
	bookmarks repo.BookmarkStore,
	categories repo.CategoryStore,
	tags repo.TagStore,
	healthSvc *health.Service,
	tokens *auth.TokenProvider,
	meta *metadata.Fetcher,
) *Server {
	return &Server{
		Logger:     l,
		Users:      users,
		Bookmarks:  bookmarks,
		Categories: categories,
		Tags:       tags,
		Health:     healthSvc,
		Tokens:     tokens,
		Metadata:   meta,
	}
}

func (s *Server) Router(rpm, burst int) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	// Public routes limit by client address. The authed group gets its own
	// limiter instance behind RequireUser so buckets key by user id.
	r.Group(func(pub chi.Router) {
		pub.Use(apimw.RateLimit(rpm, burst))

		pub.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		pub.Handle("/metrics", promhttp.Handler())

		pub.Post("/auth/signup", s.handleSignup)
		pub.Post("/auth/login", s.handleLogin)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(apimw.RequireUser(s.Tokens))
		pr.Use(apimw.RateLimit(rpm, burst))

		pr.Route("/api/bookmarks", func(br chi.Router) {
			br.Get("/", s.handleListBookmarks)
			br.Post("/", s.handleCreateBookmark)
			br.Get("/{bookmarkID}", s.handleGetBookmark)
			br.Put("/{bookmarkID}", s.handleUpdateBookmark)
			br.Delete("/{bookmarkID}", s.handleDeleteBookmark)
		})

		pr.Get("/api/users/me", s.handleMe)
		pr.Put("/api/users/me", s.handleUpdateMe)
		pr.Put("/api/users/{userID}/role", s.handleUpdateRole)

		pr.Get("/api/categories", s.handleListCategories)
		pr.Post("/api/categories", s.handleCreateCategory)
		pr.Put("/api/categories/{categoryID}", s.handleUpdateCategory)
		pr.Delete("/api/categories/{categoryID}", s.handleDeleteCategory)

		pr.Get("/api/tags", s.handleListTags)
		pr.Get("/api/metadata", s.handleMetadata)

		pr.Get("/link-health", s.handleHealthResults)
		pr.Post("/link-health/{bookmarkID}/check", s.handleCheckNow)
	})

	return r
}
