package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/impact-portal/internal/authflow"
	"github.com/terra-clan/impact-portal/internal/catalog"
	"github.com/terra-clan/impact-portal/internal/config"
	"github.com/terra-clan/impact-portal/internal/feed"
	"github.com/terra-clan/impact-portal/internal/geo"
	"github.com/terra-clan/impact-portal/internal/health"
	"github.com/terra-clan/impact-portal/internal/identity"
	"github.com/terra-clan/impact-portal/internal/leaderboard"
	"github.com/terra-clan/impact-portal/internal/mappin"
	"github.com/terra-clan/impact-portal/internal/metrics"
	"github.com/terra-clan/impact-portal/internal/models"
	"github.com/terra-clan/impact-portal/internal/profile"
	"github.com/terra-clan/impact-portal/pkg/client"
)

// ChallengeGateway is the subset of the backend client used directly by handlers
type ChallengeGateway interface {
	GetUserChallenges(ctx context.Context, token, id string) ([]models.Challenge, error)
	CreateChallenge(ctx context.Context, token string, req client.CreateChallengeRequest) (*models.Challenge, error)
}

// Geocoder resolves coordinates into address parts
type Geocoder interface {
	Reverse(ctx context.Context, p geo.Point) (*geo.ReverseResult, error)
}

// Deps are the services the API serves
type Deps struct {
	Sessions *identity.SessionStore
	Auth     *authflow.Service
	Profiles *profile.Service
	Feed     *feed.Service
	Catalog  *catalog.Loader
	Board    *leaderboard.Board
	Embeds   *mappin.EmbedBuilder
	Gateway  ChallengeGateway
	Geocoder Geocoder
	Health   *health.Registry
	Metrics  *metrics.Metrics
	Hub      *Hub
}

// Server represents the HTTP API server
type Server struct {
	config    config.ServerConfig
	router    *chi.Mux
	sessions  *identity.SessionStore
	auth      *authflow.Service
	profiles  *profile.Service
	feed      *feed.Service
	catalog   *catalog.Loader
	board     *leaderboard.Board
	embeds    *mappin.EmbedBuilder
	gateway   ChallengeGateway
	geocoder  Geocoder
	health    *health.Registry
	metrics   *metrics.Metrics
	hub       *Hub
	validator *requestValidator
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	s := &Server{
		config:    cfg,
		sessions:  deps.Sessions,
		auth:      deps.Auth,
		profiles:  deps.Profiles,
		feed:      deps.Feed,
		catalog:   deps.Catalog,
		board:     deps.Board,
		embeds:    deps.Embeds,
		gateway:   deps.Gateway,
		geocoder:  deps.Geocoder,
		health:    deps.Health,
		metrics:   deps.Metrics,
		hub:       deps.Hub,
		validator: newRequestValidator(),
	}
	if s.health == nil {
		s.health = health.NewRegistry()
	}
	if s.hub == nil {
		s.hub = NewHub()
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(s.metricsMiddleware)
	r.Use(middleware.Recoverer)

	origins := s.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Live feed socket outlives the request timeout
	r.With(s.loadSession).Get("/ws/feed", s.handleFeedWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/health", s.handleHealth)
		r.Get("/ready", s.handleReady)
		if s.metrics != nil {
			r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
		}

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(s.loadSession)

			r.Route("/auth", func(r chi.Router) {
				r.Post("/register", s.handleRegister)
				r.Post("/login", s.handleLogin)
				r.Post("/logout", s.handleLogout)
				r.Get("/whoami", s.handleWhoAmI)
				r.Get("/modal", s.handleGetModal)
				r.Post("/modal", s.handleUpdateModal)
			})

			r.Route("/profile", func(r chi.Router) {
				r.Use(s.requireSession)
				r.Get("/", s.handleGetProfile)
				r.Put("/", s.handleUpdateProfile)
				r.Delete("/edit", s.handleDiscardProfileEdit)
			})

			r.Get("/pins", s.handleListPins)
			r.Get("/map/embed", s.handleMapEmbed)
			r.With(s.requireSession).Get("/map/markers", s.handleMapMarkers)

			r.Route("/feed", func(r chi.Router) {
				r.Get("/", s.handleListFeed)
				r.Delete("/expanded", s.handleCollapsePost)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetPost)
					r.Post("/like", s.handleToggleReaction(models.ReactionLike))
					r.Post("/bookmark", s.handleToggleReaction(models.ReactionBookmark))
					r.Post("/{kind}/confirm", s.handleConfirmReaction)
					r.Put("/expand", s.handleExpandPost)
				})
			})

			r.Get("/leaderboard", s.handleLeaderboard)
			r.Get("/impact", s.handleImpact)

			r.With(s.requireSession).Post("/challenges", s.handleCreateChallenge)
			r.Get("/geocode/reverse", s.handleReverseGeocode)
		})
	})

	s.router = r
}
