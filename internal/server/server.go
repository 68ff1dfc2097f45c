package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/emilythestrangee/devcove/internal/cache"
	"github.com/emilythestrangee/devcove/internal/config"
	"github.com/emilythestrangee/devcove/internal/database"
	"github.com/emilythestrangee/devcove/internal/events"
	"github.com/emilythestrangee/devcove/internal/handlers"
	"github.com/emilythestrangee/devcove/internal/metrics"
	"github.com/emilythestrangee/devcove/internal/middleware"
)

const serviceName = "devcove-api"

// Deps are the backing services the API runs on. Unread and Events may be
// nil, in which case caching and event publishing are disabled.
type Deps struct {
	DB       database.Service
	Unread   cache.UnreadCounter
	Events   events.Publisher
	Registry *prometheus.Registry
}

type Server struct {
	cfg      config.ServerConfig
	db       database.Service
	handler  *handlers.Handler
	tokens   *middleware.Tokens
	limiter  *middleware.RateLimiter
	metrics  *metrics.Metrics
	registry *prometheus.Registry
}

// New wires handlers and middleware around deps.
func New(cfg config.ServerConfig, deps Deps) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tokens, err := middleware.NewTokens(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	m := metrics.New(deps.Registry)

	return &Server{
		cfg:    cfg,
		db:     deps.DB,
		tokens: tokens,
		handler: handlers.NewHandler(handlers.Deps{
			DB:      deps.DB.GetDB(),
			Tokens:  tokens,
			Unread:  deps.Unread,
			Events:  deps.Events,
			Metrics: m,
		}),
		limiter:  middleware.NewRateLimiter(cfg.VoteRate, cfg.VoteBurst),
		metrics:  m,
		registry: deps.Registry,
	}, nil
}

// HTTPServer builds the listening server for the configured port.
func (s *Server) HTTPServer() *http.Server {
	router := s.RegisterRoutes()

	server := &http.Server{
		Addr:         "0.0.0.0:" + strconv.Itoa(s.cfg.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	slog.Info("🚀 Server starting", "port", s.cfg.Port)
	return server
}

// SweepVisitors drops idle rate-limit buckets until ctx is done.
func (s *Server) SweepVisitors(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.limiter.Sweep(every); n > 0 {
				slog.Debug("rate limiter swept", "visitors", n)
			}
		}
	}
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", middleware.CSRFHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		health := s.db.Health()
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, health)
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	h := s.handler
	api := r.Group("/api")
	{
		api.GET("/csrf", middleware.IssueCSRF)

		// Auth routes (public)
		api.POST("/register", h.Auth.Register)
		api.POST("/login", h.Auth.Login)

		// Public reads, personalised when a token is present
		public := api.Group("")
		public.Use(middleware.OptionalAuth(s.tokens))
		{
			public.GET("/posts", h.Post.GetPosts)
			public.GET("/posts/:id", h.Post.GetPost)
			public.GET("/posts/:id/comments", h.Comment.GetComments)
			public.GET("/users/:id", h.User.GetUserProfile)
			public.GET("/users/:id/followers", h.User.GetFollowers)
		}

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(s.tokens), middleware.CSRF())
		{
			protected.GET("/me", h.Auth.GetMe)

			protected.POST("/posts", h.Post.CreatePost)
			protected.DELETE("/posts/:id", h.Post.DeletePost)

			protected.POST("/posts/:id/comments", h.Comment.CreateComment)
			protected.DELETE("/comments/:commentId", h.Comment.DeleteComment)

			protected.POST("/vote", s.limiter.Middleware(func() {
				s.metrics.ObserveVoteRejected("rate_limited")
			}), h.Vote.Vote)

			protected.POST("/users/:id/follow", h.User.FollowUser)
			protected.DELETE("/users/:id/follow", h.User.UnfollowUser)

			protected.GET("/notifications", h.Notification.List)
			protected.GET("/notifications/count", h.Notification.Count)
			protected.POST("/notifications/mark-all-read", h.Notification.MarkAllRead)
			protected.POST("/notifications/:id/read", h.Notification.MarkRead)
			protected.DELETE("/notifications", h.Notification.ClearAll)
		}
	}

	return r
}
