package server

import (
	"context"
	"net/http"
	"time"

	"SignalFeed/internal/model"
	"SignalFeed/internal/recorder"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// RunTrigger starts a recommendation run.
type RunTrigger interface {
	RunForDate(ctx context.Context, date time.Time) (*model.RunSummary, error)
}

// AlertEvaluator runs one alert pass.
type AlertEvaluator interface {
	EvaluateAlerts(ctx context.Context) ([]model.Alert, error)
}

// Writer accepts the inputs other systems own: profiles, regime and crisis
// rows, and positions.
type Writer interface {
	SaveProfile(ctx context.Context, p model.UserAgentProfile) error
	SaveRegimeState(ctx context.Context, st model.RegimeState) error
	SaveCrisisState(ctx context.Context, st model.CrisisState) error
	SavePosition(ctx context.Context, p model.Position) (int64, error)
}

// Config holds server dependencies.
type Config struct {
	Addr    string
	Log     zerolog.Logger
	Runs    RunTrigger
	Alerts  AlertEvaluator
	Store   recorder.Recorder
	Admin   Writer       // nil disables the write endpoints
	Metrics http.Handler // nil disables /metrics
	Today   func() time.Time
}

// Server is the HTTP API.
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	cfg    Config
}

// New creates the HTTP server.
func New(cfg Config) *Server {
	if cfg.Today == nil {
		cfg.Today = func() time.Time {
			n := time.Now().UTC()
			return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
		}
	}
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg,
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // runs are synchronous
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.cfg.Metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.cfg.Metrics)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/runs", func(r chi.Router) {
			r.Post("/", s.handleTriggerRun)
			r.Get("/", s.handleListRuns)
		})
		r.Get("/ideas", s.handleIdeas)
		r.Get("/recommendations/{userID}", s.handleRecommendations)
		r.Get("/alerts", s.handleAlerts)

		if s.cfg.Admin != nil {
			r.Put("/profiles/{userID}", s.handleSaveProfile)
			r.Put("/regime", s.handleSaveRegime)
			r.Put("/crisis", s.handleSaveCrisis)
			r.Post("/positions", s.handleSavePosition)
		}
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.cfg.Addr).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
