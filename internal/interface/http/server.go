// Package http exposes the learning journey operations as a REST API.
package http

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/alem-hub/learning-journey/internal/application/command"
	"github.com/alem-hub/learning-journey/internal/application/query"
	"github.com/alem-hub/learning-journey/pkg/logger"
	"github.com/alem-hub/learning-journey/pkg/ratelimit"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: "0.0.0.0").
	Host string

	// Port - port to listen on (default: 8080).
	Port int

	// ReadTimeout - maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout - maximum duration for writing the response.
	WriteTimeout time.Duration

	// IdleTimeout - maximum duration for idle connections.
	IdleTimeout time.Duration

	// RequestTimeout - per-request handler deadline.
	RequestTimeout time.Duration

	// MaxHeaderBytes - maximum size of request headers.
	MaxHeaderBytes int

	// AllowedOrigins - allowed origins for CORS (empty disables CORS).
	AllowedOrigins []string

	// RateLimitPerMinute - requests per minute per client IP (0 = disabled).
	RateLimitPerMinute int

	// Version is reported in response metadata and health output.
	Version string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        60 * time.Second,
		RequestTimeout:     30 * time.Second,
		MaxHeaderBytes:     1 << 20, // 1 MB
		AllowedOrigins:     []string{"*"},
		RateLimitPerMinute: 120,
		Version:            "v1",
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Command Handlers (CQRS Write Side)
	StartActivity     *command.StartActivityHandler
	SubmitAnswer      *command.SubmitAnswerHandler
	CompleteActivity  *command.CompleteActivityHandler
	ReviewMistake     *command.ReviewMistakeHandler
	RegisterActivity  *command.RegisterActivityHandler
	ManageFreeze      *command.ManageFreezeHandler
	UnlockNext        *command.UnlockNextHandler
	SetDailyGoal      *command.SetDailyGoalHandler
	SwitchJourneyType *command.SwitchJourneyTypeHandler

	// Query Handlers (CQRS Read Side)
	GetActivitySummary  *query.GetActivitySummaryHandler
	GetMistakes         *query.GetMistakesHandler
	GetProgressFeedback *query.GetProgressFeedbackHandler
	GetStreak           *query.GetStreakHandler
	GetJourney          *query.GetJourneyHandler
	GetJourneyPath      *query.GetJourneyPathHandler

	// Health reports dependency status on /ready. Nil means always ready.
	Health *HealthChecker

	Logger *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     chi.Router
	logger     *logger.Logger
	limiter    *ratelimit.Limiter

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration.
func NewServer(config Config, deps Dependencies) *Server {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}

	s := &Server{
		config: config,
		deps:   deps,
		logger: log.With(logger.Component("http")),
	}
	if config.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.New(config.RateLimitPerMinute, 0)
	}
	s.setupRouter()

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.router,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s
}

// Router returns the configured router.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	if s.config.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.RequestTimeout))
	}
	if len(s.config.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.config.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1/users/{userID}", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.rateLimitMiddleware)
		}

		r.Route("/activities/{activityID}", func(r chi.Router) {
			r.Post("/start", s.handleStartActivity)
			r.Post("/answers", s.handleSubmitAnswer)
			r.Post("/complete", s.handleCompleteActivity)
			r.Get("/summary", s.handleActivitySummary)
			r.Post("/mistakes/{questionID}/review", s.handleReviewMistake)
		})
		r.Get("/mistakes", s.handleGetMistakes)
		r.Get("/feedback/{subjectID}", s.handleProgressFeedback)

		r.Route("/streak", func(r chi.Router) {
			r.Get("/", s.handleGetStreak)
			r.Post("/activity", s.handleRegisterActivity)
			r.Post("/freeze", s.handleFreeze(command.FreezeActionUse))
			r.Post("/freezes", s.handleFreeze(command.FreezeActionPurchase))
			r.Post("/recovery", s.handleFreeze(command.FreezeActionStartRecovery))
			r.Post("/recover", s.handleFreeze(command.FreezeActionRecover))
		})

		r.Route("/journey", func(r chi.Router) {
			r.Get("/", s.handleGetJourney)
			r.Get("/path", s.handleJourneyPath)
			r.Post("/unlock", s.handleUnlockNext)
			r.Put("/daily-goal", s.handleSetDailyGoal)
			r.Put("/type", s.handleSwitchJourneyType)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, r, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	s.router = r
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// loggingMiddleware logs HTTP requests and puts a request-scoped logger into
// the context.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		reqLog := s.logger.WithRequestID(middleware.GetReqID(r.Context()))
		r = r.WithContext(logger.WithContext(r.Context(), reqLog))

		defer func() {
			fields := []logger.Field{
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", ww.Status()),
				logger.Int("bytes", ww.BytesWritten()),
				logger.Latency(time.Since(start)),
				logger.String("remote_addr", r.RemoteAddr),
			}
			if ww.Status() >= http.StatusInternalServerError {
				reqLog.Warn("http request", fields...)
				return
			}
			reqLog.Info("http request", fields...)
		}()

		next.ServeHTTP(ww, r)
	})
}

// recoveryMiddleware turns handler panics into a JSON 500.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.FromContext(r.Context()).Error("panic recovered",
					logger.Any("panic", rec),
					logger.String("path", r.URL.Path),
				)
				writeJSONError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware implements per-IP rate limiting. RealIP runs first, so
// RemoteAddr already holds the client address.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := s.limiter.Allow(clientIP(r))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeJSONError(w, r, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// Address returns the server address.
func (s *Server) Address() string {
	return s.config.Address()
}
