package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"powchain/api/handlers"
)

type Config struct {
	ListenAddr   string        `mapstructure:"listen"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"` // bounds GET /mine as well
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:   ":5000",
		CORSOrigins:  []string{"*"},
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}
}

// Server represents the HTTP API server
type Server struct {
	config   Config
	svc      handlers.Service
	gatherer prometheus.Gatherer
	log      *zap.Logger

	router   *mux.Router
	http     *http.Server
	listener net.Listener
}

// NewServer creates a new API server. A nil gatherer leaves /metrics out.
func NewServer(config Config, svc handlers.Service, gatherer prometheus.Gatherer, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		config:   config,
		svc:      svc,
		gatherer: gatherer,
		log:      log.With(zap.String("component", "api")),
		router:   mux.NewRouter(),
	}
	s.setupRoutes()

	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: config.ReadTimeout,
		WriteTimeout:      config.WriteTimeout,
	}
	return s
}

// setupRoutes configures all HTTP endpoints
func (s *Server) setupRoutes() {
	route := func(method, path string, h func(http.ResponseWriter, *http.Request, handlers.Service)) {
		s.router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			h(w, r, s.svc)
		}).Methods(method)
	}

	// Transactions
	route(http.MethodPost, "/transactions/new", handlers.HandleNewTransaction)
	route(http.MethodGet, "/transactions/pending", handlers.HandlePendingTransactions)

	// Mining
	route(http.MethodGet, "/mine", handlers.HandleMine)

	// Chain
	route(http.MethodGet, "/chain", handlers.HandleChain)
	route(http.MethodGet, "/chain/head", handlers.HandleChainHead)
	route(http.MethodGet, "/chain/height", handlers.HandleChainHeight)
	route(http.MethodGet, "/blocks/{hash}", handlers.HandleBlockByHash)

	// Peers and consensus
	route(http.MethodPost, "/nodes/register", handlers.HandleRegisterNodes)
	route(http.MethodGet, "/nodes", handlers.HandleListNodes)
	route(http.MethodGet, "/nodes/resolve", handlers.HandleResolve)
	route(http.MethodPost, "/nodes/resolve", handlers.HandleResolveCandidates)

	route(http.MethodGet, "/health", handlers.HandleHealth)
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	s.router.Use(s.logRequests)
}

// Handler returns the routed handler wrapped in CORS
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(s.router)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// Start listens on the configured address and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.log.Info("starting HTTP API server", zap.String("addr", ln.Addr().String()))

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP API server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Addr is the address the server listens on once started
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.config.ListenAddr
	}
	return s.listener.Addr().String()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
