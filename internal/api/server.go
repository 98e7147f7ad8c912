// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/portal-admin/internal/auth"
	"github.com/portal-admin/internal/logging"
	"github.com/portal-admin/internal/metrics"
	"github.com/portal-admin/internal/models"
	"github.com/portal-admin/internal/service"
	"github.com/portal-admin/internal/storage"
	"github.com/portal-admin/internal/types"
)

// Service interfaces for dependency injection and testing

// UserServiceInterface defines accounts and sessions
type UserServiceInterface interface {
	Register(ctx context.Context, input service.RegisterInput) (*models.User, error)
	Login(ctx context.Context, input service.LoginInput) (*service.LoginResult, error)
	Me(ctx context.Context) (*models.User, error)
	List(ctx context.Context, params storage.ListParams) (*storage.Page[models.User], error)
	Get(ctx context.Context, id int64) (*models.User, error)
	Create(ctx context.Context, input service.CreateUserInput) (*models.User, error)
	Update(ctx context.Context, id int64, input service.UpdateUserInput) (*models.User, error)
	ResetPin(ctx context.Context, id int64, input service.ResetPinInput) error
}

// ApplicationServiceInterface defines the application workflow
type ApplicationServiceInterface interface {
	Create(ctx context.Context, userID int64, input service.CreateApplicationInput) (*models.Application, error)
	Review(ctx context.Context, id, reviewerID int64, input service.ReviewInput) (*models.Application, error)
	List(ctx context.Context, params storage.ListParams) (*storage.Page[models.Application], error)
	Get(ctx context.Context, id int64) (*models.Application, error)
}

// RechargeServiceInterface defines the recharge workflow
type RechargeServiceInterface interface {
	Create(ctx context.Context, userID int64, input service.CreateRechargeInput) (*models.RechargeRequest, error)
	UpdateStatus(ctx context.Context, id, adminID int64, status types.ReviewStatus) (*models.RechargeDecision, error)
	List(ctx context.Context, params storage.ListParams) (*storage.Page[models.RechargeRequest], error)
	Get(ctx context.Context, id int64) (*models.RechargeRequest, error)
}

// FeeServiceInterface resolves the fee a caller would pay
type FeeServiceInterface interface {
	ResolveFee(ctx context.Context, userID int64, role types.Role, appType types.ApplicationType) (decimal.Decimal, error)
}

// SettingsServiceInterface reads and writes settings modules
type SettingsServiceInterface interface {
	GetModule(ctx context.Context, module string) (*models.Setting, error)
	UpsertModule(ctx context.Context, module string, fields []models.SettingField) (*models.Setting, error)
}

// BdrisServiceInterface records civil-registry submissions
type BdrisServiceInterface interface {
	RecordSubmission(ctx context.Context, userID int64, input service.BdrisSubmissionInput) (*models.BdrisApplication, error)
	RecordFailure(ctx context.Context, userID int64, input service.BdrisFailureInput) (*models.BdrisApplicationError, error)
	ListSubmissions(ctx context.Context, params storage.ListParams) (*storage.Page[models.BdrisApplication], error)
	GetSubmission(ctx context.Context, id int64) (*models.BdrisApplication, error)
	ListFailures(ctx context.Context, params storage.ListParams) (*storage.Page[models.BdrisApplicationError], error)
	GetFailure(ctx context.Context, id int64) (*models.BdrisApplicationError, error)
}

// DashboardServiceInterface serves admin statistics
type DashboardServiceInterface interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
}

// LedgerHistoryInterface serves balance movement history
type LedgerHistoryInterface interface {
	History(ctx context.Context, userID int64, limit int) ([]models.LedgerEvent, error)
}

// Pinger is a dependency checked by the health check
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the services the server routes to
type Services struct {
	Users        UserServiceInterface
	Applications ApplicationServiceInterface
	Recharges    RechargeServiceInterface
	Fees         FeeServiceInterface
	Settings     SettingsServiceInterface
	Bdris        BdrisServiceInterface
	Dashboard    DashboardServiceInterface
	Ledger       LedgerHistoryInterface
	// Resources are the generic CRUD collections
	Resources []Resource
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigin      string
	// RequestsPerSecond and Burst bound each caller
	RequestsPerSecond int
	Burst             int
	// WorkflowTimeout bounds the balance workflows
	WorkflowTimeout time.Duration
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	handler    http.Handler
	httpServer *http.Server
	services   Services
	tokens     *auth.TokenManager
	health     map[string]Pinger
	logger     *logging.Logger
	config     *ServerConfig
}

// NewServer creates a new API server instance. health lists the
// dependencies checked by /health.
func NewServer(config *ServerConfig, services Services, tokens *auth.TokenManager, health map[string]Pinger, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if config.WorkflowTimeout <= 0 {
		config.WorkflowTimeout = 10 * time.Second
	}
	s := &Server{
		router:   mux.NewRouter(),
		services: services,
		tokens:   tokens,
		health:   health,
		logger:   logger.WithField("component", "api"),
		config:   config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	// Outer middleware applies to health checks too (order matters!)
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(RecoveryMiddleware)
	s.router.Use(metrics.InstrumentHandler)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(AuthMiddleware(s.tokens))
	api.Use(RateLimitMiddleware(NewRateLimiter(s.config.RequestsPerSecond, s.config.Burst)))
	api.Use(CompressionMiddleware)
	s.setupRoutes(api)

	// CORS wraps the router so preflights reach it before route matching
	s.handler = CORSMiddleware(s.config.CORSOrigin)(s.router)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes(api *mux.Router) {
	authed := requireRoles()
	admins := requireRoles(auth.Admins...)

	// Auth endpoints
	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", authed(s.handleMe)).Methods(http.MethodGet)
	api.HandleFunc("/auth/me/ledger", authed(s.handleMyLedger)).Methods(http.MethodGet)

	// Application workflow
	api.HandleFunc("/applications", requireRoles(auth.Submitters...)(s.handleCreateApplication)).Methods(http.MethodPost)
	api.HandleFunc("/applications", authed(s.handleListApplications)).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id:[0-9]+}", authed(s.handleGetApplication)).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id:[0-9]+}/status", admins(s.handleReviewApplication)).Methods(http.MethodPatch, http.MethodPut)
	api.HandleFunc("/fees/resolve", authed(s.handleResolveFee)).Methods(http.MethodGet)

	// Recharge workflow
	api.HandleFunc("/recharges", requireRoles(auth.Rechargers...)(s.handleCreateRecharge)).Methods(http.MethodPost)
	api.HandleFunc("/recharges", authed(s.handleListRecharges)).Methods(http.MethodGet)
	api.HandleFunc("/recharges/{id:[0-9]+}", authed(s.handleGetRecharge)).Methods(http.MethodGet)
	api.HandleFunc("/recharges/{id:[0-9]+}/status", requireRoles(types.RoleSuperAdmin)(s.handleUpdateRechargeStatus)).Methods(http.MethodPatch, http.MethodPut)

	// User management
	api.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)
	api.HandleFunc("/users", s.handleCreateUser).Methods(http.MethodPost)
	api.HandleFunc("/users/{id:[0-9]+}", s.handleGetUser).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}", s.handleUpdateUser).Methods(http.MethodPatch, http.MethodPut)
	api.HandleFunc("/users/{id:[0-9]+}/reset-pin", s.handleResetPin).Methods(http.MethodPost)
	api.HandleFunc("/users/{id:[0-9]+}/ledger", admins(s.handleUserLedger)).Methods(http.MethodGet)

	// Settings
	api.HandleFunc("/settings/{module}", admins(s.handleGetSetting)).Methods(http.MethodGet)
	api.HandleFunc("/settings/{module}", admins(s.handleUpsertSetting)).Methods(http.MethodPut)

	// BDRIS records
	api.HandleFunc("/bdris/submissions", requireRoles(auth.Submitters...)(s.handleRecordSubmission)).Methods(http.MethodPost)
	api.HandleFunc("/bdris/submissions", authed(s.handleListSubmissions)).Methods(http.MethodGet)
	api.HandleFunc("/bdris/submissions/{id:[0-9]+}", authed(s.handleGetSubmission)).Methods(http.MethodGet)
	api.HandleFunc("/bdris/errors", requireRoles(auth.Submitters...)(s.handleRecordFailure)).Methods(http.MethodPost)
	api.HandleFunc("/bdris/errors", authed(s.handleListFailures)).Methods(http.MethodGet)
	api.HandleFunc("/bdris/errors/{id:[0-9]+}", authed(s.handleGetFailure)).Methods(http.MethodGet)

	// Dashboard
	api.HandleFunc("/dashboard/stats", admins(s.handleDashboardStats)).Methods(http.MethodGet)

	// Generic CRUD collections
	for _, resource := range s.services.Resources {
		resource.register(api)
	}
}

// handleHealth reports the state of every checked dependency
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.health))
	for name, dep := range s.health {
		if err := dep.Ping(ctx); err != nil {
			logging.FromContext(r.Context()).WithError(err).WithField("dependency", name).Warn("health check failed")
			checks[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "degraded"
	}
	respondJSON(w, status, map[string]interface{}{
		"status":  overall,
		"service": "portal-admin",
		"checks":  checks,
	})
}

// Handler returns the root handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
