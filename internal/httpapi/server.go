// Package httpapi exposes the query engine over HTTP.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kortex/internal/config"
	"github.com/fyrsmithlabs/kortex/internal/engine"
	"github.com/fyrsmithlabs/kortex/internal/github"
)

// SnapshotProvider supplies aggregated project snapshots.
type SnapshotProvider interface {
	GetSnapshot(ctx context.Context, projectID string, token config.Secret) (*github.Snapshot, error)
}

// QueryEngine answers questions and summarizes projects.
type QueryEngine interface {
	AskQuestion(ctx context.Context, projectID, question string, token config.Secret) (engine.Answer, error)
	Summarize(ctx context.Context, projectID string, token config.Secret) (string, error)
}

// Searcher runs qualifier-style searches across GitHub.
type Searcher interface {
	Repositories(ctx context.Context, token config.Secret, query string, opts github.SearchOpts) (github.SearchPage[github.RepositoryResult], error)
	Code(ctx context.Context, token config.Secret, query string, opts github.SearchOpts) (github.SearchPage[github.CodeResult], error)
	Users(ctx context.Context, token config.Secret, query string, opts github.SearchOpts) (github.SearchPage[github.UserResult], error)
	Issues(ctx context.Context, token config.Secret, query string, opts github.SearchOpts) (github.SearchPage[github.IssueResult], error)
	Commits(ctx context.Context, token config.Secret, query string, opts github.SearchOpts) (github.SearchPage[github.CommitResult], error)
	All(ctx context.Context, token config.Secret, query string, perPage int) (*github.CombinedResult, error)
}

// Server provides the HTTP endpoints for kortexd.
type Server struct {
	echo      *echo.Echo
	snapshots SnapshotProvider
	engine    QueryEngine
	search    Searcher
	logger    *zap.Logger
	config    *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(snapshots SnapshotProvider, qe QueryEngine, search Searcher, logger *zap.Logger, cfg *Config) (*Server, error) {
	if snapshots == nil {
		return nil, fmt.Errorf("snapshot provider cannot be nil")
	}
	if qe == nil {
		return nil, fmt.Errorf("query engine cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8080,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:      e,
		snapshots: snapshots,
		engine:    qe,
		search:    search,
		logger:    logger,
		config:    cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")

	projects := v1.Group("/projects/:owner/:repo")
	projects.GET("", s.handleSnapshot)
	projects.POST("/query", s.handleQuery)
	projects.GET("/summary", s.handleSummary)

	search := v1.Group("/search")
	search.GET("/repositories", s.handleSearchRepositories)
	search.GET("/code", s.handleSearchCode)
	search.GET("/users", s.handleSearchUsers)
	search.GET("/issues", s.handleSearchIssues)
	search.GET("/commits", s.handleSearchCommits)
	search.GET("/all", s.handleSearchAll)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// bearerToken extracts the upstream GitHub credential from the request.
// An absent or malformed header simply means no per-request credential.
func bearerToken(c echo.Context) config.Secret {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	for _, scheme := range []string{"Bearer ", "token "} {
		if len(header) > len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) {
			return config.Secret(header[len(scheme):])
		}
	}
	return ""
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
