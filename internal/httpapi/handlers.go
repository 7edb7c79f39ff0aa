package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kortex/internal/github"
)

// QueryRequest is the request body for POST /api/v1/projects/:owner/:repo/query.
type QueryRequest struct {
	Question string `json:"question"`
}

// SummaryResponse is the response body for GET /api/v1/projects/:owner/:repo/summary.
type SummaryResponse struct {
	ProjectID string `json:"project_id"`
	Summary   string `json:"summary"`
}

func projectID(c echo.Context) string {
	return c.Param("owner") + "/" + c.Param("repo")
}

// mapProjectError converts aggregation errors to HTTP errors.
func (s *Server) mapProjectError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, github.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "project not found")
	case errors.Is(err, github.ErrBadProjectID):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid project id")
	default:
		s.logger.Error("upstream failure", zap.String("project_id", projectID(c)), zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "upstream failure")
	}
}

func (s *Server) handleSnapshot(c echo.Context) error {
	snap, err := s.snapshots.GetSnapshot(c.Request().Context(), projectID(c), bearerToken(c))
	if err != nil {
		return s.mapProjectError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleQuery(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid query request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question field is required")
	}

	answer, err := s.engine.AskQuestion(c.Request().Context(), projectID(c), req.Question, bearerToken(c))
	if err != nil {
		return s.mapProjectError(c, err)
	}
	return c.JSON(http.StatusOK, answer)
}

func (s *Server) handleSummary(c echo.Context) error {
	id := projectID(c)
	summary, err := s.engine.Summarize(c.Request().Context(), id, bearerToken(c))
	if err != nil {
		return s.mapProjectError(c, err)
	}
	return c.JSON(http.StatusOK, SummaryResponse{ProjectID: id, Summary: summary})
}

// searchParams extracts the common search query parameters.
func searchParams(c echo.Context) (query string, opts github.SearchOpts, err error) {
	query = c.QueryParam("q")
	if query == "" {
		return "", opts, echo.NewHTTPError(http.StatusBadRequest, "q parameter is required")
	}
	opts.Sort = c.QueryParam("sort")
	opts.Order = c.QueryParam("order")
	opts.PerPage = intParam(c, "per_page")
	opts.Page = intParam(c, "page")
	return query, opts, nil
}

// intParam parses an integer query parameter, treating absent or malformed
// values as unset.
func intParam(c echo.Context, name string) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func (s *Server) mapSearchError(c echo.Context, category string, err error) error {
	s.logger.Error("search failed",
		zap.String("category", category),
		zap.Error(err),
	)
	return echo.NewHTTPError(http.StatusBadGateway, "search failure")
}

func (s *Server) handleSearchRepositories(c echo.Context) error {
	query, opts, err := searchParams(c)
	if err != nil {
		return err
	}
	page, err := s.search.Repositories(c.Request().Context(), bearerToken(c), query, opts)
	if err != nil {
		return s.mapSearchError(c, "repositories", err)
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) handleSearchCode(c echo.Context) error {
	query, opts, err := searchParams(c)
	if err != nil {
		return err
	}
	page, err := s.search.Code(c.Request().Context(), bearerToken(c), query, opts)
	if err != nil {
		return s.mapSearchError(c, "code", err)
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) handleSearchUsers(c echo.Context) error {
	query, opts, err := searchParams(c)
	if err != nil {
		return err
	}
	page, err := s.search.Users(c.Request().Context(), bearerToken(c), query, opts)
	if err != nil {
		return s.mapSearchError(c, "users", err)
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) handleSearchIssues(c echo.Context) error {
	query, opts, err := searchParams(c)
	if err != nil {
		return err
	}
	page, err := s.search.Issues(c.Request().Context(), bearerToken(c), query, opts)
	if err != nil {
		return s.mapSearchError(c, "issues", err)
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) handleSearchCommits(c echo.Context) error {
	query, opts, err := searchParams(c)
	if err != nil {
		return err
	}
	page, err := s.search.Commits(c.Request().Context(), bearerToken(c), query, opts)
	if err != nil {
		return s.mapSearchError(c, "commits", err)
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) handleSearchAll(c echo.Context) error {
	query, opts, err := searchParams(c)
	if err != nil {
		return err
	}
	combined, err := s.search.All(c.Request().Context(), bearerToken(c), query, opts.PerPage)
	if err != nil {
		return s.mapSearchError(c, "all", err)
	}
	return c.JSON(http.StatusOK, combined)
}
