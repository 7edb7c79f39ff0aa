package github

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	gh "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/fyrsmithlabs/kortex/internal/config"
)

// newClient creates a go-github client. With a token it authenticates via
// oauth2 bearer transport; without one requests go out unauthenticated.
func newClient(ctx context.Context, token config.Secret, timeout time.Duration, baseURL *url.URL) *gh.Client {
	var httpClient *http.Client
	if token.IsSet() {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.Value()})
		httpClient = oauth2.NewClient(ctx, ts)
	} else {
		httpClient = &http.Client{}
	}
	httpClient.Timeout = timeout

	client := gh.NewClient(httpClient)
	if baseURL != nil {
		client.BaseURL = baseURL
	}
	return client
}

// isNotFound reports whether err is a GitHub 404 response.
func isNotFound(err error) bool {
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode == http.StatusNotFound
	}
	return false
}
