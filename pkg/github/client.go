// Package github provides the upstream GitHub API client with typed
// error classification and per-call deadlines.
package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v67/github"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for upstream GitHub operations.
var (
	githubRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghm_github_requests_total",
		Help: "Total GitHub API requests by operation and outcome",
	}, []string{"operation", "outcome"})

	githubRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ghm_github_request_duration_seconds",
		Help:    "GitHub API request duration in seconds by operation",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"operation"})

	githubErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghm_github_errors_total",
		Help: "Total GitHub API errors by kind",
	}, []string{"kind"})
)

// DefaultTimeout is the fixed per-call deadline for upstream requests.
const DefaultTimeout = 5 * time.Second

// repoPageSize bounds the repository fetch to a single page.
const repoPageSize = 100

// Config holds the client configuration.
type Config struct {
	// Token is an optional GitHub API token. Unauthenticated requests
	// share a much smaller rate limit budget.
	Token string

	// UserAgent identifies this service to GitHub (required).
	UserAgent string

	// BaseURL overrides the GitHub API base URL (for testing).
	BaseURL string

	// Timeout is the per-call deadline. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent: userAgent,
		Timeout:   DefaultTimeout,
	}
}

// Client fetches user profiles and repository lists from the GitHub API.
// It performs no retries; failed calls surface a classified *APIError.
type Client struct {
	gh      *gogithub.Client
	timeout time.Duration
	logger  zerolog.Logger
}

// NewClient creates a new GitHub client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	gh := gogithub.NewClient(nil)
	if cfg.Token != "" {
		gh = gh.WithAuthToken(cfg.Token)
	}
	gh.UserAgent = cfg.UserAgent

	if cfg.BaseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		gh.BaseURL = base
	}

	return &Client{
		gh:      gh,
		timeout: cfg.Timeout,
		logger:  log.With().Str("component", "github-client").Logger(),
	}, nil
}

// UserProfile fetches the public profile for username.
func (c *Client) UserProfile(ctx context.Context, username string) (*Profile, error) {
	start := time.Now()
	defer func() {
		githubRequestDuration.WithLabelValues("profile").Observe(time.Since(start).Seconds())
	}()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	user, _, err := c.gh.Users.Get(callCtx, username)
	if err != nil {
		return nil, c.fail("profile", username, err)
	}

	githubRequestsTotal.WithLabelValues("profile", "ok").Inc()
	c.logger.Debug().
		Str("username", username).
		Str("operation", "profile").
		Msg("GitHub request succeeded")

	return profileFromUser(user), nil
}

// UserRepositories fetches one bounded page of repositories owned by
// username, ordered as GitHub returns them.
func (c *Client) UserRepositories(ctx context.Context, username string) ([]Repository, error) {
	start := time.Now()
	defer func() {
		githubRequestDuration.WithLabelValues("repositories").Observe(time.Since(start).Seconds())
	}()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	opts := &gogithub.RepositoryListByUserOptions{
		ListOptions: gogithub.ListOptions{PerPage: repoPageSize},
	}
	repos, _, err := c.gh.Repositories.ListByUser(callCtx, username, opts)
	if err != nil {
		return nil, c.fail("repositories", username, err)
	}

	githubRequestsTotal.WithLabelValues("repositories", "ok").Inc()
	c.logger.Debug().
		Str("username", username).
		Str("operation", "repositories").
		Int("count", len(repos)).
		Msg("GitHub request succeeded")

	return repositoriesFromList(repos), nil
}

// fail classifies err, records metrics, and logs at a level matching the
// error kind.
func (c *Client) fail(operation, username string, err error) *APIError {
	apiErr := classify(err, username)

	githubRequestsTotal.WithLabelValues(operation, "error").Inc()
	githubErrorsTotal.WithLabelValues(string(apiErr.Kind)).Inc()

	evt := c.logger.Error()
	if apiErr.Kind == KindNotFound || apiErr.Kind == KindCancelled {
		evt = c.logger.Warn()
	}
	evt.Err(err).
		Str("username", username).
		Str("operation", operation).
		Str("error_kind", string(apiErr.Kind)).
		Msg("GitHub request failed")

	return apiErr
}

func profileFromUser(user *gogithub.User) *Profile {
	return &Profile{
		Login:       user.GetLogin(),
		FullName:    user.Name,
		AvatarURL:   user.GetAvatarURL(),
		Bio:         user.Bio,
		PublicRepos: user.GetPublicRepos(),
		Followers:   user.GetFollowers(),
		Following:   user.GetFollowing(),
		ProfileURL:  user.GetHTMLURL(),
		CreatedAt:   user.GetCreatedAt().Time,
		UpdatedAt:   user.GetUpdatedAt().Time,
	}
}

func repositoriesFromList(repos []*gogithub.Repository) []Repository {
	out := make([]Repository, 0, len(repos))
	for _, repo := range repos {
		r := Repository{
			Name:  repo.GetName(),
			Stars: repo.GetStargazersCount(),
		}
		if repo.PushedAt != nil {
			pushedAt := repo.PushedAt.Time
			r.PushedAt = &pushedAt
		}
		out = append(out, r)
	}
	return out
}
