// Package service implements the cache-aside use cases: derived metrics
// and profile retrieval.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/github-metrics-service/pkg/cache"
	"github.com/Sternrassler/github-metrics-service/pkg/github"
	"github.com/Sternrassler/github-metrics-service/pkg/logging"
)

const (
	// metricsTTLSeconds is the fixed TTL for derived metrics entries.
	metricsTTLSeconds = 300

	// profileTTLSeconds is the base TTL for profile entries, jittered by
	// profileJitterRatio on every write.
	profileTTLSeconds  = 300
	profileJitterRatio = 0.1
)

// GitHubAPI is the subset of the upstream client the use cases consume.
type GitHubAPI interface {
	UserProfile(ctx context.Context, username string) (*github.Profile, error)
	UserRepositories(ctx context.Context, username string) ([]github.Repository, error)
}

// SummaryMetrics is the derived numeric block of a Summary.
type SummaryMetrics struct {
	TotalStars            int     `json:"totalStars"`
	FollowersToReposRatio float64 `json:"followersToReposRatio"`
	LastPushDaysAgo       *int    `json:"lastPushDaysAgo"`
}

// Summary holds the derived metrics for one user. It is computed once per
// cache miss and cached as a JSON value.
type Summary struct {
	Username string         `json:"username"`
	Metrics  SummaryMetrics `json:"metrics"`
}

// Metrics computes and caches derived metrics for a user.
type Metrics struct {
	api    GitHubAPI
	store  cache.Store
	logger zerolog.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewMetrics creates the metrics use case.
func NewMetrics(api GitHubAPI, store cache.Store) *Metrics {
	return &Metrics{
		api:    api,
		store:  store,
		logger: logging.NewLogger("usecase-metrics"),
		now:    time.Now,
	}
}

// GetMetrics returns the derived metrics for username, serving from the
// cache when possible. On a miss the profile and repository list are
// fetched concurrently; the first failure cancels the sibling fetch and
// fails the operation with its error kind intact. Nothing is cached on
// failure.
func (s *Metrics) GetMetrics(ctx context.Context, username string) (*Summary, error) {
	key := cache.MetricsKey(username)

	data, err := s.store.Get(ctx, key)
	switch {
	case err == nil:
		var cached Summary
		if err := json.Unmarshal(data, &cached); err != nil {
			return nil, fmt.Errorf("decode cached summary: %w", err)
		}
		s.logger.Debug().Str("username", username).Str("cache_key", key).Msg("Cache hit")
		return &cached, nil
	case errors.Is(err, cache.ErrMiss):
		// Fall through to the upstream fetch.
	default:
		return nil, fmt.Errorf("metrics cache get: %w", err)
	}

	var (
		profile *github.Profile
		repos   []github.Repository
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.api.UserProfile(gctx, username)
		if err != nil {
			return err
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		r, err := s.api.UserRepositories(gctx, username)
		if err != nil {
			return err
		}
		repos = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := deriveSummary(profile, repos, s.now())

	data, err = json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}
	if err := s.store.Set(ctx, key, data, metricsTTLSeconds); err != nil {
		return nil, fmt.Errorf("metrics cache set: %w", err)
	}

	s.logger.Debug().
		Str("username", username).
		Str("cache_key", key).
		Int("ttl_seconds", metricsTTLSeconds).
		Msg("Cached derived metrics")

	return summary, nil
}

// deriveSummary folds a profile and its repository list into a Summary.
func deriveSummary(profile *github.Profile, repos []github.Repository, now time.Time) *Summary {
	totalStars := 0
	var latestPush time.Time
	for _, repo := range repos {
		totalStars += repo.Stars
		if repo.PushedAt != nil && repo.PushedAt.After(latestPush) {
			latestPush = *repo.PushedAt
		}
	}

	var lastPushDaysAgo *int
	if !latestPush.IsZero() {
		days := int(now.Sub(latestPush).Hours() / 24)
		if days < 0 {
			// Upstream timestamps can run ahead of the local clock.
			days = 0
		}
		lastPushDaysAgo = &days
	}

	return &Summary{
		Username: profile.Login,
		Metrics: SummaryMetrics{
			TotalStars:            totalStars,
			FollowersToReposRatio: followersRatio(profile.Followers, profile.PublicRepos),
			LastPushDaysAgo:       lastPushDaysAgo,
		},
	}
}

// followersRatio returns followers/publicRepos rounded to two decimals,
// and exactly 0 when the user has no public repositories.
func followersRatio(followers, publicRepos int) float64 {
	if publicRepos == 0 {
		return 0
	}
	return math.Round(float64(followers)/float64(publicRepos)*100) / 100
}
