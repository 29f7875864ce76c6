package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/github-metrics-service/pkg/cache"
	"github.com/Sternrassler/github-metrics-service/pkg/github"
	"github.com/Sternrassler/github-metrics-service/pkg/logging"
)

// Profiles retrieves and caches user profile snapshots.
type Profiles struct {
	api    GitHubAPI
	store  cache.Store
	logger zerolog.Logger
}

// NewProfiles creates the profile use case.
func NewProfiles(api GitHubAPI, store cache.Store) *Profiles {
	return &Profiles{
		api:    api,
		store:  store,
		logger: logging.NewLogger("usecase-profile"),
	}
}

// GetProfile returns the profile for username, serving from the cache
// when possible. The cache key is normalized (trimmed, lowercased) while
// the upstream fetch uses the username as given. On a miss the entry is
// written with a jittered TTL so that profiles cached together do not
// expire together.
func (s *Profiles) GetProfile(ctx context.Context, username string) (*github.Profile, error) {
	key := cache.ProfileKey(username)

	data, err := s.store.Get(ctx, key)
	switch {
	case err == nil:
		var cached github.Profile
		if err := json.Unmarshal(data, &cached); err != nil {
			return nil, fmt.Errorf("decode cached profile: %w", err)
		}
		s.logger.Debug().Str("username", username).Str("cache_key", key).Msg("Cache hit")
		return &cached, nil
	case errors.Is(err, cache.ErrMiss):
		// Fall through to the upstream fetch.
	default:
		return nil, fmt.Errorf("profile cache get: %w", err)
	}

	profile, err := s.api.UserProfile(ctx, username)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}

	ttl := cache.JitterTTL(profileTTLSeconds, profileJitterRatio)
	if err := s.store.Set(ctx, key, data, ttl); err != nil {
		return nil, fmt.Errorf("profile cache set: %w", err)
	}

	s.logger.Debug().
		Str("username", username).
		Str("cache_key", key).
		Int("ttl_seconds", ttl).
		Msg("Cached profile")

	return profile, nil
}
