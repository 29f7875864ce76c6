package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/github-metrics-service/pkg/cache"
	"github.com/Sternrassler/github-metrics-service/pkg/github"
)

// fakeAPI is a scriptable GitHubAPI that counts invocations.
type fakeAPI struct {
	mu sync.Mutex

	profile    *github.Profile
	profileErr error
	repos      []github.Repository
	reposErr   error

	profileCalls  int
	repoCalls     int
	lastUsernames []string
}

func (f *fakeAPI) UserProfile(ctx context.Context, username string) (*github.Profile, error) {
	f.mu.Lock()
	f.profileCalls++
	f.lastUsernames = append(f.lastUsernames, username)
	f.mu.Unlock()
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.profile, nil
}

func (f *fakeAPI) UserRepositories(ctx context.Context, username string) ([]github.Repository, error) {
	f.mu.Lock()
	f.repoCalls++
	f.mu.Unlock()
	if f.reposErr != nil {
		return nil, f.reposErr
	}
	return f.repos, nil
}

func (f *fakeAPI) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profileCalls, f.repoCalls
}

type setCall struct {
	key string
	ttl int
}

// spyStore is a Store that records every Set and never expires entries.
type spyStore struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    []setCall
	getErr  error
	setErr  error
}

func newSpyStore() *spyStore {
	return &spyStore{entries: make(map[string][]byte)}
}

func (s *spyStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	data, ok := s.entries[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return data, nil
}

func (s *spyStore) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.sets = append(s.sets, setCall{key: key, ttl: ttlSeconds})
	s.entries[key] = value
	return nil
}

func (s *spyStore) setCalls() []setCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]setCall, len(s.sets))
	copy(out, s.sets)
	return out
}

func testProfile(login string, followers, publicRepos int) *github.Profile {
	return &github.Profile{
		Login:       login,
		PublicRepos: publicRepos,
		Followers:   followers,
	}
}

func daysAgo(now time.Time, days int) *time.Time {
	t := now.Add(-time.Duration(days) * 24 * time.Hour)
	return &t
}

func TestGetMetrics_CacheHitShortCircuits(t *testing.T) {
	store := newSpyStore()
	cached := &Summary{
		Username: "octocat",
		Metrics:  SummaryMetrics{TotalStars: 42, FollowersToReposRatio: 1.5},
	}
	data, _ := json.Marshal(cached)
	store.entries[cache.MetricsKey("octocat")] = data

	api := &fakeAPI{}
	svc := NewMetrics(api, store)

	got, err := svc.GetMetrics(context.Background(), "octocat")
	if err != nil {
		t.Fatalf("GetMetrics failed: %v", err)
	}

	if got.Metrics.TotalStars != 42 || got.Metrics.FollowersToReposRatio != 1.5 {
		t.Errorf("Expected cached summary, got %+v", got)
	}
	if p, r := api.calls(); p != 0 || r != 0 {
		t.Errorf("Expected zero upstream calls on cache hit, got profile=%d repos=%d", p, r)
	}
	if len(store.setCalls()) != 0 {
		t.Error("Expected no cache write on hit")
	}
}

func TestGetMetrics_SumsStars(t *testing.T) {
	store := newSpyStore()
	api := &fakeAPI{
		profile: testProfile("octocat", 100, 3),
		repos: []github.Repository{
			{Name: "a", Stars: 1500},
			{Name: "b", Stars: 12000},
			{Name: "c", Stars: 150},
		},
	}
	svc := NewMetrics(api, store)

	got, err := svc.GetMetrics(context.Background(), "octocat")
	if err != nil {
		t.Fatalf("GetMetrics failed: %v", err)
	}
	if got.Metrics.TotalStars != 13650 {
		t.Errorf("TotalStars = %d, want 13650", got.Metrics.TotalStars)
	}
}

func TestGetMetrics_RatioRounding(t *testing.T) {
	tests := []struct {
		name        string
		followers   int
		publicRepos int
		expected    float64
	}{
		{name: "rounded_to_two_decimals", followers: 100, publicRepos: 3, expected: 33.33},
		{name: "zero_repos_yields_zero", followers: 100, publicRepos: 0, expected: 0},
		{name: "exact_division", followers: 10, publicRepos: 4, expected: 2.5},
		{name: "rounds_up", followers: 2, publicRepos: 3, expected: 0.67},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newSpyStore()
			api := &fakeAPI{profile: testProfile("octocat", tt.followers, tt.publicRepos)}
			svc := NewMetrics(api, store)

			got, err := svc.GetMetrics(context.Background(), "octocat")
			if err != nil {
				t.Fatalf("GetMetrics failed: %v", err)
			}
			if got.Metrics.FollowersToReposRatio != tt.expected {
				t.Errorf("FollowersToReposRatio = %v, want %v",
					got.Metrics.FollowersToReposRatio, tt.expected)
			}
		})
	}
}

func TestGetMetrics_LastPushDaysAgo(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("nil_when_no_repo_has_timestamp", func(t *testing.T) {
		store := newSpyStore()
		api := &fakeAPI{
			profile: testProfile("octocat", 1, 2),
			repos: []github.Repository{
				{Name: "a", Stars: 1},
				{Name: "b", Stars: 2},
			},
		}
		svc := NewMetrics(api, store)
		svc.now = func() time.Time { return now }

		got, err := svc.GetMetrics(context.Background(), "octocat")
		if err != nil {
			t.Fatalf("GetMetrics failed: %v", err)
		}
		if got.Metrics.LastPushDaysAgo != nil {
			t.Errorf("LastPushDaysAgo = %v, want nil", *got.Metrics.LastPushDaysAgo)
		}
	})

	t.Run("most_recent_timestamp_wins", func(t *testing.T) {
		store := newSpyStore()
		api := &fakeAPI{
			profile: testProfile("octocat", 1, 3),
			repos: []github.Repository{
				{Name: "old", Stars: 1, PushedAt: daysAgo(now, 7)},
				{Name: "recent", Stars: 2, PushedAt: daysAgo(now, 3)},
				{Name: "never", Stars: 3},
			},
		}
		svc := NewMetrics(api, store)
		svc.now = func() time.Time { return now }

		got, err := svc.GetMetrics(context.Background(), "octocat")
		if err != nil {
			t.Fatalf("GetMetrics failed: %v", err)
		}
		if got.Metrics.LastPushDaysAgo == nil {
			t.Fatal("LastPushDaysAgo = nil, want 3")
		}
		if *got.Metrics.LastPushDaysAgo != 3 {
			t.Errorf("LastPushDaysAgo = %d, want 3", *got.Metrics.LastPushDaysAgo)
		}
	})

	t.Run("clamps_future_timestamps_to_zero", func(t *testing.T) {
		store := newSpyStore()
		pushed := now.Add(36 * time.Hour) // upstream clock ahead of ours
		api := &fakeAPI{
			profile: testProfile("octocat", 1, 1),
			repos:   []github.Repository{{Name: "a", PushedAt: &pushed}},
		}
		svc := NewMetrics(api, store)
		svc.now = func() time.Time { return now }

		got, err := svc.GetMetrics(context.Background(), "octocat")
		if err != nil {
			t.Fatalf("GetMetrics failed: %v", err)
		}
		if got.Metrics.LastPushDaysAgo == nil || *got.Metrics.LastPushDaysAgo != 0 {
			t.Errorf("LastPushDaysAgo = %v, want 0", got.Metrics.LastPushDaysAgo)
		}
	})

	t.Run("floors_partial_days", func(t *testing.T) {
		store := newSpyStore()
		pushed := now.Add(-(3*24 + 20) * time.Hour) // 3 days 20 hours ago
		api := &fakeAPI{
			profile: testProfile("octocat", 1, 1),
			repos:   []github.Repository{{Name: "a", PushedAt: &pushed}},
		}
		svc := NewMetrics(api, store)
		svc.now = func() time.Time { return now }

		got, err := svc.GetMetrics(context.Background(), "octocat")
		if err != nil {
			t.Fatalf("GetMetrics failed: %v", err)
		}
		if got.Metrics.LastPushDaysAgo == nil || *got.Metrics.LastPushDaysAgo != 3 {
			t.Errorf("LastPushDaysAgo = %v, want 3", got.Metrics.LastPushDaysAgo)
		}
	})
}

func TestGetMetrics_WritesFixedTTLOnce(t *testing.T) {
	store := newSpyStore()
	api := &fakeAPI{profile: testProfile("octocat", 10, 2)}
	svc := NewMetrics(api, store)

	if _, err := svc.GetMetrics(context.Background(), "octocat"); err != nil {
		t.Fatalf("GetMetrics failed: %v", err)
	}

	sets := store.setCalls()
	if len(sets) != 1 {
		t.Fatalf("Expected exactly one cache write, got %d", len(sets))
	}
	if sets[0].key != "metrics:octocat" {
		t.Errorf("Cache key = %q, want %q", sets[0].key, "metrics:octocat")
	}
	if sets[0].ttl != 300 {
		t.Errorf("TTL = %d, want 300", sets[0].ttl)
	}
}

func TestGetMetrics_FailurePropagation(t *testing.T) {
	notFound := &github.APIError{Kind: github.KindNotFound, Username: "ghost"}

	tests := []struct {
		name       string
		profileErr error
		reposErr   error
		expected   github.Kind
	}{
		{name: "profile_fetch_fails", profileErr: notFound, expected: github.KindNotFound},
		{
			name:     "repos_fetch_fails",
			reposErr: &github.APIError{Kind: github.KindRateLimited},
			expected: github.KindRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newSpyStore()
			api := &fakeAPI{
				profile:    testProfile("ghost", 1, 1),
				profileErr: tt.profileErr,
				reposErr:   tt.reposErr,
			}
			svc := NewMetrics(api, store)

			_, err := svc.GetMetrics(context.Background(), "ghost")
			if err == nil {
				t.Fatal("Expected error")
			}
			if kind := github.KindOf(err); kind != tt.expected {
				t.Errorf("KindOf = %q, want %q", kind, tt.expected)
			}
			if len(store.setCalls()) != 0 {
				t.Error("Expected no cache write after failed fetch")
			}
		})
	}
}

// blockingAPI parks its fetches on ctx.Done and signals when each one
// observed cancellation, returning the error the real client produces
// for a cancelled context.
type blockingAPI struct {
	profileErr error // when set, UserProfile fails immediately instead of blocking

	profileCancelled chan struct{}
	repoCancelled    chan struct{}
}

func newBlockingAPI() *blockingAPI {
	return &blockingAPI{
		profileCancelled: make(chan struct{}),
		repoCancelled:    make(chan struct{}),
	}
}

func (b *blockingAPI) UserProfile(ctx context.Context, username string) (*github.Profile, error) {
	if b.profileErr != nil {
		return nil, b.profileErr
	}
	<-ctx.Done()
	close(b.profileCancelled)
	return nil, &github.APIError{Kind: github.KindCancelled, Username: username, Err: ctx.Err()}
}

func (b *blockingAPI) UserRepositories(ctx context.Context, username string) ([]github.Repository, error) {
	<-ctx.Done()
	close(b.repoCancelled)
	return nil, &github.APIError{Kind: github.KindCancelled, Username: username, Err: ctx.Err()}
}

func waitCancelled(t *testing.T, ch <-chan struct{}, fetch string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s fetch never observed cancellation", fetch)
	}
}

func TestGetMetrics_CallerCancellationAbortsBothFetches(t *testing.T) {
	store := newSpyStore()
	api := newBlockingAPI()
	svc := NewMetrics(api, store)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := svc.GetMetrics(ctx, "octocat")
	if err == nil {
		t.Fatal("Expected error after cancellation")
	}
	if kind := github.KindOf(err); kind != github.KindCancelled {
		t.Errorf("KindOf = %q, want %q", kind, github.KindCancelled)
	}

	waitCancelled(t, api.profileCancelled, "profile")
	waitCancelled(t, api.repoCancelled, "repositories")

	if len(store.setCalls()) != 0 {
		t.Error("Expected no cache write after cancellation")
	}
}

func TestGetMetrics_FirstFailureCancelsSibling(t *testing.T) {
	store := newSpyStore()
	api := newBlockingAPI()
	api.profileErr = &github.APIError{Kind: github.KindNotFound, Username: "ghost"}
	svc := NewMetrics(api, store)

	_, err := svc.GetMetrics(context.Background(), "ghost")
	if err == nil {
		t.Fatal("Expected error when the profile fetch fails")
	}
	if kind := github.KindOf(err); kind != github.KindNotFound {
		t.Errorf("KindOf = %q, want %q", kind, github.KindNotFound)
	}

	// The repository fetch was still in flight, the failing sibling must
	// have cancelled it.
	waitCancelled(t, api.repoCancelled, "repositories")

	if len(store.setCalls()) != 0 {
		t.Error("Expected no cache write after failed fetch")
	}
}

func TestGetMetrics_PairedUpstreamCalls(t *testing.T) {
	store := newSpyStore()
	api := &fakeAPI{profile: testProfile("octocat", 1, 1)}
	svc := NewMetrics(api, store)

	if _, err := svc.GetMetrics(context.Background(), "octocat"); err != nil {
		t.Fatalf("GetMetrics failed: %v", err)
	}

	if p, r := api.calls(); p != 1 || r != 1 {
		t.Errorf("Expected exactly one call to each fetch, got profile=%d repos=%d", p, r)
	}
}

func TestGetMetrics_CacheHitIsIdempotent(t *testing.T) {
	store := newSpyStore()
	api := &fakeAPI{
		profile: testProfile("octocat", 100, 3),
		repos:   []github.Repository{{Name: "a", Stars: 5}},
	}
	svc := NewMetrics(api, store)

	first, err := svc.GetMetrics(context.Background(), "octocat")
	if err != nil {
		t.Fatalf("First GetMetrics failed: %v", err)
	}
	second, err := svc.GetMetrics(context.Background(), "octocat")
	if err != nil {
		t.Fatalf("Second GetMetrics failed: %v", err)
	}

	firstJSON, _ := json.Marshal(first)
	secondJSON, _ := json.Marshal(second)
	if !bytes.Equal(firstJSON, secondJSON) {
		t.Errorf("Results differ:\n%s\n%s", firstJSON, secondJSON)
	}

	if p, r := api.calls(); p > 1 || r > 1 {
		t.Errorf("Expected at most one upstream call per fetch across both invocations, got profile=%d repos=%d", p, r)
	}
	if len(store.setCalls()) != 1 {
		t.Errorf("Expected one cache write across both invocations, got %d", len(store.setCalls()))
	}
}

func TestGetMetrics_CacheFailuresAbort(t *testing.T) {
	t.Run("get_failure", func(t *testing.T) {
		store := newSpyStore()
		store.getErr = errors.New("redis down")
		api := &fakeAPI{profile: testProfile("octocat", 1, 1)}
		svc := NewMetrics(api, store)

		if _, err := svc.GetMetrics(context.Background(), "octocat"); err == nil {
			t.Fatal("Expected error when cache get fails")
		}
		if p, r := api.calls(); p != 0 || r != 0 {
			t.Errorf("Expected no upstream calls after cache get failure, got profile=%d repos=%d", p, r)
		}
	})

	t.Run("set_failure", func(t *testing.T) {
		store := newSpyStore()
		store.setErr = errors.New("redis down")
		api := &fakeAPI{profile: testProfile("octocat", 1, 1)}
		svc := NewMetrics(api, store)

		if _, err := svc.GetMetrics(context.Background(), "octocat"); err == nil {
			t.Fatal("Expected error when cache set fails")
		}
	})
}
