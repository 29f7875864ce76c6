// Package testutil provides testing utilities for the metrics service.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior of one mock GitHub endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockGitHub is a configurable fake of the GitHub REST API for tests.
// Unconfigured paths respond 404 like the real API.
type MockGitHub struct {
	server *httptest.Server

	mu                sync.RWMutex
	responses         map[string]MockResponse
	requestCount      int
	requestsByPath    map[string]int
	lastRequestHeader http.Header
}

// NewMockGitHub starts a mock GitHub API server.
func NewMockGitHub() *MockGitHub {
	mock := &MockGitHub{
		responses:      make(map[string]MockResponse),
		requestsByPath: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.requestsByPath[r.URL.Path]++
		mock.lastRequestHeader = r.Header.Clone()
		resp, ok := mock.responses[r.URL.Path]
		mock.mu.Unlock()

		if !ok {
			resp = MockResponse{
				StatusCode: http.StatusNotFound,
				Body:       `{"message": "Not Found"}`,
			}
		}

		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		fmt.Fprint(w, resp.Body)
	}))

	return mock
}

// Respond configures the response for a path, e.g. "/users/octocat".
func (m *MockGitHub) Respond(path string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[path] = resp
}

// RespondUser configures a minimal user payload for login.
func (m *MockGitHub) RespondUser(login string, followers, publicRepos int) {
	m.Respond("/users/"+login, MockResponse{
		StatusCode: http.StatusOK,
		Body: fmt.Sprintf(`{
			"login": %q,
			"name": "Test User",
			"avatar_url": "https://avatars.example/%s",
			"bio": "test bio",
			"public_repos": %d,
			"followers": %d,
			"following": 7,
			"html_url": "https://github.com/%s",
			"created_at": "2011-01-25T18:44:36Z",
			"updated_at": "2024-06-01T10:00:00Z"
		}`, login, login, publicRepos, followers, login),
	})
}

// RespondRepos configures a repository list payload for login. Each body
// element must be a complete JSON object.
func (m *MockGitHub) RespondRepos(login string, repoObjects ...string) {
	body := "["
	for i, obj := range repoObjects {
		if i > 0 {
			body += ","
		}
		body += obj
	}
	body += "]"
	m.Respond("/users/"+login+"/repos", MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
	})
}

// URL returns the mock server URL.
func (m *MockGitHub) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockGitHub) Close() {
	m.server.Close()
}

// Requests returns the total number of requests received.
func (m *MockGitHub) Requests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// RequestsFor returns the number of requests received for a path.
func (m *MockGitHub) RequestsFor(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestsByPath[path]
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockGitHub) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

// Reset clears all tracking counters.
func (m *MockGitHub) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.requestsByPath = make(map[string]int)
	m.lastRequestHeader = nil
}
