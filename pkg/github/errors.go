package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gogithub "github.com/google/go-github/v67/github"
)

// Kind classifies an upstream failure into one of the user-facing error
// kinds. The transport layer maps each kind to an HTTP status.
type Kind string

const (
	// KindNotFound indicates the user does not exist upstream.
	KindNotFound Kind = "not_found"

	// KindRateLimited indicates the GitHub API quota is exhausted.
	KindRateLimited Kind = "rate_limited"

	// KindTimeout indicates the upstream call exceeded its deadline.
	KindTimeout Kind = "timeout"

	// KindCancelled indicates the caller aborted before completion.
	KindCancelled Kind = "cancelled"

	// KindUnavailable covers any other upstream or transport failure.
	KindUnavailable Kind = "unavailable"
)

// APIError is a classified GitHub API failure.
type APIError struct {
	Kind     Kind
	Username string
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("github %s error for user %q: %s: %v",
			e.Kind, e.Username, e.Message, e.Err)
	}
	return fmt.Sprintf("github %s error for user %q: %s",
		e.Kind, e.Username, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind carried by err. Errors that did not originate
// from the upstream client (cache failures, encoding failures) report
// KindUnavailable. A nil error reports the empty Kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnavailable
}

// classify translates a go-github error into an *APIError.
//
// Cancellation is checked before the deadline: when both contexts have
// fired, the caller's abort is the more useful signal.
func classify(err error, username string) *APIError {
	switch {
	case errors.Is(err, context.Canceled):
		return &APIError{
			Kind:     KindCancelled,
			Username: username,
			Message:  "request was cancelled",
			Err:      err,
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &APIError{
			Kind:     KindTimeout,
			Username: username,
			Message:  "GitHub request timed out",
			Err:      err,
		}
	}

	var rateErr *gogithub.RateLimitError
	var abuseErr *gogithub.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return &APIError{
			Kind:     KindRateLimited,
			Username: username,
			Message:  "GitHub API rate limit exceeded",
			Err:      err,
		}
	}

	var respErr *gogithub.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusNotFound:
			return &APIError{
				Kind:     KindNotFound,
				Username: username,
				Message:  fmt.Sprintf("GitHub user %q not found", username),
				Err:      err,
			}
		case http.StatusForbidden, http.StatusTooManyRequests:
			return &APIError{
				Kind:     KindRateLimited,
				Username: username,
				Message:  "GitHub API rate limit exceeded",
				Err:      err,
			}
		}
	}

	return &APIError{
		Kind:     KindUnavailable,
		Username: username,
		Message:  "GitHub API is unavailable",
		Err:      err,
	}
}
