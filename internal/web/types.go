package web

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNavigationTimeout means the page did not load before the attempt deadline.
	ErrNavigationTimeout = errors.New("navigation timed out")
	// ErrNetwork covers DNS, TLS, refused connections and other transport failures.
	ErrNetwork = errors.New("network error")
	// ErrEndpointUnavailable means the browser endpoint cannot be reached at all.
	ErrEndpointUnavailable = errors.New("browser endpoint unavailable")
)

// HTTPStatusError is returned when a page loaded with an error status and
// nothing usable could be extracted from it.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http status %d", e.StatusCode)
}

// Page is what a navigation attempt captured.
type Page struct {
	FinalURL   string `json:"final_url"`
	Title      string `json:"title"`
	HTML       string `json:"html"`
	StatusCode int    `json:"status_code"`
}

// Navigator loads a URL in a fresh browser tab.
type Navigator interface {
	Navigate(ctx context.Context, url string) (*Page, error)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, url string) (*Page, error)

func (f NavigatorFunc) Navigate(ctx context.Context, url string) (*Page, error) {
	return f(ctx, url)
}

// LivenessChecker judges whether fetched text belongs to a live page rather
// than a parking, for-sale or not-found page.
type LivenessChecker interface {
	IsAlive(ctx context.Context, url string, text string) (bool, error)
}
