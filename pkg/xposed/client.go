// Package xposed is a small client for the XposedOrNot breach and password
// APIs. It only handles transport and typed decoding; callers normalize.
package xposed

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

const (
	DefaultBreachBaseURL   = "https://api.xposedornot.com/v1"
	DefaultPasswordBaseURL = "https://passwords.xposedornot.com/v1"
	DefaultUserAgent       = "E-Guard-App/1.0"
	DefaultTimeout         = 10 * time.Second

	// PasswordPrefixLength is the number of hex characters of the Keccak-512
	// digest sent to the anonymous password search.
	PasswordPrefixLength = 10

	maxBodyBytes = 4 << 20
)

// ErrNotFound is returned when the provider answers 404.
var ErrNotFound = errors.New("xposed: not found")

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("xposed: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the provider. The zero value is not usable; use NewClient.
type Client struct {
	BreachBaseURL   string
	PasswordBaseURL string
	UserAgent       string
	HTTPClient      *http.Client
}

// NewClient creates a client. Empty URLs fall back to the public endpoints and a
// non-positive timeout falls back to DefaultTimeout. Requests are never retried.
func NewClient(breachBaseURL, passwordBaseURL string, timeout time.Duration) *Client {
	if breachBaseURL == "" {
		breachBaseURL = DefaultBreachBaseURL
	}
	if passwordBaseURL == "" {
		passwordBaseURL = DefaultPasswordBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BreachBaseURL:   strings.TrimRight(breachBaseURL, "/"),
		PasswordBaseURL: strings.TrimRight(passwordBaseURL, "/"),
		UserAgent:       DefaultUserAgent,
		HTTPClient:      &http.Client{Timeout: timeout},
	}
}

// BreachAnalytics fetches the breach analytics for an email address.
func (c *Client) BreachAnalytics(ctx context.Context, email string) (*BreachAnalytics, error) {
	endpoint := c.BreachBaseURL + "/breach-analytics?email=" + url.QueryEscape(email)

	body, err := c.get(ctx, endpoint, c.UserAgent)
	if err != nil {
		return nil, err
	}

	var out BreachAnalytics
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("xposed: decode breach analytics: %w", err)
	}
	return &out, nil
}

// PasswordAnalytics looks up a Keccak-512 hash prefix, see PasswordPrefix.
func (c *Client) PasswordAnalytics(ctx context.Context, prefix string) (*PasswordAnalytics, error) {
	endpoint := c.PasswordBaseURL + "/pass/anon/" + url.PathEscape(prefix)

	body, err := c.get(ctx, endpoint, c.UserAgent)
	if err != nil {
		return nil, err
	}

	var out PasswordAnalytics
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("xposed: decode password analytics: %w", err)
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, endpoint, userAgent string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("xposed: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("xposed: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("xposed: read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}
	return body, nil
}

// PasswordPrefix returns the first PasswordPrefixLength hex characters of the
// legacy Keccak-512 digest of password, which is what the provider indexes.
func PasswordPrefix(password string) string {
	h := sha3.NewLegacyKeccak512()
	h.Write([]byte(password))
	return hex.EncodeToString(h.Sum(nil))[:PasswordPrefixLength]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
