// Package imagecheck verifies that a logo URL points at reachable image content.
package imagecheck

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 3 * time.Second

// DefaultCacheSize is the number of accepted URLs remembered.
const DefaultCacheSize = 512

// DefaultCacheTTL is how long an accepted URL is trusted before it is probed again.
const DefaultCacheTTL = 10 * time.Minute

// Validator probes logo URLs with HEAD requests. Accepted URLs are cached for a limited
// time; rejections are not cached.
type Validator struct {
	client   *http.Client
	timeout  time.Duration
	ttl      time.Duration
	accepted *expirable.LRU[string, struct{}]
}

// Option configures a Validator.
type Option func(*Validator)

// WithTimeout sets the per-probe time budget.
func WithTimeout(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithCacheTTL sets how long an accepted URL skips probing.
func WithCacheTTL(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.ttl = d
		}
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(v *Validator) {
		v.client = client
	}
}

// NewValidator creates a validator remembering up to cacheSize accepted URLs.
func NewValidator(cacheSize int, opts ...Option) *Validator {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	v := &Validator{
		client:  &http.Client{},
		timeout: DefaultTimeout,
		ttl:     DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.accepted = expirable.NewLRU[string, struct{}](cacheSize, nil, v.ttl)
	return v
}

// Validate returns rawURL when it answers a HEAD request with a 2xx status and an image/*
// content type within the time budget, nil otherwise.
func (v *Validator) Validate(ctx context.Context, rawURL string) *string {
	rawURL = strings.TrimSpace(rawURL)
	if !wellFormed(rawURL) {
		return nil
	}
	if _, ok := v.accepted.Get(rawURL); ok {
		return &rawURL
	}

	if !v.probe(ctx, rawURL) {
		return nil
	}
	v.accepted.Add(rawURL, struct{}{})
	return &rawURL
}

func (v *Validator) probe(ctx context.Context, rawURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	log := logrus.WithField("url", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		log.WithError(err).Debug("Logo rejected: bad request")
		return false
	}

	resp, err := v.client.Do(req)
	if err != nil {
		log.WithError(err).Debug("Logo rejected: probe failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.WithField("status", resp.StatusCode).Debug("Logo rejected: status")
		return false
	}
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(contentType, "image/") {
		log.WithField("content_type", contentType).Debug("Logo rejected: not an image")
		return false
	}
	return true
}

func wellFormed(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
