// Package metadata resolves display titles and artwork for classified links.
// Resolution never fails: every error path ends in placeholder details.
package metadata

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"jukebox/metrics"
	"jukebox/platform"
)

const DefaultTimeout = 3 * time.Second

type Details struct {
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
}

// Provider looks up details for one platform.
type Provider interface {
	Lookup(ctx context.Context, id string) (Details, error)
}

type ProviderFunc func(ctx context.Context, id string) (Details, error)

func (f ProviderFunc) Lookup(ctx context.Context, id string) (Details, error) {
	return f(ctx, id)
}

type Resolver struct {
	providers map[platform.Platform]Provider
	timeout   time.Duration
	cache     Cache
	cacheTTL  time.Duration
	logger    *log.Entry
}

type Option func(*Resolver)

func WithTimeout(timeout time.Duration) Option {
	return func(r *Resolver) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

func WithCache(cache Cache, ttl time.Duration) Option {
	return func(r *Resolver) {
		r.cache = cache
		r.cacheTTL = ttl
	}
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		providers: make(map[platform.Platform]Provider),
		timeout:   DefaultTimeout,
		logger:    log.WithFields(log.Fields{"module": "metadata"}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register installs the provider for p, replacing any previous one.
func (r *Resolver) Register(p platform.Platform, provider Provider) {
	r.providers[p] = provider
}

// Placeholder is the deterministic fallback for p.
func Placeholder(p platform.Platform) Details {
	title := "Unknown Track"
	if spec, ok := platform.Lookup(p); ok {
		title = spec.PlaceholderTitle
	}
	return Details{Title: title, Thumbnail: platform.PlaceholderThumbnail}
}

// Resolve returns details for (p, id). The resolver timeout bounds the whole
// call, cache round trips included; errors, panics and timeouts all produce
// Placeholder(p).
func (r *Resolver) Resolve(ctx context.Context, p platform.Platform, id string) Details {
	logger := r.logger.WithFields(log.Fields{"function": "Resolve", "platform": p, "id": id})

	provider, ok := r.providers[p]
	if !ok || id == "" {
		metrics.MetadataLookups.WithLabelValues(string(p), "unsupported").Inc()
		return Placeholder(p)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	key := cacheKey(p, id)
	if r.cache != nil {
		if details, hit := r.cache.Get(ctx, key); hit {
			metrics.MetadataLookups.WithLabelValues(string(p), "cache_hit").Inc()
			return details
		}
	}

	start := time.Now()
	details, err := r.lookup(ctx, provider, id)
	metrics.MetadataLatency.WithLabelValues(string(p)).Observe(time.Since(start).Seconds())
	if err != nil {
		logger.Warnf("metadata lookup failed, using placeholder: %v", err)
		metrics.MetadataLookups.WithLabelValues(string(p), "fallback").Inc()
		return Placeholder(p)
	}

	details = fillBlanks(p, details)
	metrics.MetadataLookups.WithLabelValues(string(p), "ok").Inc()

	if r.cache != nil {
		r.cache.Set(ctx, key, details, r.cacheTTL)
	}
	return details
}

type lookupResult struct {
	details Details
	err     error
}

// lookup runs the provider until ctx expires. A provider that ignores ctx is
// abandoned, not waited for.
func (r *Resolver) lookup(ctx context.Context, provider Provider, id string) (Details, error) {
	done := make(chan lookupResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- lookupResult{err: fmt.Errorf("provider panicked: %v", rec)}
			}
		}()
		details, err := provider.Lookup(ctx, id)
		done <- lookupResult{details: details, err: err}
	}()

	select {
	case res := <-done:
		return res.details, res.err
	case <-ctx.Done():
		return Details{}, fmt.Errorf("lookup timed out after %s: %w", r.timeout, ctx.Err())
	}
}

func fillBlanks(p platform.Platform, d Details) Details {
	if d.Title == "" {
		d.Title = Placeholder(p).Title
	}
	if d.Thumbnail == "" {
		d.Thumbnail = platform.PlaceholderThumbnail
	}
	return d
}

func cacheKey(p platform.Platform, id string) string {
	return fmt.Sprintf("metadata:%s:%s", p, id)
}
