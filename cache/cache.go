// Package cache implements the response cache for query results.
//
// Two key schemes coexist and must not collide:
//
//   - Structured keys: "<resolver>[:<parentUUID>](,<name>:<value>)*" where
//     the resolver identity always has the form "<Type>-<field>".
//   - Feed-scoped keys: "feed," followed by the raw JSON encoding of the
//     query arguments.
//
// Because structured resolver identities always contain a hyphen and are
// never the bare word "feed", no structured key can start with the
// "feed," prefix. Feed-scoped entries are refreshed in place by the
// ingestion scheduler instead of expiring naturally.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dav-apps/storyline-api/domain"
)

const (
	// DefaultTTL applies to structured cache entries without an override.
	DefaultTTL = time.Hour
	// FeedTTL is the fixed lifetime of feed-scoped entries. It slides on
	// reads and is preserved, not reset, on refresh.
	FeedTTL = 10 * 24 * time.Hour

	feedKeyPrefix = "feed,"
)

// Store abstracts the key-value commands the cache needs. The production
// implementation is Redis; tests use an in-memory fake.
type Store interface {
	// Get returns the cached value or domain.ErrCacheMiss.
	Get(ctx context.Context, key string) (string, error)
	// Set stores the value with the given expiration.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetIfExists overwrites the value of an existing key while keeping
	// its remaining TTL. Missing keys are left alone.
	SetIfExists(ctx context.Context, key, value string) error
	// Expire resets the key's TTL.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// ScanKeys returns all keys matching the pattern.
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
}

// Caller is the request identity relevant to caching decisions.
type Caller struct {
	Authenticated bool
	PaidPlan      bool
}

// Arg is one named argument of a cached query. Argument enumeration order
// is the declaration order at the call site and must be stable across
// calls, so identical logical queries always hash to the same key.
type Arg struct {
	Name  string
	Value string
}

// Request carries the cache-relevant parts of a query invocation.
type Request struct {
	ParentUUID string
	Args       []Arg
	Caller     Caller
}

// Options tune a cached resolver.
type Options struct {
	// TTL overrides DefaultTTL when positive.
	TTL time.Duration
	// SkipForPaidPlans bypasses the cache for paying subscribers, used by
	// personalization-sensitive queries.
	SkipForPaidPlans bool
}

// ResolveFunc computes a query result.
type ResolveFunc[T any] func(ctx context.Context, req Request) (T, error)

type Cache struct {
	store    Store
	disabled bool
	logger   *slog.Logger
}

// New creates a cache. When disabled is set, every lookup calls through.
func New(store Store, disabled bool, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}

	return &Cache{
		store:    store,
		disabled: disabled,
		logger:   logger,
	}
}

// BuildKey derives the deterministic structured cache key.
func BuildKey(resolver, parentUUID string, args []Arg) string {
	var b strings.Builder

	b.WriteString(resolver)

	if parentUUID != "" {
		b.WriteString(":")
		b.WriteString(parentUUID)
	}

	for _, arg := range args {
		b.WriteString(",")
		b.WriteString(arg.Name)
		b.WriteString(":")
		b.WriteString(arg.Value)
	}

	return b.String()
}

// WithCache wraps a resolver with structured-key caching. The wrapped
// function calls through when caching is disabled globally or when the
// caller is on a paid plan and the call site opts out for paid plans.
func WithCache[T any](c *Cache, resolver string, opts Options, resolve ResolveFunc[T]) ResolveFunc[T] {
	return func(ctx context.Context, req Request) (T, error) {
		var zero T

		if c.disabled || (opts.SkipForPaidPlans && req.Caller.PaidPlan) {
			return resolve(ctx, req)
		}

		key := BuildKey(resolver, req.ParentUUID, req.Args)

		cached, err := c.store.Get(ctx, key)
		if err == nil {
			var result T
			if err := json.Unmarshal([]byte(cached), &result); err == nil {
				return result, nil
			}

			c.logger.WarnContext(ctx, "discarding undecodable cache entry", "key", key)
		} else if !errors.Is(err, domain.ErrCacheMiss) {
			c.logger.WarnContext(ctx, "cache read failed, calling through", "key", key, "error", err)
		}

		result, err := resolve(ctx, req)
		if err != nil {
			return zero, err
		}

		if payload, err := json.Marshal(result); err == nil {
			ttl := opts.TTL
			if ttl <= 0 {
				ttl = DefaultTTL
			}

			if err := c.store.Set(ctx, key, string(payload), ttl); err != nil {
				c.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
			}
		}

		return result, nil
	}
}

// FeedArgs are the raw arguments of a personalized feed query. Their JSON
// encoding doubles as the cache key, so the field set and order here are
// part of the key format.
type FeedArgs struct {
	Publishers   []string `json:"publishers,omitempty"`
	ExcludeFeeds []string `json:"excludeFeeds,omitempty"`
	Limit        int      `json:"limit"`
	Offset       int      `json:"offset"`
}

// structuredArgs renders the arguments for the structured key scheme, in
// declaration order.
func (a FeedArgs) structuredArgs() []Arg {
	var args []Arg

	if a.Publishers != nil {
		args = append(args, Arg{Name: "publishers", Value: strings.Join(a.Publishers, ",")})
	}

	if a.ExcludeFeeds != nil {
		args = append(args, Arg{Name: "excludeFeeds", Value: strings.Join(a.ExcludeFeeds, ",")})
	}

	args = append(args,
		Arg{Name: "limit", Value: fmt.Sprintf("%d", a.Limit)},
		Arg{Name: "offset", Value: fmt.Sprintf("%d", a.Offset)},
	)

	return args
}

// FeedKey derives the feed-scoped cache key from the raw arguments.
func FeedKey(args FeedArgs) string {
	payload, _ := json.Marshal(args)

	return feedKeyPrefix + string(payload)
}

// ParseFeedKey recovers the arguments encoded in a feed-scoped key.
func ParseFeedKey(key string) (FeedArgs, error) {
	var args FeedArgs

	raw, ok := strings.CutPrefix(key, feedKeyPrefix)
	if !ok {
		return args, fmt.Errorf("not a feed cache key: %s", key)
	}

	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return args, fmt.Errorf("failed to parse feed cache key %q: %w", key, err)
	}

	return args, nil
}

// FeedResolveFunc computes a personalized feed query result.
type FeedResolveFunc[T any] func(ctx context.Context, args FeedArgs, caller Caller) (T, error)

// WithFeedCache wraps a feed resolver with the feed-scoped cache. Anonymous
// and free-plan callers, and calls without a feed-exclusion set, fall back
// to the structured scheme (which itself skips caching for paid plans).
// Feed-scoped hits slide the entry's TTL; misses store with the fixed
// FeedTTL regardless of any per-call override.
func WithFeedCache[T any](c *Cache, fallbackResolver string, resolve FeedResolveFunc[T]) FeedResolveFunc[T] {
	return func(ctx context.Context, args FeedArgs, caller Caller) (T, error) {
		var zero T

		if c.disabled {
			return resolve(ctx, args, caller)
		}

		if !caller.Authenticated || !caller.PaidPlan || args.ExcludeFeeds == nil {
			wrapped := WithCache(c, fallbackResolver, Options{SkipForPaidPlans: true},
				func(ctx context.Context, req Request) (T, error) {
					return resolve(ctx, args, caller)
				})

			return wrapped(ctx, Request{Args: args.structuredArgs(), Caller: caller})
		}

		key := FeedKey(args)

		cached, err := c.store.Get(ctx, key)
		if err == nil {
			var result T
			if err := json.Unmarshal([]byte(cached), &result); err == nil {
				if err := c.store.Expire(ctx, key, FeedTTL); err != nil {
					c.logger.WarnContext(ctx, "failed to slide feed cache expiration", "key", key, "error", err)
				}

				return result, nil
			}
		} else if !errors.Is(err, domain.ErrCacheMiss) {
			c.logger.WarnContext(ctx, "feed cache read failed, calling through", "key", key, "error", err)
		}

		result, err := resolve(ctx, args, caller)
		if err != nil {
			return zero, err
		}

		if payload, err := json.Marshal(result); err == nil {
			if err := c.store.Set(ctx, key, string(payload), FeedTTL); err != nil {
				c.logger.WarnContext(ctx, "feed cache write failed", "key", key, "error", err)
			}
		}

		return result, nil
	}
}

// FeedRefreshFunc re-executes the query behind a feed-scoped entry.
type FeedRefreshFunc func(ctx context.Context, args FeedArgs) (any, error)

// RefreshFeedEntries scans all feed-scoped entries, re-executes each one's
// query with its original arguments and overwrites the stored value while
// preserving the remaining TTL. Entries that expired mid-sweep stay gone.
// It returns the number of refreshed entries.
func (c *Cache) RefreshFeedEntries(ctx context.Context, refetch FeedRefreshFunc) (int, error) {
	keys, err := c.store.ScanKeys(ctx, feedKeyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("failed to scan feed cache keys: %w", err)
	}

	updated := 0

	for _, key := range keys {
		args, err := ParseFeedKey(key)
		if err != nil {
			c.logger.WarnContext(ctx, "skipping malformed feed cache key", "key", key, "error", err)
			continue
		}

		result, err := refetch(ctx, args)
		if err != nil {
			c.logger.ErrorContext(ctx, "failed to refresh feed cache entry", "key", key, "error", err)
			continue
		}

		payload, err := json.Marshal(result)
		if err != nil {
			c.logger.ErrorContext(ctx, "failed to encode refreshed feed cache entry", "key", key, "error", err)
			continue
		}

		if err := c.store.SetIfExists(ctx, key, string(payload)); err != nil {
			c.logger.ErrorContext(ctx, "failed to write refreshed feed cache entry", "key", key, "error", err)
			continue
		}

		updated++
	}

	return updated, nil
}
