// Package cache keeps patch results in Redis so the server does not re-run the
// pipeline for fragments it has already seen.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/fumiya-kume/secpatch/internal/types"
	"github.com/fumiya-kume/secpatch/pkg/errors"
	"github.com/fumiya-kume/secpatch/pkg/logger"
)

const (
	// PatchKeyPattern is prefix, pipeline variant, fragment digest
	PatchKeyPattern = "%spatch:%s:%s"

	defaultPrefix = "secpatch:"
	opTimeout     = 2 * time.Second
)

// Config holds the Redis connection settings
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// NewClient connects to Redis and verifies the connection with a ping
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewError(errors.ErrorTypeNetwork).
			WithMessagef("failed to connect to redis at %s", cfg.Addr).
			WithCause(err).
			WithRecoverable(true).
			WithSuggestion("Check server.cache.redis_addr or unset SECPATCH_REDIS_ADDR").
			Build()
	}
	return client, nil
}

// PatchCache stores pipeline results keyed by fragment digest
type PatchCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    *logger.Logger
}

// entry is the stored form of a PatchResult
type entry struct {
	Patched     string          `json:"patched"`
	Modified    bool            `json:"modified"`
	Outcomes    []types.Outcome `json:"outcomes,omitempty"`
	Diagnostics []string        `json:"diagnostics,omitempty"`
}

// New wraps an already connected client
func New(client *redis.Client, cfg Config, log *logger.Logger) *PatchCache {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &PatchCache{
		client: client,
		prefix: prefix,
		ttl:    cfg.TTL,
		log:    log.WithPrefix("cache"),
	}
}

// Key derives the storage key. variant identifies the pipeline settings that
// influence the output, so differently configured pipelines never share
// entries.
func (c *PatchCache) Key(variant, fragment string) string {
	sum := sha256.Sum256([]byte(fragment))
	return fmt.Sprintf(PatchKeyPattern, c.prefix, variant, hex.EncodeToString(sum[:]))
}

// Get returns the cached result for fragment. A miss is not an error.
func (c *PatchCache) Get(ctx context.Context, variant, fragment string) (types.PatchResult, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	raw, err := c.client.Get(ctx, c.Key(variant, fragment)).Result()
	if stderrors.Is(err, redis.Nil) {
		return types.PatchResult{}, false, nil
	}
	if err != nil {
		return types.PatchResult{}, false, unavailable("get", err)
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		c.log.Warn("discarding undecodable cache entry: %v", err)
		return types.PatchResult{}, false, nil
	}

	return types.PatchResult{
		Original:    fragment,
		Patched:     e.Patched,
		Modified:    e.Modified,
		Outcomes:    e.Outcomes,
		Diagnostics: e.Diagnostics,
	}, true, nil
}

// Put stores res. Failed results are not cached: the failure is reported
// again on the next request instead of being replayed as a pass-through.
func (c *PatchCache) Put(ctx context.Context, variant string, res types.PatchResult) error {
	if res.Failed() {
		return nil
	}

	data, err := json.Marshal(entry{
		Patched:     res.Patched,
		Modified:    res.Modified,
		Outcomes:    res.Outcomes,
		Diagnostics: res.Diagnostics,
	})
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := c.client.Set(ctx, c.Key(variant, res.Original), string(data), c.ttl).Err(); err != nil {
		return unavailable("set", err)
	}
	return nil
}

// unavailable wraps a failed Redis round trip as a recoverable network error
func unavailable(op string, cause error) error {
	return errors.NewError(errors.ErrorTypeNetwork).
		WithMessagef("cache %s failed", op).
		WithCause(cause).
		WithRecoverable(true).
		Build()
}
