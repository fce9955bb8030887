// Package cache keeps query embeddings in redis so repeated error reports
// skip the embedding round trip.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tmc/langchaingo/embeddings"
	"go.uber.org/zap"

	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/logging"
)

const (
	DefaultTTL   = 24 * time.Hour
	redisTimeout = 2 * time.Second
)

// NewRedisClient connects and pings redis.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return client, nil
}

// EmbeddingCache is a cache-aside embeddings.Embedder. Redis errors are
// logged and the delegate is used instead.
type EmbeddingCache struct {
	next   embeddings.Embedder
	client *redis.Client
	model  string
	ttl    time.Duration
	logger *zap.Logger
	lookup *prometheus.CounterVec
}

var _ embeddings.Embedder = (*EmbeddingCache)(nil)

type Option func(*EmbeddingCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *EmbeddingCache) { c.ttl = ttl }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *EmbeddingCache) { c.logger = logging.OrNop(l) }
}

// WithRegisterer exports hit and miss counters.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *EmbeddingCache) { reg.MustRegister(c.lookup) }
}

// NewEmbeddingCache wraps next. model namespaces the keys so switching
// embedding models never serves stale vectors.
func NewEmbeddingCache(next embeddings.Embedder, client *redis.Client, model string, opts ...Option) *EmbeddingCache {
	c := &EmbeddingCache{
		next:   next,
		client: client,
		model:  model,
		ttl:    DefaultTTL,
		logger: zap.NewNop(),
		lookup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "debugger_embedding_cache_total",
			Help: "Query embedding cache lookups by result",
		}, []string{"result"}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key is the redis key for text under model.
func Key(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embedding:" + model + ":" + hex.EncodeToString(sum[:])
}

func (c *EmbeddingCache) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := Key(c.model, text)

	rctx, cancel := context.WithTimeout(ctx, redisTimeout)
	data, err := c.client.Get(rctx, key).Bytes()
	cancel()
	switch {
	case err == nil:
		var vec []float32
		if jerr := json.Unmarshal(data, &vec); jerr == nil {
			c.lookup.WithLabelValues("hit").Inc()
			return vec, nil
		}
		c.logger.Warn("discarding corrupt cache entry", zap.String("key", key))
	case err == redis.Nil:
	default:
		c.lookup.WithLabelValues("error").Inc()
		c.logger.Warn("embedding cache read failed", zap.Error(err))
	}
	c.lookup.WithLabelValues("miss").Inc()

	vec, err := c.next.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(vec); err == nil {
		wctx, cancel := context.WithTimeout(ctx, redisTimeout)
		if err := c.client.Set(wctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("embedding cache write failed", zap.Error(err))
		}
		cancel()
	}
	return vec, nil
}

// EmbedDocuments is not cached; documents are embedded once per re-index.
func (c *EmbeddingCache) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return c.next.EmbedDocuments(ctx, texts)
}

func (c *EmbeddingCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
