package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/maiway/commerce-ai-platform/pkg/logging"
)

// Defaults for the chat quota: a rolling 24-hour window per identifier.
const (
	DefaultLimit  = 500
	DefaultWindow = 24 * time.Hour
)

// Limiter enforces a sliding-window request quota in Redis. Each request
// is a member of a sorted set scored by its timestamp; counting the
// window is a range query, expiring it is a range removal.
type Limiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
	logger *logging.Logger
	now    func() time.Time
}

type Config struct {
	Limit  int
	Window time.Duration
	Logger *logging.Logger
}

func NewLimiter(client *redis.Client, cfg Config) *Limiter {
	if client == nil {
		panic("ratelimit: redis client required")
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	window := cfg.Window
	if window <= 0 {
		window = DefaultWindow
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Limiter{
		redis:  client,
		limit:  limit,
		window: window,
		logger: logger,
		now:    time.Now,
	}
}

func quotaKey(identifier string) string {
	return fmt.Sprintf("ratelimit:%s", identifier)
}

// Allow records one request for the identifier and reports whether it is
// within quota. Redis trouble fails open: chat staying up matters more
// than strict quota enforcement during an outage.
func (l *Limiter) Allow(ctx context.Context, identifier string) bool {
	now := l.now()
	key := quotaKey(identifier)
	windowStart := now.Add(-l.window)

	pipe := l.redis.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	count := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Error("rate limit check failed, allowing request", "identifier", identifier, "error", err)
		return true
	}

	if count.Val() >= int64(l.limit) {
		return false
	}

	member := redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString()),
	}
	record := l.redis.TxPipeline()
	record.ZAdd(ctx, key, member)
	record.Expire(ctx, key, l.window)
	if _, err := record.Exec(ctx); err != nil {
		l.logger.Error("rate limit record failed", "identifier", identifier, "error", err)
	}
	return true
}

// Limit returns the configured quota.
func (l *Limiter) Limit() int {
	return l.limit
}

// Identifier derives the quota key for a request: the session header
// when present, the client IP otherwise.
func Identifier(r *http.Request) string {
	if sessionID := r.Header.Get("X-Session-ID"); sessionID != "" {
		return "session:" + sessionID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		host = "unknown"
	}
	return "ip:" + host
}
