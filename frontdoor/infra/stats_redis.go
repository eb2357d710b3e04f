package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ezshare-gateway/frontdoor/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore grava contadores de admissão em hashes do Redis:
//
//	<prefix>:total                 admitted/rejected cumulativos
//	<prefix>:minute:<YYYYMMDDhhmm> série por minuto (com TTL)
//	<prefix>:addr:<address>        por origem, só com trackAddresses (com TTL)
type RedisStatsStore struct {
	rdb *redis.Client

	prefix string
	// ttl aplica apenas em chaves de série temporal / por origem.
	// total é cumulativo e não expira.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	trackAddresses bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackAddresses(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackAddresses = track }
}

func NewRedisStatsStore(rdb *redis.Client, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "ezshare:admission",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) field(allowed bool) string {
	if allowed {
		return "admitted"
	}
	return "rejected"
}

// keys retorna as chaves tocadas por ev, e se cada uma expira.
func (s *RedisStatsStore) keys(ev domain.StatsEvent, at time.Time) map[string]bool {
	keys := map[string]bool{s.prefix + ":total": false}

	if s.bucket == "minute" {
		keys[fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))] = true
	}
	if s.trackAddresses {
		if addr := strings.TrimSpace(string(ev.Address)); addr != "" {
			keys[s.prefix+":addr:"+addr] = true
		}
	}
	return keys
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := s.field(ev.Allowed)

	pipe := s.rdb.Pipeline()
	for key, expires := range s.keys(ev, at) {
		pipe.HIncrBy(ctx, key, field, 1)
		if expires && s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
	}
	if ev.Allowed && ev.Index > 0 {
		pipe.HSet(ctx, s.prefix+":total", "last_index", ev.Index)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis stats pipeline: %w", err)
	}
	return nil
}
