package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ezshare-gateway/frontdoor/domain"
	"ezshare-gateway/frontdoor/infra"

	"github.com/redis/go-redis/v9"
	"github.com/ubuntu/decorate"
)

const (
	statsBuffer  = 4096
	statsTimeout = time.Second
)

// newStatsStore abre o backend de estatísticas escolhido. O store devolvido já
// é assíncrono para Redis e SQLite; close sempre pode ser chamado.
func newStatsStore(ctx context.Context, c statsConfig) (store domain.StatsStore, closeFn func(), err error) {
	defer decorate.OnError(&err, "could not set up %s stats backend", c.Backend)

	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case "", "none":
		return nil, func() {}, nil

	case "memory":
		mem := infra.NewMemoryStatsStore(infra.WithTrackAddresses(c.TrackAddrs))
		return mem, func() {
			total := mem.Total()
			slog.Info("Admission totals", "admitted", total.Admitted, "rejected", total.Rejected)
		}, nil

	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}

		async := infra.NewAsyncStatsStore(infra.NewRedisStatsStore(rdb,
			infra.WithStatsPrefix(c.Prefix),
			infra.WithStatsTTL(c.TTL),
			infra.WithStatsBucket(c.Bucket),
			infra.WithStatsTrackAddresses(c.TrackAddrs),
		), statsBuffer, statsTimeout)
		return async, func() {
			closeAsync(async)
			_ = rdb.Close()
		}, nil

	case "sqlite":
		db, err := infra.NewSQLiteStatsStore(c.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		async := infra.NewAsyncStatsStore(db, statsBuffer, statsTimeout)
		return async, func() {
			closeAsync(async)
			if total, err := db.Totals(context.Background(), ""); err == nil {
				slog.Info("Admission totals", "admitted", total.Admitted, "rejected", total.Rejected, "db", c.SQLitePath)
			}
			_ = db.Close()
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", c.Backend)
}

func closeAsync(s *infra.AsyncStatsStore) {
	s.Close()
	if n := s.Dropped(); n > 0 {
		slog.Warn("Admission stats events dropped", "count", n)
	}
}
