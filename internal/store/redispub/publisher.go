// Package redispub mirrors refreshed indicator vectors to Redis for
// out-of-process consumers (dashboards, alerting). The mirror is
// best-effort: the in-process store stays canonical and a publish
// failure never fails a refresh cycle.
package redispub

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"screener-systemv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	channelPrefix    = "pub:vector:"
	latestKeyPrefix  = "vector:latest:"
	defaultLatestTTL = 30 * time.Minute
)

// Config configures the Redis publisher.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	Logger   *slog.Logger
}

// Publisher writes vectors to Redis: a PUBLISH on the symbol's channel
// plus a TTL'd latest-value key for late joiners.
type Publisher struct {
	client *goredis.Client
	log    *slog.Logger
}

// New creates a Publisher and pings the server.
func New(cfg Config) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Info("redis vector mirror connected", slog.String("addr", cfg.Addr))
	return &Publisher{client: client, log: log}, nil
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// Publish mirrors one vector: channel publish + latest-value key, in a
// single pipeline round trip.
func (p *Publisher) Publish(ctx context.Context, v *model.IndicatorVector) error {
	data := v.JSON()
	pipe := p.client.Pipeline()
	pipe.Publish(ctx, channelPrefix+v.Symbol, data)
	pipe.Set(ctx, latestKeyPrefix+v.Symbol, data, defaultLatestTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis mirror publish %s: %w", v.Symbol, err)
	}
	return nil
}

// Close releases the Redis connection.
func (p *Publisher) Close() error { return p.client.Close() }
