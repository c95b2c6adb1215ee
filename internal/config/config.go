package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/birracrucis.db"`
	RedisURL string     `env:"REDIS_URL"` // optional live-position cache
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR" envDefault:"../web/dist"`
	SeedDemo bool       `env:"SEED_DEMO" envDefault:"true"`

	// Stream session tuning. The lifetime must stay safely under the
	// hosting platform's request execution limit.
	TickInterval    time.Duration `env:"STREAM_TICK_INTERVAL" envDefault:"3s"`
	SessionLifetime time.Duration `env:"STREAM_SESSION_LIFETIME" envDefault:"25s"`
	FeedBatchSize   int           `env:"FEED_BATCH_SIZE" envDefault:"50"`

	// Marker clustering radii in meters: a small fixed one for marker
	// decluttering, a larger one for low-zoom aggregation.
	ClusterRadiusM    float64 `env:"CLUSTER_RADIUS_M" envDefault:"25"`
	MapClusterRadiusM float64 `env:"MAP_CLUSTER_RADIUS_M" envDefault:"250"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
