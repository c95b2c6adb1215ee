package server

import (
	"database/sql"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, store Store, db *sql.DB, rdb *redis.Client, cfg Options) {
	positions := newPositionCache(rdb)
	streamCfg := StreamConfig{
		TickInterval:    cfg.TickInterval,
		SessionLifetime: cfg.SessionLifetime,
		BatchSize:       cfg.FeedBatchSize,
	}

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Birracrucis API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db, rdb))

	// Participant routes — {route} resolved by routeMiddleware.
	r.Route("/api/routes/{route}", func(r chi.Router) {
		r.Use(routeMiddleware(store))
		r.Post("/join", handleJoin(store))
		r.Post("/leave", handleLeave(store))
		r.Post("/position", handlePosition(logger, store, positions))
		r.Post("/messages", handleMessage(store))
		r.Post("/nudges", handleNudge(store))
		r.Post("/checkin", handleCheckIn(store))
		r.Get("/map", handleMap(store, positions, cfg.ClusterRadiusM, cfg.MapClusterRadiusM))
		r.Get("/stream", handleStream(logger, store, streamCfg))
	})

	if cfg.SPADir != "" {
		if info, err := os.Stat(cfg.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", cfg.SPADir)
			r.NotFound(handleSPA(cfg.SPADir))
		}
	}
}
