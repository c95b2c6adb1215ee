package server

import (
	"context"
	"log/slog"
)

const demoRouteID = "demo"

// SeedDemo creates the demo route with its stops if it does not exist
// yet, so a fresh server is explorable without any setup. Idempotent.
func SeedDemo(ctx context.Context, logger *slog.Logger, store Store) error {
	exists, err := store.RouteExists(ctx, demoRouteID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	// A short crawl through Madrid's La Latina; the first stop starts
	// active.
	venues := []VenueSeed{
		{Name: "El Viajero", Lat: 40.4109, Lng: -3.7086, CheckinRadiusM: 75, AutoCheckinRadius: 40},
		{Name: "La Perejila", Lat: 40.4113, Lng: -3.7109, CheckinRadiusM: 75, AutoCheckinRadius: 40},
		{Name: "Casa Lucas", Lat: 40.4121, Lng: -3.7125, CheckinRadiusM: 75},
	}
	if err := store.CreateRoute(ctx, demoRouteID, "La Latina crawl", venues); err != nil {
		return err
	}

	logger.Info("demo route created", "route", demoRouteID)
	return nil
}
