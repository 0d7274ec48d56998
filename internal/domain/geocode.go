package domain

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// EnrichWithAddresses reverse-geocodes every record that has coordinates,
// fanning out with at most maxConcurrent in-flight lookups so one slow
// provider call cannot serialize the whole batch. Each record writes only its
// own Address slot, so no locking is needed.
//
// Failures degrade gracefully: a provider error or empty result leaves the
// record's Address nil and never fails the batch. A nil geocoder disables
// enrichment entirely.
func EnrichWithAddresses(ctx context.Context, records []CleanRecord, geocoder Geocoder, maxConcurrent int, logger *slog.Logger) {
	if geocoder == nil || len(records) == 0 {
		return
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for i := range records {
		rec := &records[i]
		if rec.Latitude == nil || rec.Longitude == nil {
			continue
		}
		g.Go(func() error {
			addr, err := geocoder.ReverseGeocode(ctx, *rec.Latitude, *rec.Longitude)
			if err != nil {
				logger.Warn("reverse geocoding failed",
					"vin", rec.VIN,
					"lat", *rec.Latitude,
					"lon", *rec.Longitude,
					"error", err,
				)
				return nil
			}
			if !addr.IsZero() {
				rec.Address = &addr
			}
			return nil
		})
	}

	// Workers never return errors; Wait only synchronizes the fan-out.
	_ = g.Wait()
}
