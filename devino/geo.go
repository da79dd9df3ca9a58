package devino

import (
	"context"
	"time"
)

// LocationSource supplies the current device coordinates. The host wires
// its own positioning here; the SDK only schedules the polling.
type LocationSource interface {
	Location(ctx context.Context) (latitude, longitude float64, err error)
}

// LocationFunc adapts a function to a LocationSource.
type LocationFunc func(ctx context.Context) (latitude, longitude float64, err error)

func (f LocationFunc) Location(ctx context.Context) (float64, float64, error) {
	return f(ctx)
}

// StartGeoUpdates polls source on the configured interval and reports each
// coordinate pair, until ctx is cancelled. With a zero interval (or before
// activation) geo tracking stays off and the call returns immediately.
func (c *Client) StartGeoUpdates(ctx context.Context, source LocationSource) {
	st, ok := c.store.Snapshot()
	if !ok {
		c.logger.Warn().Msg("sdk not activated, geo updates not started")
		return
	}
	if st.GeoIntervalMin <= 0 {
		c.logger.Info().Msg("geo updates disabled by configuration")
		return
	}
	interval := time.Duration(st.GeoIntervalMin) * time.Minute

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				lat, long, err := source.Location(ctx)
				if err != nil {
					c.logger.Warn().Err(err).Msg("location source failed")
					continue
				}
				c.SendGeo(lat, long)
			}
		}
	}()
}
