package domain

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// ChainResolver resolves stations through the geocoding API first, then the
// registry by ICAO code, then the registry by normalized name. Either source
// may be nil.
type ChainResolver struct {
	locator  ICAOLocator
	registry StationRegistry
	logger   *slog.Logger
}

// NewChainResolver creates a ChainResolver.
func NewChainResolver(locator ICAOLocator, registry StationRegistry, logger *slog.Logger) *ChainResolver {
	return &ChainResolver{
		locator:  locator,
		registry: registry,
		logger:   logger,
	}
}

func (c *ChainResolver) Resolve(ctx context.Context, icao, station string) Resolution {
	icao = strings.ToUpper(strings.TrimSpace(icao))
	normalized := NormalizeName(station)

	if icao == "" && normalized == "" {
		return Resolution{Source: GeoSourceNone}
	}

	if icao != "" && c.locator != nil {
		coords, err := c.locator.LocateICAO(ctx, icao)
		switch {
		case err == nil:
			return Resolution{Coordinates: coords, Source: GeoSourceAPI, Found: true}
		case errors.Is(err, ErrNotFound):
			c.logger.Debug("icao not known to geocoder", "icao", icao)
		default:
			c.logger.Warn("icao geocoding failed", "icao", icao, "station", station, "error", err)
		}
	}

	if c.registry != nil {
		if icao != "" {
			if coords, ok := c.registry.ByICAO(icao); ok {
				return Resolution{Coordinates: coords, Source: GeoSourceRegistryICAO, Found: true}
			}
		}
		if normalized != "" {
			if coords, ok := c.registry.ByName(normalized); ok {
				return Resolution{Coordinates: coords, Source: GeoSourceRegistryName, Found: true}
			}
		}
	}

	c.logger.Info("station left without coordinates", "icao", icao, "station", station, "normalized", normalized)
	return Resolution{Source: GeoSourceNone}
}

// EnrichWithCoordinates fills in the position of a record that lacks one.
// Records that already have coordinates are returned unchanged, and a nil
// resolver leaves the record as it is.
func EnrichWithCoordinates(ctx context.Context, rec StationRecord, resolver Resolver) StationRecord {
	if rec.HasCoordinates() {
		if rec.GeoSource == "" {
			rec.GeoSource = GeoSourceMetadata
		}
		return rec
	}
	if resolver == nil {
		rec.GeoSource = GeoSourceNone
		return rec
	}

	res := resolver.Resolve(ctx, rec.ICAO, rec.Station)
	if !res.Found {
		rec.GeoSource = GeoSourceNone
		return rec
	}
	rec.SetCoordinates(res.Coordinates)
	rec.GeoSource = res.Source
	return rec
}
