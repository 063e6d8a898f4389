package domain

import (
	"context"
	"errors"
)

// ErrNotFound is returned by an ICAOLocator when the provider has no usable
// position for a code.
var ErrNotFound = errors.New("coordinates not found")

// ICAOLocator resolves an ICAO code to coordinates through a remote provider.
type ICAOLocator interface {
	LocateICAO(ctx context.Context, icao string) (Coordinates, error)
}

// StationRegistry is a static lookup table of station positions.
type StationRegistry interface {
	// ByICAO looks a station up by its upper-case ICAO code.
	ByICAO(icao string) (Coordinates, bool)

	// ByName looks a station up by its normalized name.
	ByName(normalized string) (Coordinates, bool)
}

// Resolution is the outcome of resolving one station.
type Resolution struct {
	Coordinates Coordinates
	Source      string // one of the GeoSource constants
	Found       bool
}

// Resolver turns an (ICAO, station name) pair into a position.
type Resolver interface {
	Resolve(ctx context.Context, icao, station string) Resolution
}
