package domain

import (
	"math"
	"sort"
)

// Cell is one bin of the smoothed heatmap: the mean wind of the stations that
// fall inside it, placed at the cell center.
type Cell struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Mean     float64 `json:"mean"`
	Stations int     `json:"stations"`
}

type cellKey struct{ lat, lon int }

type cellAcc struct {
	sum float64
	n   int
}

// BinCells averages valid records over a regular grid of cellDeg degrees
// anchored at the minimum latitude and longitude. Every occupied cell yields a
// single sample, so dense clusters of stations do not outweigh isolated ones.
// Cells are returned ordered by latitude bin, then longitude bin.
func BinCells(records []StationRecord, cellDeg float64) []Cell {
	valid := ValidRecords(records)
	if len(valid) == 0 || cellDeg <= 0 {
		return nil
	}

	latMin, lonMin := math.Inf(1), math.Inf(1)
	for _, r := range valid {
		latMin = math.Min(latMin, *r.Lat)
		lonMin = math.Min(lonMin, *r.Lon)
	}

	acc := make(map[cellKey]*cellAcc)
	for _, r := range valid {
		k := cellKey{
			lat: int(math.Floor((*r.Lat - latMin) / cellDeg)),
			lon: int(math.Floor((*r.Lon - lonMin) / cellDeg)),
		}
		a, ok := acc[k]
		if !ok {
			a = &cellAcc{}
			acc[k] = a
		}
		a.sum += *r.Mean
		a.n++
	}

	keys := make([]cellKey, 0, len(acc))
	for k := range acc {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].lat != keys[j].lat {
			return keys[i].lat < keys[j].lat
		}
		return keys[i].lon < keys[j].lon
	})

	cells := make([]Cell, 0, len(keys))
	for _, k := range keys {
		a := acc[k]
		cells = append(cells, Cell{
			Lat:      latMin + (float64(k.lat)+0.5)*cellDeg,
			Lon:      lonMin + (float64(k.lon)+0.5)*cellDeg,
			Mean:     a.sum / float64(a.n),
			Stations: a.n,
		})
	}
	return cells
}

// CellRange returns the smallest and largest cell mean.
func CellRange(cells []Cell) (lo, hi float64) {
	if len(cells) == 0 {
		return 0, 0
	}
	lo, hi = cells[0].Mean, cells[0].Mean
	for _, c := range cells[1:] {
		lo = math.Min(lo, c.Mean)
		hi = math.Max(hi, c.Mean)
	}
	return lo, hi
}
