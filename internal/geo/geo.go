// Package geo holds the level geometry: vector parsing, point conversion
// and the wall set that aim traces run against.
package geo

import (
	"errors"
	"strconv"
	"strings"

	"github.com/blasternet/combatsync/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// VectorFromString parses "x,y" or "x,y,z" into a level vector.
func VectorFromString(coords string) (core.Vector, error) {
	parts := strings.Split(coords, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return core.Vector{}, ErrInvalidCoordinates
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return core.Vector{}, ErrInvalidCoordinates
		}
		v[i] = f
	}
	return core.Vector{X: v[0], Y: v[1], Z: v[2]}, nil
}

// Point converts a level vector to an XYZ point.
func Point(v core.Vector) geom.Point {
	return geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: v.X, Y: v.Y},
			Z:    v.Z,
			Type: geom.DimXYZ,
		},
	)
}

// Vector converts a point back to a level vector. Empty points give the zero vector.
func Vector(p geom.Point) core.Vector {
	c, ok := p.Coordinates()
	if !ok {
		return core.Vector{}
	}
	return core.Vector{X: c.X, Y: c.Y, Z: c.Z}
}

// PointJSON encodes v as a GeoJSON point.
func PointJSON(v core.Vector) ([]byte, error) {
	return Point(v).MarshalJSON()
}
