package geo

import (
	"encoding/json"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
)

// ParsePolyline parses a JSON array of coordinates into a geom.LineString.
// Input format: "[[x1,y1],[x2,y2],...]"
func ParsePolyline(input string) (geom.LineString, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return geom.LineString{}, fmt.Errorf("failed to parse polyline JSON: %w", err)
	}

	if len(coords) < 2 {
		return geom.LineString{}, fmt.Errorf("polyline must have at least 2 points, got %d", len(coords))
	}

	flat := make([]float64, 0, len(coords)*2)
	for i, coord := range coords {
		if len(coord) < 2 {
			return geom.LineString{}, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		flat = append(flat, coord[0], coord[1])
	}

	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY)), nil
}

// lineStrings flattens any linear or areal geometry into its boundary lines.
func lineStrings(g geom.Geometry) ([]geom.LineString, error) {
	switch g.Type() {
	case geom.TypeLineString:
		return []geom.LineString{g.AsLineString()}, nil
	case geom.TypeMultiLineString:
		mls := g.AsMultiLineString()
		out := make([]geom.LineString, 0, mls.NumLineStrings())
		for i := 0; i < mls.NumLineStrings(); i++ {
			out = append(out, mls.LineStringN(i))
		}
		return out, nil
	case geom.TypePolygon:
		return polygonRings(g.AsPolygon()), nil
	case geom.TypeMultiPolygon:
		mp := g.AsMultiPolygon()
		var out []geom.LineString
		for i := 0; i < mp.NumPolygons(); i++ {
			out = append(out, polygonRings(mp.PolygonN(i))...)
		}
		return out, nil
	case geom.TypeGeometryCollection:
		gc := g.AsGeometryCollection()
		var out []geom.LineString
		for i := 0; i < gc.NumGeometries(); i++ {
			ls, err := lineStrings(gc.GeometryN(i))
			if err != nil {
				return nil, err
			}
			out = append(out, ls...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported wall geometry: %s", g.Type())
}

func polygonRings(p geom.Polygon) []geom.LineString {
	out := []geom.LineString{p.ExteriorRing()}
	for i := 0; i < p.NumInteriorRings(); i++ {
		out = append(out, p.InteriorRingN(i))
	}
	return out
}
