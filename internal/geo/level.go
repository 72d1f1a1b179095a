package geo

import (
	"fmt"
	"math"

	"github.com/blasternet/combatsync/internal/combat"
	"github.com/blasternet/combatsync/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// DefaultWallHeight is used when a level does not set one.
const DefaultWallHeight = 400.0

// Body is a player capsule a trace can hit.
type Body struct {
	Player   core.PlayerID
	Location core.Vector // feet
	Radius   float64
	Height   float64
}

// Bodies lists the player capsules currently in the level.
type Bodies func() []Body

type segment struct {
	a, b geom.XY
}

// Level is a top-down wall layout extruded to a fixed height.
type Level struct {
	name       string
	walls      []geom.LineString
	segments   []segment
	wallHeight float64
	bodies     Bodies
}

// NewLevel builds a level from WKT. Lines are walls; polygons contribute
// their rings.
func NewLevel(name, wkt string, wallHeight float64) (*Level, error) {
	g, err := geom.UnmarshalWKT(wkt)
	if err != nil {
		return nil, fmt.Errorf("parse level %s: %w", name, err)
	}
	lines, err := lineStrings(g)
	if err != nil {
		return nil, fmt.Errorf("level %s: %w", name, err)
	}
	return newLevel(name, lines, wallHeight), nil
}

// NewLevelFromPolylines builds a level from JSON polylines, one wall each.
func NewLevelFromPolylines(name string, polylines []string, wallHeight float64) (*Level, error) {
	lines := make([]geom.LineString, 0, len(polylines))
	for i, p := range polylines {
		ls, err := ParsePolyline(p)
		if err != nil {
			return nil, fmt.Errorf("level %s wall %d: %w", name, i, err)
		}
		lines = append(lines, ls)
	}
	return newLevel(name, lines, wallHeight), nil
}

func newLevel(name string, lines []geom.LineString, wallHeight float64) *Level {
	if wallHeight <= 0 {
		wallHeight = DefaultWallHeight
	}
	l := &Level{name: name, walls: lines, wallHeight: wallHeight}
	for _, ls := range lines {
		seq := ls.Coordinates()
		for i := 1; i < seq.Length(); i++ {
			l.segments = append(l.segments, segment{a: seq.GetXY(i - 1), b: seq.GetXY(i)})
		}
	}
	return l
}

// SetBodies sets where player capsules come from.
func (l *Level) SetBodies(fn Bodies) { l.bodies = fn }

func (l *Level) Name() string        { return l.name }
func (l *Level) WallCount() int      { return len(l.walls) }
func (l *Level) SegmentCount() int   { return len(l.segments) }
func (l *Level) WallHeight() float64 { return l.wallHeight }

// LineTrace returns the first wall or player capsule hit between start and
// end. The capsule of ignore is skipped. Players are interactive targets.
func (l *Level) LineTrace(start, end core.Vector, ignore core.PlayerID) combat.Hit {
	best := math.Inf(1)
	var hit combat.Hit

	dir := end.Sub(start)
	if dir.Len2D() > 0 && l.mayHitWalls(start, end) {
		for _, s := range l.segments {
			t, ok := raySegment(start, dir, s)
			if !ok || t >= best {
				continue
			}
			z := start.Z + dir.Z*t
			if z < 0 || z > l.wallHeight {
				continue
			}
			best = t
			hit = combat.Hit{Blocking: true, Point: start.Add(dir.Scale(t))}
		}
	}

	if l.bodies != nil {
		for _, b := range l.bodies() {
			if b.Player == ignore {
				continue
			}
			t, ok := rayCapsule(start, dir, b)
			if !ok || t >= best {
				continue
			}
			best = t
			hit = combat.Hit{Blocking: true, Point: start.Add(dir.Scale(t)), Interactive: true, Player: b.Player}
		}
	}
	return hit
}

// mayHitWalls rejects traces whose footprint misses every wall.
func (l *Level) mayHitWalls(start, end core.Vector) bool {
	ray := geom.NewLineString(geom.NewSequence([]float64{start.X, start.Y, end.X, end.Y}, geom.DimXY))
	for _, w := range l.walls {
		if geom.Intersects(ray.AsGeometry(), w.AsGeometry()) {
			return true
		}
	}
	return false
}

// raySegment intersects start+dir*t, t in [0,1], with s in the XY plane.
func raySegment(start, dir core.Vector, s segment) (float64, bool) {
	ex, ey := s.b.X-s.a.X, s.b.Y-s.a.Y
	den := dir.X*ey - dir.Y*ex
	if den == 0 {
		return 0, false
	}
	wx, wy := s.a.X-start.X, s.a.Y-start.Y
	t := (wx*ey - wy*ex) / den
	u := (wx*dir.Y - wy*dir.X) / den
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return 0, false
	}
	return t, true
}

// rayCapsule intersects the ray with a vertical cylinder.
func rayCapsule(start, dir core.Vector, b Body) (float64, bool) {
	ox, oy := start.X-b.Location.X, start.Y-b.Location.Y
	a := dir.X*dir.X + dir.Y*dir.Y
	if a == 0 {
		return 0, false
	}
	half := ox*dir.X + oy*dir.Y
	c := ox*ox + oy*oy - b.Radius*b.Radius
	disc := half*half - a*c
	if disc < 0 {
		return 0, false
	}
	root := math.Sqrt(disc)
	if (-half+root)/a < 0 {
		return 0, false
	}
	t := (-half - root) / a
	if t < 0 {
		// started inside the cylinder
		t = 0
	}
	if t > 1 {
		return 0, false
	}
	z := start.Z + dir.Z*t
	if z < b.Location.Z || z > b.Location.Z+b.Height {
		return 0, false
	}
	return t, true
}
