// Package coverage converts record geometries between the WKT text used on
// the wire, the WKB bytes persisted in the database and GeoJSON.
package coverage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// ErrInvalidCoverage is returned when a coverage value cannot be parsed.
var ErrInvalidCoverage = errors.New("invalid coverage")

// ParseWKT parses a WKT geometry. Blank input yields a nil geometry.
func ParseWKT(raw string) (geom.T, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	g, err := wkt.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCoverage, err)
	}
	return g, nil
}

// FormatWKT renders g as WKT. A nil geometry renders as "".
func FormatWKT(g geom.T) (string, error) {
	if g == nil {
		return "", nil
	}
	return wkt.Marshal(g)
}

// WKTToWKB parses WKT and returns little-endian WKB bytes for storage.
func WKTToWKB(raw string) ([]byte, error) {
	g, err := ParseWKT(raw)
	if err != nil || g == nil {
		return nil, err
	}
	return wkb.Marshal(g, binary.LittleEndian)
}

// FromWKB decodes stored WKB bytes. Empty input yields a nil geometry.
func FromWKB(b []byte) (geom.T, error) {
	if len(b) == 0 {
		return nil, nil
	}
	g, err := wkb.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCoverage, err)
	}
	return g, nil
}

// ToWKB encodes g as little-endian WKB.
func ToWKB(g geom.T) ([]byte, error) {
	if g == nil {
		return nil, nil
	}
	return wkb.Marshal(g, binary.LittleEndian)
}

// WKBToWKT converts stored WKB bytes into WKT text.
func WKBToWKT(b []byte) (string, error) {
	g, err := FromWKB(b)
	if err != nil {
		return "", err
	}
	return FormatWKT(g)
}

// GeoJSON renders g as a GeoJSON geometry string.
func GeoJSON(g geom.T) (string, error) {
	if g == nil {
		return "", nil
	}
	b, err := gjson.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// FromGeoJSON parses a GeoJSON geometry string.
func FromGeoJSON(raw string) (geom.T, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var g geom.T
	if err := gjson.Unmarshal([]byte(raw), &g); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCoverage, err)
	}
	return g, nil
}

// Point is a planar map coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ParsePoint reads a map focus value of the form "x,y".
func ParsePoint(raw string) (Point, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return Point{}, fmt.Errorf("invalid point %q", raw)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid point %q: %w", raw, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid point %q: %w", raw, err)
	}
	return Point{X: x, Y: y}, nil
}

// String formats p the way ParsePoint reads it.
func (p Point) String() string {
	return strconv.FormatFloat(p.X, 'f', -1, 64) + "," + strconv.FormatFloat(p.Y, 'f', -1, 64)
}

// Bounds is an axis-aligned envelope in map units.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// ParseBounds reads an extent of the form "minx,miny,maxx,maxy".
func ParseBounds(raw string) (Bounds, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return Bounds{}, fmt.Errorf("invalid extent %q", raw)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Bounds{}, fmt.Errorf("invalid extent %q: %w", raw, err)
		}
		v[i] = f
	}
	if v[0] > v[2] || v[1] > v[3] {
		return Bounds{}, fmt.Errorf("invalid extent %q: min exceeds max", raw)
	}
	return Bounds{MinX: v[0], MinY: v[1], MaxX: v[2], MaxY: v[3]}, nil
}

// Envelope returns the envelope of g and false when g is nil or empty.
func Envelope(g geom.T) (Bounds, bool) {
	if g == nil || g.Empty() {
		return Bounds{}, false
	}
	b := g.Bounds()
	if b == nil || b.IsEmpty() {
		return Bounds{}, false
	}
	return Bounds{MinX: b.Min(0), MinY: b.Min(1), MaxX: b.Max(0), MaxY: b.Max(1)}, true
}

// Intersects reports whether the two envelopes share any point.
func (b Bounds) Intersects(o Bounds) bool {
	gb := geom.NewBounds(geom.XY).Set(b.MinX, b.MinY, b.MaxX, b.MaxY)
	ob := geom.NewBounds(geom.XY).Set(o.MinX, o.MinY, o.MaxX, o.MaxY)
	return gb.Overlaps(geom.XY, ob)
}

// Center returns the midpoint of the envelope.
func (b Bounds) Center() Point {
	return Point{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

// NewPoint builds a 2D point geometry.
func NewPoint(x, y float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{x, y})
}
