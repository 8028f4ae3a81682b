package geometry

import (
	"fmt"
	"math"

	"github.com/airbusgeo/sentinel-fetcher/service"
	"github.com/go-spatial/geom"
	geomwkt "github.com/go-spatial/geom/encoding/wkt"
)

// PolygonFromGeoJSON parses a GeoJSON geometry, feature or feature collection
// into a polygon
func PolygonFromGeoJSON(raw []byte) (geom.Polygon, error) {
	g, err := service.UnmarshalGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("PolygonFromGeoJSON: %w", err)
	}
	p, err := PolygonFromGeometry(g)
	if err != nil {
		return nil, fmt.Errorf("PolygonFromGeoJSON.%w", err)
	}
	return p, nil
}

// PolygonFromWKT parses a WKT string into a polygon
func PolygonFromWKT(wkt string) (geom.Polygon, error) {
	g, err := geomwkt.DecodeString(wkt)
	if err != nil {
		return nil, fmt.Errorf("PolygonFromWKT: %w", err)
	}
	p, ok := g.(geom.Polygon)
	if !ok {
		return nil, fmt.Errorf("PolygonFromWKT: expected a Polygon, got %T", g)
	}
	return p, nil
}

// PolygonFromGeometry extracts a polygon from a geometry.
// A multipolygon is accepted if it contains exactly one polygon.
func PolygonFromGeometry(g geom.Geometry) (geom.Polygon, error) {
	switch g := g.(type) {
	case geom.Polygon:
		return g, nil
	case geom.MultiPolygon:
		if len(g) == 1 {
			return geom.Polygon(g[0]), nil
		}
		return nil, fmt.Errorf("PolygonFromGeometry: expected a single Polygon, got %d", len(g))
	default:
		return nil, fmt.Errorf("PolygonFromGeometry: expected a Polygon, got %T", g)
	}
}

// PolygonFromBBox returns the closed rectangle minx,miny maxx,maxy
func PolygonFromBBox(minx, miny, maxx, maxy float64) geom.Polygon {
	return geom.Polygon{{
		{minx, miny},
		{maxx, miny},
		{maxx, maxy},
		{minx, maxy},
		{minx, miny},
	}}
}

// ValidAOI checks that the polygon is usable as an area of interest:
// every ring has at least four points and is closed, and the area is strictly positive.
func ValidAOI(p geom.Polygon) error {
	if len(p) == 0 {
		return fmt.Errorf("empty polygon")
	}
	for i, ring := range p {
		if len(ring) < 4 {
			return fmt.Errorf("ring %d has %d points, at least 4 expected", i, len(ring))
		}
		if ring[0] != ring[len(ring)-1] {
			return fmt.Errorf("ring %d is not closed", i)
		}
	}
	if Area(p) <= 0 {
		return fmt.Errorf("polygon area is null")
	}
	return nil
}

// Area returns the planar area of the polygon (the first ring minus the holes)
func Area(p geom.Polygon) float64 {
	area := 0.0
	for i, ring := range p {
		if i == 0 {
			area += ringArea(ring)
		} else {
			area -= ringArea(ring)
		}
	}
	return area
}

func ringArea(ring [][2]float64) float64 {
	sum := 0.0
	for i := 0; i < len(ring)-1; i++ {
		sum += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	return math.Abs(sum) / 2
}
