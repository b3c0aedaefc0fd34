// Package geo converts a center coordinate and a ground distance into the
// geographic bounding box requested from the imagery export service.
package geo

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// MetersPerDegreeLat approximates the length of one degree of latitude.
// The same constant is used at every latitude.
const MetersPerDegreeLat = 111320.0

// SRID is the spatial reference of every coordinate and box (WGS84 degrees).
const SRID = 4326

// Coordinate is a WGS84 position in decimal degrees. It is not validated.
type Coordinate struct {
	Lat float64
	Lon float64
}

// BoundingBox is an axis-aligned box in decimal degrees.
type BoundingBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// MetersToLatDegrees converts a north-south distance to degrees of latitude.
func MetersToLatDegrees(meters float64) float64 {
	return meters / MetersPerDegreeLat
}

// MetersToLonDegrees converts an east-west distance at latDeg to degrees of
// longitude. The result diverges as latDeg approaches ±90.
func MetersToLonDegrees(meters, latDeg float64) float64 {
	return meters / (MetersPerDegreeLat * math.Cos(latDeg*math.Pi/180))
}

// ComputeBoundingBox returns the square of side sideMeters centered on
// (lat, lon).
func ComputeBoundingBox(lat, lon, sideMeters float64) BoundingBox {
	dlat := MetersToLatDegrees(sideMeters)
	dlon := MetersToLonDegrees(sideMeters, lat)
	return BoundingBox{
		MinLon: lon - dlon/2,
		MinLat: lat - dlat/2,
		MaxLon: lon + dlon/2,
		MaxLat: lat + dlat/2,
	}
}

// ForCoordinate is ComputeBoundingBox for a Coordinate.
func ForCoordinate(c Coordinate, sideMeters float64) BoundingBox {
	return ComputeBoundingBox(c.Lat, c.Lon, sideMeters)
}

// String renders the box as min-lon,min-lat,max-lon,max-lat.
func (b BoundingBox) String() string {
	parts := []string{
		formatDegrees(b.MinLon),
		formatDegrees(b.MinLat),
		formatDegrees(b.MaxLon),
		formatDegrees(b.MaxLat),
	}
	return strings.Join(parts, ",")
}

// Bounds returns the box as XY bounds (x = lon, y = lat).
func (b BoundingBox) Bounds() *geom.Bounds {
	return geom.NewBounds(geom.XY).Set(b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// Polygon returns the box as a closed ring with SRID 4326.
func (b BoundingBox) Polygon() *geom.Polygon {
	return b.Bounds().Polygon().SetSRID(SRID)
}

// Contains reports whether (lat, lon) lies inside or on the box.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return b.Bounds().OverlapsPoint(geom.XY, geom.Coord{lon, lat})
}

// WKT renders the box polygon as well-known text.
func (b BoundingBox) WKT() (string, error) {
	s, err := wkt.Marshal(b.Polygon())
	if err != nil {
		return "", eris.Wrap(err, "geo: marshal wkt")
	}
	return s, nil
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
