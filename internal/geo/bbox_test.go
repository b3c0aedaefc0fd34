package geo

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetersToLatDegrees(t *testing.T) {
	assert.InDelta(t, 1.0, MetersToLatDegrees(111320), 1e-12)
	assert.InDelta(t, 0.0008983, MetersToLatDegrees(100), 1e-6)
	assert.Equal(t, 0.0, MetersToLatDegrees(0))
}

func TestMetersToLonDegrees(t *testing.T) {
	assert.InDelta(t, 1.0, MetersToLonDegrees(111320, 0), 1e-12)
	// cos(60°) = 0.5 doubles the span.
	assert.InDelta(t, 2.0, MetersToLonDegrees(111320, 60), 1e-9)
	assert.InDelta(t, MetersToLonDegrees(500, 45), MetersToLonDegrees(500, -45), 1e-12)
}

func TestComputeBoundingBox_Equator(t *testing.T) {
	b := ComputeBoundingBox(0, 0, 200)

	assert.InDelta(t, -0.0008983, b.MinLon, 1e-6)
	assert.InDelta(t, -0.0008983, b.MinLat, 1e-6)
	assert.InDelta(t, 0.0008983, b.MaxLon, 1e-6)
	assert.InDelta(t, 0.0008983, b.MaxLat, 1e-6)
}

func TestComputeBoundingBox_Ordered(t *testing.T) {
	for lat := -88.5; lat <= 88.5; lat += 7.25 {
		for lon := -179.0; lon <= 179.0; lon += 31.0 {
			b := ComputeBoundingBox(lat, lon, 200)
			assert.Greater(t, b.MaxLon, b.MinLon, "lat=%v lon=%v", lat, lon)
			assert.Greater(t, b.MaxLat, b.MinLat, "lat=%v lon=%v", lat, lon)
			assert.True(t, b.Contains(lat, lon), "center outside box at lat=%v lon=%v", lat, lon)
		}
	}
}

func TestComputeBoundingBox_CenteredAndScaled(t *testing.T) {
	lat, lon := 47.6062, -122.3321
	b := ComputeBoundingBox(lat, lon, 200)

	assert.InDelta(t, lat, (b.MinLat+b.MaxLat)/2, 1e-12)
	assert.InDelta(t, lon, (b.MinLon+b.MaxLon)/2, 1e-12)

	// Longitude span widens by 1/cos(lat) relative to latitude span.
	ratio := (b.MaxLon - b.MinLon) / (b.MaxLat - b.MinLat)
	assert.InDelta(t, 1/math.Cos(lat*math.Pi/180), ratio, 1e-9)
}

func TestComputeBoundingBox_SideIsParameter(t *testing.T) {
	small := ComputeBoundingBox(10, 10, 100)
	large := ComputeBoundingBox(10, 10, 400)
	assert.InDelta(t, 4*(small.MaxLat-small.MinLat), large.MaxLat-large.MinLat, 1e-12)
}

func TestForCoordinate(t *testing.T) {
	c := Coordinate{Lat: 12.5, Lon: -3.25}
	assert.Equal(t, ComputeBoundingBox(12.5, -3.25, 200), ForCoordinate(c, 200))
}

func TestBoundingBox_String(t *testing.T) {
	b := BoundingBox{MinLon: -1.5, MinLat: 2, MaxLon: 3.25, MaxLat: 4.000125}
	assert.Equal(t, "-1.5,2,3.25,4.000125", b.String())

	parts := strings.Split(ComputeBoundingBox(0, 0, 200).String(), ",")
	require.Len(t, parts, 4)
	assert.True(t, strings.HasPrefix(parts[0], "-0.000898"))
	assert.NotContains(t, parts[0], "e")
}

func TestBoundingBox_Contains(t *testing.T) {
	b := BoundingBox{MinLon: 0, MinLat: 0, MaxLon: 1, MaxLat: 1}
	assert.True(t, b.Contains(0.5, 0.5))
	assert.True(t, b.Contains(1, 1))
	assert.False(t, b.Contains(1.5, 0.5))
	assert.False(t, b.Contains(0.5, -0.1))
}

func TestBoundingBox_Polygon(t *testing.T) {
	b := BoundingBox{MinLon: -1, MinLat: -2, MaxLon: 1, MaxLat: 2}
	p := b.Polygon()

	assert.Equal(t, SRID, p.SRID())
	require.Equal(t, 1, p.NumLinearRings())
	assert.Equal(t, 5, p.LinearRing(0).NumCoords())

	bounds := p.Bounds()
	assert.Equal(t, -1.0, bounds.Min(0))
	assert.Equal(t, -2.0, bounds.Min(1))
	assert.Equal(t, 1.0, bounds.Max(0))
	assert.Equal(t, 2.0, bounds.Max(1))
}

func TestBoundingBox_WKT(t *testing.T) {
	b := BoundingBox{MinLon: 0, MinLat: 0, MaxLon: 1, MaxLat: 1}
	s, err := b.WKT()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s, "POLYGON"), s)
	assert.Contains(t, s, "1 1")
}
