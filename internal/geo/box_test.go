package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundingBox_Contains(t *testing.T) {
	box := NewBoundingBox(55.75, 37.61, 0.01, 0.02)

	assert.True(t, box.Contains(55.75, 37.61))
	assert.True(t, box.Contains(55.755, 37.625))
	assert.False(t, box.Contains(55.77, 37.61), "outside by latitude")
	assert.False(t, box.Contains(55.75, 37.64), "outside by longitude")
}

func TestBoundingBox_Bounds(t *testing.T) {
	box := NewBoundingBox(10, 20, 0.5, 1)

	assert.InDelta(t, 9.5, box.MinLat(), 1e-9)
	assert.InDelta(t, 10.5, box.MaxLat(), 1e-9)
	assert.InDelta(t, 19, box.MinLon(), 1e-9)
	assert.InDelta(t, 21, box.MaxLon(), 1e-9)
	assert.False(t, box.WrapsAntimeridian())
}

func TestBoundingBox_Antimeridian(t *testing.T) {
	box := NewBoundingBox(0, 179.99, 0.1, 0.1)

	assert.True(t, box.WrapsAntimeridian())
	assert.True(t, box.Contains(0, -179.95))
	assert.True(t, box.Contains(0, 179.95))
	assert.False(t, box.Contains(0, 179.5))
}

func TestCentroid(t *testing.T) {
	lat, lon := Centroid([]float64{10, 20}, []float64{30, 50})
	assert.InDelta(t, 15, lat, 1e-9)
	assert.InDelta(t, 40, lon, 1e-9)

	lat, lon = Centroid(nil, nil)
	assert.Zero(t, lat)
	assert.Zero(t, lon)
}
