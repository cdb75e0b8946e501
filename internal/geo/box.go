// Package geo содержит приближенную геометрию, которой пользуется корреляция угроз.
package geo

import (
	"github.com/golang/geo/s2"
)

// BoundingBox - прямоугольник широта/долгота вокруг центра.
// Это приближение радиуса, а не геодезическое расстояние.
type BoundingBox struct {
	rect s2.Rect
}

// NewBoundingBox строит прямоугольник с независимой полушириной по каждой оси (в градусах).
// Широта обрезается по полюсам, долгота корректно переходит через антимеридиан.
func NewBoundingBox(lat, lon, halfLat, halfLon float64) BoundingBox {
	center := s2.LatLngFromDegrees(lat, lon)
	size := s2.LatLngFromDegrees(2*halfLat, 2*halfLon)
	return BoundingBox{rect: s2.RectFromCenterSize(center, size)}
}

// Contains проверяет, попадает ли точка в прямоугольник (границы включительно)
func (b BoundingBox) Contains(lat, lon float64) bool {
	return b.rect.ContainsLatLng(s2.LatLngFromDegrees(lat, lon))
}

func (b BoundingBox) MinLat() float64 { return b.rect.Lo().Lat.Degrees() }
func (b BoundingBox) MaxLat() float64 { return b.rect.Hi().Lat.Degrees() }
func (b BoundingBox) MinLon() float64 { return b.rect.Lo().Lng.Degrees() }
func (b BoundingBox) MaxLon() float64 { return b.rect.Hi().Lng.Degrees() }

// WrapsAntimeridian сообщает, что диапазон долготы пересекает 180-й меридиан,
// т.е. MinLon > MaxLon и условие по долготе нужно строить через OR.
func (b BoundingBox) WrapsAntimeridian() bool {
	return b.rect.Lng.IsInverted()
}

// Centroid - среднее арифметическое координат
func Centroid(lats, lons []float64) (float64, float64) {
	if len(lats) == 0 || len(lats) != len(lons) {
		return 0, 0
	}
	var sumLat, sumLon float64
	for i := range lats {
		sumLat += lats[i]
		sumLon += lons[i]
	}
	n := float64(len(lats))
	return sumLat / n, sumLon / n
}
