package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want float64
		tol  float64
	}{
		{"same point", Point{55.7558, 37.6173}, Point{55.7558, 37.6173}, 0, 1e-9},
		{"one degree of latitude", Point{0, 0}, Point{1, 0}, 111.19, 0.01},
		{"moscow to saint petersburg", Point{55.7558, 37.6173}, Point{59.9343, 30.3351}, 634, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, tt.tol)
		})
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	a := Point{55.0, 37.0}
	b := Point{55.18, 37.0}
	assert.InDelta(t, DistanceKm(a, b), DistanceKm(b, a), 1e-9)
	assert.InDelta(t, 20.0, DistanceKm(a, b), 0.1)
}

func TestPoint_Valid(t *testing.T) {
	assert.True(t, Point{Lat: 90, Lon: -180}.Valid())
	assert.False(t, Point{Lat: 91, Lon: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lon: 181}.Valid())
}
