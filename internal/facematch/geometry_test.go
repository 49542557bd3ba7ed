package facematch

import (
	"math"
	"testing"
)

func TestLocationFromBBox(t *testing.T) {
	tests := []struct {
		name     string
		bbox     []float64
		expected Location
	}{
		{
			name:     "simple box",
			bbox:     []float64{10, 20, 110, 140},
			expected: Location{Top: 20, Right: 110, Bottom: 140, Left: 10},
		},
		{
			name:     "fractional coordinates are rounded",
			bbox:     []float64{10.4, 20.6, 110.5, 139.49},
			expected: Location{Top: 21, Right: 111, Bottom: 139, Left: 10},
		},
		{
			name:     "invalid bbox",
			bbox:     []float64{10, 20},
			expected: Location{},
		},
		{
			name:     "empty bbox",
			bbox:     nil,
			expected: Location{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := LocationFromBBox(tt.bbox)
			if result != tt.expected {
				t.Errorf("LocationFromBBox(%v) = %+v, want %+v", tt.bbox, result, tt.expected)
			}
		})
	}
}

func TestScaleBBox(t *testing.T) {
	tests := []struct {
		name     string
		bbox     []float64
		factor   float64
		expected []float64
	}{
		{
			name:     "double",
			bbox:     []float64{1, 2, 3, 4},
			factor:   2,
			expected: []float64{2, 4, 6, 8},
		},
		{
			name:     "zero factor leaves bbox untouched",
			bbox:     []float64{1, 2, 3, 4},
			factor:   0,
			expected: []float64{1, 2, 3, 4},
		},
		{
			name:     "invalid bbox",
			bbox:     []float64{1, 2},
			factor:   2,
			expected: []float64{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ScaleBBox(tt.bbox, tt.factor)
			if len(result) != len(tt.expected) {
				t.Fatalf("ScaleBBox() length = %d, want %d", len(result), len(tt.expected))
			}
			for i := range result {
				if math.Abs(result[i]-tt.expected[i]) > 0.0001 {
					t.Errorf("ScaleBBox()[%d] = %v, want %v", i, result[i], tt.expected[i])
				}
			}
		})
	}
}
