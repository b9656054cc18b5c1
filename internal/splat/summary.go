package splat

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Summary describes the spatial extent and opacity of a cloud. It is logged
// by the converter so that a wildly off-scale input is visible before the
// fixed point position encoding wraps it.
type Summary struct {
	Min         [3]float64
	Max         [3]float64
	MeanOpacity float64 // after sigmoid, 0..1
}

// Summarize computes a Summary. An empty cloud yields the zero value.
func Summarize(pc *PointCloud) Summary {
	var s Summary
	if pc.NumPoints == 0 || len(pc.Positions) < pc.NumPoints*PositionComponents {
		return s
	}

	axis := make([]float64, pc.NumPoints)
	for a := 0; a < PositionComponents; a++ {
		for i := range axis {
			axis[i] = float64(pc.Positions[i*PositionComponents+a])
		}
		s.Min[a] = floats.Min(axis)
		s.Max[a] = floats.Max(axis)
	}

	if len(pc.Alphas) == pc.NumPoints {
		for i, v := range pc.Alphas {
			axis[i] = 1 / (1 + math.Exp(-float64(v)))
		}
		s.MeanOpacity = floats.Sum(axis) / float64(pc.NumPoints)
	}
	return s
}

// Extent returns the largest absolute coordinate in the summary.
func (s Summary) Extent() float64 {
	m := 0.0
	for a := 0; a < 3; a++ {
		m = math.Max(m, math.Max(math.Abs(s.Min[a]), math.Abs(s.Max[a])))
	}
	return m
}
