package spz

import (
	"math"

	"github.com/banshee-data/splatpack/internal/splat"
)

// Unpack dequantizes p back into a floating point cloud. It inverts each
// channel up to its quantization step; rotation w is rebuilt from the unit
// norm and is always non-negative.
func Unpack(p *splat.PackedCloud) (*splat.PointCloud, error) {
	n := p.NumPoints
	dim := splat.DimForDegree(p.SHDegree)
	checks := []struct {
		field string
		got   int
		width int
	}{
		{"positions", len(p.Positions), positionWidth},
		{"alphas", len(p.Alphas), alphaWidth},
		{"colors", len(p.Colors), colorWidth},
		{"scales", len(p.Scales), scaleWidth},
		{"rotations", len(p.Rotations), rotationWidth},
		{"sh", len(p.SH), dim * splat.SHChannels},
	}
	for _, c := range checks {
		if want := n * c.width; c.got != want {
			return nil, &splat.ValidationError{Field: c.field, Got: c.got, Want: want}
		}
	}

	pc := &splat.PointCloud{
		NumPoints:   n,
		SHDegree:    p.SHDegree,
		Antialiased: p.Antialiased,
		Positions:   make([]float32, n*splat.PositionComponents),
		Scales:      make([]float32, n*splat.ScaleComponents),
		Rotations:   make([]float32, n*splat.RotationComponents),
		Alphas:      make([]float32, n),
		Colors:      make([]float32, n*splat.ColorComponents),
		SH:          make([]float32, n*dim*splat.SHChannels),
	}

	scale := 1 / float64(uint32(1)<<p.FractionalBits)
	for i := range pc.Positions {
		b := p.Positions[i*3 : i*3+3]
		fixed := int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16)
		if fixed&0x800000 != 0 {
			fixed |= -1 << positionBits // sign extend
		}
		pc.Positions[i] = float32(float64(fixed) * scale)
	}
	for i, b := range p.Scales {
		pc.Scales[i] = float32(float64(b)/scaleFactor - scaleOffset)
	}
	for pt := 0; pt < n; pt++ {
		var sum float64
		for k := 0; k < 3; k++ {
			v := float64(p.Rotations[pt*3+k])/rotationHalfRange - 1
			pc.Rotations[pt*4+k] = float32(v)
			sum += v * v
		}
		pc.Rotations[pt*4+3] = float32(math.Sqrt(math.Max(0, 1-sum)))
	}
	for i, b := range p.Alphas {
		pc.Alphas[i] = float32(logit(float64(b) / 255))
	}
	for i, b := range p.Colors {
		pc.Colors[i] = float32((float64(b)/255 - 0.5) / colorScale)
	}
	for i, b := range p.SH {
		pc.SH[i] = float32((float64(b) - 128) / 128)
	}
	return pc, nil
}

func logit(a float64) float64 {
	return math.Log(a / (1 - a))
}
