// Package splat defines the in-memory Gaussian splat representations shared
// by the PLY decoder and the SPZ packer.
package splat

import "fmt"

// MaxPoints bounds the number of splats accepted from a header. Anything
// larger is treated as a corrupt vertex count.
const MaxPoints = 10 * 1024 * 1024

// Per-point component counts for each attribute.
const (
	PositionComponents = 3
	ScaleComponents    = 3
	RotationComponents = 4 // x, y, z, w
	AlphaComponents    = 1
	ColorComponents    = 3
	SHChannels         = 3 // r, g, b
)

// PointCloud is the canonical floating point splat cloud. All attribute
// slices are flattened per point. SH is laid out coefficient-major with the
// colour channel varying fastest: SH[(i*dim+j)*3+c].
type PointCloud struct {
	NumPoints   int
	SHDegree    int
	Antialiased bool

	Positions []float32 // x, y, z
	Scales    []float32 // log scale
	Rotations []float32 // x, y, z, w
	Alphas    []float32 // pre-sigmoid opacity
	Colors    []float32 // DC colour term
	SH        []float32
}

// SHDim returns the number of SH coefficients per colour channel implied by
// the cloud's degree.
func (pc *PointCloud) SHDim() int {
	return DimForDegree(pc.SHDegree)
}

// Validate checks that every attribute slice holds exactly NumPoints times
// its per-point component count.
func (pc *PointCloud) Validate() error {
	if pc.NumPoints < 0 {
		return &ValidationError{Field: "num_points", Got: pc.NumPoints, Want: 0}
	}
	if pc.SHDegree < 0 || pc.SHDegree > MaxSHDegree {
		return &ValidationError{
			Field:  "sh_degree",
			Reason: fmt.Sprintf("%d is not between 0 and %d", pc.SHDegree, MaxSHDegree),
		}
	}
	checks := []struct {
		field string
		got   int
		per   int
	}{
		{"positions", len(pc.Positions), PositionComponents},
		{"scales", len(pc.Scales), ScaleComponents},
		{"rotations", len(pc.Rotations), RotationComponents},
		{"alphas", len(pc.Alphas), AlphaComponents},
		{"colors", len(pc.Colors), ColorComponents},
		{"sh", len(pc.SH), pc.SHDim() * SHChannels},
	}
	for _, c := range checks {
		if want := pc.NumPoints * c.per; c.got != want {
			return &ValidationError{Field: c.field, Got: c.got, Want: want}
		}
	}
	return nil
}

// PackedCloud holds the quantized byte blocks for each attribute, ready to
// be laid out in an SPZ container.
type PackedCloud struct {
	NumPoints      int
	SHDegree       int
	FractionalBits uint8
	Antialiased    bool

	Positions []byte // 3 x 24-bit little endian fixed point
	Scales    []byte
	Rotations []byte // x, y, z only
	Alphas    []byte
	Colors    []byte
	SH        []byte
}

// Size returns the combined length of all attribute blocks.
func (p *PackedCloud) Size() int {
	return len(p.Positions) + len(p.Alphas) + len(p.Colors) +
		len(p.Scales) + len(p.Rotations) + len(p.SH)
}
