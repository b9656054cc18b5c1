package spz

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/splatpack/internal/splat"
)

// PackOptions controls quantization. The zero value packs with the SPZ v2
// defaults.
type PackOptions struct {
	// FractionalBits of the position fixed point encoding; 0 selects
	// DefaultFractionalBits.
	FractionalBits uint8
	// StrictPositions rejects positions that do not fit 24-bit fixed point
	// instead of wrapping them.
	StrictPositions bool
	// Workers bounds how many channels are quantized concurrently; 0 runs
	// every channel at once.
	Workers int
}

func (o PackOptions) fractionalBits() uint8 {
	if o.FractionalBits == 0 {
		return DefaultFractionalBits
	}
	return o.FractionalBits
}

// Channels returns the channel strategies for a cloud of the given SH degree,
// in the order Pack applies them.
func Channels(shDegree int, opts PackOptions) []Channel {
	return []Channel{
		PositionChannel{FractionalBits: opts.fractionalBits(), Strict: opts.StrictPositions},
		ScaleChannel{},
		RotationChannel{},
		AlphaChannel{},
		ColorChannel{},
		SHChannel{Dim: splat.DimForDegree(shDegree)},
	}
}

// Pack quantizes pc into its SPZ byte blocks. pc is validated first and is
// not modified.
func Pack(pc *splat.PointCloud, opts PackOptions) (*splat.PackedCloud, error) {
	if err := pc.Validate(); err != nil {
		return nil, err
	}
	if fb := opts.fractionalBits(); fb >= positionBits {
		return nil, &splat.ValidationError{
			Field:  "fractional_bits",
			Reason: fmt.Sprintf("%d does not fit a %d-bit position", fb, positionBits),
		}
	}

	packed := &splat.PackedCloud{
		NumPoints:      pc.NumPoints,
		SHDegree:       pc.SHDegree,
		FractionalBits: opts.fractionalBits(),
		Antialiased:    pc.Antialiased,
	}
	channels := Channels(pc.SHDegree, opts)
	sources := [][]float32{pc.Positions, pc.Scales, pc.Rotations, pc.Alphas, pc.Colors, pc.SH}
	targets := []*[]byte{&packed.Positions, &packed.Scales, &packed.Rotations, &packed.Alphas, &packed.Colors, &packed.SH}

	// Each channel writes only its own block.
	var g errgroup.Group
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for i, ch := range channels {
		ch := ch
		dst := make([]byte, pc.NumPoints*ch.Width())
		*targets[i] = dst
		src := sources[i]
		g.Go(func() error {
			if err := ch.Quantize(dst, src); err != nil {
				return fmt.Errorf("quantize %s: %w", ch.Name(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return packed, nil
}
