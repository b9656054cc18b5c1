package spz

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/splatpack/internal/splat"
)

// Quantization constants of the SPZ v2 attribute encodings.
const (
	DefaultFractionalBits = 12

	scaleOffset = 10.0
	scaleFactor = 16.0

	rotationHalfRange = 127.5

	colorScale = 0.15

	shFirstBits   = 5 // first 9 values of each point
	shRestBits    = 4
	shFirstValues = 9

	positionBits = 24
)

// Channel quantizes one attribute of a point cloud. Stride is the number of
// floats read per point and Width the number of bytes written per point.
// Quantize is called with len(src) == n*Stride() and len(dst) == n*Width().
type Channel interface {
	Name() string
	Stride() int
	Width() int
	Quantize(dst []byte, src []float32) error
}

// PositionChannel encodes each coordinate as a 24-bit two's complement fixed
// point value with FractionalBits bits after the binary point.
//
// Values beyond ±2^23 in fixed point wrap modulo 2^24. With Strict set they
// are rejected with a ValidationError.
type PositionChannel struct {
	FractionalBits uint8
	Strict         bool
}

func (PositionChannel) Name() string { return "positions" }
func (PositionChannel) Stride() int  { return splat.PositionComponents }
func (PositionChannel) Width() int   { return splat.PositionComponents * 3 }

func (c PositionChannel) Quantize(dst []byte, src []float32) error {
	scale := float64(uint32(1) << c.FractionalBits)
	const limit = 1 << (positionBits - 1)
	for i, v := range src {
		f := math.Round(float64(v) * scale)
		if c.Strict && !(f >= -limit && f < limit) {
			return &splat.ValidationError{
				Field:  "positions",
				Reason: fmt.Sprintf("component %d (%g) out of 24-bit fixed point range", i, v),
			}
		}
		fixed := wrap24(f)
		dst[i*3] = byte(fixed)
		dst[i*3+1] = byte(fixed >> 8)
		dst[i*3+2] = byte(fixed >> 16)
	}
	return nil
}

// wrap24 returns the low 24 bits of the two's complement form of the integer
// valued f. NaN and infinities encode as zero.
func wrap24(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Mod(f, 1<<positionBits)
	return uint32(int64(f)) & (1<<positionBits - 1)
}

// ScaleChannel maps log scales in [-10, 5.9375] onto a byte.
type ScaleChannel struct{}

func (ScaleChannel) Name() string { return "scales" }
func (ScaleChannel) Stride() int  { return splat.ScaleComponents }
func (ScaleChannel) Width() int   { return splat.ScaleComponents }

func (ScaleChannel) Quantize(dst []byte, src []float32) error {
	for i, v := range src {
		dst[i] = toByte((float64(v) + scaleOffset) * scaleFactor)
	}
	return nil
}

// RotationChannel stores the normalized quaternion's x, y and z. The
// quaternion is negated when w < 0 so w is non-negative and can be rebuilt
// from the unit norm.
type RotationChannel struct{}

func (RotationChannel) Name() string { return "rotations" }
func (RotationChannel) Stride() int  { return splat.RotationComponents }
func (RotationChannel) Width() int   { return 3 }

func (RotationChannel) Quantize(dst []byte, src []float32) error {
	var q [4]float64
	for p := 0; p*4 < len(src); p++ {
		for k := range q {
			q[k] = float64(src[p*4+k])
		}
		norm := floats.Norm(q[:], 2)
		if norm == 0 {
			norm = 1
		}
		s := rotationHalfRange
		if q[3] < 0 {
			s = -rotationHalfRange
		}
		for k := 0; k < 3; k++ {
			dst[p*3+k] = toByte(q[k]/norm*s + rotationHalfRange)
		}
	}
	return nil
}

// AlphaChannel stores sigmoid(opacity) as a byte.
type AlphaChannel struct{}

func (AlphaChannel) Name() string { return "alphas" }
func (AlphaChannel) Stride() int  { return splat.AlphaComponents }
func (AlphaChannel) Width() int   { return splat.AlphaComponents }

func (AlphaChannel) Quantize(dst []byte, src []float32) error {
	for i, v := range src {
		dst[i] = toByte(sigmoid(float64(v)) * 255)
	}
	return nil
}

// ColorChannel stores the DC colour term scaled by colorScale around 0.5.
type ColorChannel struct{}

func (ColorChannel) Name() string { return "colors" }
func (ColorChannel) Stride() int  { return splat.ColorComponents }
func (ColorChannel) Width() int   { return splat.ColorComponents }

func (ColorChannel) Quantize(dst []byte, src []float32) error {
	for i, v := range src {
		dst[i] = toByte(float64(v)*(colorScale*255) + 0.5*255)
	}
	return nil
}

// SHChannel stores each SH value in a full byte but snaps it to a bucket of
// 2^(8-bits). The first nine values of a point (the degree 1 band) keep 5
// bits, the rest 4. Points with fewer than nine values use 4 bits throughout.
type SHChannel struct {
	Dim int // coefficients per colour channel
}

func (SHChannel) Name() string  { return "sh" }
func (c SHChannel) Stride() int { return c.Dim * splat.SHChannels }
func (c SHChannel) Width() int  { return c.Dim * splat.SHChannels }

func (c SHChannel) Quantize(dst []byte, src []float32) error {
	per := c.Stride()
	if per == 0 {
		return nil
	}
	firstBits := shRestBits
	if per >= shFirstValues {
		firstBits = shFirstBits
	}
	for i, v := range src {
		bits := shRestBits
		if i%per < shFirstValues {
			bits = firstBits
		}
		dst[i] = quantizeSH(float64(v), bucketSize(bits))
	}
	return nil
}

func bucketSize(bits int) float64 {
	return float64(int(1) << (8 - bits))
}

func quantizeSH(v, bucket float64) byte {
	q := math.Round(v*128 + 128)
	q = math.Floor((q+bucket/2)/bucket) * bucket
	return toByte(q)
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}

// toByte rounds half away from zero and clamps to [0, 255]. NaN maps to 0.
func toByte(v float64) byte {
	r := math.Round(v)
	if !(r > 0) {
		return 0
	}
	if r >= 255 {
		return 255
	}
	return byte(r)
}
