// Package ply decodes binary little-endian Gaussian splat PLY files into a
// splat.PointCloud.
//
// Only float vertex properties are supported. The column names follow the
// layout written by the common 3DGS training code: x/y/z, scale_0..2,
// rot_0..3 (w first), opacity, f_dc_0..2 and f_rest_0..44 stored channel by
// channel.
package ply

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/banshee-data/splatpack/internal/monitoring"
	"github.com/banshee-data/splatpack/internal/splat"
)

var (
	positionFields = []string{"x", "y", "z"}
	scaleFields    = []string{"scale_0", "scale_1", "scale_2"}
	// PLY stores w first; the canonical cloud stores x, y, z, w.
	rotationFields = []string{"rot_1", "rot_2", "rot_3", "rot_0"}
	alphaFields    = []string{"opacity"}
	colorFields    = []string{"f_dc_0", "f_dc_1", "f_dc_2"}
)

// maxPreallocPoints bounds how many points' worth of attribute storage is
// reserved before any body bytes are read.
const maxPreallocPoints = 1 << 16

type options struct {
	strict bool
}

// Option configures Decode.
type Option func(*options)

// Strict makes Decode reject SH column counts that do not map exactly onto
// a supported degree, instead of dropping the surplus coefficients.
func Strict() Option {
	return func(o *options) { o.strict = true }
}

// WithStrict is Strict gated on a flag, for callers driven by configuration.
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// Decode reads a PLY file from r. r must be positioned at the start of the
// file; Decode consumes the header and exactly the vertex body.
func Decode(r io.Reader, opts ...Option) (*splat.PointCloud, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	br := bufio.NewReader(r)
	lines, err := readHeaderLines(br)
	if err != nil {
		return nil, err
	}
	h, err := parseHeader(lines)
	if err != nil {
		return nil, err
	}

	pos, err := requireColumns(h, positionFields)
	if err != nil {
		return nil, err
	}
	scale, err := requireColumns(h, scaleFields)
	if err != nil {
		return nil, err
	}
	rot, err := requireColumns(h, rotationFields)
	if err != nil {
		return nil, err
	}
	alpha, err := requireColumns(h, alphaFields)
	if err != nil {
		return nil, err
	}
	color, err := requireColumns(h, colorFields)
	if err != nil {
		return nil, err
	}

	degree, shPlan, err := degradeSH(shColumns(h), o.strict)
	if err != nil {
		return nil, err
	}

	n := h.numPoints
	// The declared count is untrusted until the body has been read, so
	// preallocation is capped and the slices grow as rows arrive.
	pre := min(n, maxPreallocPoints)
	pc := &splat.PointCloud{
		NumPoints:   n,
		SHDegree:    degree,
		Antialiased: false,
		Positions:   make([]float32, 0, pre*len(pos)),
		Scales:      make([]float32, 0, pre*len(scale)),
		Rotations:   make([]float32, 0, pre*len(rot)),
		Alphas:      make([]float32, 0, pre),
		Colors:      make([]float32, 0, pre*len(color)),
		SH:          make([]float32, 0, pre*len(shPlan)),
	}

	stride := h.numFields * bytesPerProp
	row := make([]byte, stride)
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(br, row); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, splat.Formatf("truncated body", "got %d of %d vertices", i, n)
			}
			return nil, fmt.Errorf("failed to read ply body: %w", err)
		}
		pc.Positions = gather(pc.Positions, row, pos)
		pc.Scales = gather(pc.Scales, row, scale)
		pc.Rotations = gather(pc.Rotations, row, rot)
		pc.Alphas = gather(pc.Alphas, row, alpha)
		pc.Colors = gather(pc.Colors, row, color)
		pc.SH = gather(pc.SH, row, shPlan)
	}
	return pc, nil
}

// requireColumns resolves names to body columns, failing on the first
// missing name.
func requireColumns(h *header, names []string) ([]int, error) {
	cols := make([]int, len(names))
	for i, name := range names {
		c := h.column(name)
		if c < 0 {
			return nil, splat.Formatf("missing required fields", "%s", name)
		}
		cols[i] = c
	}
	return cols, nil
}

// shColumns returns the columns of f_rest_0, f_rest_1, ... up to the first
// index that is not declared.
func shColumns(h *header) []int {
	var cols []int
	for i := 0; i < splat.MaxSHCoefficients; i++ {
		c := h.column("f_rest_" + strconv.Itoa(i))
		if c < 0 {
			break
		}
		cols = append(cols, c)
	}
	return cols
}

// degradeSH picks the SH degree for the declared f_rest columns and returns
// the body columns in canonical order (coefficient-major, channel-minor).
//
// PLY stores SH channel-major: all coefficients of red, then green, then
// blue. A per-channel count that is not exactly 3, 8 or 15 is rounded down
// to the nearest supported degree and the surplus coefficients of each
// channel are dropped. In strict mode that is an error instead.
func degradeSH(cols []int, strict bool) (int, []int, error) {
	shDim := 0
	if len(cols) >= splat.SHChannels {
		shDim = len(cols) / splat.SHChannels
	}
	degree := splat.DegreeForDim(shDim)
	dim := splat.DimForDegree(degree)

	if len(cols) != dim*splat.SHChannels {
		if strict {
			return 0, nil, splat.Formatf("unsupported spherical harmonics dimension",
				"%d f_rest columns", len(cols))
		}
		monitoring.Logf("ply: %d f_rest columns do not form a full SH degree; keeping degree %d (%d coefficients per channel)",
			len(cols), degree, dim)
	}

	plan := make([]int, 0, dim*splat.SHChannels)
	for j := 0; j < dim; j++ {
		for c := 0; c < splat.SHChannels; c++ {
			plan = append(plan, cols[c*shDim+j])
		}
	}
	return degree, plan, nil
}

// gather appends the float32 values of the given columns of row to dst.
func gather(dst []float32, row []byte, cols []int) []float32 {
	for _, c := range cols {
		off := c * bytesPerProp
		dst = append(dst, math.Float32frombits(binary.LittleEndian.Uint32(row[off:off+bytesPerProp])))
	}
	return dst
}
