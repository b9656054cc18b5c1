// Package convert runs the PLY to SPZ pipeline: decode, quantize, serialize
// and compress.
package convert

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/splatpack/internal/config"
	"github.com/banshee-data/splatpack/internal/fsutil"
	"github.com/banshee-data/splatpack/internal/monitoring"
	"github.com/banshee-data/splatpack/internal/ply"
	"github.com/banshee-data/splatpack/internal/splat"
	"github.com/banshee-data/splatpack/internal/spz"
	"github.com/banshee-data/splatpack/internal/timeutil"
)

// Result describes one completed conversion.
type Result struct {
	RunID          string
	NumPoints      int
	SHDegree       int
	RawSize        int // uncompressed container bytes
	CompressedSize int
	Summary        splat.Summary
	Elapsed        time.Duration
	Data           []byte // compressed SPZ file
}

// Converter holds the settings for PLY to SPZ conversions. A Converter has
// no mutable state and may be used from several goroutines.
type Converter struct {
	cfg        *config.ConversionConfig
	compressor spz.Compressor
	newRunID   func() string
	clock      timeutil.Clock
}

// Option configures a Converter.
type Option func(*Converter)

// WithCompressor replaces the gzip envelope.
func WithCompressor(c spz.Compressor) Option {
	return func(cv *Converter) { cv.compressor = c }
}

// WithRunIDs overrides run ID generation, for deterministic tests.
func WithRunIDs(f func() string) Option {
	return func(cv *Converter) { cv.newRunID = f }
}

// WithClock sets the clock used to time conversions.
func WithClock(c timeutil.Clock) Option {
	return func(cv *Converter) { cv.clock = c }
}

// New returns a Converter for cfg. A nil cfg uses the defaults.
func New(cfg *config.ConversionConfig, opts ...Option) (*Converter, error) {
	if cfg == nil {
		cfg = config.DefaultConversionConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cv := &Converter{
		cfg:      cfg,
		newRunID: func() string { return uuid.NewString() },
		clock:    timeutil.RealClock{},
	}
	for _, opt := range opts {
		opt(cv)
	}
	if cv.compressor == nil {
		c, err := spz.NewGzipCompressor(cfg.GetCompressionLevel())
		if err != nil {
			return nil, err
		}
		cv.compressor = c
	}
	return cv, nil
}

func (cv *Converter) packOptions() spz.PackOptions {
	return spz.PackOptions{
		FractionalBits:  cv.cfg.GetFractionalBits(),
		StrictPositions: cv.cfg.GetStrictPositions(),
		Workers:         cv.cfg.GetWorkers(),
	}
}

// Convert reads a PLY file from r and returns the compressed SPZ bytes.
func (cv *Converter) Convert(r io.Reader) (*Result, error) {
	runID := cv.newRunID()
	start := cv.clock.Now()

	pc, err := ply.Decode(r, ply.WithStrict(cv.cfg.GetStrictSH()))
	if err != nil {
		return nil, fmt.Errorf("decode ply: %w", err)
	}
	summary := splat.Summarize(pc)
	monitoring.Logf("[%s] decoded %d splats, SH degree %d, extent %.2f, mean opacity %.3f",
		runID, pc.NumPoints, pc.SHDegree, summary.Extent(), summary.MeanOpacity)

	opts := cv.packOptions()
	if limit := float64(int(1)<<23) / float64(int(1)<<opts.FractionalBits); summary.Extent() >= limit {
		monitoring.Logf("[%s] positions reach %.2f; values beyond %.2f do not fit %d fractional bits",
			runID, summary.Extent(), limit, opts.FractionalBits)
	}

	packed, err := spz.Pack(pc, opts)
	if err != nil {
		return nil, fmt.Errorf("pack splats: %w", err)
	}
	if cv.cfg.GetAntialiased() {
		packed.Antialiased = true
	}

	raw := spz.Serialize(packed)
	data, err := cv.compressor.Compress(raw)
	if err != nil {
		return nil, fmt.Errorf("compress container: %w", err)
	}

	elapsed := cv.clock.Since(start)
	monitoring.Logf("[%s] packed %d bytes into %d compressed bytes in %v",
		runID, len(raw), len(data), elapsed.Round(time.Millisecond))

	return &Result{
		RunID:          runID,
		NumPoints:      pc.NumPoints,
		SHDegree:       pc.SHDegree,
		RawSize:        len(raw),
		CompressedSize: len(data),
		Summary:        summary,
		Elapsed:        elapsed,
		Data:           data,
	}, nil
}

// ConvertFile converts the PLY file at in and writes the SPZ file to out,
// creating out's directory if needed. out is only written once the whole
// conversion has succeeded.
func (cv *Converter) ConvertFile(fsys fsutil.FileSystem, in, out string) (*Result, error) {
	f, err := fsys.Open(in)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	res, err := cv.Convert(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in, err)
	}

	if dir := filepath.Dir(out); !fsys.Exists(dir) {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := fsys.WriteFile(out, res.Data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}
	monitoring.Logf("[%s] wrote %s", res.RunID, out)
	return res, nil
}
