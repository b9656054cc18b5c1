package convert

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/splatpack/internal/config"
	"github.com/banshee-data/splatpack/internal/fsutil"
	"github.com/banshee-data/splatpack/internal/monitoring"
	"github.com/banshee-data/splatpack/internal/splat"
	"github.com/banshee-data/splatpack/internal/spz"
	"github.com/banshee-data/splatpack/internal/testutil"
	"github.com/banshee-data/splatpack/internal/timeutil"
)

// goldenPLY is a single degree 1 splat whose every attribute exercises a
// distinct branch of its channel's encoding.
func goldenPLY() []byte {
	fields := testutil.SplatFields(9)
	row := testutil.Row(fields, map[string]float32{
		"x": 1, "y": -2, "z": 0,
		"f_dc_0": 0, "f_dc_1": 1, "f_dc_2": -1,
		"opacity": 0,
		"scale_0": -10, "scale_1": 0, "scale_2": 5,
		"rot_0": -1, "rot_1": 1, "rot_2": 0, "rot_3": 0,
		"f_rest_0": 0, "f_rest_1": 0.5, "f_rest_2": -0.5,
		"f_rest_3": 1, "f_rest_4": -1, "f_rest_5": 0.1,
		"f_rest_6": -0.1, "f_rest_7": 0.03, "f_rest_8": 2,
	})
	return testutil.PLY{Fields: fields, Rows: [][]float32{row}}.Bytes()
}

var goldenContainer = []byte{
	// header
	0x4E, 0x47, 0x53, 0x50, // magic
	0x02, 0x00, 0x00, 0x00, // version
	0x01, 0x00, 0x00, 0x00, // points
	0x01,       // SH degree
	0x0C,       // fractional bits
	0x00, 0x00, // flags, reserved
	// positions: 4096, -8192, 0
	0x00, 0x10, 0x00, 0x00, 0xE0, 0xFF, 0x00, 0x00, 0x00,
	// alphas: sigmoid(0)
	0x80,
	// colors: 0, 1, -1
	0x80, 0xA6, 0x59,
	// scales: -10, 0, 5
	0x00, 0xA0, 0xF0,
	// rotations: (1,0,0,-1) flipped to w >= 0
	0x25, 0x80, 0x80,
	// sh, coefficient-major
	0x80, 0xFF, 0x70, 0xC0, 0x00, 0x88, 0x40, 0x90, 0xFF,
}

func fixedRunID() string { return "run-1" }

func TestConvert_Golden(t *testing.T) {
	cv, err := New(nil, WithRunIDs(fixedRunID))
	require.NoError(t, err)

	res, err := cv.Convert(bytes.NewReader(goldenPLY()))
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, 1, res.NumPoints)
	assert.Equal(t, 1, res.SHDegree)
	assert.Equal(t, len(goldenContainer), res.RawSize)
	assert.Equal(t, len(res.Data), res.CompressedSize)

	raw, err := spz.DefaultCompressor().Decompress(res.Data)
	require.NoError(t, err)
	if diff := cmp.Diff(goldenContainer, raw); diff != "" {
		t.Errorf("container mismatch (-want +got):\n%s", diff)
	}

	// The envelope round trips the golden bytes untouched.
	c := spz.DefaultCompressor()
	compressed, err := c.Compress(goldenContainer)
	require.NoError(t, err)
	back, err := c.Decompress(compressed)
	require.NoError(t, err)
	testutil.AssertBytesEqual(t, back, goldenContainer)
}

func TestConvert_Elapsed(t *testing.T) {
	lines, restore := monitoring.Capture()
	defer restore()

	clock := timeutil.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	clock.Step = 1500 * time.Millisecond
	cv, err := New(nil, WithRunIDs(fixedRunID), WithClock(clock))
	require.NoError(t, err)

	res, err := cv.Convert(bytes.NewReader(goldenPLY()))
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, res.Elapsed)

	found := false
	for _, l := range lines() {
		found = found || strings.HasSuffix(l, "in 1.5s")
	}
	assert.True(t, found, "expected elapsed time in %q", lines())
}

func TestConvert_Antialiased(t *testing.T) {
	cfg := config.DefaultConversionConfig()
	on := true
	cfg.Antialiased = &on
	cv, err := New(cfg)
	require.NoError(t, err)

	res, err := cv.Convert(bytes.NewReader(goldenPLY()))
	require.NoError(t, err)
	packed, err := spz.Decode(res.Data, spz.DefaultCompressor())
	require.NoError(t, err)
	assert.True(t, packed.Antialiased)
}

func TestConvert_FractionalBits(t *testing.T) {
	fb := 8
	cv, err := New(&config.ConversionConfig{FractionalBits: &fb})
	require.NoError(t, err)

	res, err := cv.Convert(bytes.NewReader(goldenPLY()))
	require.NoError(t, err)
	raw, err := spz.DefaultCompressor().Decompress(res.Data)
	require.NoError(t, err)
	h, err := spz.ParseHeader(raw)
	require.NoError(t, err)
	assert.Equal(t, uint8(8), h.FractionalBits)
	assert.Equal(t, []byte{0x00, 0x01, 0x00}, raw[spz.HeaderSize:spz.HeaderSize+3])
}

func TestConvert_LogsRunID(t *testing.T) {
	lines, restore := monitoring.Capture()
	defer restore()

	cv, err := New(nil)
	require.NoError(t, err)
	res, err := cv.Convert(bytes.NewReader(goldenPLY()))
	require.NoError(t, err)

	_, err = uuid.Parse(res.RunID)
	require.NoError(t, err, "run IDs are UUIDs by default")
	require.NotEmpty(t, lines())
	for _, l := range lines() {
		assert.True(t, strings.HasPrefix(l, "["+res.RunID+"]"), "line %q", l)
	}
}

func TestConvert_WarnsOnWrappingPositions(t *testing.T) {
	lines, restore := monitoring.Capture()
	defer restore()

	fields := testutil.SplatFields(0)
	row := testutil.Row(fields, map[string]float32{"x": 3000})
	data := testutil.PLY{Fields: fields, Rows: [][]float32{row}}.Bytes()

	cv, err := New(nil, WithRunIDs(fixedRunID))
	require.NoError(t, err)
	_, err = cv.Convert(bytes.NewReader(data))
	require.NoError(t, err)

	found := false
	for _, l := range lines() {
		found = found || strings.Contains(l, "do not fit 12 fractional bits")
	}
	assert.True(t, found, "expected wrap warning in %q", lines())

	strict := true
	cv, err = New(&config.ConversionConfig{StrictPositions: &strict})
	require.NoError(t, err)
	_, err = cv.Convert(bytes.NewReader(data))
	var ve *splat.ValidationError
	assert.True(t, errors.As(err, &ve), "got %v", err)
}

func TestConvert_Errors(t *testing.T) {
	cv, err := New(nil)
	require.NoError(t, err)

	_, err = cv.Convert(strings.NewReader("not a ply file\n"))
	var fe *splat.FormatError
	require.True(t, errors.As(err, &fe), "got %v", err)
	assert.Contains(t, err.Error(), "decode ply")

	strictSH := true
	cv, err = New(&config.ConversionConfig{StrictSH: &strictSH})
	require.NoError(t, err)
	fields := testutil.SplatFields(27)
	data := testutil.PLY{Fields: fields, Rows: [][]float32{testutil.Row(fields, nil)}}.Bytes()
	_, err = cv.Convert(bytes.NewReader(data))
	require.True(t, errors.As(err, &fe), "got %v", err)
	assert.Equal(t, "unsupported spherical harmonics dimension", fe.Reason)
}

type failingCompressor struct{}

func (failingCompressor) Compress([]byte) ([]byte, error) {
	return nil, &splat.CompressionError{Op: "compress", Err: errors.New("disk full")}
}

func (failingCompressor) Decompress([]byte) ([]byte, error) {
	return nil, errors.New("unused")
}

func TestConvert_CompressionError(t *testing.T) {
	cv, err := New(nil, WithCompressor(failingCompressor{}))
	require.NoError(t, err)

	_, err = cv.Convert(bytes.NewReader(goldenPLY()))
	assert.True(t, spz.IsCompressionError(err), "got %v", err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestNew_InvalidConfig(t *testing.T) {
	bad := 99
	_, err := New(&config.ConversionConfig{CompressionLevel: &bad})
	assert.Error(t, err)
}

func TestConvertFile(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.MkdirAll("/scenes", 0755))
	require.NoError(t, mfs.WriteFile("/scenes/garden.ply", goldenPLY(), 0644))

	cv, err := New(nil, WithRunIDs(fixedRunID))
	require.NoError(t, err)

	res, err := cv.ConvertFile(mfs, "/scenes/garden.ply", "/out/garden.spz")
	require.NoError(t, err)

	written, err := mfs.ReadFile("/out/garden.spz")
	require.NoError(t, err)
	assert.Equal(t, res.Data, written)

	packed, err := spz.Decode(written, spz.DefaultCompressor())
	require.NoError(t, err)
	assert.Equal(t, 1, packed.NumPoints)
}

func TestConvertFile_Errors(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	cv, err := New(nil)
	require.NoError(t, err)

	_, err = cv.ConvertFile(mfs, "/missing.ply", "/out.spz")
	assert.ErrorContains(t, err, "failed to open input")

	require.NoError(t, mfs.WriteFile("/bad.ply", []byte("ply\nformat ascii 1.0\nend_header\n"), 0644))
	_, err = cv.ConvertFile(mfs, "/bad.ply", "/bad.spz")
	var fe *splat.FormatError
	require.True(t, errors.As(err, &fe), "got %v", err)
	assert.False(t, mfs.Exists("/bad.spz"), "no output on failure")
}
