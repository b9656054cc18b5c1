package spz

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/banshee-data/splatpack/internal/splat"
)

// MaxContainerSize is the largest uncompressed container Decompress will
// produce: MaxPoints splats at SH degree 3.
const MaxContainerSize = HeaderSize + splat.MaxPoints*(positionWidth+alphaWidth+colorWidth+scaleWidth+rotationWidth+15*splat.SHChannels)

// Compressor is the lossless envelope around a serialized container.
type Compressor interface {
	Compress(raw []byte) ([]byte, error)
	Decompress(compressed []byte) ([]byte, error)
}

// GzipCompressor wraps containers in a gzip stream. SPZ files are plain gzip,
// so any gzip reader can open them.
type GzipCompressor struct {
	Level int
}

// NewGzipCompressor returns a GzipCompressor after checking that level is a
// valid gzip level.
func NewGzipCompressor(level int) (*GzipCompressor, error) {
	if _, err := gzip.NewWriterLevel(io.Discard, level); err != nil {
		return nil, &splat.CompressionError{Op: "configure gzip", Err: err}
	}
	return &GzipCompressor{Level: level}, nil
}

// DefaultCompressor returns a GzipCompressor at gzip.DefaultCompression.
func DefaultCompressor() *GzipCompressor {
	return &GzipCompressor{Level: gzip.DefaultCompression}
}

// Compress gzips raw.
func (c *GzipCompressor) Compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, c.Level)
	if err != nil {
		return nil, &splat.CompressionError{Op: "compress", Err: err}
	}
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return nil, &splat.CompressionError{Op: "compress", Err: err}
	}
	if err := zw.Close(); err != nil {
		return nil, &splat.CompressionError{Op: "compress", Err: err}
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress. Corrupt or truncated streams, and streams
// that inflate beyond MaxContainerSize, return a CompressionError.
func (c *GzipCompressor) Decompress(compressed []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, &splat.CompressionError{Op: "decompress", Err: err}
	}
	defer zr.Close()

	raw, err := io.ReadAll(io.LimitReader(zr, MaxContainerSize+1))
	if err != nil {
		return nil, &splat.CompressionError{Op: "decompress", Err: err}
	}
	if len(raw) > MaxContainerSize {
		return nil, &splat.CompressionError{
			Op:  "decompress",
			Err: fmt.Errorf("stream exceeds %d bytes", MaxContainerSize),
		}
	}
	return raw, nil
}

// Encode packs, serializes and compresses pc in one call.
func Encode(pc *splat.PointCloud, opts PackOptions, c Compressor) ([]byte, error) {
	packed, err := Pack(pc, opts)
	if err != nil {
		return nil, err
	}
	return c.Compress(Serialize(packed))
}

// Decode decompresses and deserializes an SPZ file into its packed blocks.
func Decode(data []byte, c Compressor) (*splat.PackedCloud, error) {
	raw, err := c.Decompress(data)
	if err != nil {
		return nil, err
	}
	return Deserialize(raw)
}

// IsCompressionError reports whether err came from the envelope.
func IsCompressionError(err error) bool {
	var ce *splat.CompressionError
	return errors.As(err, &ce)
}
