package spz

import (
	"bytes"
	"encoding/binary"

	"github.com/banshee-data/splatpack/internal/splat"
)

// SPZ container constants.
const (
	Magic      = 0x5053474E // "NGSP"
	Version    = 2
	HeaderSize = 16

	FlagAntialiased = 0x1
)

// Per-point byte widths of each block.
const (
	positionWidth = 9
	alphaWidth    = 1
	colorWidth    = 3
	scaleWidth    = 3
	rotationWidth = 3
)

// Header is the fixed 16-byte SPZ header. All integers are little endian.
//
//	0..3   magic
//	4..7   version
//	8..11  point count
//	12     SH degree
//	13     fractional bits
//	14     flags
//	15     reserved (0)
type Header struct {
	Magic          uint32
	Version        uint32
	NumPoints      uint32
	SHDegree       uint8
	FractionalBits uint8
	Flags          uint8
	Reserved       uint8
}

// Antialiased reports whether the antialiased flag is set.
func (h Header) Antialiased() bool {
	return h.Flags&FlagAntialiased != 0
}

// PayloadSize returns the number of attribute bytes that follow the header.
func (h Header) PayloadSize() int {
	return int(h.NumPoints) * pointWidth(int(h.SHDegree))
}

func pointWidth(shDegree int) int {
	return positionWidth + alphaWidth + colorWidth + scaleWidth + rotationWidth +
		splat.DimForDegree(shDegree)*splat.SHChannels
}

func (h Header) put(b []byte) {
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.NumPoints)
	b[12] = h.SHDegree
	b[13] = h.FractionalBits
	b[14] = h.Flags
	b[15] = h.Reserved
}

// Serialize lays out p as an uncompressed SPZ container: the header followed
// by the positions, alphas, colors, scales, rotations and sh blocks.
func Serialize(p *splat.PackedCloud) []byte {
	h := Header{
		Magic:          Magic,
		Version:        Version,
		NumPoints:      uint32(p.NumPoints),
		SHDegree:       uint8(p.SHDegree),
		FractionalBits: p.FractionalBits,
	}
	if p.Antialiased {
		h.Flags |= FlagAntialiased
	}

	buf := make([]byte, HeaderSize, HeaderSize+p.Size())
	h.put(buf)
	for _, block := range [][]byte{p.Positions, p.Alphas, p.Colors, p.Scales, p.Rotations, p.SH} {
		buf = append(buf, block...)
	}
	return buf
}

// ParseHeader decodes and checks the header at the start of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, splat.Formatf("truncated container", "%d bytes, header needs %d", len(b), HeaderSize)
	}
	h := Header{
		Magic:          binary.LittleEndian.Uint32(b[0:4]),
		Version:        binary.LittleEndian.Uint32(b[4:8]),
		NumPoints:      binary.LittleEndian.Uint32(b[8:12]),
		SHDegree:       b[12],
		FractionalBits: b[13],
		Flags:          b[14],
		Reserved:       b[15],
	}
	switch {
	case h.Magic != Magic:
		return Header{}, splat.Formatf("not a recognized container", "magic %#08x", h.Magic)
	case h.Version != Version:
		return Header{}, splat.Formatf("unsupported container version", "%d", h.Version)
	case h.NumPoints > splat.MaxPoints:
		return Header{}, splat.Formatf("invalid point count", "%d (max %d)", h.NumPoints, splat.MaxPoints)
	case h.SHDegree > splat.MaxSHDegree:
		return Header{}, splat.Formatf("unsupported spherical harmonics degree", "%d", h.SHDegree)
	case h.FractionalBits >= positionBits:
		return Header{}, splat.Formatf("invalid fractional bits", "%d", h.FractionalBits)
	case h.Reserved != 0:
		return Header{}, splat.Formatf("invalid header", "reserved byte %#02x", h.Reserved)
	}
	return h, nil
}

// Deserialize splits an uncompressed container back into its blocks. The
// returned blocks are copies; b may be reused by the caller.
func Deserialize(b []byte) (*splat.PackedCloud, error) {
	h, err := ParseHeader(b)
	if err != nil {
		return nil, err
	}
	if want := HeaderSize + h.PayloadSize(); len(b) != want {
		return nil, splat.Formatf("container size mismatch", "%d bytes, want %d", len(b), want)
	}

	n := int(h.NumPoints)
	rest := b[HeaderSize:]
	next := func(width int) []byte {
		block := bytes.Clone(rest[:n*width])
		if block == nil {
			block = []byte{}
		}
		rest = rest[n*width:]
		return block
	}

	p := &splat.PackedCloud{
		NumPoints:      n,
		SHDegree:       int(h.SHDegree),
		FractionalBits: h.FractionalBits,
		Antialiased:    h.Antialiased(),
	}
	p.Positions = next(positionWidth)
	p.Alphas = next(alphaWidth)
	p.Colors = next(colorWidth)
	p.Scales = next(scaleWidth)
	p.Rotations = next(rotationWidth)
	p.SH = next(splat.DimForDegree(p.SHDegree) * splat.SHChannels)
	return p, nil
}
