// Package testutil provides shared test utilities and fixtures.
//
// This package centralises the synthetic PLY builders used by the decoder,
// packer and converter tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"testing"
)

// SplatFields returns the standard 3DGS vertex property names with shRest
// f_rest columns, in the order the training code writes them.
func SplatFields(shRest int) []string {
	fields := []string{
		"x", "y", "z",
		"nx", "ny", "nz",
		"f_dc_0", "f_dc_1", "f_dc_2",
	}
	for i := 0; i < shRest; i++ {
		fields = append(fields, fmt.Sprintf("f_rest_%d", i))
	}
	return append(fields,
		"opacity",
		"scale_0", "scale_1", "scale_2",
		"rot_0", "rot_1", "rot_2", "rot_3",
	)
}

// PLY describes a synthetic binary little-endian PLY file.
type PLY struct {
	Fields []string
	Rows   [][]float32
	// Count overrides the declared vertex count when non-zero.
	Count int
	// Extra header lines inserted before end_header.
	Extra []string
}

// Header returns the header text, including the end_header line.
func (p PLY) Header() string {
	count := p.Count
	if count == 0 {
		count = len(p.Rows)
	}
	var b bytes.Buffer
	b.WriteString("ply\n")
	b.WriteString("format binary_little_endian 1.0\n")
	fmt.Fprintf(&b, "element vertex %d\n", count)
	for _, f := range p.Fields {
		fmt.Fprintf(&b, "property float %s\n", f)
	}
	for _, l := range p.Extra {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteString("end_header\n")
	return b.String()
}

// Bytes returns the full file: header followed by the little-endian rows.
func (p PLY) Bytes() []byte {
	var b bytes.Buffer
	b.WriteString(p.Header())
	var word [4]byte
	for _, row := range p.Rows {
		for _, v := range row {
			binary.LittleEndian.PutUint32(word[:], math.Float32bits(v))
			b.Write(word[:])
		}
	}
	return b.Bytes()
}

// Row builds a vertex row for fields from a name to value map. Missing names
// are zero.
func Row(fields []string, values map[string]float32) []float32 {
	row := make([]float32, len(fields))
	for i, f := range fields {
		row[i] = values[f]
	}
	return row
}

// AssertBytesEqual fails the test with the first differing offset.
func AssertBytesEqual(t *testing.T, got, want []byte) {
	t.Helper()
	if bytes.Equal(got, want) {
		return
	}
	n := min(len(got), len(want))
	for i := 0; i < n; i++ {
		if got[i] != want[i] {
			t.Fatalf("bytes differ at offset %d: got %#02x, want %#02x (len got %d, want %d)", i, got[i], want[i], len(got), len(want))
		}
	}
	t.Fatalf("length mismatch: got %d bytes, want %d", len(got), len(want))
}
