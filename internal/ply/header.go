package ply

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/splatpack/internal/splat"
)

// PLY header tokens understood by the decoder.
const (
	magicLine    = "ply"
	formatLine   = "format binary_little_endian 1.0"
	endHeader    = "end_header"
	vertexElem   = "vertex"
	bytesPerProp = 4 // float32

	// maxHeaderLines guards against reading an entire binary file as header
	// text when end_header is missing.
	maxHeaderLines = 4096
)

// header is the parsed subset of a PLY header the decoder needs. columns is
// built once per decode and never shared.
type header struct {
	numPoints int
	numFields int
	columns   map[string]int
}

// column returns the body column for name, or -1.
func (h *header) column(name string) int {
	if i, ok := h.columns[name]; ok {
		return i
	}
	return -1
}

// readHeaderLines reads newline terminated header lines up to end_header.
// The end_header line itself is consumed but not returned.
func readHeaderLines(br *bufio.Reader) ([]string, error) {
	var lines []string
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to read ply header: %w", err)
		}
		if line == "" && err == io.EOF {
			return lines, nil
		}
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == endHeader {
			return lines, nil
		}
		lines = append(lines, line)
		if len(lines) > maxHeaderLines {
			return nil, splat.Formatf("not a recognized point-cloud file", "header exceeds %d lines", maxHeaderLines)
		}
		if err == io.EOF {
			return lines, nil
		}
	}
}

// parseHeader validates the header lines and builds the column index.
func parseHeader(lines []string) (*header, error) {
	if len(lines) == 0 || lines[0] != magicLine {
		return nil, &splat.FormatError{Reason: "not a recognized point-cloud file"}
	}

	binaryLE := false
	for _, line := range lines {
		if strings.TrimSpace(line) == formatLine {
			binaryLE = true
			break
		}
	}
	if !binaryLE {
		return nil, &splat.FormatError{Reason: "unsupported encoding", Detail: "want " + formatLine}
	}

	h := &header{columns: make(map[string]int)}
	var (
		countText string
		element   string
		sawVertex bool
	)
	for _, line := range lines[1:] {
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "element":
			if len(parts) < 3 {
				continue
			}
			element = parts[1]
			if element == vertexElem {
				// Last declaration wins.
				countText = parts[2]
				sawVertex = true
			} else if !sawVertex {
				return nil, splat.Formatf("unsupported element layout", "element %q precedes vertex", element)
			}
		case "property":
			if element != vertexElem {
				continue
			}
			if len(parts) != 3 || (parts[1] != "float" && parts[1] != "float32") {
				return nil, splat.Formatf("unsupported property type", "%s", strings.Join(parts[1:], " "))
			}
			name := parts[2]
			if _, dup := h.columns[name]; !dup {
				h.columns[name] = h.numFields
			}
			h.numFields++
		}
	}

	if !sawVertex {
		return nil, &splat.FormatError{Reason: "missing vertex count"}
	}
	n, err := strconv.Atoi(countText)
	if err != nil || n <= 0 || n > splat.MaxPoints {
		return nil, splat.Formatf("invalid vertex count", "%s (max %d)", countText, splat.MaxPoints)
	}
	h.numPoints = n
	return h, nil
}
