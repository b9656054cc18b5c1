package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// ConversionConfig holds the PLY to SPZ conversion settings. Every field is
// optional: nil fields fall back to the defaults returned by the Get*
// methods, so a partial JSON file is safe.
type ConversionConfig struct {
	// Quantization
	FractionalBits  *int  `json:"fractional_bits,omitempty"`
	StrictPositions *bool `json:"strict_positions,omitempty"`
	Workers         *int  `json:"workers,omitempty"`

	// Decoding
	StrictSH *bool `json:"strict_sh,omitempty"`

	// Container
	Antialiased      *bool `json:"antialiased,omitempty"`
	CompressionLevel *int  `json:"compression_level,omitempty"`
}

// Helper functions to create pointers
func ptrBool(v bool) *bool { return &v }
func ptrInt(v int) *int    { return &v }

// DefaultConversionConfig returns a ConversionConfig with every field set to
// its default value.
func DefaultConversionConfig() *ConversionConfig {
	return &ConversionConfig{
		FractionalBits:   ptrInt(12),
		StrictPositions:  ptrBool(false),
		Workers:          ptrInt(0),
		StrictSH:         ptrBool(false),
		Antialiased:      ptrBool(false),
		CompressionLevel: ptrInt(gzip.DefaultCompression),
	}
}

// LoadConversionConfig loads a ConversionConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadConversionConfig(path string) (*ConversionConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &ConversionConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *ConversionConfig) Validate() error {
	if c.FractionalBits != nil {
		if *c.FractionalBits < 1 || *c.FractionalBits > 23 {
			return fmt.Errorf("fractional_bits must be between 1 and 23, got %d", *c.FractionalBits)
		}
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.CompressionLevel != nil {
		if l := *c.CompressionLevel; l < gzip.StatelessCompression || l > gzip.BestCompression {
			return fmt.Errorf("compression_level must be between %d and %d, got %d",
				gzip.StatelessCompression, gzip.BestCompression, l)
		}
	}
	return nil
}

// GetFractionalBits returns the fractional_bits value or the default.
func (c *ConversionConfig) GetFractionalBits() uint8 {
	if c.FractionalBits == nil {
		return 12
	}
	return uint8(*c.FractionalBits)
}

// GetStrictPositions returns the strict_positions value or the default.
func (c *ConversionConfig) GetStrictPositions() bool {
	if c.StrictPositions == nil {
		return false // default: wrap out of range positions
	}
	return *c.StrictPositions
}

// GetWorkers returns the workers value or the default.
func (c *ConversionConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0 // one goroutine per channel
	}
	return *c.Workers
}

// GetStrictSH returns the strict_sh value or the default.
func (c *ConversionConfig) GetStrictSH() bool {
	if c.StrictSH == nil {
		return false // default: drop surplus SH coefficients
	}
	return *c.StrictSH
}

// GetAntialiased returns the antialiased value or the default.
func (c *ConversionConfig) GetAntialiased() bool {
	if c.Antialiased == nil {
		return false
	}
	return *c.Antialiased
}

// GetCompressionLevel returns the compression_level value or the default.
func (c *ConversionConfig) GetCompressionLevel() int {
	if c.CompressionLevel == nil {
		return gzip.DefaultCompression
	}
	return *c.CompressionLevel
}
