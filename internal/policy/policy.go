// Package policy holds the file preparation limits and quality settings.
package policy

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy is the configuration surface of the preparation pipeline.
type Policy struct {
	MaxFiles         int   `yaml:"max_files"`
	MaxFileSizeBytes int64 `yaml:"max_file_size_bytes"`
	MaxWidth         int   `yaml:"max_width"`

	// JPEG quality (1-100) used when an oversized raster is re-encoded.
	ReencodeQuality int `yaml:"reencode_quality"`
	// JPEG quality (1-100) used when a HEIC-family file is converted.
	ConvertQuality int `yaml:"convert_quality"`

	ImageMIMEPrefix       string   `yaml:"image_mime_prefix"`
	ProprietaryMIMETypes  []string `yaml:"proprietary_mime_types"`
	ProprietaryExtensions []string `yaml:"proprietary_extensions"`
	ConvertedExtension    string   `yaml:"converted_extension"`
}

// Default returns the built-in policy.
func Default() Policy {
	return Policy{
		MaxFiles:         10,
		MaxFileSizeBytes: 20 * 1024 * 1024,
		MaxWidth:         1920,
		ReencodeQuality:  85,
		ConvertQuality:   90,
		ImageMIMEPrefix:  "image/",
		ProprietaryMIMETypes: []string{
			"image/heic",
			"image/heif",
			"image/heic-sequence",
			"image/heif-sequence",
		},
		ProprietaryExtensions: []string{".heic", ".heif"},
		ConvertedExtension:    ".jpg",
	}
}

// Load reads a YAML override file on top of the defaults. A missing file
// is not an error; the defaults apply.
func Load(path string) (Policy, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Policy{}, fmt.Errorf("opening policy file: %w", err)
	}
	defer f.Close()

	return LoadFromReader(f)
}

// LoadFromReader parses a YAML policy from r, applying defaults for any
// field the document leaves unset.
func LoadFromReader(r io.Reader) (Policy, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Policy{}, fmt.Errorf("reading policy: %w", err)
	}

	p := Default()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("parsing policy: %w", err)
	}

	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate checks that the policy values are usable.
func (p Policy) Validate() error {
	if p.MaxFiles <= 0 {
		return fmt.Errorf("max_files must be positive, got %d", p.MaxFiles)
	}
	if p.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("max_file_size_bytes must be positive, got %d", p.MaxFileSizeBytes)
	}
	if p.MaxWidth <= 0 {
		return fmt.Errorf("max_width must be positive, got %d", p.MaxWidth)
	}
	if p.ReencodeQuality < 1 || p.ReencodeQuality > 100 {
		return fmt.Errorf("reencode_quality must be 1-100, got %d", p.ReencodeQuality)
	}
	if p.ConvertQuality < 1 || p.ConvertQuality > 100 {
		return fmt.Errorf("convert_quality must be 1-100, got %d", p.ConvertQuality)
	}
	return nil
}
