// Package convert provides the HEIC-family decode-and-transcode
// capability used by the preparation pipeline.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	// Registers the HEIC/HEIF decoder with the stdlib image registry.
	_ "github.com/strukturag/libheif/go/heif"
)

// Converter turns a proprietary-format payload into one or more JPEG
// payloads. Multi-image containers yield one variant per image, primary
// image first; callers pick the variant they want.
type Converter interface {
	Convert(ctx context.Context, data []byte, quality int) ([][]byte, error)
}

// HeifConverter converts HEIC/HEIF containers via the libheif decoder.
type HeifConverter struct{}

// NewHeifConverter creates the default converter.
func NewHeifConverter() *HeifConverter {
	return &HeifConverter{}
}

// Convert decodes the container's primary image and re-encodes it as JPEG
// at the given quality (1-100).
func (c *HeifConverter) Convert(ctx context.Context, data []byte, quality int) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The caller classified this file as HEIC-family by name or declared
	// type; any decodable payload is converted regardless of the actual
	// container format.
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding container: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}

	return [][]byte{buf.Bytes()}, nil
}
