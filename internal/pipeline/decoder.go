package pipeline

import (
	"bytes"
	"image"
	"os"

	"github.com/photodrop/backend/internal/models"

	// Raster formats the decoder accepts. WebP and HEIC come from
	// third-party decoders that register with the stdlib image registry.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/chai2010/webp"
	_ "github.com/strukturag/libheif/go/heif"
)

// Raster is a decoded image with its pixel dimensions.
type Raster struct {
	Width  int
	Height int
	Image  image.Image
}

// Decoder loads file bytes into an in-memory raster.
type Decoder struct{}

// NewDecoder creates a Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode parses the file payload into a raster. A failure to load the
// payload from disk is a read failure (likely transient I/O); a failure
// to parse the bytes is a decode failure (likely a corrupt file). The two
// are reported as distinct kinds because they have different likely
// causes.
func (d *Decoder) Decode(f models.NormalizedFile) (Raster, error) {
	data := f.Data
	if data == nil {
		var err error
		data, err = os.ReadFile(f.Path)
		if err != nil {
			return Raster{}, newStageError(models.ErrReadFailed, f.Name, err)
		}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Raster{}, newStageError(models.ErrDecodeFailed, f.Name, err)
	}

	bounds := img.Bounds()
	return Raster{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Image:  img,
	}, nil
}

// Load returns the file's payload, reading it from disk when it is not
// already in memory. The returned file always has Data set.
func Load(f models.SelectedFile) (models.SelectedFile, error) {
	if f.Data != nil {
		return f, nil
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return models.SelectedFile{}, newStageError(models.ErrReadFailed, f.Name, err)
	}
	out := f
	out.Data = data
	return out, nil
}
