package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"time"

	"github.com/disintegration/imaging"
	"github.com/photodrop/backend/internal/models"
	"github.com/photodrop/backend/internal/policy"
)

// Resizer bounds oversized rasters to the policy's maximum width and
// re-encodes them as JPEG at a fixed quality.
type Resizer struct {
	policy policy.Policy
}

// NewResizer creates a Resizer.
func NewResizer(p policy.Policy) *Resizer {
	return &Resizer{policy: p}
}

// Resize returns the file unchanged when the raster already fits within
// the maximum width; re-encoding is skipped entirely so the original
// bytes and compression survive. Oversized rasters are downscaled to
// width=MaxWidth with the height rounded to preserve aspect ratio, then
// re-encoded at the policy quality. The logical name is unchanged; the
// mod time is refreshed.
func (r *Resizer) Resize(ctx context.Context, f models.NormalizedFile, raster Raster) (models.ProcessedFile, error) {
	if raster.Width <= r.policy.MaxWidth {
		return f, nil
	}
	if err := ctx.Err(); err != nil {
		return models.ProcessedFile{}, err
	}

	scale := float64(r.policy.MaxWidth) / float64(raster.Width)
	newWidth := r.policy.MaxWidth
	newHeight := int(math.Round(float64(raster.Height) * scale))

	resized := imaging.Resize(raster.Image, newWidth, newHeight, imaging.Linear)

	var buf bytes.Buffer
	err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(r.policy.ReencodeQuality))
	if err != nil {
		return models.ProcessedFile{}, newStageError(models.ErrCompressionFailed, f.Name, err)
	}
	if buf.Len() == 0 {
		return models.ProcessedFile{}, newStageError(models.ErrCompressionFailed, f.Name,
			fmt.Errorf("encoder produced no output"))
	}

	out := f
	out.MIMEType = "image/jpeg"
	out.Data = buf.Bytes()
	out.Size = int64(buf.Len())
	out.Path = ""
	out.ModTime = time.Now()
	return out, nil
}
