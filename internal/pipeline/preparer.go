package pipeline

import (
	"context"
	"fmt"

	"github.com/photodrop/backend/internal/convert"
	"github.com/photodrop/backend/internal/models"
	"github.com/photodrop/backend/internal/policy"
)

// ProgressCallback reports per-file pipeline progress. filesDone counts
// fully processed files; stage names the step currently running for the
// file at index filesDone.
type ProgressCallback func(filesDone, total int, stage string)

// Preparer sequences Normalizer, Decoder and Resizer across a batch.
type Preparer struct {
	normalizer *Normalizer
	decoder    *Decoder
	resizer    *Resizer
}

// NewPreparer creates a Preparer with the given conversion capability and
// policy.
func NewPreparer(converter convert.Converter, p policy.Policy) *Preparer {
	return &Preparer{
		normalizer: NewNormalizer(converter, p),
		decoder:    NewDecoder(),
		resizer:    NewResizer(p),
	}
}

// Prepare processes the batch strictly sequentially in selection order.
// Any stage failure aborts the entire batch: a single bad file prevents
// any upload attempt for the whole selection. This is deliberately
// stricter than validation (which is per-file independent) to avoid
// partial, confusing uploads. onProgress may be nil.
func (p *Preparer) Prepare(ctx context.Context, batch []models.SelectedFile, onProgress ProgressCallback) ([]models.ProcessedFile, error) {
	progress := func(done int, stage string) {
		if onProgress != nil {
			onProgress(done, len(batch), stage)
		}
	}

	processed := make([]models.ProcessedFile, 0, len(batch))
	for i, f := range batch {
		progress(i, "reading")
		loaded, err := Load(f)
		if err != nil {
			return nil, err
		}

		progress(i, "normalizing")
		normalized, err := p.normalizer.Normalize(ctx, loaded)
		if err != nil {
			return nil, err
		}

		progress(i, "decoding")
		raster, err := p.decoder.Decode(normalized)
		if err != nil {
			return nil, err
		}
		fmt.Printf("[Prepare] %s: %dx%d (%s)\n", normalized.Name, raster.Width, raster.Height, normalized.MIMEType)

		progress(i, "resizing")
		result, err := p.resizer.Resize(ctx, normalized, raster)
		if err != nil {
			return nil, err
		}

		processed = append(processed, result)
	}

	progress(len(batch), "done")
	return processed, nil
}
