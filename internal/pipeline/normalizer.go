package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/photodrop/backend/internal/convert"
	"github.com/photodrop/backend/internal/models"
	"github.com/photodrop/backend/internal/policy"
)

// Normalizer converts HEIC-family files to JPEG so every file entering
// the decoder is in a universally decodable format. Non-proprietary files
// pass through unchanged (identity normalization).
type Normalizer struct {
	converter convert.Converter
	policy    policy.Policy
}

// NewNormalizer creates a Normalizer backed by the given converter.
func NewNormalizer(converter convert.Converter, p policy.Policy) *Normalizer {
	return &Normalizer{converter: converter, policy: p}
}

// Normalize returns the file unchanged unless it is HEIC-family, in which
// case the conversion capability transcodes it to JPEG. The logical name
// swaps the proprietary extension for the standard one and the mod time
// is refreshed. Conversion failure is batch-fatal and carries the
// original filename.
func (n *Normalizer) Normalize(ctx context.Context, f models.SelectedFile) (models.NormalizedFile, error) {
	if Classify(f.Name, f.MIMEType, n.policy) != FormatProprietaryHeic {
		return f, nil
	}

	variants, err := n.converter.Convert(ctx, f.Data, n.policy.ConvertQuality)
	if err != nil {
		return models.NormalizedFile{}, newStageError(models.ErrConversionFailed, f.Name, err)
	}
	if len(variants) == 0 {
		return models.NormalizedFile{}, newStageError(models.ErrConversionFailed, f.Name,
			fmt.Errorf("converter produced no output"))
	}

	// Multi-image containers yield several variants; take the first
	// (primary image first, per the converter contract).
	data := variants[0]

	out := f
	out.Name = replaceExtension(f.Name, n.policy.ConvertedExtension)
	out.MIMEType = "image/jpeg"
	out.Data = data
	out.Size = int64(len(data))
	out.Path = ""
	out.ModTime = time.Now()
	return out, nil
}

// replaceExtension swaps the file's extension, appending when there is
// none.
func replaceExtension(name, newExt string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return name + newExt
	}
	return strings.TrimSuffix(name, ext) + newExt
}
