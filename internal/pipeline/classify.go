package pipeline

import (
	"path/filepath"
	"strings"

	"github.com/photodrop/backend/internal/policy"
)

// Format tags the broad encoding class of a selected file.
type Format int

const (
	// FormatStandard is a directly decodable raster (declared image MIME).
	FormatStandard Format = iota
	// FormatProprietaryHeic is the HEIC/HEIF camera family, which needs
	// conversion before it is universally decodable.
	FormatProprietaryHeic
	// FormatUnknown is anything else (not an image as far as we can tell).
	FormatUnknown
)

func (f Format) String() string {
	switch f {
	case FormatStandard:
		return "standard"
	case FormatProprietaryHeic:
		return "heic"
	default:
		return "unknown"
	}
}

// Classify determines the format class from the declared MIME type and the
// file name. The extension check compensates for platforms that stage
// HEIC files with an empty or mislabeled MIME type.
func Classify(name, mimeType string, p policy.Policy) Format {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	for _, proprietary := range p.ProprietaryMIMETypes {
		if mt == proprietary {
			return FormatProprietaryHeic
		}
	}

	ext := strings.ToLower(filepath.Ext(name))
	for _, proprietary := range p.ProprietaryExtensions {
		if ext == proprietary {
			return FormatProprietaryHeic
		}
	}

	if strings.HasPrefix(mt, p.ImageMIMEPrefix) {
		return FormatStandard
	}
	return FormatUnknown
}
