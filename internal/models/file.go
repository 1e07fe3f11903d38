package models

import "time"

// SelectedFile is a single staged photo as picked by the user.
// Once staged it is treated as immutable; pipeline stages that change the
// payload produce a new value instead of mutating the input.
type SelectedFile struct {
	ID       string    `json:"id,omitempty"`
	Name     string    `json:"name"`
	MIMEType string    `json:"mimeType"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"modTime"`

	// Data holds the payload when it is already in memory. When nil, the
	// payload lives on disk at Path and is loaded lazily by the pipeline.
	Data []byte `json:"-"`
	Path string `json:"-"`
}

// NormalizedFile is a SelectedFile guaranteed to be in a directly
// decodable raster format (HEIC-family inputs have been converted).
type NormalizedFile = SelectedFile

// ProcessedFile is the final upload-ready unit: raster width bounded and
// re-encoded, or byte-identical to its normalized input when no resize
// was needed.
type ProcessedFile = SelectedFile

// FileInfo is the staging metadata returned by the API for a staged file.
type FileInfo struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	MIMEType string    `json:"mimeType"`
	Size     int64     `json:"size"`
	StagedAt time.Time `json:"stagedAt"`
}
