package models

// ErrorKind identifies one user-visible failure category. Validation
// kinds are advisory (the accepted subset still proceeds); pipeline kinds
// abort the whole batch; upload kinds fail the submission attempt only.
type ErrorKind string

const (
	// Validation kinds (advisory).
	ErrTooManyFiles ErrorKind = "too_many_files"
	ErrNotAnImage   ErrorKind = "not_an_image"
	ErrFileTooLarge ErrorKind = "file_too_large"
	ErrNoValidFiles ErrorKind = "no_valid_files"

	// Pipeline kinds (batch-fatal).
	ErrConversionFailed  ErrorKind = "conversion_failed"
	ErrReadFailed        ErrorKind = "read_failed"
	ErrDecodeFailed      ErrorKind = "decode_failed"
	ErrCompressionFailed ErrorKind = "compression_failed"

	// Upload kinds (fatal to the submission attempt).
	ErrNetwork ErrorKind = "network_error"
	ErrServer  ErrorKind = "server_error"
)

var kindMessages = map[ErrorKind]string{
	ErrTooManyFiles:      "too many files selected, only the first 10 were kept",
	ErrNotAnImage:        "file is not an image",
	ErrFileTooLarge:      "file exceeds the 20 MiB size limit",
	ErrNoValidFiles:      "no valid image files in the selection",
	ErrConversionFailed:  "photo could not be converted",
	ErrReadFailed:        "photo could not be read",
	ErrDecodeFailed:      "photo could not be decoded",
	ErrCompressionFailed: "photo could not be re-encoded",
	ErrNetwork:           "upload failed: network error",
	ErrServer:            "upload rejected by server",
}

// Message returns the user-facing message for the kind. Each kind maps to
// exactly one message; unknown kinds fall back to their raw value.
func (k ErrorKind) Message() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return string(k)
}

// Fatal reports whether the kind aborts an in-flight submission (as
// opposed to an advisory validation diagnostic).
func (k ErrorKind) Fatal() bool {
	switch k {
	case ErrTooManyFiles, ErrNotAnImage, ErrFileTooLarge, ErrNoValidFiles:
		return false
	}
	return true
}

// Diagnostic is one advisory message attached to a validation report or a
// submission.
type Diagnostic struct {
	Kind     ErrorKind `json:"kind"`
	FileName string    `json:"fileName,omitempty"` // empty for batch-level diagnostics
	Message  string    `json:"message"`
}

// NewDiagnostic builds a diagnostic with the kind's canonical message.
func NewDiagnostic(kind ErrorKind, fileName string) Diagnostic {
	return Diagnostic{Kind: kind, FileName: fileName, Message: kind.Message()}
}
