package models

// SubmissionStatus represents the lifecycle state of a submission.
type SubmissionStatus string

const (
	SubmissionStatusPending    SubmissionStatus = "pending"
	SubmissionStatusValidating SubmissionStatus = "validating"
	SubmissionStatusPreparing  SubmissionStatus = "preparing"
	SubmissionStatusUploading  SubmissionStatus = "uploading"
	SubmissionStatusComplete   SubmissionStatus = "complete"
	SubmissionStatusError      SubmissionStatus = "error"
)

// Submission tracks one batch submission attempt from staging through
// upload. Progress is 0-100 across all stages.
type Submission struct {
	ID             string           `json:"id"`
	FileIDs        []string         `json:"fileIds"`
	Status         SubmissionStatus `json:"status"`
	Progress       float64          `json:"progress"`
	Stage          string           `json:"stage,omitempty"`
	AcceptedCount  int              `json:"acceptedCount"`
	ProcessedBytes int64            `json:"processedBytes"`
	Diagnostics    []Diagnostic     `json:"diagnostics,omitempty"`
	Error          string           `json:"error,omitempty"`
	ErrorKind      ErrorKind        `json:"errorKind,omitempty"`
	StartTime      int64            `json:"startTime,omitempty"` // Unix ms
	EndTime        int64            `json:"endTime,omitempty"`   // Unix ms
}

// NewSubmission creates a Submission in pending status.
func NewSubmission(id string, fileIDs []string) *Submission {
	return &Submission{
		ID:       id,
		FileIDs:  fileIDs,
		Status:   SubmissionStatusPending,
		Progress: 0,
	}
}
