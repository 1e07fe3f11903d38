// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/photodrop/backend/internal/models"
)

// HealthHandler handles liveness checks
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// PhotoHandler handles photo staging operations
type PhotoHandler interface {
	HandleStagePhotos(c echo.Context) error
	HandleGetRecentPhotos(c echo.Context) error
	HandleGetPhoto(c echo.Context) error
	HandleDeletePhoto(c echo.Context) error
}

// SubmissionHandler handles submission lifecycle operations
type SubmissionHandler interface {
	HandleStartSubmission(c echo.Context) error
	HandleSubmissionStatus(c echo.Context) error
	HandleSubmissionProgressStream(c echo.Context) error
	HandleSubmissionManifestMsgpack(c echo.Context) error
	HandleRecentSubmissions(c echo.Context) error
}

// SubmissionManager is the session-layer surface the handlers need.
type SubmissionManager interface {
	StartSubmission(fileIDs []string) (*models.Submission, error)
	GetSubmission(id string) (*models.Submission, bool)
	TouchSubmission(id string) bool
	InFlight() bool
}
