// routes.go - Route registration helpers
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/photodrop/backend/internal/policy"
	"github.com/photodrop/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store     storage.Store
	Manager   SubmissionManager
	Historian Historian
	Policy    policy.Policy
	Version   string
}

// Handlers holds all handler instances
type Handlers struct {
	Health     HealthHandler
	Photo      PhotoHandler
	Submission SubmissionHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:     NewHealthHandler(deps.Version),
		Photo:      NewPhotoHandler(deps.Store, deps.Policy),
		Submission: NewSubmissionHandler(deps.Manager, deps.Historian),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Photo staging
	photoGroup := apiGroup.Group("/photos")
	photoGroup.POST("", handlers.Photo.HandleStagePhotos)
	photoGroup.GET("/recent", handlers.Photo.HandleGetRecentPhotos)
	photoGroup.GET("/:id", handlers.Photo.HandleGetPhoto)
	photoGroup.DELETE("/:id", handlers.Photo.HandleDeletePhoto)

	// Submissions
	subGroup := apiGroup.Group("/submissions")
	subGroup.POST("", handlers.Submission.HandleStartSubmission)
	subGroup.GET("/recent", handlers.Submission.HandleRecentSubmissions)
	subGroup.GET("/:id/status", handlers.Submission.HandleSubmissionStatus)
	subGroup.GET("/:id/progress", handlers.Submission.HandleSubmissionProgressStream)
	subGroup.GET("/:id/manifest/msgpack", handlers.Submission.HandleSubmissionManifestMsgpack)
}
