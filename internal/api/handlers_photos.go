// handlers_photos.go - Photo staging operation handlers
package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/photodrop/backend/internal/models"
	"github.com/photodrop/backend/internal/pipeline"
	"github.com/photodrop/backend/internal/policy"
	"github.com/photodrop/backend/internal/storage"
)

// PhotoHandlerImpl implements the PhotoHandler interface
type PhotoHandlerImpl struct {
	store  storage.Store
	policy policy.Policy
}

// NewPhotoHandler creates a new photo handler instance
func NewPhotoHandler(store storage.Store, p policy.Policy) PhotoHandler {
	return &PhotoHandlerImpl{store: store, policy: p}
}

// stageResponse is returned by HandleStagePhotos: the staged accepted
// files plus the full validation report for the selection.
type stageResponse struct {
	Files  []*models.FileInfo      `json:"files"`
	Report models.ValidationReport `json:"report"`
}

// HandleStagePhotos accepts a multipart selection, validates it, and
// stages the accepted subset. Rejected files are never written to disk;
// the report tells the caller why.
func (h *PhotoHandlerImpl) HandleStagePhotos(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("invalid multipart form", err)
	}

	parts := form.File["photos"]
	if len(parts) == 0 {
		return NewValidationError("photos")
	}

	candidates := make([]models.SelectedFile, 0, len(parts))
	for _, part := range parts {
		src, err := part.Open()
		if err != nil {
			return NewInternalError("failed to open uploaded file", err)
		}
		data, err := io.ReadAll(io.LimitReader(src, h.policy.MaxFileSizeBytes+1))
		src.Close()
		if err != nil {
			return NewInternalError(fmt.Sprintf("failed to read uploaded file %s", part.Filename), err)
		}

		candidates = append(candidates, models.SelectedFile{
			Name:     part.Filename,
			MIMEType: part.Header.Get("Content-Type"),
			Size:     int64(len(data)),
			Data:     data,
		})
	}

	report := pipeline.Validate(candidates, h.policy)

	resp := stageResponse{Files: make([]*models.FileInfo, 0, len(report.Accepted)), Report: report}
	for _, f := range report.Accepted {
		info, err := h.store.SaveBytes(f.Name, f.MIMEType, f.Data)
		if err != nil {
			return NewInternalError(fmt.Sprintf("failed to stage file %s", f.Name), err)
		}
		resp.Files = append(resp.Files, info)
	}

	return c.JSON(http.StatusCreated, resp)
}

// HandleGetRecentPhotos returns the most recently staged photos
func (h *PhotoHandlerImpl) HandleGetRecentPhotos(c echo.Context) error {
	files, err := h.store.List(50)
	if err != nil {
		return NewInternalError("failed to list staged files", err)
	}
	if files == nil {
		files = []*models.FileInfo{}
	}
	return c.JSON(http.StatusOK, files)
}

// HandleGetPhoto returns metadata for a staged photo
func (h *PhotoHandlerImpl) HandleGetPhoto(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	info, err := h.store.Get(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}

	return c.JSON(http.StatusOK, info)
}

// HandleDeletePhoto removes a staged photo
func (h *PhotoHandlerImpl) HandleDeletePhoto(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if err := h.store.Delete(id); err != nil {
		return NewNotFoundError("file", id)
	}

	return c.NoContent(http.StatusNoContent)
}
