// handlers_submissions.go - Submission lifecycle operation handlers
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/photodrop/backend/internal/history"
	"github.com/photodrop/backend/internal/models"
	"github.com/photodrop/backend/internal/session"
	"github.com/vmihailenco/msgpack/v5"
)

// Historian lists past submissions from the audit log.
type Historian interface {
	ListRecent(limit int) ([]history.Record, error)
}

// SubmissionHandlerImpl implements the SubmissionHandler interface
type SubmissionHandlerImpl struct {
	manager   SubmissionManager
	historian Historian
}

// NewSubmissionHandler creates a new submission handler instance.
// historian may be nil when no history store is configured.
func NewSubmissionHandler(manager SubmissionManager, historian Historian) SubmissionHandler {
	return &SubmissionHandlerImpl{manager: manager, historian: historian}
}

type startSubmissionRequest struct {
	FileIDs []string `json:"fileIds"`
}

// HandleStartSubmission starts the submit sequence for staged files.
// Returns 409 while another submission is in flight (single-flight
// guard).
func (h *SubmissionHandlerImpl) HandleStartSubmission(c echo.Context) error {
	var req startSubmissionRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if len(req.FileIDs) == 0 {
		return NewValidationError("fileIds")
	}

	sub, err := h.manager.StartSubmission(req.FileIDs)
	if err != nil {
		if errors.Is(err, session.ErrSubmissionInFlight) {
			return NewConflictError(err.Error())
		}
		return NewBadRequestError("failed to start submission", err)
	}

	return c.JSON(http.StatusAccepted, sub)
}

// HandleSubmissionStatus returns the current state of a submission
func (h *SubmissionHandlerImpl) HandleSubmissionStatus(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	sub, ok := h.manager.GetSubmission(id)
	if !ok {
		return NewNotFoundError("submission", id)
	}

	// Touch to prevent cleanup while being viewed
	h.manager.TouchSubmission(id)

	return c.JSON(http.StatusOK, sub)
}

// HandleSubmissionProgressStream streams submission progress via SSE
func (h *SubmissionHandlerImpl) HandleSubmissionProgressStream(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	sub, ok := h.manager.GetSubmission(id)
	if !ok {
		h.sendSSEError(c, "submission not found")
		return nil
	}

	h.sendSSEData(c, sub)
	if terminal(sub.Status) {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	timeout := time.NewTimer(5 * time.Minute)
	defer timeout.Stop()

	for {
		select {
		case <-ticker.C:
			sub, ok := h.manager.GetSubmission(id)
			if !ok {
				h.sendSSEError(c, "submission expired")
				return nil
			}
			h.sendSSEData(c, sub)
			if terminal(sub.Status) {
				return nil
			}

		case <-timeout.C:
			h.sendSSEError(c, "progress stream timed out")
			return nil

		case <-c.Request().Context().Done():
			return nil
		}
	}
}

// HandleSubmissionManifestMsgpack returns the submission manifest as a
// msgpack blob for bandwidth-sensitive clients
func (h *SubmissionHandlerImpl) HandleSubmissionManifestMsgpack(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	sub, ok := h.manager.GetSubmission(id)
	if !ok {
		return NewNotFoundError("submission", id)
	}

	data, err := msgpack.Marshal(map[string]interface{}{
		"id":             sub.ID,
		"fileIds":        sub.FileIDs,
		"status":         string(sub.Status),
		"progress":       sub.Progress,
		"stage":          sub.Stage,
		"acceptedCount":  sub.AcceptedCount,
		"processedBytes": sub.ProcessedBytes,
		"error":          sub.Error,
	})
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}

	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleRecentSubmissions lists past submissions from the audit log
func (h *SubmissionHandlerImpl) HandleRecentSubmissions(c echo.Context) error {
	if h.historian == nil {
		return c.JSON(http.StatusOK, []history.Record{})
	}

	records, err := h.historian.ListRecent(20)
	if err != nil {
		return NewInternalError("failed to list submission history", err)
	}
	if records == nil {
		records = []history.Record{}
	}
	return c.JSON(http.StatusOK, records)
}

// terminal reports whether a status will never change again.
func terminal(s models.SubmissionStatus) bool {
	return s == models.SubmissionStatusComplete || s == models.SubmissionStatusError
}

func (h *SubmissionHandlerImpl) sendSSEData(c echo.Context, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Response(), "data: %s\n\n", payload)
	c.Response().Flush()
}

func (h *SubmissionHandlerImpl) sendSSEError(c echo.Context, msg string) {
	fmt.Fprintf(c.Response(), "event: error\ndata: %q\n\n", msg)
	c.Response().Flush()
}
