package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/photodrop/backend/internal/models"
	"github.com/photodrop/backend/internal/policy"
	"github.com/photodrop/backend/internal/session"
	"github.com/photodrop/backend/internal/testutil"
)

// fakeManager is a scripted SubmissionManager.
type fakeManager struct {
	startErr error
	started  [][]string
	subs     map[string]*models.Submission
}

func newFakeManager() *fakeManager {
	return &fakeManager{subs: make(map[string]*models.Submission)}
}

func (m *fakeManager) StartSubmission(fileIDs []string) (*models.Submission, error) {
	if m.startErr != nil {
		return nil, m.startErr
	}
	m.started = append(m.started, fileIDs)
	sub := models.NewSubmission("sub-1", fileIDs)
	m.subs[sub.ID] = sub
	return sub, nil
}

func (m *fakeManager) GetSubmission(id string) (*models.Submission, bool) {
	sub, ok := m.subs[id]
	return sub, ok
}

func (m *fakeManager) TouchSubmission(id string) bool {
	_, ok := m.subs[id]
	return ok
}

func (m *fakeManager) InFlight() bool { return false }

func newTestServer(store *testutil.MockStorage, manager SubmissionManager) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	handlers := NewHandlers(&Dependencies{
		Store:   store,
		Manager: manager,
		Policy:  policy.Default(),
		Version: "test",
	})
	RegisterRoutes(e, handlers)
	return e
}

// addPhotoPart writes one multipart file part with an explicit content
// type, the way browsers send selected files.
func addPhotoPart(t *testing.T, w *multipart.Writer, filename, contentType string, data []byte) {
	t.Helper()
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photos"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
}

func doRequest(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	e := newTestServer(testutil.NewMockStorage(), newFakeManager())

	rec := doRequest(e, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestStagePhotos(t *testing.T) {
	store := testutil.NewMockStorage()
	e := newTestServer(store, newFakeManager())

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	addPhotoPart(t, w, "a.jpg", "image/jpeg", testutil.MakeJPEG(10, 10))
	addPhotoPart(t, w, "b.heic", "image/heic", []byte("heic-bytes"))
	addPhotoPart(t, w, "notes.txt", "text/plain", []byte("hello"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/photos", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := doRequest(e, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Files  []*models.FileInfo `json:"files"`
		Report struct {
			Outcomes []struct {
				FileName string           `json:"fileName"`
				Accepted bool             `json:"accepted"`
				Reason   models.ErrorKind `json:"reason,omitempty"`
			} `json:"outcomes"`
			Diagnostics []models.Diagnostic `json:"diagnostics"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// Only the two images were staged.
	require.Len(t, resp.Files, 2)
	assert.Equal(t, "a.jpg", resp.Files[0].Name)
	assert.Equal(t, "b.heic", resp.Files[1].Name)
	assert.Equal(t, 2, store.Count())

	// The text file is rejected in the report, not silently dropped.
	require.Len(t, resp.Report.Outcomes, 3)
	assert.False(t, resp.Report.Outcomes[2].Accepted)
	assert.Equal(t, models.ErrNotAnImage, resp.Report.Outcomes[2].Reason)
}

func TestStagePhotosTruncatesSelection(t *testing.T) {
	store := testutil.NewMockStorage()
	e := newTestServer(store, newFakeManager())

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for i := 0; i < 13; i++ {
		addPhotoPart(t, w, fmt.Sprintf("img%d.jpg", i), "image/jpeg", []byte("x"))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/photos", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := doRequest(e, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Files  []*models.FileInfo `json:"files"`
		Report struct {
			Diagnostics []models.Diagnostic `json:"diagnostics"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Len(t, resp.Files, 10)
	assert.Equal(t, 10, store.Count())
	require.NotEmpty(t, resp.Report.Diagnostics)
	assert.Equal(t, models.ErrTooManyFiles, resp.Report.Diagnostics[0].Kind)
}

func TestStagePhotosEmptyForm(t *testing.T) {
	e := newTestServer(testutil.NewMockStorage(), newFakeManager())

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("unrelated", "value"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/photos", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := doRequest(e, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAndDeletePhoto(t *testing.T) {
	store := testutil.NewMockStorage()
	e := newTestServer(store, newFakeManager())

	info, err := store.SaveBytes("keep.jpg", "image/jpeg", []byte("x"))
	require.NoError(t, err)

	rec := doRequest(e, httptest.NewRequest(http.MethodGet, "/api/photos/"+info.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(e, httptest.NewRequest(http.MethodGet, "/api/photos/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(e, httptest.NewRequest(http.MethodDelete, "/api/photos/"+info.ID, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, store.Count())

	rec = doRequest(e, httptest.NewRequest(http.MethodDelete, "/api/photos/"+info.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecentPhotos(t *testing.T) {
	store := testutil.NewMockStorage()
	e := newTestServer(store, newFakeManager())

	rec := doRequest(e, httptest.NewRequest(http.MethodGet, "/api/photos/recent", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	_, err := store.SaveBytes("a.jpg", "image/jpeg", []byte("x"))
	require.NoError(t, err)

	rec = doRequest(e, httptest.NewRequest(http.MethodGet, "/api/photos/recent", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []*models.FileInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestStartSubmission(t *testing.T) {
	manager := newFakeManager()
	e := newTestServer(testutil.NewMockStorage(), manager)

	body := bytes.NewBufferString(`{"fileIds":["f1","f2"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/submissions", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := doRequest(e, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, manager.started, 1)
	assert.Equal(t, []string{"f1", "f2"}, manager.started[0])

	var sub models.Submission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))
	assert.Equal(t, "sub-1", sub.ID)
}

func TestStartSubmissionConflictWhileInFlight(t *testing.T) {
	manager := newFakeManager()
	manager.startErr = session.ErrSubmissionInFlight
	e := newTestServer(testutil.NewMockStorage(), manager)

	body := bytes.NewBufferString(`{"fileIds":["f1"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/submissions", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := doRequest(e, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "CONFLICT", apiErr.Code)
}

func TestStartSubmissionRequiresFileIDs(t *testing.T) {
	e := newTestServer(testutil.NewMockStorage(), newFakeManager())

	body := bytes.NewBufferString(`{"fileIds":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/submissions", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := doRequest(e, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmissionStatus(t *testing.T) {
	manager := newFakeManager()
	sub := models.NewSubmission("known", []string{"f1"})
	sub.Status = models.SubmissionStatusUploading
	sub.Progress = 80
	manager.subs[sub.ID] = sub
	e := newTestServer(testutil.NewMockStorage(), manager)

	rec := doRequest(e, httptest.NewRequest(http.MethodGet, "/api/submissions/known/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Submission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, models.SubmissionStatusUploading, got.Status)
	assert.Equal(t, 80.0, got.Progress)

	rec = doRequest(e, httptest.NewRequest(http.MethodGet, "/api/submissions/unknown/status", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmissionManifestMsgpack(t *testing.T) {
	manager := newFakeManager()
	sub := models.NewSubmission("m1", []string{"f1", "f2"})
	sub.Status = models.SubmissionStatusComplete
	sub.Progress = 100
	sub.AcceptedCount = 2
	manager.subs[sub.ID] = sub
	e := newTestServer(testutil.NewMockStorage(), manager)

	rec := doRequest(e, httptest.NewRequest(http.MethodGet, "/api/submissions/m1/manifest/msgpack", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get(echo.HeaderContentType))

	var manifest map[string]interface{}
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &manifest))
	assert.Equal(t, "m1", manifest["id"])
	assert.Equal(t, "complete", manifest["status"])

	rec = doRequest(e, httptest.NewRequest(http.MethodGet, "/api/submissions/nope/manifest/msgpack", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecentSubmissionsWithoutHistorian(t *testing.T) {
	e := newTestServer(testutil.NewMockStorage(), newFakeManager())

	rec := doRequest(e, httptest.NewRequest(http.MethodGet, "/api/submissions/recent", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestSubmissionProgressStreamTerminal(t *testing.T) {
	manager := newFakeManager()
	sub := models.NewSubmission("done", []string{"f1"})
	sub.Status = models.SubmissionStatusComplete
	sub.Progress = 100
	manager.subs[sub.ID] = sub
	e := newTestServer(testutil.NewMockStorage(), manager)

	rec := doRequest(e, httptest.NewRequest(http.MethodGet, "/api/submissions/done/progress", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Body.String(), "data: ")
	assert.Contains(t, rec.Body.String(), `"complete"`)
}

func TestSubmissionProgressStreamUnknownID(t *testing.T) {
	e := newTestServer(testutil.NewMockStorage(), newFakeManager())

	rec := doRequest(e, httptest.NewRequest(http.MethodGet, "/api/submissions/ghost/progress", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "event: error")
}
