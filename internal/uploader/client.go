// Package uploader submits prepared photo batches to the configured
// remote endpoint as a multipart request with progress feedback.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/photodrop/backend/internal/models"
)

// ProgressFunc receives the fraction of body bytes transferred (0-1).
type ProgressFunc func(fraction float64)

// UploadError is a failed submission attempt. NetworkError covers
// transport failures; ServerError carries the server's own message
// verbatim so it can be shown to the user unchanged.
type UploadError struct {
	Kind    models.ErrorKind
	Message string
	Err     error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *UploadError) Unwrap() error { return e.Err }

// submitResponse is the endpoint's JSON body contract.
type submitResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Client submits batches to a fixed endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a Client for the given endpoint URL.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// Submit uploads the batch as one multipart request, one named part per
// file. onProgress may be nil. Success requires a 2xx status AND
// success=true in the body; anything else is an error.
func (c *Client) Submit(ctx context.Context, files []models.ProcessedFile, onProgress ProgressFunc) error {
	body, contentType, err := buildBody(files)
	if err != nil {
		return &UploadError{Kind: models.ErrNetwork, Message: models.ErrNetwork.Message(), Err: err}
	}

	reader := &progressReader{r: bytes.NewReader(body), total: int64(len(body)), onProgress: onProgress}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, reader)
	if err != nil {
		return &UploadError{Kind: models.ErrNetwork, Message: models.ErrNetwork.Message(), Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(body))

	resp, err := c.http.Do(req)
	if err != nil {
		return &UploadError{Kind: models.ErrNetwork, Message: models.ErrNetwork.Message(), Err: err}
	}
	defer resp.Body.Close()

	var parsed submitResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && decodeErr == nil && parsed.Success {
		if onProgress != nil {
			onProgress(1)
		}
		return nil
	}

	msg := parsed.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &UploadError{Kind: models.ErrServer, Message: msg}
}

// buildBody renders the batch into a multipart body and returns it with
// its content type.
func buildBody(files []models.ProcessedFile) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="photos"; filename="%s"`, escapeQuotes(f.Name)))
		contentType := f.MIMEType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("creating part for %s: %w", f.Name, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("writing part for %s: %w", f.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// progressReader counts bytes handed to the transport and reports the
// transferred fraction.
type progressReader struct {
	r          *bytes.Reader
	total      int64
	sent       int64
	onProgress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.onProgress != nil && p.total > 0 {
			frac := float64(p.sent) / float64(p.total)
			if frac > 1 {
				frac = 1
			}
			p.onProgress(frac)
		}
	}
	return n, err
}
