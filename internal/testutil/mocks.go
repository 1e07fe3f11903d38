// Package testutil provides in-memory test doubles for the staging
// store, the conversion capability and the upload client.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/photodrop/backend/internal/models"
	"github.com/photodrop/backend/internal/uploader"
)

// MockStorage is an in-memory implementation of storage.Store.
type MockStorage struct {
	mu    sync.RWMutex
	files map[string]*models.FileInfo
	data  map[string][]byte

	// FailSave, when set, makes Save return this error.
	FailSave error
}

// NewMockStorage creates an empty in-memory store.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		files: make(map[string]*models.FileInfo),
		data:  make(map[string][]byte),
	}
}

func (s *MockStorage) Save(name, mimeType string, r io.Reader) (*models.FileInfo, error) {
	if s.FailSave != nil {
		return nil, s.FailSave
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return s.SaveBytes(name, mimeType, data)
}

func (s *MockStorage) SaveBytes(name, mimeType string, data []byte) (*models.FileInfo, error) {
	if s.FailSave != nil {
		return nil, s.FailSave
	}

	info := &models.FileInfo{
		ID:       uuid.New().String(),
		Name:     name,
		MIMEType: mimeType,
		Size:     int64(len(data)),
		StagedAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[info.ID] = info
	s.data[info.ID] = data
	return info, nil
}

func (s *MockStorage) Get(id string) (*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", id)
	}
	return info, nil
}

func (s *MockStorage) List(limit int) ([]*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []*models.FileInfo
	for _, info := range s.files {
		list = append(list, info)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].StagedAt.After(list[j].StagedAt)
	})
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (s *MockStorage) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[id]; !ok {
		return fmt.Errorf("file not found: %s", id)
	}
	delete(s.files, id)
	delete(s.data, id)
	return nil
}

func (s *MockStorage) GetFilePath(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.files[id]; !ok {
		return "", fmt.Errorf("file not found: %s", id)
	}
	return "mock://" + id, nil
}

func (s *MockStorage) LoadSelected(id string) (models.SelectedFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.files[id]
	if !ok {
		return models.SelectedFile{}, fmt.Errorf("file not found: %s", id)
	}
	return models.SelectedFile{
		ID:       info.ID,
		Name:     info.Name,
		MIMEType: info.MIMEType,
		Size:     info.Size,
		ModTime:  info.StagedAt,
		Data:     s.data[id],
	}, nil
}

// Count returns the number of staged files.
func (s *MockStorage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// ConvertCall records one invocation of the mock converter.
type ConvertCall struct {
	DataLen int
	Quality int
}

// MockConverter is a scripted implementation of convert.Converter.
type MockConverter struct {
	mu     sync.Mutex
	Output [][]byte
	Err    error
	Calls  []ConvertCall
}

func (m *MockConverter) Convert(ctx context.Context, data []byte, quality int) ([][]byte, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, ConvertCall{DataLen: len(data), Quality: quality})
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if m.Output != nil {
		return m.Output, nil
	}
	// Default: a decodable JPEG so downstream stages keep working.
	return [][]byte{MakeJPEG(100, 100)}, nil
}

// MockUploader records submitted batches and can inject failures.
type MockUploader struct {
	mu      sync.Mutex
	Err     error
	Batches [][]models.ProcessedFile
}

func (m *MockUploader) Submit(ctx context.Context, files []models.ProcessedFile, onProgress uploader.ProgressFunc) error {
	m.mu.Lock()
	m.Batches = append(m.Batches, files)
	m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	if onProgress != nil {
		onProgress(0.5)
		onProgress(1)
	}
	return nil
}

// SubmittedBatches returns a copy of the recorded batches.
func (m *MockUploader) SubmittedBatches() [][]models.ProcessedFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]models.ProcessedFile, len(m.Batches))
	copy(out, m.Batches)
	return out
}

// MakeJPEG renders a solid-color JPEG of the given dimensions.
func MakeJPEG(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// MakePNG renders a solid-color PNG of the given dimensions.
func MakePNG(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
