package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/photodrop/backend/internal/models"
)

// Store defines the interface for the staging area holding selected
// photos between intake and submission.
type Store interface {
	Save(name, mimeType string, r io.Reader) (*models.FileInfo, error)
	SaveBytes(name, mimeType string, data []byte) (*models.FileInfo, error)
	Get(id string) (*models.FileInfo, error)
	List(limit int) ([]*models.FileInfo, error)
	Delete(id string) error
	GetFilePath(id string) (string, error)
	LoadSelected(id string) (models.SelectedFile, error)
}

// LocalStore implements Store on the local filesystem. Metadata lives in
// an in-memory index; payloads live at <stagingDir>/<id>.
type LocalStore struct {
	mu         sync.RWMutex
	stagingDir string
	files      map[string]*models.FileInfo
}

// NewLocalStore creates a LocalStore rooted at stagingDir.
func NewLocalStore(stagingDir string) (*LocalStore, error) {
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}

	return &LocalStore{
		stagingDir: stagingDir,
		files:      make(map[string]*models.FileInfo),
	}, nil
}

// Save stages a photo from a reader.
func (s *LocalStore) Save(name, mimeType string, r io.Reader) (*models.FileInfo, error) {
	id := uuid.New().String()
	path := filepath.Join(s.stagingDir, id)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating staged file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing staged file: %w", err)
	}

	info := &models.FileInfo{
		ID:       id,
		Name:     name,
		MIMEType: mimeType,
		Size:     size,
		StagedAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = info

	return info, nil
}

// SaveBytes stages a photo from an in-memory payload.
func (s *LocalStore) SaveBytes(name, mimeType string, data []byte) (*models.FileInfo, error) {
	return s.Save(name, mimeType, bytes.NewReader(data))
}

// Get retrieves staging metadata by ID.
func (s *LocalStore) Get(id string) (*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", id)
	}

	return info, nil
}

// List returns the most recently staged files.
func (s *LocalStore) List(limit int) ([]*models.FileInfo, error) {
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

// Delete removes a staged file and its payload.
func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return fmt.Errorf("file not found: %s", id)
	}

	path := filepath.Join(s.stagingDir, id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting staged file: %w", err)
	}

	delete(s.files, id)
	return nil
}

// GetFilePath returns the absolute path of a staged payload.
func (s *LocalStore) GetFilePath(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.files[id]; !ok {
		return "", fmt.Errorf("file not found: %s", id)
	}

	return filepath.Join(s.stagingDir, id), nil
}

// LoadSelected builds the pipeline's view of a staged file. The payload
// stays on disk; the pipeline loads it lazily from Path.
func (s *LocalStore) LoadSelected(id string) (models.SelectedFile, error) {
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
		Path:     filepath.Join(s.stagingDir, id),
	}, nil
}
