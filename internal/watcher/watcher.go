// Package watcher monitors a drop folder and auto-submits photos placed
// in it.
package watcher

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/photodrop/backend/internal/models"
)

// debounceDelay waits out rapid successive write events while a file is
// still being copied into the drop folder.
const debounceDelay = 500 * time.Millisecond

// photoExtensions lists file extensions the watcher picks up. The HEIC
// family is included; the pipeline converts it downstream.
var photoExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".heic": true,
	".heif": true,
}

// Stager stages a dropped file into the selection store.
type Stager interface {
	SaveBytes(name, mimeType string, data []byte) (*models.FileInfo, error)
}

// Submitter starts a submission for staged file IDs.
type Submitter interface {
	StartSubmission(fileIDs []string) (*models.Submission, error)
}

// Watcher monitors the drop directory for new photos.
type Watcher struct {
	dir       string
	watcher   *fsnotify.Watcher
	stager    Stager
	submitter Submitter
	events    chan string
	done      chan struct{}
}

// New creates a watcher for dir.
func New(dir string, stager Stager, submitter Submitter) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &Watcher{
		dir:       dir,
		watcher:   fsWatcher,
		stager:    stager,
		submitter: submitter,
		events:    make(chan string, 100),
		done:      make(chan struct{}),
	}, nil
}

// Start begins monitoring the drop folder.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching folder %s: %w", w.dir, err)
	}
	log.Printf("Watching drop folder: %s", w.dir)

	go w.processEvents()
	return nil
}

// processEvents debounces fsnotify events and hands settled files to
// handleFile.
func (w *Watcher) processEvents() {
	debounce := make(map[string]*time.Timer)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !photoExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			// Skip dotfiles and editor temp files.
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}

			if timer, exists := debounce[event.Name]; exists {
				timer.Stop()
			}
			name := event.Name
			debounce[name] = time.AfterFunc(debounceDelay, func() {
				w.handleFile(name)
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher error: %v", err)

		case <-w.done:
			return
		}
	}
}

// handleFile stages a dropped photo and starts a single-file submission.
// Errors are logged, never fatal to the watch loop.
func (w *Watcher) handleFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Failed to read dropped file %s: %v", path, err)
		return
	}

	name := filepath.Base(path)
	info, err := w.stager.SaveBytes(name, mimeTypeForExt(filepath.Ext(name)), data)
	if err != nil {
		log.Printf("Failed to stage dropped file %s: %v", name, err)
		return
	}
	log.Printf("Staged dropped file %s as %s", name, info.ID)

	if _, err := w.submitter.StartSubmission([]string{info.ID}); err != nil {
		// Typically the single-flight guard; the file stays staged and
		// can be submitted later.
		log.Printf("Could not auto-submit %s: %v", name, err)
		return
	}

	select {
	case w.events <- info.ID:
	default:
	}
}

// Events exposes staged file IDs that triggered a submission attempt.
func (w *Watcher) Events() <-chan string {
	return w.events
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}

func mimeTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}
