package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/photodrop/backend/internal/models"
	"github.com/photodrop/backend/internal/testutil"
)

func TestDecodeJPEGDimensions(t *testing.T) {
	d := NewDecoder()

	raster, err := d.Decode(models.NormalizedFile{
		Name: "shot.jpg",
		Data: testutil.MakeJPEG(640, 480),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raster.Width != 640 || raster.Height != 480 {
		t.Errorf("dimensions = %dx%d, want 640x480", raster.Width, raster.Height)
	}
	if raster.Image == nil {
		t.Error("decoded image should be retained for downstream resizing")
	}
}

func TestDecodePNG(t *testing.T) {
	d := NewDecoder()

	raster, err := d.Decode(models.NormalizedFile{
		Name: "shot.png",
		Data: testutil.MakePNG(32, 16),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raster.Width != 32 || raster.Height != 16 {
		t.Errorf("dimensions = %dx%d, want 32x16", raster.Width, raster.Height)
	}
}

func TestDecodeGarbageIsDecodeFailure(t *testing.T) {
	d := NewDecoder()

	_, err := d.Decode(models.NormalizedFile{
		Name: "corrupt.jpg",
		Data: []byte("this is not an image"),
	})

	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if se.Kind != models.ErrDecodeFailed {
		t.Errorf("kind = %s, want %s", se.Kind, models.ErrDecodeFailed)
	}
	if se.FileName != "corrupt.jpg" {
		t.Errorf("file name = %s, want corrupt.jpg", se.FileName)
	}
}

func TestDecodeMissingFileIsReadFailure(t *testing.T) {
	d := NewDecoder()

	_, err := d.Decode(models.NormalizedFile{
		Name: "gone.jpg",
		Path: filepath.Join(t.TempDir(), "does-not-exist.jpg"),
	})

	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if se.Kind != models.ErrReadFailed {
		t.Errorf("kind = %s, want %s", se.Kind, models.ErrReadFailed)
	}
}

func TestDecodeReadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "on-disk.jpg")
	if err := os.WriteFile(path, testutil.MakeJPEG(100, 50), 0644); err != nil {
		t.Fatal(err)
	}

	d := NewDecoder()
	raster, err := d.Decode(models.NormalizedFile{Name: "on-disk.jpg", Path: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raster.Width != 100 || raster.Height != 50 {
		t.Errorf("dimensions = %dx%d, want 100x50", raster.Width, raster.Height)
	}
}

func TestLoadPrefersInMemoryPayload(t *testing.T) {
	f := models.SelectedFile{Name: "a.jpg", Data: []byte{1, 2, 3}, Path: "/nonexistent"}

	loaded, err := Load(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(loaded.Data) != 3 {
		t.Errorf("payload should be untouched, got %d bytes", len(loaded.Data))
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(models.SelectedFile{
		Name: "b.jpg",
		Path: filepath.Join(t.TempDir(), "missing.jpg"),
	})

	var se *StageError
	if !errors.As(err, &se) || se.Kind != models.ErrReadFailed {
		t.Fatalf("expected ReadFailed, got %v", err)
	}
}
