package storage

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	return s
}

func TestSaveAndGet(t *testing.T) {
	s := newTestStore(t)

	info, err := s.Save("photo.jpg", "image/jpeg", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if info.ID == "" {
		t.Fatal("expected generated ID")
	}
	if info.Size != 7 {
		t.Errorf("size = %d, want 7", info.Size)
	}

	got, err := s.Get(info.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "photo.jpg" || got.MIMEType != "image/jpeg" {
		t.Errorf("unexpected metadata: %+v", got)
	}

	path, err := s.GetFilePath(info.ID)
	if err != nil {
		t.Fatalf("GetFilePath: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading payload: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("payload = %q", data)
	}
}

func TestSaveBytes(t *testing.T) {
	s := newTestStore(t)

	payload := []byte{0xFF, 0xD8, 0xFF}
	info, err := s.SaveBytes("a.jpg", "image/jpeg", payload)
	if err != nil {
		t.Fatalf("SaveBytes: %v", err)
	}

	path, _ := s.GetFilePath(info.ID)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading payload: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("payload mismatch: %v", data)
	}
}

func TestGetUnknownID(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Get("no-such-id"); err == nil {
		t.Error("expected error for unknown ID")
	}
	if _, err := s.GetFilePath("no-such-id"); err == nil {
		t.Error("expected error for unknown ID")
	}
	if _, err := s.LoadSelected("no-such-id"); err == nil {
		t.Error("expected error for unknown ID")
	}
}

func TestListOrdersByRecency(t *testing.T) {
	s := newTestStore(t)

	first, _ := s.SaveBytes("old.jpg", "image/jpeg", []byte("a"))
	time.Sleep(5 * time.Millisecond)
	second, _ := s.SaveBytes("new.jpg", "image/jpeg", []byte("b"))

	list, err := s.List(10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Error("list should be newest first")
	}

	limited, _ := s.List(1)
	if len(limited) != 1 || limited[0].ID != second.ID {
		t.Error("limit should keep the newest entry")
	}
}

func TestDeleteRemovesPayload(t *testing.T) {
	s := newTestStore(t)

	info, _ := s.SaveBytes("gone.jpg", "image/jpeg", []byte("x"))
	path, _ := s.GetFilePath(info.ID)

	if err := s.Delete(info.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(info.ID); err == nil {
		t.Error("metadata should be gone")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("payload should be gone from disk")
	}
	if err := s.Delete(info.ID); err == nil {
		t.Error("double delete should fail")
	}
}

func TestLoadSelectedKeepsPayloadOnDisk(t *testing.T) {
	s := newTestStore(t)

	info, _ := s.SaveBytes("lazy.jpg", "image/jpeg", []byte("bytes-on-disk"))

	f, err := s.LoadSelected(info.ID)
	if err != nil {
		t.Fatalf("LoadSelected: %v", err)
	}
	if f.Data != nil {
		t.Error("payload should stay on disk until the pipeline reads it")
	}
	if f.Path == "" {
		t.Fatal("expected payload path")
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		t.Fatalf("reading payload: %v", err)
	}
	if string(data) != "bytes-on-disk" {
		t.Errorf("payload = %q", data)
	}
	if f.Name != "lazy.jpg" || f.Size != 13 {
		t.Errorf("unexpected file view: %+v", f)
	}
}
