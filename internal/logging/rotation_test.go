package logging

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func newTestWriter(t *testing.T, fs afero.Fs, maxBytes int64, backups int, compress bool) *RotatingWriter {
	t.Helper()
	rw, err := NewRotatingWriter(fs, "/logs/conclave.log", RotationConfig{MaxBackups: backups, Compress: compress})
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}
	rw.maxBytes = maxBytes
	t.Cleanup(func() { _ = rw.Close() })
	return rw
}

func TestRotatingWriter_NoRotationWhenDisabled(t *testing.T) {
	fs := afero.NewMemMapFs()
	rw := newTestWriter(t, fs, 0, 3, false)

	for i := 0; i < 10; i++ {
		if _, err := rw.Write([]byte(strings.Repeat("x", 100))); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if rw.Size() != 1000 {
		t.Errorf("Size() = %d, want 1000", rw.Size())
	}
	if ok, _ := afero.Exists(fs, "/logs/conclave.log.1"); ok {
		t.Error("no backup expected when rotation is disabled")
	}
}

func TestRotatingWriter_RotatesAndShifts(t *testing.T) {
	fs := afero.NewMemMapFs()
	rw := newTestWriter(t, fs, 10, 2, false)

	for _, chunk := range []string{"first-----", "second----", "third-----"} {
		if _, err := rw.Write([]byte(chunk)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	current, _ := afero.ReadFile(fs, "/logs/conclave.log")
	newest, _ := afero.ReadFile(fs, "/logs/conclave.log.1")
	oldest, _ := afero.ReadFile(fs, "/logs/conclave.log.2")

	if string(current) != "third-----" {
		t.Errorf("current = %q", current)
	}
	if string(newest) != "second----" {
		t.Errorf(".1 = %q", newest)
	}
	if string(oldest) != "first-----" {
		t.Errorf(".2 = %q", oldest)
	}
}

func TestRotatingWriter_DropsBeyondMaxBackups(t *testing.T) {
	fs := afero.NewMemMapFs()
	rw := newTestWriter(t, fs, 5, 1, false)

	for _, chunk := range []string{"aaaaa", "bbbbb", "ccccc"} {
		if _, err := rw.Write([]byte(chunk)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	if ok, _ := afero.Exists(fs, "/logs/conclave.log.2"); ok {
		t.Error("expected only one backup to be kept")
	}
	backup, _ := afero.ReadFile(fs, "/logs/conclave.log.1")
	if string(backup) != "bbbbb" {
		t.Errorf(".1 = %q, want bbbbb", backup)
	}
}

func TestRotatingWriter_Compress(t *testing.T) {
	fs := afero.NewMemMapFs()
	rw := newTestWriter(t, fs, 5, 2, true)

	for _, chunk := range []string{"aaaaa", "bbbbb"} {
		if _, err := rw.Write([]byte(chunk)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	if ok, _ := afero.Exists(fs, "/logs/conclave.log.1"); ok {
		t.Error("uncompressed backup should be removed after compression")
	}
	data, err := afero.ReadFile(fs, "/logs/conclave.log.1.gz")
	if err != nil {
		t.Fatalf("compressed backup missing: %v", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("gzip.NewReader failed: %v", err)
	}
	plain, _ := io.ReadAll(zr)
	if string(plain) != "aaaaa" {
		t.Errorf("decompressed = %q, want aaaaa", plain)
	}
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	rw := newTestWriter(t, afero.NewMemMapFs(), 0, 0, false)
	if err := rw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := rw.Write([]byte("late")); err == nil {
		t.Error("expected error writing to closed writer")
	}
	if err := rw.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}
