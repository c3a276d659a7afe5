package store

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/conclave/internal/errors"
)

func TestFS_CreateAndRead(t *testing.T) {
	s := NewMemory()

	h, err := s.CreateBlob("runs/r1/ideas/contrarian.md", "# Idea\n")
	if err != nil {
		t.Fatalf("CreateBlob failed: %v", err)
	}
	if h.Path != "/runs/r1/ideas/contrarian.md" {
		t.Errorf("Path = %q", h.Path)
	}

	text, err := s.ReadBlob(h)
	if err != nil {
		t.Fatalf("ReadBlob failed: %v", err)
	}
	if text != "# Idea\n" {
		t.Errorf("ReadBlob = %q", text)
	}
	if !s.Exists("runs/r1/ideas") {
		t.Error("parent container should exist")
	}
}

func TestFS_CreateBlobExisting(t *testing.T) {
	s := NewMemory()
	if _, err := s.CreateBlob("a/b.md", "one"); err != nil {
		t.Fatalf("CreateBlob failed: %v", err)
	}

	_, err := s.CreateBlob("/a/b.md", "two")
	if !errors.Is(err, errors.ErrBlobExists) {
		t.Fatalf("err = %v, want ErrBlobExists", err)
	}

	text, _ := s.ReadBlob(Handle{Path: "a/b.md"})
	if text != "one" {
		t.Errorf("existing blob was overwritten: %q", text)
	}
}

func TestFS_ReadMissing(t *testing.T) {
	_, err := NewMemory().ReadBlob(Handle{Path: "nope.md"})
	if !errors.Is(err, errors.ErrBlobNotFound) {
		t.Errorf("err = %v, want ErrBlobNotFound", err)
	}
}

func TestFS_EnsureContainer(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewWithFs(fs)

	if err := s.EnsureContainer("runs/r1/executions"); err != nil {
		t.Fatalf("EnsureContainer failed: %v", err)
	}
	if err := s.EnsureContainer("runs/r1/executions"); err != nil {
		t.Errorf("EnsureContainer should be idempotent: %v", err)
	}
	if ok, _ := afero.DirExists(fs, "/runs/r1/executions"); !ok {
		t.Error("container was not created")
	}
}

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"runs/x.md", "/runs/x.md", false},
		{"/runs//x.md", "/runs/x.md", false},
		{`runs\win\x.md`, "/runs/win/x.md", false},
		{"./runs/x.md", "/runs/x.md", false},
		{"", "", true},
		{"runs/../../etc/passwd", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := cleanPath(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("cleanPath(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("cleanPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if tt.wantErr && !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestNewFS(t *testing.T) {
	s := NewFS(t.TempDir())
	h, err := s.CreateBlob("runs/r1/input.md", "input")
	if err != nil {
		t.Fatalf("CreateBlob failed: %v", err)
	}
	if text, err := s.ReadBlob(h); err != nil || text != "input" {
		t.Errorf("ReadBlob = %q, %v", text, err)
	}
}
