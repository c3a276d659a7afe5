package lifecycle

import (
	"sync"
	"testing"

	"github.com/Iron-Ham/conclave/internal/errors"
)

func TestRegistry(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(r *Registry)
		target  string
		wantErr error
	}{
		{name: "free target", target: "doc-1"},
		{
			name:    "busy target",
			setup:   func(r *Registry) { _ = r.Acquire("doc-1") },
			target:  "doc-1",
			wantErr: errors.ErrAlreadyRunning,
		},
		{
			name:   "other target busy",
			setup:  func(r *Registry) { _ = r.Acquire("doc-1") },
			target: "doc-2",
		},
		{
			name:   "released target",
			setup:  func(r *Registry) { _ = r.Acquire("doc-1"); r.Release("doc-1") },
			target: "doc-1",
		},
		{name: "empty target", target: "", wantErr: errors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			if tt.setup != nil {
				tt.setup(r)
			}
			before := r.Active()

			err := r.Acquire(tt.target)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Acquire() error = %v, want %v", err, tt.wantErr)
				}
				if got := r.Active(); len(got) != len(before) {
					t.Errorf("failed Acquire mutated registry: %v -> %v", before, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Acquire() error = %v", err)
			}
			if !r.IsRunning(tt.target) {
				t.Error("target should be running")
			}
		})
	}
}

func TestRegistry_ConcurrentAcquire(t *testing.T) {
	r := NewRegistry()
	const n = 32

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Acquire("doc-1") == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
}

func TestRegistry_ActiveSorted(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"c", "a", "b"} {
		if err := r.Acquire(id); err != nil {
			t.Fatal(err)
		}
	}
	got := r.Active()
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("Active() = %v", got)
	}
	r.Release("missing")
	if len(r.Active()) != 3 {
		t.Error("releasing an unknown target should be a no-op")
	}
}
