package model

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// recordedRequest is one request seen by a fake backend.
type recordedRequest struct {
	Path   string
	Header http.Header
	Body   map[string]any
}

// fakeBackend serves canned JSON responses and records every request.
type fakeBackend struct {
	mu       sync.Mutex
	requests []recordedRequest
	respond  func(req recordedRequest) (int, string)
	server   *httptest.Server
}

func newFakeBackend(t *testing.T, respond func(req recordedRequest) (int, string)) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{respond: respond}
	fb.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body map[string]any
		if len(data) > 0 {
			if err := json.Unmarshal(data, &body); err != nil {
				t.Errorf("request body is not JSON: %v", err)
			}
		}
		rec := recordedRequest{Path: r.URL.Path, Header: r.Header.Clone(), Body: body}

		fb.mu.Lock()
		fb.requests = append(fb.requests, rec)
		fb.mu.Unlock()

		status, payload := fb.respond(rec)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, payload)
	}))
	t.Cleanup(fb.server.Close)
	return fb
}

func (fb *fakeBackend) URL() string { return fb.server.URL }

func (fb *fakeBackend) Requests() []recordedRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]recordedRequest(nil), fb.requests...)
}

func (fb *fakeBackend) last(t *testing.T) recordedRequest {
	t.Helper()
	reqs := fb.Requests()
	if len(reqs) == 0 {
		t.Fatal("backend received no requests")
	}
	return reqs[len(reqs)-1]
}

func ok(payload string) func(recordedRequest) (int, string) {
	return func(recordedRequest) (int, string) { return http.StatusOK, payload }
}
