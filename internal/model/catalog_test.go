package model

import (
	"context"
	"net/http"
	"testing"
	"time"
)

const catalogFixture = `{"data":[
	{"id":"paid/model","name":"Paid","context_length":200000,"pricing":{"prompt":"0.000003","completion":"0.000015"}},
	{"id":"small:free","name":"Small","context_length":8192,"pricing":{"prompt":"0.0001","completion":"0.0001"}},
	{"id":"big/model","name":"Big","context_length":131072,"pricing":{"prompt":"0","completion":"0"}},
	{"id":"tie/b","name":"Tie B","context_length":8192,"pricing":{"prompt":0,"completion":0}},
	{"id":"half/free","name":"Half","context_length":4096,"pricing":{"prompt":"0","completion":"0.1"}}
]}`

func TestCatalog_FreeModels(t *testing.T) {
	fb := newFakeBackend(t, ok(catalogFixture))
	c := NewCatalog(time.Minute, WithBaseURL(fb.URL()))

	free, err := c.FreeModels(context.Background())
	if err != nil {
		t.Fatalf("FreeModels failed: %v", err)
	}
	var ids []string
	for _, m := range free {
		ids = append(ids, m.ID)
	}
	want := []string{"big/model", "small:free", "tie/b"}
	if len(ids) != len(want) {
		t.Fatalf("free ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("free[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
	if fb.last(t).Path != "/api/v1/models" {
		t.Errorf("path = %s", fb.last(t).Path)
	}
}

func TestCatalog_Caches(t *testing.T) {
	fb := newFakeBackend(t, ok(catalogFixture))
	c := NewCatalog(time.Hour, WithBaseURL(fb.URL()))

	for i := 0; i < 3; i++ {
		if _, err := c.Models(context.Background()); err != nil {
			t.Fatalf("Models failed: %v", err)
		}
	}
	if n := len(fb.Requests()); n != 1 {
		t.Errorf("requests = %d, want 1 (cached)", n)
	}

	c.Purge()
	if _, err := c.Models(context.Background()); err != nil {
		t.Fatalf("Models failed: %v", err)
	}
	if n := len(fb.Requests()); n != 2 {
		t.Errorf("requests = %d after purge, want 2", n)
	}
}

func TestCatalog_Error(t *testing.T) {
	fb := newFakeBackend(t, func(recordedRequest) (int, string) {
		return http.StatusServiceUnavailable, `{"error":{"message":"down"}}`
	})
	c := NewCatalog(0, WithBaseURL(fb.URL()))
	if _, err := c.Models(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := c.Models(context.Background()); err == nil {
		t.Fatal("errors must not be cached")
	}
	if n := len(fb.Requests()); n != 2 {
		t.Errorf("requests = %d, want 2", n)
	}
}
