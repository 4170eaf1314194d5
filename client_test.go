package edgepurge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

type purgeBody struct {
	Files           []string `json:"files"`
	PurgeEverything bool     `json:"purge_everything"`
}

// newPurgeServer returns a test server that records each purge body and
// responds with the given status and payload.
func newPurgeServer(t *testing.T, status int, payload string, bodies *[]purgeBody, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if got := r.Header.Get("Authorization"); got != "Bearer token123" {
			t.Errorf("Authorization = %q", got)
		}
		if r.Method == http.MethodPost {
			if !strings.HasSuffix(r.URL.Path, "/zones/zone123/purge_cache") {
				t.Errorf("path = %q", r.URL.Path)
			}
			var body purgeBody
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode body: %v", err)
			}
			if bodies != nil {
				*bodies = append(*bodies, body)
			}
		}
		w.WriteHeader(status)
		w.Write([]byte(payload))
	}))
}

func testCreds() Credentials {
	return Credentials{ZoneID: "zone123", APIToken: "token123"}
}

func TestPurgeSuccess(t *testing.T) {
	var bodies []purgeBody
	var hits atomic.Int64
	srv := newPurgeServer(t, http.StatusOK, `{"success":true}`, &bodies, &hits)
	defer srv.Close()

	client := NewClient(testCreds(), srv.URL)
	urls := []string{
		"https://example.com/a.jpg",
		"https://example.com/b.jpg",
		"https://example.com/c.jpg",
	}
	out := client.Purge(context.Background(), urls)

	if out.Status != StatusSuccess {
		t.Fatalf("status = %s (%s)", out.Status, out.Message)
	}
	if out.Message != "Successfully purged 3 URLs" {
		t.Errorf("message = %q", out.Message)
	}
	if out.HTTPStatus != http.StatusOK {
		t.Errorf("http status = %d", out.HTTPStatus)
	}
	if len(bodies) != 1 || len(bodies[0].Files) != 3 {
		t.Fatalf("bodies = %+v", bodies)
	}
}

func TestPurgeDeduplicatesPreservingOrder(t *testing.T) {
	var bodies []purgeBody
	var hits atomic.Int64
	srv := newPurgeServer(t, http.StatusOK, `{"success":true}`, &bodies, &hits)
	defer srv.Close()

	client := NewClient(testCreds(), srv.URL)
	out := client.Purge(context.Background(), []string{
		"https://example.com/b.jpg",
		"",
		"https://example.com/a.jpg",
		"https://example.com/b.jpg",
		"  ",
		"https://example.com/a.jpg",
	})

	if out.Status != StatusSuccess {
		t.Fatalf("status = %s", out.Status)
	}
	want := []string{"https://example.com/b.jpg", "https://example.com/a.jpg"}
	if len(bodies) != 1 {
		t.Fatalf("expected one call, got %d", len(bodies))
	}
	got := bodies[0].Files
	if len(got) != len(want) {
		t.Fatalf("files = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPurgeIsIdempotent(t *testing.T) {
	var hits atomic.Int64
	srv := newPurgeServer(t, http.StatusOK, `{"success":true}`, nil, &hits)
	defer srv.Close()

	client := NewClient(testCreds(), srv.URL)
	urls := []string{"https://example.com/a.jpg"}

	first := client.Purge(context.Background(), urls)
	second := client.Purge(context.Background(), urls)
	if first.Status != StatusSuccess || second.Status != StatusSuccess {
		t.Fatalf("statuses = %s, %s", first.Status, second.Status)
	}
	if hits.Load() != 2 {
		t.Errorf("hits = %d, want 2", hits.Load())
	}
}

func TestPurgeProviderError(t *testing.T) {
	var hits atomic.Int64
	srv := newPurgeServer(t, http.StatusForbidden,
		`{"success":false,"errors":[{"message":"Invalid API token"}]}`, nil, &hits)
	defer srv.Close()

	client := NewClient(testCreds(), srv.URL)
	out := client.Purge(context.Background(), []string{"https://example.com/a.jpg"})

	if out.Status != StatusProviderError {
		t.Fatalf("status = %s", out.Status)
	}
	if out.HTTPStatus != http.StatusForbidden {
		t.Errorf("http status = %d", out.HTTPStatus)
	}
	if !strings.Contains(out.Message, "403") || !strings.Contains(out.Message, "Invalid API token") {
		t.Errorf("message = %q", out.Message)
	}
}

func TestPurgeNotConfiguredSkipsNetwork(t *testing.T) {
	var hits atomic.Int64
	srv := newPurgeServer(t, http.StatusOK, `{"success":true}`, nil, &hits)
	defer srv.Close()

	client := NewClient(Credentials{}, srv.URL)
	out := client.Purge(context.Background(), []string{"https://example.com/a.jpg"})

	if out.Status != StatusNotConfigured {
		t.Fatalf("status = %s", out.Status)
	}
	if hits.Load() != 0 {
		t.Errorf("expected no network call, got %d", hits.Load())
	}
}

func TestPurgeEmptySetSkipsNetwork(t *testing.T) {
	var hits atomic.Int64
	srv := newPurgeServer(t, http.StatusOK, `{"success":true}`, nil, &hits)
	defer srv.Close()

	client := NewClient(testCreds(), srv.URL)
	out := client.Purge(context.Background(), []string{"", "  "})

	if out.Status != StatusEmptyTargetSet {
		t.Fatalf("status = %s", out.Status)
	}
	if hits.Load() != 0 {
		t.Errorf("expected no network call, got %d", hits.Load())
	}
}

func TestPurgeTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewClient(testCreds(), srv.URL)
	out := client.Purge(context.Background(), []string{"https://example.com/a.jpg"})

	if out.Status != StatusTransportError {
		t.Fatalf("status = %s (%s)", out.Status, out.Message)
	}
	if out.Message == "" {
		t.Error("expected underlying message")
	}
}

func TestPurgeEverything(t *testing.T) {
	var bodies []purgeBody
	var hits atomic.Int64
	srv := newPurgeServer(t, http.StatusOK, `{"success":true}`, &bodies, &hits)
	defer srv.Close()

	client := NewClient(testCreds(), srv.URL)
	out := client.PurgeEverything(context.Background())

	if out.Status != StatusSuccess {
		t.Fatalf("status = %s", out.Status)
	}
	if out.Message != "Successfully purged all cache" {
		t.Errorf("message = %q", out.Message)
	}
	if len(bodies) != 1 || !bodies[0].PurgeEverything {
		t.Fatalf("bodies = %+v", bodies)
	}
	if len(bodies[0].Files) != 0 {
		t.Errorf("purge_everything call must not carry files: %v", bodies[0].Files)
	}
}

func TestTestConnectionReportsZoneName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/zones/zone123") {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"result":{"name":"example.com"}}`))
	}))
	defer srv.Close()

	client := NewClient(testCreds(), srv.URL)
	out := client.TestConnection(context.Background())

	if out.Status != StatusSuccess {
		t.Fatalf("status = %s (%s)", out.Status, out.Message)
	}
	if !strings.Contains(out.Message, "example.com") {
		t.Errorf("message = %q", out.Message)
	}
}

func TestTestConnectionProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"success":false,"errors":[{"message":"Invalid API token"}]}`))
	}))
	defer srv.Close()

	client := NewClient(testCreds(), srv.URL)
	out := client.TestConnection(context.Background())

	if out.Status != StatusProviderError {
		t.Fatalf("status = %s", out.Status)
	}
	if !strings.Contains(out.Message, "Invalid API token") {
		t.Errorf("message = %q", out.Message)
	}
}
