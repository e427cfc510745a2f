package musrv

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{BaseURL: baseURL})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	client.backoff = time.Millisecond
	return client
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
		wantErr bool
	}{
		{name: "adds trailing slash", baseURL: "http://nas:8080", want: "http://nas:8080/"},
		{name: "keeps sub path", baseURL: "https://nas/music", want: "https://nas/music/"},
		{name: "drops query", baseURL: "http://nas/?x=1", want: "http://nas/"},
		{name: "missing", baseURL: "", wantErr: true},
		{name: "no scheme", baseURL: "nas:8080", wantErr: true},
		{name: "ftp", baseURL: "ftp://nas/", wantErr: true},
		{name: "no host", baseURL: "http:///music", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(Config{BaseURL: tt.baseURL})
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := client.BaseURL(); got != tt.want {
				t.Errorf("BaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_ResolveURL(t *testing.T) {
	client := newTestClient(t, "http://nas:8080/music")

	tests := []struct {
		ref  string
		want string
	}{
		{"jazz/a%20b.mp3", "http://nas:8080/music/jazz/a%20b.mp3"},
		{"/api/folder.m3u8?path=jazz", "http://nas:8080/api/folder.m3u8?path=jazz"},
		{"http://other/x.mp3", "http://other/x.mp3"},
	}

	for _, tt := range tests {
		got, err := client.ResolveURL(tt.ref)
		if err != nil {
			t.Fatalf("ResolveURL(%q) error: %v", tt.ref, err)
		}
		if got != tt.want {
			t.Errorf("ResolveURL(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}

	if got := client.PlaylistURL("rock/90s"); got != "http://nas:8080/music/api/folder.m3u8?path=rock%2F90s" {
		t.Errorf("PlaylistURL() = %q", got)
	}
}

func TestClient_Folder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET request, got %s", r.Method)
		}
		if r.URL.Path != "/api/folder" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("path"); got != "rock/90s" {
			t.Errorf("expected path rock/90s, got %q", got)
		}
		if ua := r.Header.Get("User-Agent"); ua != DefaultUserAgent {
			t.Errorf("unexpected user agent %q", ua)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"name": "90s",
			"path": "rock/90s",
			"m3u8": "/api/folder.m3u8?path=rock%2F90s",
			"albums": [{"name": "live", "path": "rock/90s/live"}],
			"tracks": [
				{"name": "a.mp3", "relative_path": "rock/90s/a.mp3", "url": "rock/90s/a.mp3", "duration": 61.5},
				{"name": "b.mp3", "url": "http://cdn/b.mp3"}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	folder, err := client.Folder(context.Background(), "rock/90s")
	if err != nil {
		t.Fatalf("Folder() error: %v", err)
	}

	if folder.Name != "90s" || folder.Path != "rock/90s" {
		t.Errorf("unexpected folder %q at %q", folder.Name, folder.Path)
	}
	if len(folder.Albums) != 1 || folder.Albums[0].Path != "rock/90s/live" {
		t.Errorf("unexpected albums %+v", folder.Albums)
	}
	if folder.M3U8 != server.URL+"/api/folder.m3u8?path=rock%2F90s" {
		t.Errorf("m3u8 not resolved: %q", folder.M3U8)
	}
	if len(folder.Tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(folder.Tracks))
	}
	if folder.Tracks[0].URL != server.URL+"/rock/90s/a.mp3" {
		t.Errorf("track url not resolved: %q", folder.Tracks[0].URL)
	}
	if folder.Tracks[0].Length() != 61500*time.Millisecond {
		t.Errorf("Length() = %v", folder.Tracks[0].Length())
	}
	if folder.Tracks[1].URL != "http://cdn/b.mp3" || folder.Tracks[1].Length() != 0 {
		t.Errorf("unexpected second track %+v", folder.Tracks[1])
	}
}

func TestClient_FolderScanning(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"scanning": true}`))
	}))
	defer server.Close()

	folder, err := newTestClient(t, server.URL).Folder(context.Background(), "")
	if err != nil {
		t.Fatalf("Folder() error: %v", err)
	}
	if !folder.Scanning {
		t.Error("expected scanning listing")
	}
}

func TestClient_FolderBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Folder(context.Background(), "")
	if err == nil || !strings.Contains(err.Error(), "failed to parse folder response") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestClient_Playlist(t *testing.T) {
	const text = "#EXTM3U\r\n#EXTINF:0,a.mp3\r\nhttp://h/a.mp3\r\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/folder.m3u8" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "audio/x-mpegurl; charset=utf-8")
		_, _ = w.Write([]byte(text))
	}))
	defer server.Close()

	got, err := newTestClient(t, server.URL).Playlist(context.Background(), "/api/folder.m3u8?path=")
	if err != nil {
		t.Fatalf("Playlist() error: %v", err)
	}
	if got != text {
		t.Errorf("Playlist() = %q, want verbatim text", got)
	}
}

func TestClient_Rescan(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{name: "ok", status: http.StatusOK, body: "ok"},
		{name: "ok with newline", status: http.StatusOK, body: "ok\n"},
		{name: "error body", status: http.StatusOK, body: "error", wantErr: true},
		{name: "forbidden", status: http.StatusForbidden, body: "no", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/admin/rescan" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if r.URL.RawQuery != "" {
					t.Errorf("unexpected query %q", r.URL.RawQuery)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := newTestClient(t, server.URL).Rescan(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Rescan() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClient_RetryServerError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("Service Unavailable"))
			return
		}
		_, _ = w.Write([]byte(`{"name": "/", "path": ""}`))
	}))
	defer server.Close()

	folder, err := newTestClient(t, server.URL).Folder(context.Background(), "")
	if err != nil {
		t.Fatalf("expected success after retries, got error: %v", err)
	}
	if folder.Name != "/" {
		t.Errorf("unexpected folder %+v", folder)
	}
	if n := attempts.Load(); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestClient_RetryExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Folder(context.Background(), "")
	if !errors.Is(err, &Error{StatusCode: http.StatusBadGateway}) {
		t.Fatalf("expected 502 error, got %v", err)
	}
	if n := attempts.Load(); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestClient_NotFoundIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Folder(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Temporary() {
		t.Errorf("expected permanent *Error, got %v", err)
	}
	if n := attempts.Load(); n != 1 {
		t.Errorf("expected 1 attempt, got %d", n)
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := newTestClient(t, server.URL).Folder(ctx, "")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context deadline error, got %v", err)
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		err       *Error
		temporary bool
		text      string
	}{
		{&Error{StatusCode: 500, Message: "boom"}, true, "musrv: status 500: boom"},
		{&Error{StatusCode: 429}, true, "musrv: status 429"},
		{&Error{StatusCode: 404}, false, "musrv: status 404"},
	}

	for _, tt := range tests {
		if got := tt.err.Temporary(); got != tt.temporary {
			t.Errorf("%d Temporary() = %v, want %v", tt.err.StatusCode, got, tt.temporary)
		}
		if got := tt.err.Error(); got != tt.text {
			t.Errorf("Error() = %q, want %q", got, tt.text)
		}
	}

	if !errors.Is(&Error{StatusCode: 404, Message: "x"}, ErrNotFound) {
		t.Error("expected status code match")
	}
	if errors.Is(&Error{StatusCode: 500}, ErrNotFound) {
		t.Error("expected mismatch")
	}
}

func TestNextBackoff(t *testing.T) {
	if got := nextBackoff(time.Second); got != 2*time.Second {
		t.Errorf("nextBackoff(1s) = %v", got)
	}
	if got := nextBackoff(20 * time.Second); got != 30*time.Second {
		t.Errorf("nextBackoff(20s) = %v, want cap", got)
	}
}
