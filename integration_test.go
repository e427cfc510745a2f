//go:build integration

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// fakeServer serves a two-level library: a.mp3 at the root and
// jazz/b.mp3 below it.
func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/api/folder", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		folder := map[string]any{
			"name": path,
			"path": path,
			"m3u8": srv.URL + "/api/folder.m3u8?path=" + path,
		}
		if path == "" {
			folder["albums"] = []map[string]string{{"name": "jazz", "path": "jazz"}}
		}
		_ = json.NewEncoder(w).Encode(folder)
	})
	mux.HandleFunc("/api/folder.m3u8", func(w http.ResponseWriter, r *http.Request) {
		var sb strings.Builder
		sb.WriteString("#EXTM3U\r\n")
		if r.URL.Query().Get("path") == "" {
			fmt.Fprintf(&sb, "#EXTINF:0,a.mp3\r\n%s/a.mp3\r\n", srv.URL)
		}
		fmt.Fprintf(&sb, "#EXTINF:0,b.mp3\r\n%s/jazz/b.mp3\r\n", srv.URL)
		_, _ = w.Write([]byte(sb.String()))
	})
	mux.HandleFunc("/admin/rescan", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// buildBinary builds crate into a temp dir and returns its path.
func buildBinary(t *testing.T) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "crate_test")
	buildCmd := exec.Command("go", "build", "-o", bin, ".")
	if out, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build binary: %v\n%s", err, out)
	}
	return bin
}

func crate(t *testing.T, bin string, args ...string) string {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Env = append(os.Environ(), "HOME="+t.TempDir())
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("crate %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return string(out)
}

func TestBrowseCommand(t *testing.T) {
	srv := fakeServer(t)
	bin := buildBinary(t)

	out := crate(t, bin, "browse", "--server", srv.URL, "--log-level", "error")
	for _, want := range []string{"library/", "jazz/", "a.mp3"} {
		if !strings.Contains(out, want) {
			t.Errorf("browse output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "b.mp3") {
		t.Errorf("nested track listed at root:\n%s", out)
	}

	out = crate(t, bin, "browse", "jazz", "--server", srv.URL, "--log-level", "error")
	if !strings.Contains(out, "b.mp3") {
		t.Errorf("jazz listing missing b.mp3:\n%s", out)
	}
}

func TestExportCommand(t *testing.T) {
	srv := fakeServer(t)
	bin := buildBinary(t)
	outDir := t.TempDir()

	crate(t, bin, "export", "jazz", "--server", srv.URL, "--out", outDir, "--log-level", "error")

	data, err := os.ReadFile(filepath.Join(outDir, "jazz.m3u8"))
	if err != nil {
		t.Fatalf("playlist not written: %v", err)
	}
	if !strings.HasPrefix(string(data), "#EXTM3U") {
		t.Errorf("unexpected playlist:\n%s", data)
	}

	out := crate(t, bin, "export", "--print-url", "--server", srv.URL, "--log-level", "error")
	if !strings.Contains(out, "/api/folder.m3u8") {
		t.Errorf("print-url output = %q", out)
	}
}

func TestRescanCommand(t *testing.T) {
	srv := fakeServer(t)
	bin := buildBinary(t)

	out := crate(t, bin, "rescan", "--server", srv.URL, "--log-level", "error")
	if !strings.Contains(out, "jazz/") {
		t.Errorf("rescan did not reload the root:\n%s", out)
	}
}

func TestMissingServer(t *testing.T) {
	bin := buildBinary(t)

	cmd := exec.Command(bin, "browse")
	cmd.Env = append(os.Environ(), "HOME="+t.TempDir())
	out, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("expected failure without a server, got:\n%s", out)
	}
	if !strings.Contains(string(out), "no server configured") {
		t.Errorf("unexpected error output:\n%s", out)
	}
}
