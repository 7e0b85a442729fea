package mediaserver_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/homecast/cast-notifier/internal/mediaserver"
)

const testChunk = 16

func newTestServer(t *testing.T, assets map[string][]byte) (*httptest.Server, *int64) {
	t.Helper()
	dir := t.TempDir()
	for name, data := range assets {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	var served int64
	s := mediaserver.New("0", dir, testChunk, zap.NewNop(), func(n int64) { served += n })
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, &served
}

func get(t *testing.T, url, rangeHdr string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rangeHdr != "" {
		req.Header.Set("Range", rangeHdr)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	var sb strings.Builder
	buf := make([]byte, 512)
	for {
		n, err := resp.Body.Read(buf)
		sb.Write(buf[:n])
		if err != nil {
			break
		}
	}
	return sb.String()
}

func TestFullAssetRequest(t *testing.T) {
	data := []byte("0123456789abcdefghijklmnopqrstuvwxyz")
	ts, served := newTestServer(t, map[string][]byte{"msg.mp3": data})

	resp := get(t, ts.URL+"/msg.mp3", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/mpeg" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if ar := resp.Header.Get("Accept-Ranges"); ar != "bytes" {
		t.Fatalf("Accept-Ranges = %q", ar)
	}
	if cc := resp.Header.Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Fatalf("Cache-Control = %q, want no-store", cc)
	}
	if got := body(t, resp); got != string(data) {
		t.Fatalf("body = %q", got)
	}
	if *served != int64(len(data)) {
		t.Fatalf("bytes served hook = %d, want %d", *served, len(data))
	}
}

func TestRangeRequests(t *testing.T) {
	data := []byte("0123456789abcdefghijklmnopqrstuvwxyz") // 36 bytes
	ts, _ := newTestServer(t, map[string][]byte{"msg.mp3": data})

	tests := []struct {
		name      string
		rangeHdr  string
		wantBody  string
		wantRange string
	}{
		{
			name:      "explicit bounds",
			rangeHdr:  "bytes=2-5",
			wantBody:  "2345",
			wantRange: "bytes 2-5/36",
		},
		{
			name:      "open end serves one chunk",
			rangeHdr:  "bytes=4-",
			wantBody:  "456789abcdefghij", // 16 bytes from offset 4
			wantRange: "bytes 4-19/36",
		},
		{
			name:      "open start defaults to zero",
			rangeHdr:  "bytes=-7",
			wantBody:  "01234567",
			wantRange: "bytes 0-7/36",
		},
		{
			name:      "end clamped to size",
			rangeHdr:  "bytes=30-100",
			wantBody:  "uvwxyz",
			wantRange: "bytes 30-35/36",
		},
		{
			name:      "open end near tail clamped",
			rangeHdr:  "bytes=33-",
			wantBody:  "xyz",
			wantRange: "bytes 33-35/36",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, ts.URL+"/msg.mp3", tt.rangeHdr)
			if resp.StatusCode != http.StatusPartialContent {
				t.Fatalf("status = %d, want 206", resp.StatusCode)
			}
			if cr := resp.Header.Get("Content-Range"); cr != tt.wantRange {
				t.Fatalf("Content-Range = %q, want %q", cr, tt.wantRange)
			}
			if got := body(t, resp); got != tt.wantBody {
				t.Fatalf("body = %q, want %q", got, tt.wantBody)
			}
		})
	}
}

func TestMalformedRange(t *testing.T) {
	ts, _ := newTestServer(t, map[string][]byte{"msg.mp3": []byte("0123456789")})

	for _, hdr := range []string{"bytes=abc-def", "chunks=0-5", "bytes=5", "bytes=8-2"} {
		resp := get(t, ts.URL+"/msg.mp3", hdr)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("Range %q: status = %d, want 400", hdr, resp.StatusCode)
		}
	}
}

// A range into a zero-byte file has no satisfiable clamp; it must be
// rejected rather than answered with a negative Content-Range.
func TestRangeIntoEmptyFile(t *testing.T) {
	ts, _ := newTestServer(t, map[string][]byte{"msg.mp3": nil})

	resp := get(t, ts.URL+"/msg.mp3", "bytes=0-5")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	// Without a Range header an empty file is still served normally.
	full := get(t, ts.URL+"/msg.mp3", "")
	if full.StatusCode != http.StatusOK {
		t.Fatalf("full request status = %d, want 200", full.StatusCode)
	}
	if got := body(t, full); got != "" {
		t.Fatalf("body = %q, want empty", got)
	}
}

func TestMissingAsset(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp := get(t, ts.URL+"/nope.mp3", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestPathEscapeRejected(t *testing.T) {
	// Go's http client normalizes "..", so exercise the handler directly.
	dir := t.TempDir()
	secret := filepath.Join(dir, "secret")
	if err := os.WriteFile(secret, []byte("s3cret"), 0o644); err != nil {
		t.Fatal(err)
	}
	assetDir := filepath.Join(dir, "messages")
	if err := os.Mkdir(assetDir, 0o755); err != nil {
		t.Fatal(err)
	}
	s := mediaserver.New("0", assetDir, testChunk, zap.NewNop(), nil)

	for _, p := range []string{"/../secret", "/a/../../secret", "/sub/msg.mp3"} {
		req := httptest.NewRequest(http.MethodGet, p, nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("path %q: status = %d, want 404", p, rec.Code)
		}
	}
}

func TestNonGETRejected(t *testing.T) {
	ts, _ := newTestServer(t, map[string][]byte{"msg.mp3": []byte("x")})

	resp, err := http.Post(ts.URL+"/msg.mp3", "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}

func TestQueryStringIgnored(t *testing.T) {
	data := []byte("hello world")
	ts, _ := newTestServer(t, map[string][]byte{"msg.mp3": data})

	resp := get(t, ts.URL+"/msg.mp3?t=f81d4fae-7dec-11d0-a765-00a0c91e6bf6", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := body(t, resp); got != string(data) {
		t.Fatalf("body = %q", got)
	}
}
