// Package mediaserver serves generated audio assets over plain HTTP with
// byte-range support. Playback devices stream from it on flaky links while
// the notification worker is blocked polling transport status, so it runs
// its own listener and accept path, fully independent of the worker.
package mediaserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

var errMalformedRange = errors.New("malformed range header")

// Server is a minimal asset file server. Only GET is accepted; paths are
// resolved against the asset directory alone and the directory is flat, so
// no request can escape it. A failure while handling one request never
// takes the server down (Recoverer).
type Server struct {
	srv      *http.Server
	assetDir string
	chunk    int64
	logger   *zap.Logger

	// onBytesServed is an optional metrics hook, nil = no-op.
	onBytesServed func(int64)
}

func New(port, assetDir string, chunk int64, logger *zap.Logger, onBytesServed func(int64)) *Server {
	if onBytesServed == nil {
		onBytesServed = func(int64) {}
	}
	s := &Server{
		assetDir:      assetDir,
		chunk:         chunk,
		logger:        logger,
		onBytesServed: onBytesServed,
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})
	r.Get("/*", s.serveAsset)

	s.srv = &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start blocks on the accept loop until Shutdown. Run it in its own
// goroutine; http.ErrServerClosed is the clean-exit signal.
func (s *Server) Start() error {
	s.logger.Info("media server starting", zap.String("addr", s.srv.Addr))
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request) {
	// Query strings are cache busters; only the path picks the file.
	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		http.NotFound(w, r)
		return
	}

	filePath := filepath.Join(s.assetDir, name)
	info, err := os.Stat(filePath)
	if err != nil || info.IsDir() {
		s.logger.Debug("asset not found", zap.String("path", name))
		http.NotFound(w, r)
		return
	}
	size := info.Size()

	h := w.Header()
	h.Set("Content-Type", "audio/mpeg")
	h.Set("Accept-Ranges", "bytes")
	// Devices must never replay a cached notification.
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")

	rangeHdr := r.Header.Get("Range")
	if rangeHdr == "" {
		h.Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		s.copyRange(w, filePath, 0, size)
		return
	}

	start, end, err := parseRange(rangeHdr, size, s.chunk)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	length := end - start + 1
	h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	h.Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(http.StatusPartialContent)
	s.copyRange(w, filePath, start, length)
}

// copyRange streams length bytes starting at offset via seek and a bounded
// copy; the whole file is never loaded for a partial request.
func (s *Server) copyRange(w io.Writer, filePath string, offset, length int64) {
	f, err := os.Open(filePath)
	if err != nil {
		s.logger.Warn("asset vanished mid-request", zap.String("path", filePath), zap.Error(err))
		return
	}
	defer f.Close()

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			s.logger.Warn("asset seek failed", zap.String("path", filePath), zap.Error(err))
			return
		}
	}
	n, err := io.CopyN(w, f, length)
	if err != nil && !errors.Is(err, io.EOF) {
		// The device dropping the connection mid-stream is routine.
		s.logger.Debug("asset stream interrupted", zap.String("path", filePath), zap.Error(err))
	}
	s.onBytesServed(n)
}

// parseRange interprets "bytes=<start>-<end>". Start defaults to 0, end to
// start+chunk-1; both are clamped to size-1. Anything unparseable, ranges
// that are empty after clamping, and any range into a zero-byte file are
// malformed.
func parseRange(header string, size, chunk int64) (start, end int64, err error) {
	// No byte of an empty file is addressable, so no clamp can rescue the
	// request.
	if size == 0 {
		return 0, 0, errMalformedRange
	}
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return 0, 0, errMalformedRange
	}
	first, second, found := strings.Cut(header[len(prefix):], "-")
	if !found {
		return 0, 0, errMalformedRange
	}

	if first != "" {
		start, err = strconv.ParseInt(first, 10, 64)
		if err != nil || start < 0 {
			return 0, 0, errMalformedRange
		}
	}

	if second == "" {
		end = start + chunk - 1
	} else {
		end, err = strconv.ParseInt(second, 10, 64)
		if err != nil {
			return 0, 0, errMalformedRange
		}
	}

	if start > size-1 {
		start = size - 1
	}
	if end > size-1 {
		end = size - 1
	}
	if end < start {
		return 0, 0, errMalformedRange
	}
	return start, end, nil
}

// OutboundIP reports the host's externally reachable address, the one
// playback devices must use to fetch assets. Determined by routing, no
// packets are sent.
func OutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", fmt.Errorf("determine outbound ip: %w", err)
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
