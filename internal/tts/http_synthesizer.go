package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/homecast/cast-notifier/internal/domain"
)

// HTTPSynthesizer calls a translate-style text-to-speech endpoint that
// returns MP3 bytes for a GET with the text and language as query
// parameters. The base URL is injected from config so tests can point to a
// local mock.
type HTTPSynthesizer struct {
	baseURL    string
	language   string
	bitrateBPS int
	httpClient *http.Client
}

func NewHTTPSynthesizer(baseURL, language string, bitrateBPS int, timeout time.Duration) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		baseURL:    baseURL,
		language:   language,
		bitrateBPS: bitrateBPS,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize fetches speech audio for text and writes it to path. An empty
// response body is treated as a synthesis failure and the file is removed.
func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text, path string) (*Asset, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse tts base url: %w", err)
	}
	q := u.Query()
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("q", text)
	q.Set("tl", s.language)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create tts request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSynthesisFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: engine returned status %d", domain.ErrSynthesisFailed, resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create asset file: %w", err)
	}
	written, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: write asset: %v", domain.ErrSynthesisFailed, copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("close asset file: %w", closeErr)
	}
	if written == 0 {
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: %v", domain.ErrSynthesisFailed, domain.ErrAssetMissing)
	}

	return &Asset{
		Path:              path,
		Size:              written,
		EstimatedDuration: EstimateDuration(written, s.bitrateBPS),
	}, nil
}

var _ Synthesizer = (*HTTPSynthesizer)(nil)
