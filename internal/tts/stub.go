package tts

import (
	"context"
	"os"
	"sync"
)

// StubSynthesizer writes fixed bytes instead of calling a real engine.
// Used in tests and offline development.
type StubSynthesizer struct {
	mu    sync.Mutex
	Data  []byte
	Err   error
	Texts []string

	// OnSynthesize, when set, observes each call before the asset is written.
	OnSynthesize func(text string)
}

func (s *StubSynthesizer) Synthesize(_ context.Context, text, path string) (*Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if s.OnSynthesize != nil {
		s.OnSynthesize(text)
	}
	s.Texts = append(s.Texts, text)
	if err := os.WriteFile(path, s.Data, 0o644); err != nil {
		return nil, err
	}
	return &Asset{
		Path:              path,
		Size:              int64(len(s.Data)),
		EstimatedDuration: EstimateDuration(int64(len(s.Data)), 64000),
	}, nil
}

var _ Synthesizer = (*StubSynthesizer)(nil)
