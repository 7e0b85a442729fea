package cast

import (
	"context"
	"sync"
	"time"
)

// PlayRequest records one Play call on a MockEndpoint.
type PlayRequest struct {
	URL         string
	ContentType string
}

// MockEndpoint is a hand-written, scriptable endpoint used in unit tests.
// MediaScript entries are consumed one per RefreshStatus call; the last
// entry is sticky. No mock-generation library needed.
type MockEndpoint struct {
	mu sync.Mutex

	IDVal    string
	NameVal  string
	ModelVal string

	ReadyVal bool
	// ReadyAfterChecks makes Ready() flip to true after that many calls,
	// simulating a device reconnecting during the restore wait.
	ReadyAfterChecks int
	readyChecks      int

	StatusVal   *Status
	MediaScript []MediaStatus
	mediaIdx    int
	current     *MediaStatus

	// Optional error overrides.
	PlayErr        error
	AwaitActiveErr error
	SetVolumeErr   error

	// Recorded calls.
	Volumes     []float64
	MutedCalls  []bool
	StartedApps []string
	QuitCalls   int
	Plays       []PlayRequest
	Seeks       []float64
	Refreshes   int
	Closed      bool
}

func (m *MockEndpoint) ID() string    { return m.IDVal }
func (m *MockEndpoint) Name() string  { return m.NameVal }
func (m *MockEndpoint) Model() string { return m.ModelVal }

func (m *MockEndpoint) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readyChecks++
	if m.ReadyAfterChecks > 0 && m.readyChecks >= m.ReadyAfterChecks {
		return true
	}
	return m.ReadyVal
}

func (m *MockEndpoint) Status() *Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StatusVal == nil {
		return nil
	}
	st := *m.StatusVal
	return &st
}

func (m *MockEndpoint) SetVolume(_ context.Context, level float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetVolumeErr != nil {
		return m.SetVolumeErr
	}
	m.Volumes = append(m.Volumes, level)
	return nil
}

func (m *MockEndpoint) SetMuted(_ context.Context, muted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MutedCalls = append(m.MutedCalls, muted)
	return nil
}

func (m *MockEndpoint) StartApp(_ context.Context, appID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartedApps = append(m.StartedApps, appID)
	return nil
}

func (m *MockEndpoint) QuitApp(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QuitCalls++
	return nil
}

func (m *MockEndpoint) Media() MediaSession { return &mockMedia{ep: m} }

func (m *MockEndpoint) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

type mockMedia struct {
	ep *MockEndpoint
}

func (mm *mockMedia) Play(_ context.Context, url, contentType string) error {
	mm.ep.mu.Lock()
	defer mm.ep.mu.Unlock()
	if mm.ep.PlayErr != nil {
		return mm.ep.PlayErr
	}
	mm.ep.Plays = append(mm.ep.Plays, PlayRequest{URL: url, ContentType: contentType})
	return nil
}

func (mm *mockMedia) Seek(_ context.Context, position float64) error {
	mm.ep.mu.Lock()
	defer mm.ep.mu.Unlock()
	mm.ep.Seeks = append(mm.ep.Seeks, position)
	return nil
}

func (mm *mockMedia) RefreshStatus(context.Context) error {
	mm.ep.mu.Lock()
	defer mm.ep.mu.Unlock()
	mm.ep.Refreshes++
	if mm.ep.mediaIdx < len(mm.ep.MediaScript) {
		st := mm.ep.MediaScript[mm.ep.mediaIdx]
		mm.ep.current = &st
		mm.ep.mediaIdx++
	}
	return nil
}

func (mm *mockMedia) Status() *MediaStatus {
	mm.ep.mu.Lock()
	defer mm.ep.mu.Unlock()
	if mm.ep.current == nil {
		return nil
	}
	st := *mm.ep.current
	return &st
}

func (mm *mockMedia) AwaitActive(_ context.Context, _ time.Duration) error {
	return mm.ep.AwaitActiveErr
}

var (
	_ Endpoint     = (*MockEndpoint)(nil)
	_ MediaSession = (*mockMedia)(nil)
)
