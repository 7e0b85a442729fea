package cast

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// wsCommand is the outbound control message envelope.
type wsCommand struct {
	Type        string   `json:"type"`
	Level       *float64 `json:"level,omitempty"`
	Muted       *bool    `json:"muted,omitempty"`
	AppID       string   `json:"app_id,omitempty"`
	URL         string   `json:"url,omitempty"`
	ContentType string   `json:"content_type,omitempty"`
	Position    *float64 `json:"position,omitempty"`
}

// wsEvent is the inbound message envelope. The device pushes state; fields
// are populated depending on Type.
type wsEvent struct {
	Type string `json:"type"`

	// device_info
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Model string `json:"model,omitempty"`

	// receiver_status
	Volume  float64 `json:"volume,omitempty"`
	Muted   bool    `json:"muted,omitempty"`
	AppID   string  `json:"app_id,omitempty"`
	AppName string  `json:"app_name,omitempty"`

	// media_status
	State        string   `json:"state,omitempty"`
	Duration     *float64 `json:"duration,omitempty"`
	Position     *float64 `json:"position,omitempty"`
	SupportsSeek bool     `json:"supports_seek,omitempty"`
}

// WSEndpoint drives a playback device over a JSON websocket control channel.
// The device pushes receiver and media status; commands are fire-and-forget
// writes. The read loop caches the last pushed state so status reads never
// block on the network.
type WSEndpoint struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	logger    *zap.Logger

	mu       sync.RWMutex
	id       string
	name     string
	model    string
	ready    bool
	status   *Status
	media    *MediaStatus
	mediaSeq uint64
}

// DialEndpoint connects to a device's websocket control URL. The identifier
// defaults to the host and is replaced by the device_info push if the device
// sends one.
func DialEndpoint(ctx context.Context, rawURL string, logger *zap.Logger) (*WSEndpoint, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint url: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial endpoint %s: %w", u.Host, err)
	}

	ep := &WSEndpoint{
		conn:   conn,
		logger: logger.With(zap.String("endpoint", u.Host)),
		id:     u.Host,
		name:   u.Host,
		ready:  true,
	}
	go ep.readLoop()

	// Ask for an initial state push so Status() fills in quickly.
	_ = ep.writeCommand(wsCommand{Type: "get_status"})

	return ep, nil
}

func (e *WSEndpoint) readLoop() {
	defer e.markDisconnected()
	for {
		_, data, err := e.conn.ReadMessage()
		if err != nil {
			return
		}
		var ev wsEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			e.logger.Debug("discarding malformed device message", zap.Error(err))
			continue
		}
		e.handleEvent(ev)
	}
}

func (e *WSEndpoint) handleEvent(ev wsEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev.Type {
	case "device_info":
		if ev.ID != "" {
			e.id = ev.ID
		}
		if ev.Name != "" {
			e.name = ev.Name
		}
		e.model = ev.Model
	case "receiver_status":
		e.ready = true
		e.status = &Status{
			Volume:  ev.Volume,
			Muted:   ev.Muted,
			AppID:   ev.AppID,
			AppName: ev.AppName,
		}
	case "media_status":
		e.ready = true
		state := PlayerState(ev.State)
		switch state {
		case PlayerIdle, PlayerBuffering, PlayerPlaying, PlayerPaused:
		default:
			state = PlayerUnknown
		}
		e.media = &MediaStatus{
			State:        state,
			Duration:     ev.Duration,
			Position:     ev.Position,
			SupportsSeek: ev.SupportsSeek,
		}
		e.mediaSeq++
	default:
		// Unknown pushes are ignored; the protocol is device-extensible.
	}
}

func (e *WSEndpoint) markDisconnected() {
	e.mu.Lock()
	e.ready = false
	e.mu.Unlock()
}

func (e *WSEndpoint) writeCommand(cmd wsCommand) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return e.conn.WriteJSON(cmd)
}

func (e *WSEndpoint) command(ctx context.Context, cmd wsCommand) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.writeCommand(cmd); err != nil {
		return fmt.Errorf("send %s: %w", cmd.Type, err)
	}
	return nil
}

func (e *WSEndpoint) ID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.id
}

func (e *WSEndpoint) Name() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.name
}

func (e *WSEndpoint) Model() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.model
}

func (e *WSEndpoint) Ready() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ready
}

func (e *WSEndpoint) Status() *Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.status == nil {
		return nil
	}
	st := *e.status
	return &st
}

func (e *WSEndpoint) SetVolume(ctx context.Context, level float64) error {
	return e.command(ctx, wsCommand{Type: "set_volume", Level: &level})
}

func (e *WSEndpoint) SetMuted(ctx context.Context, muted bool) error {
	return e.command(ctx, wsCommand{Type: "set_muted", Muted: &muted})
}

func (e *WSEndpoint) StartApp(ctx context.Context, appID string) error {
	return e.command(ctx, wsCommand{Type: "start_app", AppID: appID})
}

func (e *WSEndpoint) QuitApp(ctx context.Context) error {
	return e.command(ctx, wsCommand{Type: "quit_app"})
}

func (e *WSEndpoint) Media() MediaSession { return &wsMedia{ep: e} }

func (e *WSEndpoint) mediaSeqNow() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mediaSeq
}

// wsMedia is the media-transport view of a WSEndpoint. A separate type so
// the receiver status and media status accessors can both be named Status.
type wsMedia struct {
	ep *WSEndpoint

	mu       sync.Mutex
	playSeq  uint64
	playSent bool
}

func (m *wsMedia) Play(ctx context.Context, url, contentType string) error {
	// Baseline the push counter before the command is on the wire, so a
	// media status arriving while Play is still in flight counts toward
	// activation instead of being missed.
	m.mu.Lock()
	m.playSeq = m.ep.mediaSeqNow()
	m.playSent = true
	m.mu.Unlock()
	return m.ep.command(ctx, wsCommand{Type: "play", URL: url, ContentType: contentType})
}

func (m *wsMedia) Seek(ctx context.Context, position float64) error {
	return m.ep.command(ctx, wsCommand{Type: "seek", Position: &position})
}

func (m *wsMedia) RefreshStatus(ctx context.Context) error {
	return m.ep.command(ctx, wsCommand{Type: "get_status"})
}

func (m *wsMedia) Status() *MediaStatus {
	m.ep.mu.RLock()
	defer m.ep.mu.RUnlock()
	if m.ep.media == nil {
		return nil
	}
	ms := *m.ep.media
	return &ms
}

// AwaitActive waits for the device to push a media status after a Play
// command, polling the cached state. The comparison point is the counter
// value recorded when Play was sent, falling back to the current value if
// Play never ran on this session.
func (m *wsMedia) AwaitActive(ctx context.Context, timeout time.Duration) error {
	m.mu.Lock()
	since := m.playSeq
	if !m.playSent {
		since = m.ep.mediaSeqNow()
	}
	m.mu.Unlock()
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if m.ep.mediaSeqNow() > since {
			if ms := m.Status(); ms != nil && ms.State != PlayerUnknown {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("media session not active after %v", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (e *WSEndpoint) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.markDisconnected()
		err = e.conn.Close()
	})
	return err
}

// compile-time interface checks
var (
	_ Endpoint     = (*WSEndpoint)(nil)
	_ MediaSession = (*wsMedia)(nil)
)
