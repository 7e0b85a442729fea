package cast

// PlayerState is the transport state reported by an endpoint's media session.
type PlayerState string

const (
	PlayerIdle      PlayerState = "IDLE"
	PlayerBuffering PlayerState = "BUFFERING"
	PlayerPlaying   PlayerState = "PLAYING"
	PlayerPaused    PlayerState = "PAUSED"
	PlayerUnknown   PlayerState = "UNKNOWN"
)

// Status is the endpoint's receiver-level state: volume, mute, and the
// application currently in the foreground.
type Status struct {
	Volume  float64
	Muted   bool
	AppID   string
	AppName string
}

// MediaStatus is a transient observation of the media transport. Duration
// and Position are pointers because the device may not report them until
// streaming has actually begun.
type MediaStatus struct {
	State        PlayerState
	Duration     *float64 // seconds
	Position     *float64 // seconds
	SupportsSeek bool
}

func (m *MediaStatus) IsPlaying() bool { return m.State == PlayerPlaying || m.State == PlayerBuffering }
func (m *MediaStatus) IsPaused() bool  { return m.State == PlayerPaused }
func (m *MediaStatus) IsIdle() bool    { return m.State == PlayerIdle }

// Progress returns the playback position as a 0-100 percentage. An absent
// or zero duration is treated as unknown position, never as an error.
func (m *MediaStatus) Progress() int {
	if m.Duration == nil || m.Position == nil || *m.Duration <= 0 {
		return 0
	}
	return int(*m.Position / *m.Duration * 100)
}
