// Package cast models networked audio playback endpoints: the collaborator
// interfaces the notification worker drives, the registry that owns the set
// of currently known endpoints, and a websocket-based endpoint client.
package cast

import (
	"context"
	"strings"
	"time"
)

// Endpoint is a playback device capable of receiving a media URL and
// reporting transport status. Status reads return the last pushed state and
// may be nil before the device has reported anything; absence of status is
// valid, not an error.
type Endpoint interface {
	ID() string
	Name() string
	Model() string

	// Ready reports whether the endpoint's control connection is up.
	// A device may drop its connection during or right after playback.
	Ready() bool

	Status() *Status

	SetVolume(ctx context.Context, level float64) error
	SetMuted(ctx context.Context, muted bool) error
	StartApp(ctx context.Context, appID string) error
	QuitApp(ctx context.Context) error

	Media() MediaSession

	Close() error
}

// MediaSession is the media-transport half of an endpoint.
type MediaSession interface {
	// Play instructs the device to fetch and play the given URL.
	Play(ctx context.Context, url, contentType string) error
	Seek(ctx context.Context, position float64) error

	// RefreshStatus asks the device to push a fresh media status.
	RefreshStatus(ctx context.Context) error
	// Status returns the most recently observed media status, nil if none.
	Status() *MediaStatus

	// AwaitActive blocks until the device acknowledges an active media
	// session after a Play, or the timeout expires.
	AwaitActive(ctx context.Context, timeout time.Duration) error
}

// DiscoverySink receives endpoint appeared/disappeared events from whatever
// discovery mechanism feeds the process. The Registry implements it.
type DiscoverySink interface {
	OnEndpointFound(ep Endpoint)
	OnEndpointLost(id string)
}

// DiscoveryFeed produces endpoint events. Discovery itself (mDNS and the
// like) lives outside this module; StaticFeed covers statically configured
// endpoints.
type DiscoveryFeed interface {
	Run(ctx context.Context, sink DiscoverySink) error
}

// audioModels are model-name fragments identifying audio-capable endpoints.
// Video-oriented devices are filtered out of the registry.
var audioModels = []string{
	"Google Home", "Google Home Mini", "Google Nest Mini", "Google Nest Hub",
	"Google Nest Audio", "Nest Audio", "Home Mini", "Google Cast Group",
	"Lenovo Smart Clock",
}

// IsAudioModel reports whether the model name identifies an audio-capable
// device. An empty model is accepted: some transports only learn the model
// after the first device push.
func IsAudioModel(model string) bool {
	if model == "" {
		return true
	}
	lower := strings.ToLower(model)
	for _, m := range audioModels {
		if strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
