// Package tts turns notification text into playable audio assets.
package tts

import (
	"context"
	"time"
)

// Asset is one generated audio file. EstimatedDuration is derived from the
// file size under a configured bitrate assumption; the device's reported
// duration, once known, supersedes it.
type Asset struct {
	Path              string
	Size              int64
	EstimatedDuration time.Duration
}

// Synthesizer renders text as an MP3 file at the given path, overwriting
// any stale file already there.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, path string) (*Asset, error)
}

// EstimateDuration converts an MP3 size into an approximate play time
// assuming a constant bitrate.
func EstimateDuration(sizeBytes int64, bitrateBPS int) time.Duration {
	if bitrateBPS <= 0 {
		return 0
	}
	seconds := float64(sizeBytes*8) / float64(bitrateBPS)
	return time.Duration(seconds * float64(time.Second))
}
