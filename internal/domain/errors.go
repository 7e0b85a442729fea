package domain

import "errors"

// Sentinel errors used throughout the application.
// API handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound          = errors.New("not found")
	ErrTargetNotFound    = errors.New("target not found")
	ErrTargetUnavailable = errors.New("target is not connected")
	ErrTargetMuted       = errors.New("target is muted, notification skipped")
	ErrSynthesisFailed   = errors.New("speech synthesis failed")
	ErrAssetMissing      = errors.New("audio asset missing or empty")
	ErrPlaybackTimeout   = errors.New("playback did not complete in time")
	ErrRestoreTimeout    = errors.New("target did not reconnect, state not restored")
	ErrInvalidTarget     = errors.New("target must not be empty")
	ErrInvalidText       = errors.New("text must be between 1 and 4096 characters")
	ErrRateLimited       = errors.New("too many notifications for this target, try again later")
)
