package playback

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/homecast/cast-notifier/internal/cast"
	"github.com/homecast/cast-notifier/internal/domain"
)

// Tuning holds the completion-detection timings. The defaults come from
// config; tests shrink them to milliseconds.
type Tuning struct {
	// SettleDelay is the pause after the play command before polling
	// starts, giving the device time to begin buffering.
	SettleDelay time.Duration
	// PollInterval is the status poll cadence.
	PollInterval time.Duration
	// MinPlaybackTimeout is the floor on the initial deadline.
	MinPlaybackTimeout time.Duration
	// StartSlack is added to the size-based duration estimate to cover
	// fetch and buffering latency.
	StartSlack time.Duration
	// DurationSlack is added to the device-reported duration once known.
	DurationSlack time.Duration
	// FlushGrace is the pause after completion so the device can flush
	// its audio buffer before state is restored.
	FlushGrace time.Duration
}

// Detector decides when a notification has finished playing. Endpoints
// report no explicit end-of-media event here, so completion is inferred:
// once the transport has been seen playing, a return to idle means done.
type Detector struct {
	tuning Tuning
	logger *zap.Logger

	sleep func(ctx context.Context, d time.Duration) bool
	now   func() time.Time
}

func NewDetector(tuning Tuning, logger *zap.Logger) *Detector {
	return &Detector{
		tuning: tuning,
		logger: logger,
		sleep:  sleepCtx,
		now:    time.Now,
	}
}

// Wait blocks until the notification finishes, the deadline passes, or ctx
// is cancelled. The initial deadline is max(MinPlaybackTimeout,
// estimated+StartSlack); when the device first reports a real duration the
// deadline is re-armed once to now+duration+DurationSlack. Hitting the
// deadline without observing completion returns ErrPlaybackTimeout.
func (d *Detector) Wait(ctx context.Context, media cast.MediaSession, estimated time.Duration) error {
	if !d.sleep(ctx, d.tuning.SettleDelay) {
		return ctx.Err()
	}

	budget := estimated + d.tuning.StartSlack
	if budget < d.tuning.MinPlaybackTimeout {
		budget = d.tuning.MinPlaybackTimeout
	}
	deadline := d.now().Add(budget)

	sawPlaying := false
	durationKnown := false
	completed := false

	for d.now().Before(deadline) {
		if err := media.RefreshStatus(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Transient status failures are expected mid-playback.
			d.logger.Debug("media status refresh failed", zap.Error(err))
		}

		if st := media.Status(); st != nil {
			switch {
			// Paused counts as evidence of an active session: a user pausing
			// the notification must not read as "never started".
			case st.IsPlaying() || st.IsPaused():
				sawPlaying = true
				if !durationKnown && st.Duration != nil && *st.Duration > 0 {
					durationKnown = true
					deadline = d.now().Add(
						time.Duration(*st.Duration*float64(time.Second)) + d.tuning.DurationSlack)
					d.logger.Debug("playback duration reported",
						zap.Float64("seconds", *st.Duration))
				}
			case st.IsIdle() && sawPlaying:
				completed = true
			}
		}
		if completed {
			break
		}

		if !d.sleep(ctx, d.tuning.PollInterval) {
			return ctx.Err()
		}
	}

	// The device may still be flushing buffered audio when the loop exits,
	// whether or not completion was observed; restoring state mid-flush
	// clips the tail of the message.
	if !d.sleep(ctx, d.tuning.FlushGrace) {
		return ctx.Err()
	}

	if !completed {
		return fmt.Errorf("%w: playback not confirmed finished", domain.ErrPlaybackTimeout)
	}
	return nil
}
