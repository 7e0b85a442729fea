// Package playback implements the two halves of a notification play:
// preserving and restoring the endpoint's state around the interruption,
// and detecting when the notification has actually finished playing.
package playback

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/homecast/cast-notifier/internal/cast"
	"github.com/homecast/cast-notifier/internal/domain"
)

// Snapshot captures the receiver state present before a notification
// interrupted it. An empty snapshot means the device reported nothing, so
// there is nothing to put back. Lives only for the span of one request,
// never persisted.
type Snapshot struct {
	Volume       *float64
	Muted        *bool
	AppID        string
	SupportsSeek bool
}

func (s Snapshot) Empty() bool { return s.Volume == nil }

// Take records the endpoint's current receiver state, then prepares the
// device for the notification: whatever app is in the foreground is
// quit, volume is forced to the notification level, and mute is lifted.
func Take(ctx context.Context, ep cast.Endpoint, notifVolume float64) (Snapshot, error) {
	var snap Snapshot
	if st := ep.Status(); st != nil {
		v, m := st.Volume, st.Muted
		snap.Volume = &v
		snap.Muted = &m
		snap.AppID = st.AppID
	}
	if ms := ep.Media().Status(); ms != nil {
		snap.SupportsSeek = ms.SupportsSeek
	}

	if snap.AppID != "" {
		if err := ep.QuitApp(ctx); err != nil {
			return snap, fmt.Errorf("quit foreground app: %w", err)
		}
	}
	if err := ep.SetVolume(ctx, notifVolume); err != nil {
		return snap, fmt.Errorf("set notification volume: %w", err)
	}
	if err := ep.SetMuted(ctx, false); err != nil {
		return snap, fmt.Errorf("unmute: %w", err)
	}
	return snap, nil
}

// Restorer puts a snapshot back onto an endpoint. Devices commonly drop
// their control connection right after playback, so restore first waits
// for the endpoint to come back, polling up to Attempts times.
type Restorer struct {
	Interval time.Duration
	Attempts int
	Logger   *zap.Logger

	// sleep is swappable in tests; returns false when ctx is cancelled.
	sleep func(ctx context.Context, d time.Duration) bool
}

func NewRestorer(interval time.Duration, attempts int, logger *zap.Logger) *Restorer {
	return &Restorer{
		Interval: interval,
		Attempts: attempts,
		Logger:   logger,
		sleep:    sleepCtx,
	}
}

// Restore re-applies the snapshot. An empty snapshot is a no-op. If the
// endpoint never becomes ready within the polling window the restore is
// abandoned with ErrRestoreTimeout.
func (r *Restorer) Restore(ctx context.Context, ep cast.Endpoint, snap Snapshot) error {
	if snap.Empty() {
		return nil
	}

	ready := false
	for i := 0; i < r.Attempts; i++ {
		if ep.Ready() {
			ready = true
			break
		}
		r.Logger.Debug("endpoint not ready for restore, waiting",
			zap.String("endpoint", ep.Name()),
			zap.Int("attempt", i+1))
		if !r.sleep(ctx, r.Interval) {
			return ctx.Err()
		}
	}
	if !ready {
		return fmt.Errorf("%w: endpoint %s", domain.ErrRestoreTimeout, ep.Name())
	}

	// The notification app may still be foregrounded; quitting returns the
	// device to its idle screen before the old levels come back.
	if err := ep.QuitApp(ctx); err != nil {
		r.Logger.Warn("quit after playback failed",
			zap.String("endpoint", ep.Name()), zap.Error(err))
	}
	if err := ep.SetVolume(ctx, *snap.Volume); err != nil {
		return fmt.Errorf("restore volume: %w", err)
	}
	if snap.Muted != nil {
		if err := ep.SetMuted(ctx, *snap.Muted); err != nil {
			return fmt.Errorf("restore mute: %w", err)
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
