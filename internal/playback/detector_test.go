package playback_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/homecast/cast-notifier/internal/cast"
	"github.com/homecast/cast-notifier/internal/domain"
	"github.com/homecast/cast-notifier/internal/playback"
)

func fastTuning() playback.Tuning {
	return playback.Tuning{
		SettleDelay:        time.Millisecond,
		PollInterval:       2 * time.Millisecond,
		MinPlaybackTimeout: 100 * time.Millisecond,
		StartSlack:         20 * time.Millisecond,
		DurationSlack:      50 * time.Millisecond,
		FlushGrace:         time.Millisecond,
	}
}

func fptr(f float64) *float64 { return &f }

func TestDetector_CompletesOnIdleAfterPlaying(t *testing.T) {
	ep := &cast.MockEndpoint{
		MediaScript: []cast.MediaStatus{
			{State: cast.PlayerBuffering},
			{State: cast.PlayerPlaying},
			{State: cast.PlayerPlaying},
			{State: cast.PlayerIdle},
		},
	}
	d := playback.NewDetector(fastTuning(), zap.NewNop())

	if err := d.Wait(context.Background(), ep.Media(), 10*time.Millisecond); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if ep.Refreshes < 4 {
		t.Fatalf("Refreshes = %d, want at least 4", ep.Refreshes)
	}
}

func TestDetector_TimesOutWhenNeverPlaying(t *testing.T) {
	ep := &cast.MockEndpoint{
		MediaScript: []cast.MediaStatus{{State: cast.PlayerUnknown}},
	}
	tn := fastTuning()
	tn.MinPlaybackTimeout = 20 * time.Millisecond
	tn.StartSlack = 0
	d := playback.NewDetector(tn, zap.NewNop())

	err := d.Wait(context.Background(), ep.Media(), 0)
	if !errors.Is(err, domain.ErrPlaybackTimeout) {
		t.Fatalf("err = %v, want ErrPlaybackTimeout", err)
	}
}

// The flush grace applies however the wait ends: even a timed-out session
// gives the device its buffer-drain window before state is restored.
func TestDetector_FlushGraceRunsOnTimeout(t *testing.T) {
	ep := &cast.MockEndpoint{
		MediaScript: []cast.MediaStatus{{State: cast.PlayerUnknown}},
	}
	tn := fastTuning()
	tn.MinPlaybackTimeout = 20 * time.Millisecond
	tn.StartSlack = 0
	tn.FlushGrace = 150 * time.Millisecond
	d := playback.NewDetector(tn, zap.NewNop())

	start := time.Now()
	err := d.Wait(context.Background(), ep.Media(), 0)
	elapsed := time.Since(start)

	if !errors.Is(err, domain.ErrPlaybackTimeout) {
		t.Fatalf("err = %v, want ErrPlaybackTimeout", err)
	}
	if elapsed < tn.MinPlaybackTimeout+tn.FlushGrace {
		t.Fatalf("Wait returned after %v, before the %v flush grace", elapsed, tn.FlushGrace)
	}
}

// Idle observed before the transport was ever seen playing is the device's
// resting state, not a finished notification.
func TestDetector_IdleBeforePlayingIsNotCompletion(t *testing.T) {
	ep := &cast.MockEndpoint{
		MediaScript: []cast.MediaStatus{{State: cast.PlayerIdle}},
	}
	tn := fastTuning()
	tn.MinPlaybackTimeout = 20 * time.Millisecond
	tn.StartSlack = 0
	d := playback.NewDetector(tn, zap.NewNop())

	err := d.Wait(context.Background(), ep.Media(), 0)
	if !errors.Is(err, domain.ErrPlaybackTimeout) {
		t.Fatalf("err = %v, want ErrPlaybackTimeout", err)
	}
}

// Once the device reports a real duration the deadline stretches to cover
// it, even when the initial size-based budget would already have expired.
func TestDetector_DeadlineExtendsOnReportedDuration(t *testing.T) {
	ep := &cast.MockEndpoint{
		MediaScript: []cast.MediaStatus{
			{State: cast.PlayerPlaying, Duration: fptr(0.06)},
			{State: cast.PlayerPlaying, Duration: fptr(0.06)},
			{State: cast.PlayerPlaying, Duration: fptr(0.06)},
			{State: cast.PlayerPlaying, Duration: fptr(0.06)},
			{State: cast.PlayerPlaying, Duration: fptr(0.06)},
			{State: cast.PlayerIdle},
		},
	}
	tn := fastTuning()
	tn.MinPlaybackTimeout = 8 * time.Millisecond
	tn.StartSlack = 0
	tn.DurationSlack = 100 * time.Millisecond
	d := playback.NewDetector(tn, zap.NewNop())

	if err := d.Wait(context.Background(), ep.Media(), 0); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestDetector_ContextCancelled(t *testing.T) {
	ep := &cast.MockEndpoint{
		MediaScript: []cast.MediaStatus{{State: cast.PlayerPlaying, Duration: fptr(60)}},
	}
	d := playback.NewDetector(fastTuning(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := d.Wait(ctx, ep.Media(), time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
