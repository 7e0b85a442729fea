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

func TestTake_CapturesAndPrepares(t *testing.T) {
	ep := &cast.MockEndpoint{
		NameVal: "kitchen",
		StatusVal: &cast.Status{
			Volume: 0.8,
			Muted:  true,
			AppID:  "ABC123",
		},
	}

	snap, err := playback.Take(context.Background(), ep, 0.5)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}

	if snap.Empty() {
		t.Fatal("snapshot should not be empty")
	}
	if *snap.Volume != 0.8 || *snap.Muted != true || snap.AppID != "ABC123" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if ep.QuitCalls != 1 {
		t.Fatalf("QuitCalls = %d, want 1", ep.QuitCalls)
	}
	if len(ep.Volumes) != 1 || ep.Volumes[0] != 0.5 {
		t.Fatalf("Volumes = %v, want [0.5]", ep.Volumes)
	}
	if len(ep.MutedCalls) != 1 || ep.MutedCalls[0] != false {
		t.Fatalf("MutedCalls = %v, want [false]", ep.MutedCalls)
	}
}

func TestTake_NoStatus(t *testing.T) {
	ep := &cast.MockEndpoint{NameVal: "kitchen"}

	snap, err := playback.Take(context.Background(), ep, 0.5)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if !snap.Empty() {
		t.Fatalf("snapshot = %+v, want empty", snap)
	}
	// Preparation still happens; no app to quit though.
	if ep.QuitCalls != 0 {
		t.Fatalf("QuitCalls = %d, want 0", ep.QuitCalls)
	}
	if len(ep.Volumes) != 1 {
		t.Fatalf("Volumes = %v", ep.Volumes)
	}
}

func TestTake_NoForegroundApp(t *testing.T) {
	ep := &cast.MockEndpoint{
		NameVal:   "kitchen",
		StatusVal: &cast.Status{Volume: 0.3},
	}

	if _, err := playback.Take(context.Background(), ep, 0.5); err != nil {
		t.Fatalf("Take: %v", err)
	}
	if ep.QuitCalls != 0 {
		t.Fatalf("QuitCalls = %d, want 0", ep.QuitCalls)
	}
}

func TestRestore_EmptySnapshotIsNoOp(t *testing.T) {
	ep := &cast.MockEndpoint{NameVal: "kitchen", ReadyVal: true}
	r := playback.NewRestorer(time.Millisecond, 3, zap.NewNop())

	if err := r.Restore(context.Background(), ep, playback.Snapshot{}); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if len(ep.Volumes) != 0 || len(ep.MutedCalls) != 0 || ep.QuitCalls != 0 {
		t.Fatal("empty snapshot must not touch the endpoint")
	}
}

func TestRestore_ReappliesState(t *testing.T) {
	ep := &cast.MockEndpoint{NameVal: "kitchen", ReadyVal: true}
	r := playback.NewRestorer(time.Millisecond, 3, zap.NewNop())

	vol, muted := 0.8, true
	snap := playback.Snapshot{Volume: &vol, Muted: &muted, AppID: "ABC123"}
	if err := r.Restore(context.Background(), ep, snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if ep.QuitCalls != 1 {
		t.Fatalf("QuitCalls = %d, want 1", ep.QuitCalls)
	}
	if len(ep.Volumes) != 1 || ep.Volumes[0] != 0.8 {
		t.Fatalf("Volumes = %v, want [0.8]", ep.Volumes)
	}
	if len(ep.MutedCalls) != 1 || ep.MutedCalls[0] != true {
		t.Fatalf("MutedCalls = %v, want [true]", ep.MutedCalls)
	}
}

func TestRestore_WaitsForReconnect(t *testing.T) {
	ep := &cast.MockEndpoint{NameVal: "kitchen", ReadyAfterChecks: 3}
	r := playback.NewRestorer(time.Millisecond, 5, zap.NewNop())

	vol := 0.8
	if err := r.Restore(context.Background(), ep, playback.Snapshot{Volume: &vol}); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if len(ep.Volumes) != 1 {
		t.Fatalf("Volumes = %v, want one restore", ep.Volumes)
	}
}

func TestRestore_TimesOut(t *testing.T) {
	ep := &cast.MockEndpoint{NameVal: "kitchen", ReadyVal: false}
	r := playback.NewRestorer(time.Millisecond, 3, zap.NewNop())

	vol := 0.8
	err := r.Restore(context.Background(), ep, playback.Snapshot{Volume: &vol})
	if !errors.Is(err, domain.ErrRestoreTimeout) {
		t.Fatalf("err = %v, want ErrRestoreTimeout", err)
	}
	if len(ep.Volumes) != 0 {
		t.Fatal("no state must be applied after restore timeout")
	}
}
