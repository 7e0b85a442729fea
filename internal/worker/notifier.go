// Package worker runs the single playback consumer. One goroutine pulls
// requests off the queue and plays them end to end; devices can only speak
// one thing at a time, so there is deliberately no pool here.
package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/homecast/cast-notifier/internal/cast"
	"github.com/homecast/cast-notifier/internal/domain"
	"github.com/homecast/cast-notifier/internal/playback"
	"github.com/homecast/cast-notifier/internal/queue"
	"github.com/homecast/cast-notifier/internal/repository"
	"github.com/homecast/cast-notifier/internal/tts"
)

// MetricHooks carries the metric callback functions injected by main.
// Using a struct keeps the constructor signature clean.
type MetricHooks struct {
	OnCompleted func(elapsed time.Duration)
	OnSkipped   func()
	OnFailed    func(reason string)
}

// Options wires the notifier's collaborators and tunables.
type Options struct {
	Queue    *queue.Queue
	Registry *cast.Registry
	Synth    tts.Synthesizer
	Repo     repository.SessionRepository
	Detector *playback.Detector
	Restorer *playback.Restorer

	// AssetDir is where synthesized audio lands; MediaBaseURL is the
	// externally reachable prefix devices fetch it from.
	AssetDir     string
	MediaBaseURL string

	Volume             float64
	AwaitActiveTimeout time.Duration
	DequeuePoll        time.Duration

	Logger *zap.Logger
	Hooks  MetricHooks
}

// Notifier is the single consumer. It processes one notification at a time:
// synthesize, snapshot device state, play, wait for completion, restore.
type Notifier struct {
	opts Options
	done chan struct{}
}

func NewNotifier(opts Options) *Notifier {
	if opts.Hooks.OnCompleted == nil {
		opts.Hooks.OnCompleted = func(time.Duration) {}
	}
	if opts.Hooks.OnSkipped == nil {
		opts.Hooks.OnSkipped = func() {}
	}
	if opts.Hooks.OnFailed == nil {
		opts.Hooks.OnFailed = func(string) {}
	}
	return &Notifier{opts: opts, done: make(chan struct{})}
}

// Done is closed when Run returns; main uses it for the bounded shutdown
// join.
func (n *Notifier) Done() <-chan struct{} { return n.done }

// Run blocks until the shutdown sentinel is dequeued or ctx is cancelled
// while idle. A request already in flight is finished before exit.
func (n *Notifier) Run(ctx context.Context) {
	defer close(n.done)
	n.opts.Logger.Info("notifier started")

	for {
		// A cancellation stops playback work; leftover queue items are
		// swept (marked failed, never played) so Drain can complete.
		if ctx.Err() != nil {
			n.opts.Logger.Info("notifier stopping on cancelled context")
			n.sweepRemaining()
			return
		}
		req, ok := n.opts.Queue.Dequeue(n.opts.DequeuePoll)
		if !ok {
			continue
		}
		if req.IsSentinel() {
			n.opts.Queue.TaskDone()
			n.opts.Logger.Info("notifier stopping")
			return
		}
		n.process(ctx, req)
	}
}

// sweepRemaining consumes whatever is still queued after cancellation.
// Nothing is played; each item is acknowledged so the queue's drain
// condition can be met, and its session records why it never ran.
func (n *Notifier) sweepRemaining() {
	for {
		req, ok := n.opts.Queue.Dequeue(0)
		if !ok {
			return
		}
		n.opts.Queue.TaskDone()
		if req.IsSentinel() {
			continue
		}
		n.markFinished(context.Background(), req.SessionID, domain.SessionFailed,
			"shut down before playback")
		n.opts.Logger.Info("request discarded at shutdown",
			zap.String("session_id", req.SessionID), zap.String("target", req.Target))
	}
}

func (n *Notifier) process(ctx context.Context, req domain.NotificationRequest) {
	defer n.opts.Queue.TaskDone()

	start := time.Now()
	log := n.opts.Logger.With(
		zap.String("session_id", req.SessionID),
		zap.String("target", req.Target),
	)

	ep, err := n.opts.Registry.Resolve(req.Target)
	if err != nil {
		n.fail(ctx, log, req.SessionID, "target_not_found", err)
		return
	}
	if !ep.Ready() {
		n.fail(ctx, log, req.SessionID, "target_unavailable",
			fmt.Errorf("%w: %s", domain.ErrTargetUnavailable, req.Target))
		return
	}

	// A muted device gets no notification at all: no asset is generated
	// and nothing is played, but the request is consumed normally. The
	// session records why it was skipped.
	if st := ep.Status(); st != nil && st.Muted {
		log.Info("target muted, skipping notification")
		n.markFinished(ctx, req.SessionID, domain.SessionSkipped, domain.ErrTargetMuted.Error())
		n.opts.Hooks.OnSkipped()
		return
	}

	assetPath := filepath.Join(n.opts.AssetDir, ep.ID()+".mp3")
	asset, err := n.opts.Synth.Synthesize(ctx, req.Text, assetPath)
	if err != nil {
		n.fail(ctx, log, req.SessionID, "synthesis_failed", err)
		return
	}
	if info, err := os.Stat(asset.Path); err != nil || info.Size() == 0 {
		n.fail(ctx, log, req.SessionID, "asset_missing",
			fmt.Errorf("%w: %s", domain.ErrAssetMissing, asset.Path))
		return
	}

	snap, err := playback.Take(ctx, ep, n.opts.Volume)
	if err != nil {
		// The snapshot may be half applied; put back whatever was captured.
		n.restore(ctx, log, ep, snap)
		n.fail(ctx, log, req.SessionID, "prepare_failed", err)
		return
	}

	if err := n.opts.Repo.UpdateStatus(ctx, req.SessionID, domain.SessionPlaying); err != nil {
		log.Warn("session status update failed", zap.Error(err))
	}

	media := ep.Media()
	playURL := fmt.Sprintf("%s/%s.mp3?t=%s", n.opts.MediaBaseURL, ep.ID(), uuid.New().String())
	log.Info("starting playback",
		zap.String("url", playURL),
		zap.Duration("estimated", asset.EstimatedDuration))

	if err := media.Play(ctx, playURL, "audio/mpeg"); err != nil {
		n.restore(ctx, log, ep, snap)
		n.fail(ctx, log, req.SessionID, "play_failed", err)
		return
	}
	if err := media.AwaitActive(ctx, n.opts.AwaitActiveTimeout); err != nil {
		n.restore(ctx, log, ep, snap)
		n.fail(ctx, log, req.SessionID, "no_media_session", err)
		return
	}

	playErr := n.opts.Detector.Wait(ctx, media, asset.EstimatedDuration)

	// Restore runs regardless of how playback ended.
	n.restore(ctx, log, ep, snap)

	if playErr != nil {
		// The asset stays on disk: an undelivered notification's audio is
		// worth keeping for diagnosis.
		n.fail(ctx, log, req.SessionID, "playback_timeout", playErr)
		return
	}

	if err := os.Remove(asset.Path); err != nil {
		log.Warn("asset cleanup failed", zap.String("path", asset.Path), zap.Error(err))
	}

	elapsed := time.Since(start)
	n.markFinished(ctx, req.SessionID, domain.SessionCompleted, "")
	n.opts.Hooks.OnCompleted(elapsed)
	log.Info("notification played", zap.Duration("elapsed", elapsed))
}

func (n *Notifier) restore(ctx context.Context, log *zap.Logger, ep cast.Endpoint, snap playback.Snapshot) {
	if err := n.opts.Restorer.Restore(ctx, ep, snap); err != nil {
		// Restore failure is operational, not a session failure: the
		// notification itself may well have played.
		log.Warn("state restore failed", zap.Error(err))
	}
}

func (n *Notifier) fail(ctx context.Context, log *zap.Logger, sessionID, reason string, err error) {
	log.Warn("notification failed", zap.String("reason", reason), zap.Error(err))
	n.markFinished(ctx, sessionID, domain.SessionFailed, err.Error())
	n.opts.Hooks.OnFailed(reason)
}

func (n *Notifier) markFinished(ctx context.Context, sessionID string, status domain.SessionStatus, errMsg string) {
	if err := n.opts.Repo.MarkFinished(ctx, sessionID, status, errMsg, time.Now().UTC()); err != nil {
		n.opts.Logger.Warn("session finish update failed",
			zap.String("session_id", sessionID), zap.Error(err))
	}
}
