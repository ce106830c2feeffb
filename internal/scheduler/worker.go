// Package scheduler runs the delivery loop that publishes posts when
// their slots come due.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"postqueue/internal/domain/contract"
	"postqueue/internal/domain/entity"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// idleWait bounds how long the loop sleeps when the queue is empty, so a
// missed wakeup never stalls delivery for good.
const idleWait = 5 * time.Minute

type Worker struct {
	dm        contract.DataManager
	schedule  contract.ScheduleService
	publisher contract.Publisher
	media     contract.MediaStore
	log       zerolog.Logger
	now       func() time.Time

	cron   *cron.Cron
	notify chan struct{}
	stop   chan struct{}
	done   chan struct{}
}

func New(dm contract.DataManager, schedule contract.ScheduleService, publisher contract.Publisher, media contract.MediaStore, log zerolog.Logger, loc *time.Location) *Worker {
	return &Worker{
		dm:        dm,
		schedule:  schedule,
		publisher: publisher,
		media:     media,
		log:       log.With().Str("component", "worker").Logger(),
		now:       func() time.Time { return time.Now().In(loc) },
		cron:      cron.New(cron.WithLocation(loc)),
		notify:    make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) error {
	if _, err := w.cron.AddFunc("0 * * * *", func() { w.sweepOverdue(ctx) }); err != nil {
		return fmt.Errorf("failed to register overdue sweep: %w", err)
	}
	w.cron.Start()

	go w.mainLoop(ctx)
	w.log.Info().Msg("delivery worker started")
	return nil
}

func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
	<-w.cron.Stop().Done()
	w.log.Info().Msg("delivery worker stopped")
}

// Notify wakes the loop after the queue changed, so a post scheduled
// earlier than the current wait is not missed.
func (w *Worker) Notify() {
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

func (w *Worker) mainLoop(ctx context.Context) {
	defer close(w.done)

	for {
		wait := w.nextWait(ctx)

		timer := time.NewTimer(wait)
		select {
		case <-w.stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-w.notify:
			timer.Stop()
		case <-timer.C:
			w.deliverDue(ctx)
		}
	}
}

// nextWait returns how long to sleep until the next scheduled post is
// due, capped at idleWait.
func (w *Worker) nextWait(ctx context.Context) time.Duration {
	next, err := w.dm.Post().NextDue(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to look up next due post")
		return idleWait
	}
	if next == nil {
		return idleWait
	}

	wait := next.ScheduledAt.Sub(w.now())
	if wait < 0 {
		return 0
	}
	if wait > idleWait {
		return idleWait
	}
	return wait
}

// deliverDue publishes every post whose slot has passed, oldest first.
func (w *Worker) deliverDue(ctx context.Context) {
	for {
		post, err := w.dm.Post().NextDue(ctx)
		if err != nil {
			w.log.Error().Err(err).Msg("failed to fetch due post")
			return
		}
		if post == nil || post.ScheduledAt.After(w.now()) {
			return
		}

		// Stop when the post's status could not be advanced, otherwise the
		// same row would come back due immediately.
		if !w.deliver(ctx, post) {
			return
		}
	}
}

func (w *Worker) deliver(ctx context.Context, post *entity.Post) bool {
	log := w.log.With().
		Int64("post_id", post.ID).
		Int64("owner_id", post.OwnerID).
		Str("channel_id", post.ChannelID).
		Logger()

	mediaPath, ok := w.media.Resolve(post.MediaPath)
	if !ok {
		return w.fail(ctx, post, fmt.Sprintf("media file not found: %s", post.MediaPath))
	}

	if err := w.publisher.Publish(ctx, post, mediaPath); err != nil {
		return w.fail(ctx, post, err.Error())
	}

	if err := w.dm.Post().MarkPosted(ctx, post.ID, w.now()); err != nil {
		log.Error().Err(err).Msg("failed to mark post as posted")
		return false
	}
	log.Info().Msg("post published")

	if post.Recurring != nil {
		next, err := w.schedule.AdvanceRecurrence(ctx, post)
		if err != nil {
			log.Error().Err(err).Msg("failed to advance recurring series")
		} else if next != nil {
			log.Info().
				Int64("next_post_id", next.ID).
				Time("scheduled_at", *next.ScheduledAt).
				Msg("next occurrence scheduled")
		}
	}
	return true
}

func (w *Worker) fail(ctx context.Context, post *entity.Post, reason string) bool {
	w.log.Warn().
		Int64("post_id", post.ID).
		Str("reason", reason).
		Msg("post delivery failed")

	if err := w.dm.Post().MarkFailed(ctx, post.ID, reason); err != nil {
		w.log.Error().Err(err).Int64("post_id", post.ID).Msg("failed to mark post as failed")
		return false
	}

	text := fmt.Sprintf("Failed to publish post #%d to %s: %s", post.ID, post.ChannelID, reason)
	if err := w.publisher.NotifyOwner(ctx, post.OwnerID, text); err != nil {
		w.log.Warn().Err(err).Int64("owner_id", post.OwnerID).Msg("failed to notify owner")
	}
	return true
}

// sweepOverdue reminds owners about pending posts whose slots have
// passed, grouped per channel. It runs hourly and never mutates the
// queue: rescheduling stays an explicit owner action.
func (w *Worker) sweepOverdue(ctx context.Context) {
	summaries, err := w.dm.Post().OverdueSummaries(ctx, w.now())
	if err != nil {
		w.log.Error().Err(err).Msg("failed to summarize overdue posts")
		return
	}

	for _, s := range summaries {
		text := fmt.Sprintf("You have %d overdue post(s) for %s. Use /reschedule to move them to upcoming slots.", s.Count, s.ChannelID)
		if err := w.publisher.NotifyOwner(ctx, s.OwnerID, text); err != nil {
			w.log.Warn().Err(err).Int64("owner_id", s.OwnerID).Msg("failed to send overdue reminder")
		}
	}
}
