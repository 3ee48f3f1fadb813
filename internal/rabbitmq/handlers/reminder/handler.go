package reminder

import (
	"context"
	"time"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/algoclock/contest-notifier/internal/model"
	"github.com/algoclock/contest-notifier/internal/rabbitmq/queue"
	"github.com/algoclock/contest-notifier/internal/repository/ledger"
)

type reminderService interface {
	Send(reminder model.Reminder, channel string) error
	Seen(ctx context.Context, strategy retry.Strategy, state string, contestID int, startRaw string) bool
	Mark(ctx context.Context, strategy retry.Strategy, state string, contestID int, startRaw string)
}

// Handler fires deferred reminders. It waits out the remaining delay in
// process, then delivers through the service. Delivery is at-most-once:
// a sink failure is logged and dropped, never retried.
type Handler struct {
	service reminderService
	channel string
}

func NewHandler(svc reminderService, channel string) *Handler {
	return &Handler{service: svc, channel: channel}
}

// HandleMessage blocks until msg.FireAt, re-checks the notified ledger
// entry (the scheduler's immediate path may have beaten us to it) and
// delivers the reminder.
func (h *Handler) HandleMessage(ctx context.Context, msg queue.ReminderMessage, strategy retry.Strategy) {
	if delay := time.Until(msg.FireAt); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			zlog.Logger.Printf("reminder %s dropped: shutting down before fire time", msg.ID)
			return
		case <-timer.C:
		}
	}

	r := msg.Reminder

	if h.service.Seen(ctx, strategy, ledger.StateNotified, r.ContestID, r.StartRaw) {
		zlog.Logger.Printf("reminder %s already delivered, skipping", msg.ID)
		return
	}

	if err := h.service.Send(r, h.channel); err != nil {
		zlog.Logger.Error().Err(err).
			Str("reminder_id", msg.ID.String()).
			Int("contest_id", r.ContestID).
			Msg("failed to deliver reminder")
		return
	}

	h.service.Mark(ctx, strategy, ledger.StateNotified, r.ContestID, r.StartRaw)
	zlog.Logger.Printf("reminder %s delivered for contest %d", msg.ID, r.ContestID)
}
