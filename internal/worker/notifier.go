package worker

import (
	"context"
	"sync"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/algoclock/contest-notifier/internal/rabbitmq/queue"
	"github.com/algoclock/contest-notifier/internal/repository/ledger"
)

type reminderQueue interface {
	Consume(out chan<- queue.ReminderMessage, strategy retry.Strategy) error
}

type messageHandler interface {
	HandleMessage(ctx context.Context, msg queue.ReminderMessage, strategy retry.Strategy)
}

type ledgerService interface {
	Seen(ctx context.Context, strategy retry.Strategy, state string, contestID int, startRaw string) bool
}

// Notifier drains the reminder queue with a pool of workers. Each
// worker drops messages whose contest was already notified (the
// scheduler's immediate path and re-published duplicates both end up
// here) before handing off to the handler.
type Notifier struct {
	queue   reminderQueue
	handler messageHandler
	service ledgerService
}

func NewNotifier(q reminderQueue, h messageHandler, s ledgerService) *Notifier {
	return &Notifier{
		queue:   q,
		handler: h,
		service: s,
	}
}

func (n *Notifier) Run(ctx context.Context, strategy retry.Strategy, workerCount int) {
	var wg sync.WaitGroup
	msgChan := make(chan queue.ReminderMessage, workerCount*10)

	go func() {
		if err := n.queue.Consume(msgChan, strategy); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to consume reminder messages")
		}
	}()

	wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go func(id int) {
			defer wg.Done()

			zlog.Logger.Printf("reminder-worker-%d started", id)

			for {
				select {
				case <-ctx.Done():
					zlog.Logger.Printf("reminder-worker-%d shutting down", id)
					return
				case msg, ok := <-msgChan:
					if !ok {
						zlog.Logger.Printf("reminder-worker-%d channel closed, shutting down", id)
						return
					}

					r := msg.Reminder
					if n.service.Seen(ctx, strategy, ledger.StateNotified, r.ContestID, r.StartRaw) {
						zlog.Logger.Printf("contest %d already notified, skipping reminder %s", r.ContestID, msg.ID)
						continue
					}

					n.handler.HandleMessage(ctx, msg, strategy)
				}
			}
		}(i)
	}

	<-ctx.Done()
	wg.Wait()
	zlog.Logger.Print("reminder notifier stopped")
}
