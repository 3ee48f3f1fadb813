package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/rabbitmq"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/algoclock/contest-notifier/internal/model"
)

const (
	ExchangeName  = "contest-reminder-exchange"
	MainQueueName = "contest-reminder-queue"
	DLQName       = "contest-reminder-dlq"
	RoutingKey    = "contest-reminder"
)

// ReminderMessage is one deferred reminder. It is self-contained: the
// embedded Reminder carries everything the sink needs, so a message can
// fire long after the scheduler that published it restarted. Durable
// queues are what make deferred triggers survive process death.
type ReminderMessage struct {
	ID       uuid.UUID      `json:"id"`
	FireAt   time.Time      `json:"fire_at"`
	Reminder model.Reminder `json:"reminder"`
}

// ReminderQueue wraps the exchange/queue topology for reminders.
type ReminderQueue struct {
	Publisher *rabbitmq.Publisher
	Consumer  *rabbitmq.Consumer
}

func NewReminderQueue(ch *rabbitmq.Channel) (*ReminderQueue, error) {
	exchange := rabbitmq.NewExchange(ExchangeName, "direct")
	if err := exchange.BindToChannel(ch); err != nil {
		return nil, fmt.Errorf("failed to bind to exchange: %w", err)
	}

	qm := rabbitmq.NewQueueManager(ch)

	_, err := qm.DeclareQueue(DLQName, rabbitmq.QueueConfig{Durable: true})
	if err != nil {
		return nil, fmt.Errorf("failed to declare DLQ queue: %w", err)
	}

	mainArgs := map[string]interface{}{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": DLQName,
	}

	mainQ, err := qm.DeclareQueue(MainQueueName, rabbitmq.QueueConfig{
		Durable: true,
		Args:    mainArgs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to declare main queue: %w", err)
	}

	if err := ch.QueueBind(mainQ.Name, RoutingKey, exchange.Name(), false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind the exchange to the main queue: %w", err)
	}

	pub := rabbitmq.NewPublisher(ch, exchange.Name())
	cons := rabbitmq.NewConsumer(ch, rabbitmq.NewConsumerConfig(mainQ.Name))

	return &ReminderQueue{Publisher: pub, Consumer: cons}, nil
}

// Publish enqueues a deferred reminder.
func (q *ReminderQueue) Publish(msg ReminderMessage, strategy retry.Strategy) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return q.Publisher.PublishWithRetry(body, RoutingKey, "application/json", strategy)
}

// Consume decodes reminder messages into out until the consumer stops.
func (q *ReminderQueue) Consume(out chan<- ReminderMessage, strategy retry.Strategy) error {
	msgChan := make(chan []byte)

	go func() {
		for m := range msgChan {
			var msg ReminderMessage
			if err := json.Unmarshal(m, &msg); err != nil {
				zlog.Logger.Error().Err(err).Msg("failed to unmarshal reminder message")
				continue
			}

			out <- msg
		}
	}()

	return q.Consumer.ConsumeWithRetry(msgChan, strategy)
}
