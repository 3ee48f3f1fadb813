package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/algoclock/contest-notifier/internal/model"
)

type ledgerRepo interface {
	Mark(ctx context.Context, state string, contestID int, startRaw string) (bool, error)
	Exists(ctx context.Context, state string, contestID int, startRaw string) (bool, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type cache interface {
	GetWithRetry(ctx context.Context, strategy retry.Strategy, key string) (string, error)
	SetWithRetry(ctx context.Context, strategy retry.Strategy, key string, value interface{}) error
}

// Notifier delivers one rendered reminder to a recipient over a single
// channel (telegram, email).
type Notifier interface {
	Send(to, message string) error
}

// Service owns the notification ledger and the delivery sinks. The
// ledger lives in postgres with a redis cache in front; sends are
// fire-and-forget per channel.
type Service struct {
	repo       ledgerRepo
	cache      cache
	notifiers  map[string]Notifier
	recipients map[string]string
}

func NewService(repo ledgerRepo, cache cache, notifiers map[string]Notifier, recipients map[string]string) *Service {
	return &Service{repo: repo, cache: cache, notifiers: notifiers, recipients: recipients}
}

// Seen reports whether the (state, contest, start) entry was already
// written. A ledger read failure is treated as "not yet processed": a
// duplicate reminder beats a silently missed one.
func (s *Service) Seen(ctx context.Context, strategy retry.Strategy, state string, contestID int, startRaw string) bool {
	key := ledgerKey(state, contestID, startRaw)

	val, err := s.cache.GetWithRetry(ctx, strategy, key)
	if err != nil && !errors.Is(err, redis.Nil) {
		zlog.Logger.Printf("failed to read ledger cache %s: %v", key, err)
	}
	if err == nil {
		return val == "1"
	}

	seen, err := s.repo.Exists(ctx, state, contestID, startRaw)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("key", key).Msg("ledger read failed, assuming unprocessed")
		return false
	}

	if seen {
		if err := s.cache.SetWithRetry(ctx, strategy, key, "1"); err != nil {
			zlog.Logger.Printf("failed to cache ledger entry %s: %v", key, err)
		}
	}

	return seen
}

// Mark writes the ledger entry and warms the cache. A write failure is
// only logged: the entry stays absent and the next tick retries, at
// worst duplicating a reminder.
func (s *Service) Mark(ctx context.Context, strategy retry.Strategy, state string, contestID int, startRaw string) {
	key := ledgerKey(state, contestID, startRaw)

	if _, err := s.repo.Mark(ctx, state, contestID, startRaw); err != nil {
		zlog.Logger.Error().Err(err).Str("key", key).Msg("ledger write failed")
		return
	}

	if err := s.cache.SetWithRetry(ctx, strategy, key, "1"); err != nil {
		zlog.Logger.Printf("failed to cache ledger entry %s: %v", key, err)
	}
}

// Send renders the reminder and delivers it over the given channel.
func (s *Service) Send(reminder model.Reminder, channel string) error {
	notifier, ok := s.notifiers[channel]
	if !ok {
		return fmt.Errorf("unknown channel: %s", channel)
	}

	return notifier.Send(s.recipients[channel], renderReminder(reminder))
}

// Purge drops ledger entries older than retention.
func (s *Service) Purge(ctx context.Context, retention time.Duration) {
	purged, err := s.repo.PurgeBefore(ctx, time.Now().Add(-retention))
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to purge ledger")
		return
	}

	if purged > 0 {
		zlog.Logger.Info().Int64("entries", purged).Msg("purged stale ledger entries")
	}
}

func ledgerKey(state string, contestID int, startRaw string) string {
	return fmt.Sprintf("ledger:%s:%d:%s", state, contestID, startRaw)
}

func renderReminder(r model.Reminder) string {
	return fmt.Sprintf("Contest starting soon!\n%s on %s\n%s", r.Title, r.Platform, r.DeepLink)
}
