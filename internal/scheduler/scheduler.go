// Package scheduler drives the reminder pipeline: it polls the
// aggregator, defers a reminder for contests still far out, and sends
// immediately for contests already inside the lead window.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/algoclock/contest-notifier/internal/model"
	"github.com/algoclock/contest-notifier/internal/rabbitmq/queue"
	"github.com/algoclock/contest-notifier/internal/repository/ledger"
	"github.com/algoclock/contest-notifier/internal/timeparse"
)

type aggregator interface {
	Fetch(ctx context.Context) []model.PlatformGroup
}

type reminderService interface {
	Send(reminder model.Reminder, channel string) error
	Seen(ctx context.Context, strategy retry.Strategy, state string, contestID int, startRaw string) bool
	Mark(ctx context.Context, strategy retry.Strategy, state string, contestID int, startRaw string)
	Purge(ctx context.Context, retention time.Duration)
}

type publisher interface {
	Publish(msg queue.ReminderMessage, strategy retry.Strategy) error
}

// Options tunes the scheduler loop.
type Options struct {
	// Lead is how long before a contest start the reminder fires.
	Lead time.Duration
	// PollInterval is the gap between ticks.
	PollInterval time.Duration
	// Retention is how long ledger entries are kept.
	Retention time.Duration
	// Channel is the delivery channel for immediate and deferred sends.
	Channel string
	// Strategy drives cache and publish retries.
	Strategy retry.Strategy
}

// Scheduler owns the notification state machine for each contest:
// unseen contests get a deferred reminder, late discoveries get an
// immediate one, and the ledger keeps both paths idempotent.
type Scheduler struct {
	agg     aggregator
	service reminderService
	pub     publisher
	parser  *timeparse.Parser
	opts    Options
	now     func() time.Time
}

func New(agg aggregator, svc reminderService, pub publisher, parser *timeparse.Parser, opts Options) *Scheduler {
	if opts.Lead <= 0 {
		opts.Lead = 20 * time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Minute
	}
	if opts.Retention <= 0 {
		opts.Retention = 30 * 24 * time.Hour
	}
	return &Scheduler{
		agg:     agg,
		service: svc,
		pub:     pub,
		parser:  parser,
		opts:    opts,
		now:     time.Now,
	}
}

// Run ticks immediately, then on every poll interval, with a daily
// ledger purge, until ctx is cancelled. Tick failures never stop the
// loop: every tick is fault-isolated.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New()

	_, err := c.AddFunc(fmt.Sprintf("@every %s", s.opts.PollInterval), func() {
		s.Tick(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to register poll job: %w", err)
	}

	_, err = c.AddFunc("@daily", func() {
		s.service.Purge(ctx, s.opts.Retention)
	})
	if err != nil {
		return fmt.Errorf("failed to register purge job: %w", err)
	}

	s.Tick(ctx)
	c.Start()

	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	zlog.Logger.Info().Msg("scheduler stopped")

	return nil
}

// Tick runs one poll cycle over every fetched contest.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now()
	groups := s.agg.Fetch(ctx)

	total := 0
	for _, g := range groups {
		for _, c := range g.Contests {
			s.processContest(ctx, g.Platform, c, now)
			total++
		}
	}

	zlog.Logger.Info().Int("contests", total).Msg("scheduler tick complete")
}

// processContest advances one contest through the
// unseen -> scheduled -> notified state machine. Panics and errors stay
// local to the contest so one bad record cannot poison the tick.
func (s *Scheduler) processContest(ctx context.Context, platform string, c model.Contest, now time.Time) {
	defer func() {
		if rec := recover(); rec != nil {
			zlog.Logger.Error().
				Int("contest_id", c.ID).
				Interface("panic", rec).
				Msg("recovered while processing contest")
		}
	}()

	start, err := s.parser.Parse(c.Start, now)
	if err != nil {
		zlog.Logger.Warn().
			Int("contest_id", c.ID).
			Str("start", c.Start).
			Msg("skipping contest with unparseable start")
		return
	}

	notifyAt := start.Add(-s.opts.Lead)
	r := model.Reminder{
		ContestID: c.ID,
		Title:     c.Event,
		Platform:  platform,
		DeepLink:  c.Href,
		StartRaw:  c.Start,
	}

	switch {
	case notifyAt.After(now):
		s.schedule(ctx, r, notifyAt)
	case start.After(now):
		// Inside the lead window: this branch doubles as the safety
		// net for contests whose deferred trigger never made it (the
		// process died between polls, the broker was reset). The
		// notified key keeps it idempotent against the worker path.
		s.notifyNow(ctx, r)
	default:
		// Already started or over.
	}
}

func (s *Scheduler) schedule(ctx context.Context, r model.Reminder, fireAt time.Time) {
	if s.service.Seen(ctx, s.opts.Strategy, ledger.StateScheduled, r.ContestID, r.StartRaw) {
		return
	}

	msg := queue.ReminderMessage{
		ID:       uuid.New(),
		FireAt:   fireAt,
		Reminder: r,
	}

	if err := s.pub.Publish(msg, s.opts.Strategy); err != nil {
		// Not marked: the next tick retries the publish.
		zlog.Logger.Error().Err(err).Int("contest_id", r.ContestID).Msg("failed to publish deferred reminder")
		return
	}

	s.service.Mark(ctx, s.opts.Strategy, ledger.StateScheduled, r.ContestID, r.StartRaw)
	zlog.Logger.Info().
		Int("contest_id", r.ContestID).
		Str("title", r.Title).
		Time("fire_at", fireAt).
		Msg("deferred reminder scheduled")
}

func (s *Scheduler) notifyNow(ctx context.Context, r model.Reminder) {
	if s.service.Seen(ctx, s.opts.Strategy, ledger.StateNotified, r.ContestID, r.StartRaw) {
		return
	}

	if err := s.service.Send(r, s.opts.Channel); err != nil {
		// At-most-once: logged and dropped, no retry.
		zlog.Logger.Error().Err(err).Int("contest_id", r.ContestID).Msg("failed to deliver immediate reminder")
		return
	}

	s.service.Mark(ctx, s.opts.Strategy, ledger.StateNotified, r.ContestID, r.StartRaw)
	zlog.Logger.Info().
		Int("contest_id", r.ContestID).
		Str("title", r.Title).
		Msg("immediate reminder delivered")
}
