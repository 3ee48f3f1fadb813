package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"

	"github.com/algoclock/contest-notifier/internal/model"
	"github.com/algoclock/contest-notifier/internal/rabbitmq/queue"
	"github.com/algoclock/contest-notifier/internal/repository/ledger"
	"github.com/algoclock/contest-notifier/internal/timeparse"
)

type fakeAggregator struct {
	groups []model.PlatformGroup
}

func (f *fakeAggregator) Fetch(ctx context.Context) []model.PlatformGroup {
	return f.groups
}

type fakeReminderService struct {
	entries   map[string]bool
	sendCalls []model.Reminder
	sendErr   error
	purges    int
}

func newFakeReminderService() *fakeReminderService {
	return &fakeReminderService{entries: make(map[string]bool)}
}

func (f *fakeReminderService) key(state string, id int, startRaw string) string {
	return fmt.Sprintf("%s|%d|%s", state, id, startRaw)
}

func (f *fakeReminderService) Send(r model.Reminder, channel string) error {
	f.sendCalls = append(f.sendCalls, r)
	return f.sendErr
}

func (f *fakeReminderService) Seen(ctx context.Context, strategy retry.Strategy, state string, contestID int, startRaw string) bool {
	return f.entries[f.key(state, contestID, startRaw)]
}

func (f *fakeReminderService) Mark(ctx context.Context, strategy retry.Strategy, state string, contestID int, startRaw string) {
	f.entries[f.key(state, contestID, startRaw)] = true
}

func (f *fakeReminderService) Purge(ctx context.Context, retention time.Duration) {
	f.purges++
}

type fakePublisher struct {
	published []queue.ReminderMessage
	err       error
}

func (f *fakePublisher) Publish(msg queue.ReminderMessage, strategy retry.Strategy) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

func groupsWithContest(c model.Contest) []model.PlatformGroup {
	return []model.PlatformGroup{{Platform: "Codeforces", Contests: []model.Contest{c}}}
}

func newScheduler(agg aggregator, svc reminderService, pub publisher, now time.Time) *Scheduler {
	s := New(agg, svc, pub, timeparse.New(), Options{
		Lead:    20 * time.Minute,
		Channel: "telegram",
	})
	s.now = func() time.Time { return now }
	return s
}

func TestTick_SchedulesDeferredReminderOnce(t *testing.T) {
	now := time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC)
	start := now.Add(2 * time.Hour)
	c := model.Contest{ID: 1, Event: "CF Round", Start: fmt.Sprintf("%d", start.Unix()), End: fmt.Sprintf("%d", start.Add(2*time.Hour).Unix()), Href: "https://codeforces.com/1"}

	svc := newFakeReminderService()
	pub := &fakePublisher{}
	s := newScheduler(&fakeAggregator{groups: groupsWithContest(c)}, svc, pub, now)

	s.Tick(context.Background())
	s.Tick(context.Background())

	require.Len(t, pub.published, 1)
	msg := pub.published[0]
	assert.True(t, start.Add(-20*time.Minute).Equal(msg.FireAt), "fire at %v", msg.FireAt)
	assert.Equal(t, 1, msg.Reminder.ContestID)
	assert.Equal(t, "CF Round", msg.Reminder.Title)
	assert.Equal(t, "Codeforces", msg.Reminder.Platform)
	assert.Equal(t, "https://codeforces.com/1", msg.Reminder.DeepLink)
	assert.Empty(t, svc.sendCalls)
}

func TestTick_ImmediateReminderInsideLeadWindow(t *testing.T) {
	// notifyAt is 5 minutes past, start is 15 minutes out: the sink
	// fires exactly once across two ticks.
	now := time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC)
	start := now.Add(15 * time.Minute)
	c := model.Contest{ID: 1, Event: "CF Round", Start: fmt.Sprintf("%d", start.Unix()), End: fmt.Sprintf("%d", start.Add(2*time.Hour).Unix())}

	svc := newFakeReminderService()
	pub := &fakePublisher{}
	s := newScheduler(&fakeAggregator{groups: groupsWithContest(c)}, svc, pub, now)

	s.Tick(context.Background())
	s.Tick(context.Background())

	assert.Len(t, svc.sendCalls, 1)
	assert.Empty(t, pub.published)
	assert.True(t, svc.Seen(context.Background(), retry.Strategy{}, ledger.StateNotified, 1, c.Start))
}

func TestTick_StartedContestIgnored(t *testing.T) {
	now := time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)
	c := model.Contest{ID: 1, Start: fmt.Sprintf("%d", start.Unix()), End: fmt.Sprintf("%d", start.Add(2*time.Hour).Unix())}

	svc := newFakeReminderService()
	pub := &fakePublisher{}
	s := newScheduler(&fakeAggregator{groups: groupsWithContest(c)}, svc, pub, now)

	s.Tick(context.Background())

	assert.Empty(t, svc.sendCalls)
	assert.Empty(t, pub.published)
}

func TestTick_UnparseableStartIsSkipped(t *testing.T) {
	svc := newFakeReminderService()
	pub := &fakePublisher{}
	c := model.Contest{ID: 1, Start: "whenever", End: "later"}
	s := newScheduler(&fakeAggregator{groups: groupsWithContest(c)}, svc, pub, time.Now())

	assert.NotPanics(t, func() { s.Tick(context.Background()) })
	assert.Empty(t, svc.sendCalls)
	assert.Empty(t, pub.published)
}

func TestTick_PublishFailureRetriesNextTick(t *testing.T) {
	now := time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC)
	start := now.Add(2 * time.Hour)
	c := model.Contest{ID: 1, Start: fmt.Sprintf("%d", start.Unix()), End: fmt.Sprintf("%d", start.Add(time.Hour).Unix())}

	svc := newFakeReminderService()
	pub := &fakePublisher{err: errors.New("broker down")}
	s := newScheduler(&fakeAggregator{groups: groupsWithContest(c)}, svc, pub, now)

	s.Tick(context.Background())
	assert.False(t, svc.Seen(context.Background(), retry.Strategy{}, ledger.StateScheduled, 1, c.Start))

	// Broker back up: the next tick publishes and marks.
	pub.err = nil
	s.Tick(context.Background())
	assert.Len(t, pub.published, 1)
	assert.True(t, svc.Seen(context.Background(), retry.Strategy{}, ledger.StateScheduled, 1, c.Start))
}

func TestTick_RescheduledContestIsFreshTarget(t *testing.T) {
	now := time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC)

	firstStart := now.Add(2 * time.Hour)
	first := model.Contest{ID: 1, Start: fmt.Sprintf("%d", firstStart.Unix()), End: fmt.Sprintf("%d", firstStart.Add(time.Hour).Unix())}

	svc := newFakeReminderService()
	pub := &fakePublisher{}
	agg := &fakeAggregator{groups: groupsWithContest(first)}
	s := newScheduler(agg, svc, pub, now)

	s.Tick(context.Background())
	require.Len(t, pub.published, 1)

	// Same contest id, moved start: must be scheduled again.
	secondStart := now.Add(4 * time.Hour)
	second := first
	second.Start = fmt.Sprintf("%d", secondStart.Unix())
	agg.groups = groupsWithContest(second)

	s.Tick(context.Background())
	assert.Len(t, pub.published, 2)
}

func TestTick_SinkFailureDoesNotMarkNotified(t *testing.T) {
	now := time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC)
	start := now.Add(10 * time.Minute)
	c := model.Contest{ID: 1, Start: fmt.Sprintf("%d", start.Unix()), End: fmt.Sprintf("%d", start.Add(time.Hour).Unix())}

	svc := newFakeReminderService()
	svc.sendErr = errors.New("sink unavailable")
	pub := &fakePublisher{}
	s := newScheduler(&fakeAggregator{groups: groupsWithContest(c)}, svc, pub, now)

	s.Tick(context.Background())

	assert.Len(t, svc.sendCalls, 1)
	assert.False(t, svc.Seen(context.Background(), retry.Strategy{}, ledger.StateNotified, 1, c.Start))
}
