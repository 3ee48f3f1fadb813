package classify

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/algoclock/contest-notifier/internal/model"
	"github.com/algoclock/contest-notifier/internal/timeparse"
)

func newClassifier() *Classifier {
	return New(timeparse.New(), time.UTC)
}

func epochContest(id int, start, end int64) model.Contest {
	return model.Contest{
		ID:    id,
		Event: fmt.Sprintf("Contest %d", id),
		Start: fmt.Sprintf("%d", start),
		End:   fmt.Sprintf("%d", end),
	}
}

func TestClassify_RunningWithRemaining(t *testing.T) {
	cl := newClassifier()

	start := int64(1700000000)
	c := epochContest(1, start, start+3600)
	now := time.Unix(start+1800, 0).UTC()

	res := cl.Classify(c, now)
	assert.Equal(t, StatusRunning, res.Status)
	assert.Equal(t, "30m", res.Remaining)
}

func TestClassify_RunningBoundaries(t *testing.T) {
	cl := newClassifier()

	start := int64(1700000000)
	c := epochContest(1, start, start+3600)

	// Running starts exactly at the start instant.
	res := cl.Classify(c, time.Unix(start, 0).UTC())
	assert.Equal(t, StatusRunning, res.Status)

	// The end instant itself is no longer running.
	res = cl.Classify(c, time.Unix(start+3600, 0).UTC())
	assert.NotEqual(t, StatusRunning, res.Status)
}

func TestClassify_TodayAndTomorrow(t *testing.T) {
	cl := newClassifier()
	now := time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC)

	today := model.Contest{ID: 1, Start: "2025-09-15T20:00:00", End: "2025-09-15T22:00:00"}
	tomorrow := model.Contest{ID: 2, Start: "2025-09-16T10:00:00", End: "2025-09-16T12:00:00"}
	later := model.Contest{ID: 3, Start: "2025-09-20T10:00:00", End: "2025-09-20T12:00:00"}

	assert.Equal(t, StatusToday, cl.Classify(today, now).Status)
	assert.Equal(t, StatusTomorrow, cl.Classify(tomorrow, now).Status)
	assert.Equal(t, StatusLater, cl.Classify(later, now).Status)
}

func TestClassify_UnknownOnUnparseableEnd(t *testing.T) {
	cl := newClassifier()
	now := time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC)

	c := model.Contest{ID: 1, Start: "2025-09-15T20:00:00", End: "garbage"}
	assert.Equal(t, StatusUnknown, cl.Classify(c, now).Status)
}

func TestClassify_Idempotent(t *testing.T) {
	cl := newClassifier()
	now := time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC)
	c := model.Contest{ID: 1, Start: "2025-09-15T07:00:00", End: "2025-09-15T09:00:00"}

	first := cl.Classify(c, now)
	second := cl.Classify(c, now)
	assert.Equal(t, first, second)
}

func TestBuckets_MultiDayRunningContestLandsInToday(t *testing.T) {
	cl := newClassifier()
	now := time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC)

	// Started two days ago, still running: actionable now, so Today.
	longRunning := model.Contest{ID: 1, Start: "2025-09-13T08:00:00", End: "2025-09-18T08:00:00"}
	groups := []model.PlatformGroup{{Platform: "Codeforces", Contests: []model.Contest{longRunning}}}

	agenda := cl.Buckets(groups, now)
	if assert.Len(t, agenda.Today, 1) {
		assert.Equal(t, StatusRunning, agenda.Today[0].Result.Status)
	}
	assert.Empty(t, agenda.Tomorrow)
}

func TestBuckets_SortedByStartInstantAcrossPlatforms(t *testing.T) {
	cl := newClassifier()
	now := time.Date(2025, 9, 15, 1, 0, 0, 0, time.UTC)

	// Epoch-encoded start sorts lexically before the ISO one but is
	// temporally later; the agenda must use the parsed instants.
	early := model.Contest{ID: 1, Start: "2025-09-15T06:00:00", End: "2025-09-15T08:00:00"}
	lateStart := time.Date(2025, 9, 15, 20, 0, 0, 0, time.UTC)
	late := model.Contest{
		ID:    2,
		Start: fmt.Sprintf("%d", lateStart.Unix()),
		End:   fmt.Sprintf("%d", lateStart.Add(2*time.Hour).Unix()),
	}

	groups := []model.PlatformGroup{
		{Platform: "AtCoder", Contests: []model.Contest{late}},
		{Platform: "Codeforces", Contests: []model.Contest{early}},
	}

	agenda := cl.Buckets(groups, now)
	if assert.Len(t, agenda.Today, 2) {
		assert.Equal(t, 1, agenda.Today[0].Contest.ID)
		assert.Equal(t, 2, agenda.Today[1].Contest.ID)
	}
}

func TestBuckets_UnknownExcluded(t *testing.T) {
	cl := newClassifier()
	now := time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC)

	bad := model.Contest{ID: 1, Start: "???", End: "???"}
	groups := []model.PlatformGroup{{Platform: "LeetCode", Contests: []model.Contest{bad}}}

	agenda := cl.Buckets(groups, now)
	assert.Empty(t, agenda.Today)
	assert.Empty(t, agenda.Tomorrow)
}

func TestFormatRemaining(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{2*time.Hour + 15*time.Minute, "2h 15m"},
		{3 * time.Hour, "3h"},
		{45 * time.Minute, "45m"},
		{30 * time.Second, "Ending soon"},
		{0, "Ending soon"},
		{-time.Minute, "Ending soon"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatRemaining(tc.d), tc.d.String())
	}
}
