// Package classify places contests on the user's timeline: running
// right now, starting today, starting tomorrow, or not yet relevant.
package classify

import (
	"fmt"
	"sort"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/algoclock/contest-notifier/internal/model"
	"github.com/algoclock/contest-notifier/internal/timeparse"
)

// Status is the timeline position of a single contest.
type Status string

const (
	// StatusUnknown means the contest's start or end could not be parsed.
	StatusUnknown Status = "unknown"
	// StatusRunning means start <= now < end.
	StatusRunning Status = "running"
	// StatusToday means the contest starts later on the current calendar day.
	StatusToday Status = "today"
	// StatusTomorrow means the contest starts on the next calendar day.
	StatusTomorrow Status = "tomorrow"
	// StatusLater means the contest starts after tomorrow (or already ended).
	StatusLater Status = "later"
)

// Result is the outcome of classifying one contest. Remaining is only
// set while the contest is running.
type Result struct {
	Status    Status `json:"status"`
	Remaining string `json:"remaining,omitempty"`
}

// Entry pairs a contest with its classification for agenda output.
type Entry struct {
	Contest  model.Contest `json:"contest"`
	Platform string        `json:"platform"`
	Result   Result        `json:"result"`
}

// Agenda is the two actionable buckets shown to the user.
type Agenda struct {
	Today    []Entry `json:"today"`
	Tomorrow []Entry `json:"tomorrow"`
}

// Classifier derives contest statuses from raw records. Calendar-day
// checks use loc, the viewer's zone; instant comparisons are absolute.
type Classifier struct {
	parser *timeparse.Parser
	loc    *time.Location
}

func New(parser *timeparse.Parser, loc *time.Location) *Classifier {
	if loc == nil {
		loc = time.Local
	}
	return &Classifier{parser: parser, loc: loc}
}

// Classify computes the status of c relative to now. Both start and end
// must parse; otherwise the contest is StatusUnknown and excluded from
// the day buckets.
func (cl *Classifier) Classify(c model.Contest, now time.Time) Result {
	start, err := cl.parser.Parse(c.Start, now)
	if err != nil {
		return Result{Status: StatusUnknown}
	}
	end, err := cl.parser.Parse(c.End, now)
	if err != nil {
		return Result{Status: StatusUnknown}
	}

	if !start.After(now) && end.After(now) {
		return Result{
			Status:    StatusRunning,
			Remaining: FormatRemaining(end.Sub(now)),
		}
	}

	switch {
	case sameDay(start.In(cl.loc), now.In(cl.loc)):
		return Result{Status: StatusToday}
	case sameDay(start.In(cl.loc), now.In(cl.loc).AddDate(0, 0, 1)):
		return Result{Status: StatusTomorrow}
	default:
		return Result{Status: StatusLater}
	}
}

// Buckets splits the grouped contests into Today and Tomorrow. A
// running contest always lands in Today, even if it started on an
// earlier day: it is actionable now. Everything else is bucketed by
// start date, and both buckets come back sorted by start instant.
func (cl *Classifier) Buckets(groups []model.PlatformGroup, now time.Time) Agenda {
	var agenda Agenda

	for _, g := range groups {
		for _, c := range g.Contests {
			res := cl.Classify(c, now)
			entry := Entry{Contest: c, Platform: g.Platform, Result: res}

			switch res.Status {
			case StatusRunning, StatusToday:
				agenda.Today = append(agenda.Today, entry)
			case StatusTomorrow:
				agenda.Tomorrow = append(agenda.Tomorrow, entry)
			case StatusUnknown:
				zlog.Logger.Warn().
					Int("contest_id", c.ID).
					Str("start", c.Start).
					Str("end", c.End).
					Msg("contest excluded from agenda: unparseable time")
			}
		}
	}

	cl.sortByStart(agenda.Today, now)
	cl.sortByStart(agenda.Tomorrow, now)

	return agenda
}

func (cl *Classifier) sortByStart(entries []Entry, now time.Time) {
	sort.SliceStable(entries, func(i, j int) bool {
		si, ei := cl.parser.Parse(entries[i].Contest.Start, now)
		sj, ej := cl.parser.Parse(entries[j].Contest.Start, now)
		if ei != nil || ej != nil {
			return ej != nil && ei == nil
		}
		return si.Before(sj)
	})
}

// FormatRemaining renders a remaining duration as whole hours and
// minutes, e.g. "2h 15m" or "45m". Anything that rounds down to zero
// is "Ending soon".
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "Ending soon"
	}

	hours := int(d / time.Hour)
	minutes := int(d % time.Hour / time.Minute)

	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return "Ending soon"
	}
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
