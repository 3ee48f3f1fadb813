package aggregator

import (
	"time"

	"github.com/algoclock/contest-notifier/internal/model"
)

// Fallback is the deterministic sample dataset served when the listing
// API cannot be reached: one contest later today and one tomorrow, with
// start/end anchored to now's UTC date so the agenda stays meaningful.
func Fallback(now time.Time) []model.PlatformGroup {
	today := now.UTC().Format("2006-01-02")
	tomorrow := now.UTC().AddDate(0, 0, 1).Format("2006-01-02")

	return []model.PlatformGroup{
		{
			Platform: "Codeforces",
			Contests: []model.Contest{
				{
					ID:       1,
					Event:    "Codeforces Round (sample)",
					Start:    today + "T10:00:00",
					End:      today + "T12:00:00",
					Duration: "2:00:00",
					Resource: "codeforces.com",
					Href:     "https://codeforces.com/contests",
				},
			},
		},
		{
			Platform: "LeetCode",
			Contests: []model.Contest{
				{
					ID:       2,
					Event:    "Weekly Contest (sample)",
					Start:    tomorrow + "T10:00:00",
					End:      tomorrow + "T11:30:00",
					Duration: "1:30:00",
					Resource: "leetcode.com",
					Href:     "https://leetcode.com/contest",
				},
			},
		},
	}
}
