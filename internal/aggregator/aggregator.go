// Package aggregator turns the raw contest listing into platform groups
// ready for classification and scheduling.
package aggregator

import (
	"context"
	"sort"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/algoclock/contest-notifier/internal/model"
	"github.com/algoclock/contest-notifier/internal/timeparse"
)

// contestAPI is the listing endpoint the aggregator pulls from.
type contestAPI interface {
	UpcomingContests(ctx context.Context) (model.ContestList, error)
}

// platformNames maps resource keys to display names. Anything not in
// this allow-list is dropped entirely; there is no "other" group.
var platformNames = map[string]string{
	"codeforces.com": "Codeforces",
	"codechef.com":   "CodeChef",
	"atcoder.jp":     "AtCoder",
	"leetcode.com":   "LeetCode",
}

// platformOrder fixes the group order of the result.
var platformOrder = []string{"Codeforces", "CodeChef", "AtCoder", "LeetCode"}

// Aggregator fetches, filters, groups and sorts contests.
type Aggregator struct {
	api    contestAPI
	parser *timeparse.Parser
	now    func() time.Time
}

func New(api contestAPI, parser *timeparse.Parser) *Aggregator {
	return &Aggregator{api: api, parser: parser, now: time.Now}
}

// Fetch returns the supported platforms' upcoming contests, each group
// sorted ascending by resolved start instant. It never fails: any fetch
// error is logged and replaced with the static fallback dataset, so the
// classifier and scheduler always have something to work on.
func (a *Aggregator) Fetch(ctx context.Context) []model.PlatformGroup {
	now := a.now()

	list, err := a.api.UpcomingContests(ctx)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("contest fetch failed, serving fallback dataset")
		return Fallback(now)
	}

	byPlatform := make(map[string][]model.Contest)
	for _, c := range list.Objects {
		name, ok := platformNames[c.Resource]
		if !ok {
			continue
		}
		byPlatform[name] = append(byPlatform[name], c)
	}

	groups := make([]model.PlatformGroup, 0, len(byPlatform))
	for _, name := range platformOrder {
		contests, ok := byPlatform[name]
		if !ok {
			continue
		}
		a.sortByStart(contests, now)
		groups = append(groups, model.PlatformGroup{Platform: name, Contests: contests})
	}

	return groups
}

// sortByStart orders contests by parsed start instant. Raw strings are
// not comparable across encodings, so lexical order is never used.
// Unparseable starts sink to the end.
func (a *Aggregator) sortByStart(contests []model.Contest, now time.Time) {
	starts := make(map[int]time.Time, len(contests))
	for _, c := range contests {
		t, err := a.parser.Parse(c.Start, now)
		if err != nil {
			zlog.Logger.Warn().
				Int("contest_id", c.ID).
				Str("start", c.Start).
				Msg("unparseable start time, contest sorted last")
			continue
		}
		starts[c.ID] = t
	}

	sort.SliceStable(contests, func(i, j int) bool {
		si, oki := starts[contests[i].ID]
		sj, okj := starts[contests[j].ID]
		if !oki || !okj {
			return oki
		}
		return si.Before(sj)
	})
}
