package model

// Contest is a single contest record exactly as the listing API returns
// it. Start and End stay raw strings here: the provider mixes several
// encodings (epoch seconds, formatted "dd.MM EEE HH:mm", ISO-8601), and
// resolving them is the job of the timeparse package.
type Contest struct {
	ID       int    `json:"id"`
	Event    string `json:"event"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Duration string `json:"duration"`
	Resource string `json:"resource"`
	Href     string `json:"href"`
}

// Meta is the paging envelope of the listing API.
type Meta struct {
	Limit      int     `json:"limit"`
	Next       *string `json:"next"`
	Offset     int     `json:"offset"`
	Previous   *string `json:"previous"`
	TotalCount *int    `json:"total_count"`
}

// ContestList is the raw response of the contest listing endpoint.
type ContestList struct {
	Meta    Meta      `json:"meta"`
	Objects []Contest `json:"objects"`
}

// PlatformGroup holds the contests of one supported platform under its
// display name, sorted ascending by resolved start instant. Groups are
// rebuilt wholesale on every aggregator fetch.
type PlatformGroup struct {
	Platform string    `json:"platform"`
	Contests []Contest `json:"contests"`
}

// Reminder carries everything a notification sink needs to render a
// "contest starting soon" message. It is embedded in deferred queue
// messages, so it must be self-contained: by the time a deferred
// reminder fires, the scheduler that produced it may be long gone.
type Reminder struct {
	ContestID int    `json:"contest_id"`
	Title     string `json:"title"`
	Platform  string `json:"platform"`
	DeepLink  string `json:"deep_link"`
	StartRaw  string `json:"start_raw"`
}
