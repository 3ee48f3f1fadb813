package contest

import (
	"context"
	"time"

	"github.com/wb-go/wbf/ginext"

	"github.com/algoclock/contest-notifier/internal/api/respond"
	"github.com/algoclock/contest-notifier/internal/classify"
	"github.com/algoclock/contest-notifier/internal/model"
)

type contestSource interface {
	Fetch(ctx context.Context) []model.PlatformGroup
}

// Handler serves the read-only contest endpoints. The aggregator never
// fails (it falls back to sample data), so these handlers have no error
// path of their own.
type Handler struct {
	source     contestSource
	classifier *classify.Classifier
	now        func() time.Time
}

func NewHandler(source contestSource, classifier *classify.Classifier) *Handler {
	return &Handler{source: source, classifier: classifier, now: time.Now}
}

// List returns the upcoming contests of the supported platforms,
// grouped and sorted.
func (h *Handler) List(c *ginext.Context) {
	groups := h.source.Fetch(c.Request.Context())
	respond.OK(c.Writer, groups)
}

// Agenda returns the Today/Tomorrow buckets with per-contest status and
// remaining time.
func (h *Handler) Agenda(c *ginext.Context) {
	groups := h.source.Fetch(c.Request.Context())
	respond.OK(c.Writer, h.classifier.Buckets(groups, h.now()))
}
