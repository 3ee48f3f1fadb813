package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/wb-go/wbf/ginext"

	"github.com/algoclock/contest-notifier/internal/api/respond"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// Handler reports dependency health for the ledger stores.
type Handler struct {
	checks map[string]Check
}

func NewHandler(checks map[string]Check) *Handler {
	return &Handler{checks: checks}
}

func (h *Handler) Health(c *ginext.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			respond.Fail(c.Writer, http.StatusServiceUnavailable, fmt.Errorf("%s unavailable: %w", name, err))
			return
		}
	}

	respond.OK(c.Writer, "ok")
}
