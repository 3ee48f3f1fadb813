package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/algoclock/contest-notifier/internal/api/handlers/contest"
	"github.com/algoclock/contest-notifier/internal/api/handlers/health"
)

func New(contests *contest.Handler, healthHandler *health.Handler) *ginext.Engine {
	e := ginext.New()
	e.Use(ginext.Logger())
	e.Use(ginext.Recovery())

	e.GET("/health", healthHandler.Health)

	api := e.Group("/api/contests")

	api.GET("/", contests.List)
	api.GET("/agenda", contests.Agenda)

	return e
}
