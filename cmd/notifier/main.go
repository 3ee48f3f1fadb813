package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/rabbitmq"
	"github.com/wb-go/wbf/redis"
	"github.com/wb-go/wbf/zlog"

	"github.com/algoclock/contest-notifier/internal/aggregator"
	"github.com/algoclock/contest-notifier/internal/api/handlers/contest"
	"github.com/algoclock/contest-notifier/internal/api/handlers/health"
	"github.com/algoclock/contest-notifier/internal/api/router"
	"github.com/algoclock/contest-notifier/internal/api/server"
	"github.com/algoclock/contest-notifier/internal/classify"
	"github.com/algoclock/contest-notifier/internal/clist"
	"github.com/algoclock/contest-notifier/internal/config"
	remindermsg "github.com/algoclock/contest-notifier/internal/rabbitmq/handlers/reminder"
	"github.com/algoclock/contest-notifier/internal/rabbitmq/queue"
	"github.com/algoclock/contest-notifier/internal/repository/ledger"
	"github.com/algoclock/contest-notifier/internal/scheduler"
	remindersvc "github.com/algoclock/contest-notifier/internal/service/reminder"
	"github.com/algoclock/contest-notifier/internal/timeparse"
	"github.com/algoclock/contest-notifier/internal/worker"
	"github.com/algoclock/contest-notifier/pkg/email"
	"github.com/algoclock/contest-notifier/pkg/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Init()
	cfg := config.Must()

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL(), cfg.RabbitMQ.Retries, cfg.RabbitMQ.Pause)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to rabbitmq")
	}

	ch, err := conn.Channel()
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to open channel")
	}

	q, err := queue.NewReminderQueue(ch)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to create reminder queue")
	}

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	slaveDSNs := make([]string, 0, len(cfg.Database.Slaves))
	for _, s := range cfg.Database.Slaves {
		slaveDSNs = append(slaveDSNs, s.DSN())
	}

	db, err := dbpg.New(cfg.Database.Master.DSN(), slaveDSNs, opts)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	rdb := redis.New(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.Database)
	if err = rdb.Ping(ctx).Err(); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to redis")
	}

	notifiers := map[string]remindersvc.Notifier{
		"telegram": telegram.NewClient(cfg.Telegram.Token),
		"email": email.NewClient(
			cfg.Email.SMTPHost,
			cfg.Email.SMTPPort,
			cfg.Email.Username,
			cfg.Email.Password,
			cfg.Email.From,
		),
	}
	recipients := map[string]string{
		"telegram": cfg.Telegram.ChatID,
		"email":    cfg.Email.To,
	}

	repo := ledger.NewRepository(db)
	service := remindersvc.NewService(repo, rdb, notifiers, recipients)

	parser := timeparse.New()
	api := clist.New(cfg.Clist.BaseURL, cfg.Clist.APIKey, cfg.Clist.Timeout, cfg.Clist.RequestsPerSecond)
	agg := aggregator.New(api, parser)

	loc, err := time.LoadLocation(cfg.Notify.Timezone)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("timezone", cfg.Notify.Timezone).Msg("unknown timezone, using local")
		loc = time.Local
	}
	classifier := classify.New(parser, loc)

	messageHandler := remindermsg.NewHandler(service, cfg.Notify.Channel)
	notifier := worker.NewNotifier(q, messageHandler, service)
	go notifier.Run(ctx, cfg.Retry, cfg.Workers.Count)

	sched := scheduler.New(agg, service, q, parser, scheduler.Options{
		Lead:         cfg.Notify.Lead,
		PollInterval: cfg.Notify.PollInterval,
		Retention:    cfg.Notify.Retention,
		Channel:      cfg.Notify.Channel,
		Strategy:     cfg.Retry,
	})
	go func() {
		if err := sched.Run(ctx); err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to run scheduler")
		}
	}()

	contestHandler := contest.NewHandler(agg, classifier)
	healthHandler := health.NewHandler(map[string]health.Check{
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		"postgres": func(ctx context.Context) error { return db.Master.PingContext(ctx) },
	})

	r := router.New(contestHandler, healthHandler)
	s := server.New(cfg.Server.HTTPPort, r)

	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	zlog.Logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}

	if err := db.Master.Close(); err != nil {
		zlog.Logger.Printf("failed to close master DB: %v", err)
	}

	for i, slave := range db.Slaves {
		if err := slave.Close(); err != nil {
			zlog.Logger.Printf("failed to close slave DB %d: %v", i, err)
		}
	}

	if err := ch.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close RabbitMQ channel")
	}

	if err := conn.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close RabbitMQ connection")
	}
}
