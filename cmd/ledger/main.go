package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/roofing-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/roofing-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/roofing-ledger/internal/app"
	"github.com/odyssey-erp/roofing-ledger/internal/consistency"
	"github.com/odyssey-erp/roofing-ledger/internal/crm"
	"github.com/odyssey-erp/roofing-ledger/internal/events"
	eventshttp "github.com/odyssey-erp/roofing-ledger/internal/events/http"
	"github.com/odyssey-erp/roofing-ledger/internal/events/relay"
	"github.com/odyssey-erp/roofing-ledger/internal/integration"
	jobmetrics "github.com/odyssey-erp/roofing-ledger/internal/jobs"
	"github.com/odyssey-erp/roofing-ledger/internal/observability"
	"github.com/odyssey-erp/roofing-ledger/internal/platform/cache"
	"github.com/odyssey-erp/roofing-ledger/internal/platform/db"
	"github.com/odyssey-erp/roofing-ledger/internal/shared"
	"github.com/odyssey-erp/roofing-ledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	bus := events.NewBus(
		events.WithLogger(logger),
		events.WithHistorySize(cfg.EventHistorySize),
		events.WithMetrics(events.NewMetrics(metrics.Registerer())),
	)

	var (
		periodRepo  periods.Repository  = periods.NewMemoryRepository()
		journalRepo journals.Repository = journals.NewMemoryRepository()
		chartRepo   accounts.Repository = accounts.NewMemoryRepository(accounts.RoofingChart()...)
		auditLog    journals.AuditPort  = &shared.MemoryAuditLog{}
	)
	if cfg.UsesPostgres() {
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		periodRepo = periods.NewRepository(pool)
		journalRepo = journals.NewRepository(pool)
		chartRepo = accounts.NewRepository(pool)
		auditLog = shared.NewAuditLogger(pool)
	}

	periodService := periods.NewService(periodRepo, bus, logger)
	journalService := journals.NewService(journalRepo, periodService,
		journals.WithChart(accounts.NewService(chartRepo)),
		journals.WithEmitter(bus),
		journals.WithAudit(auditLog),
		journals.WithLogger(logger),
	)

	store := crm.NewMemoryStore()
	consistencyService := consistency.NewService(bus, consistency.NewStoreRepairer(store), logger)
	pipeline := integration.NewPipeline(store, bus, logger)
	detachHooks := integration.NewLedgerHooks(journalService, logger).Attach(bus)
	defer detachHooks()

	var (
		sinks []relay.Sink
		feed  eventshttp.Feed
	)
	if cfg.EventRelayRedis {
		redisClient, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("event feed disabled", slog.Any("error", err))
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			}()
			redisSink := relay.NewRedisSink(redisClient, cfg.EventFeedKey, cfg.EventFeedLength)
			sinks = append(sinks, redisSink)
			feed = redisSink
		}
	}
	if len(cfg.EventRelayKafkaBrokers) > 0 {
		kafkaSink := relay.NewKafkaSink(cfg.EventRelayKafkaBrokers, cfg.EventRelayKafkaTopic)
		defer func() {
			if err := kafkaSink.Close(); err != nil {
				logger.Warn("kafka close", slog.Any("error", err))
			}
		}()
		sinks = append(sinks, kafkaSink)
	}
	detachRelay := relay.New(logger, sinks...).Attach(bus)
	defer detachRelay()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer jobClient.Close()
	inspector := asynq.NewInspector(redisOpts)
	defer inspector.Close()

	if _, err := periodService.EnsureCurrentPeriod(ctx); err != nil {
		logger.Warn("ensure current period", slog.Any("error", err))
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Metrics:            metrics,
		JournalHandler:     journals.NewHandler(logger, journalService),
		PeriodHandler:      periods.NewHandler(logger, periodService),
		ConsistencyHandler: consistency.NewHandler(logger, consistencyService, store),
		EventsHandler:      eventshttp.NewHandler(logger, bus, feed),
		CRMHandler:         integration.NewHandler(logger, pipeline),
		JobHandler:         jobs.NewHandler(inspector, jobClient, logger),
	})

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return app.Serve(groupCtx, cfg, router, logger)
	})
	if cfg.WorkerEnabled {
		worker, err := newWorker(cfg, logger, jobmetrics.NewMetrics(metrics.Registerer()), services{
			periods:     periodService,
			journals:    journalService,
			store:       store,
			consistency: consistencyService,
		})
		if err != nil {
			logger.Error("init worker", slog.Any("error", err))
			os.Exit(1)
		}
		group.Go(func() error {
			if err := worker.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		logger.Error("runtime stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
