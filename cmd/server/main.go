package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"gestora/internal/audit"
	auditmetrics "gestora/internal/audit/metrics"
	auditmem "gestora/internal/audit/store/memory"
	"gestora/internal/authz/rbac"
	"gestora/internal/authz/resolver"
	"gestora/internal/executor"
	executormetrics "gestora/internal/executor/metrics"
	"gestora/internal/identity/jwt"
	"gestora/internal/platform/config"
	"gestora/internal/platform/httpserver"
	"gestora/internal/platform/kafka"
	"gestora/internal/platform/logger"
	platformredis "gestora/internal/platform/redis"
	"gestora/internal/platform/servicetoken"
	"gestora/internal/records"
	recordstore "gestora/internal/records/store"
	"gestora/internal/tenant/cache"
	tenantmetrics "gestora/internal/tenant/metrics"
	tenantservice "gestora/internal/tenant/service"
	bindingstore "gestora/internal/tenant/store/binding"
	tenantstore "gestora/internal/tenant/store/tenant"
	httptransport "gestora/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		tenants     resolver.TenantFinder
		bindings    resolver.BindingFinder
		tenantSt    tenantservice.TenantStore
		bindingSt   tenantservice.BindingStore
		recordStore records.Store
	)
	if cfg.Postgres.URL != "" {
		db, err := sql.Open("pgx", cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		defer db.Close()

		ts := tenantstore.NewPostgres(db)
		bs := bindingstore.NewPostgres(db)
		tenants, bindings, tenantSt, bindingSt = ts, bs, ts, bs
		recordStore = recordstore.NewPostgres(db)
		log.Info("using postgres stores")
	} else {
		ts := tenantstore.NewInMemory()
		bs := bindingstore.NewInMemory()
		tenants, bindings, tenantSt, bindingSt = ts, bs, ts, bs
		recordStore = recordstore.NewInMemory()
		log.Warn("no postgres url configured, using in-memory stores")
	}

	tenantMetrics := tenantmetrics.New()

	// Redis read-through cache on the authorization path.
	serviceOpts := []tenantservice.Option{
		tenantservice.WithLogger(log),
		tenantservice.WithMetrics(tenantMetrics),
	}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		authzCache := cache.New(redisClient, tenants, bindings, log)
		tenants, bindings = authzCache, authzCache
		serviceOpts = append(serviceOpts, tenantservice.WithInvalidator(authzCache))
		log.Info("authorization cache enabled")
	}

	// Audit pipeline: bounded publisher, background worker, Kafka sink when
	// brokers are configured.
	var sink audit.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := kafka.NewSink(ctx, cfg.Kafka, log)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
		log.Info("audit sink: kafka", "topic", cfg.Kafka.Topic)
	} else {
		sink = auditmem.New()
		log.Warn("no kafka brokers configured, audit events stay in-process")
	}
	publisher := audit.NewPublisher(log, audit.WithMetrics(auditmetrics.New()))
	worker := audit.NewWorker(sink, publisher.Inbox(), log)

	serviceOpts = append(serviceOpts, tenantservice.WithAuditPublisher(publisher))
	tenantSvc := tenantservice.New(tenantSt, bindingSt, serviceOpts...)

	resolverOpts := []resolver.Option{
		resolver.WithLogger(log),
		resolver.WithMetrics(tenantMetrics),
		resolver.WithHeader(cfg.TenantHeader),
	}
	if cfg.AdminBypassEnabled && cfg.ServiceTokenHash != "" {
		resolverOpts = append(resolverOpts, resolver.WithAdminBypass(servicetoken.New(cfg.ServiceTokenHash)))
		log.Info("admin bypass enabled")
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:    log,
		Validator: jwt.NewValidator(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience),
		Resolver:  resolver.New(tenants, bindings, resolverOpts...),
		Executor: executor.New(
			rbac.NewGuard(rbac.DefaultMatrix(), rbac.WithLogger(log)),
			executor.WithLogger(log),
			executor.WithAuditPublisher(publisher),
			executor.WithMetrics(executormetrics.New()),
		),
		Records: recordStore,
		Tenants: tenantSvc,
	})

	srv := httpserver.New(cfg.Addr, cfg.Server, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// A signal cancels the group context and the worker returns its
	// ctx.Err(); that is the graceful path, not a failure.
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
