package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danuputra/tokoku/internal/auth"
	"github.com/danuputra/tokoku/internal/catalog"
	"github.com/danuputra/tokoku/internal/functions"
	"github.com/danuputra/tokoku/internal/gateway"
	"github.com/danuputra/tokoku/internal/health"
	"github.com/danuputra/tokoku/internal/i18n"
	"github.com/danuputra/tokoku/internal/idempotency"
	"github.com/danuputra/tokoku/internal/jobs"
	jobhandlers "github.com/danuputra/tokoku/internal/jobs/handlers"
	"github.com/danuputra/tokoku/internal/lifecycle"
	"github.com/danuputra/tokoku/internal/middleware"
	"github.com/danuputra/tokoku/internal/notify"
	"github.com/danuputra/tokoku/internal/objstore"
	"github.com/danuputra/tokoku/internal/orders"
	"github.com/danuputra/tokoku/internal/ratelimit"
	"github.com/danuputra/tokoku/internal/report"
	"github.com/danuputra/tokoku/internal/rewards"
	"github.com/danuputra/tokoku/internal/session"
	"github.com/danuputra/tokoku/internal/toast"
	"github.com/danuputra/tokoku/internal/wallet"
	"github.com/danuputra/tokoku/pkg/config"
	"github.com/danuputra/tokoku/pkg/graceful"
	"github.com/danuputra/tokoku/pkg/logger"
	appredis "github.com/danuputra/tokoku/pkg/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, _, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			TracesSampleRate: cfg.Sentry.SampleRate,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	log := logger.New(logger.Options{
		Env:           cfg.AppEnv,
		Level:         cfg.Log.Level,
		FilePath:      cfg.Log.FilePath,
		SentryEnabled: cfg.Sentry.Enabled,
	})
	log.Info("starting tokoku", "env", cfg.AppEnv)

	shutdown := lifecycle.NewShutdown(log)

	// Redis is optional: without it the catalog runs uncached, reward
	// dedupe falls back to the function gateway, and background jobs are
	// disabled.
	var redisClient *appredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = appredis.New(ctx, cfg.Redis.Config)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		shutdown.Register("redis", func(context.Context) error { return redisClient.Close() })
	}

	var limiter ratelimit.Limiter
	rules := ratelimit.NewRules(cfg.RateLimit)
	if rules.Enabled() {
		memory := ratelimit.NewMemoryLimiter(log)
		if redisClient != nil {
			limiter = ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(redisClient.Client, log), memory, log)
		} else {
			limiter = memory
		}
	}

	transport := middleware.Chain(nil,
		middleware.Logging(log),
		middleware.Metrics(),
		middleware.RateLimit(limiter, rules, log),
	)
	httpClient := &http.Client{Transport: transport, Timeout: cfg.Gateway.Timeout}

	// The session actor supplies bearer tokens to the gateway; the auth
	// service is attached as profile fetcher after construction.
	sessions := session.New(nil, nil, cfg.Session.RefetchDelay, log)

	gw := gateway.New(cfg.Gateway, httpClient, sessions, log)
	fns := functions.New(cfg.Functions, httpClient, log)

	translations, err := i18n.Load("id")
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}
	tr := translations.Translator("id")

	toasts := toast.NewQueue()
	defer toasts.Close()
	status := &report.Status{}
	reporter := report.New(status, toasts, tr, log)

	store := objstore.New(gw, cfg.Storage.Bucket, log)

	var idem idempotency.Manager
	if redisClient != nil {
		idem = idempotency.NewManager(idempotency.NewRedisStore(redisClient.Client, log), log)
	}
	rewardSvc := rewards.NewService(gw, fns, idem, reporter, log)

	var catalogCache *catalog.Cache
	if redisClient != nil {
		catalogCache = catalog.NewCache(appredis.NewMetricsClient(redisClient), 5*time.Minute)
	}
	catalogSvc := catalog.NewService(gw, store, catalogCache, reporter, log)

	walletSvc := wallet.NewService(gw, reporter, log)

	notifier, err := notify.NewTelegram(cfg.Telegram, log)
	if err != nil {
		return fmt.Errorf("init telegram notifier: %w", err)
	}

	var announcer orders.Announcer
	var jobManager jobs.Manager
	if cfg.Jobs.Enabled && redisClient != nil {
		redisOpt := asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}

		jobManager = jobs.NewManager(redisOpt, log)
		shutdown.Register("job manager", func(context.Context) error { return jobManager.Close() })
		announcer = jobs.NewOrderAnnouncer(jobManager, log)

		queues := cfg.Jobs.Queues
		if len(queues) == 0 {
			queues = map[string]int{jobs.QueueCritical: 6, jobs.QueueDefault: 3, jobs.QueueLow: 1}
		}

		worker := jobs.NewWorker(redisOpt, queues, cfg.Jobs.Concurrency, log)
		worker.RegisterHandler(jobs.TaskTypeOrderNotify, jobhandlers.NewOrderNotifyHandler(notifier, log))
		worker.RegisterHandler(jobs.TaskTypeCatalogRefresh, jobhandlers.NewCatalogRefreshHandler(catalogSvc, log))
		go func() {
			if err := worker.Run(); err != nil {
				log.Error("jobs worker stopped", "error", err)
			}
		}()
		shutdown.Register("jobs worker", func(context.Context) error {
			worker.Shutdown()
			return nil
		})

		scheduler := jobs.NewScheduler(redisOpt, log)
		if err := scheduler.RegisterTasks(); err != nil {
			return fmt.Errorf("register scheduled tasks: %w", err)
		}
		scheduler.Run()
		shutdown.Register("scheduler", func(context.Context) error {
			scheduler.Shutdown()
			return nil
		})
	} else if notifier != nil {
		// No queue available, deliver order notifications inline.
		announcer = notifier
	}

	orderSvc := orders.NewService(gw, catalogSvc, store, announcer, reporter, log)

	authSvc := auth.NewService(gw, gw, fns, rewardSvc, store, sessions, reporter, cfg.Consistency, log)
	sessions.SetFetcher(authSvc)
	sessions.SetEvents(gw.Events().Subscribe())
	sessions.Start(ctx)
	shutdown.Register("session actor", func(context.Context) error {
		sessions.Stop()
		return nil
	})

	checker := health.NewChecker(log)
	checker.AddCheck("gateway", gw)
	if redisClient != nil {
		checker.AddCheck("redis", health.NewRedisChecker(redisClient.Client))
	}
	if notifier != nil {
		checker.AddCheck("telegram", notifier)
	}

	if redisClient != nil {
		rlCleaner := ratelimit.NewCleaner(redisClient.Client, log, time.Hour)
		go rlCleaner.Run(ctx)
		idemCleaner := idempotency.NewCleaner(redisClient.Client, log, time.Hour)
		go idemCleaner.Run(ctx)
	}

	storefront := &api{
		auth:     authSvc,
		catalog:  catalogSvc,
		wallet:   walletSvc,
		orders:   orderSvc,
		rewards:  rewardSvc,
		sessions: sessions,
	}

	srv := newOpsServer(cfg.Server, checker, status, storefront)
	server := graceful.NewServer(log, srv, cfg.Server.ShutdownTimeout)

	serverErr := make(chan error, 1)
	go func() { serverErr <- server.ListenAndServe(ctx) }()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			log.Error("ops server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", "error", err)
	}

	log.Info("tokoku stopped")
	return nil
}

// newOpsServer builds the local HTTP endpoint: the storefront API plus
// health, metrics and the shared workflow status.
func newOpsServer(cfg config.ServerConfig, checker *health.Checker, status *report.Status, storefront *api) *http.Server {
	port := cfg.Port
	if port == "" {
		port = ":8080"
	}

	mux := http.NewServeMux()
	storefront.register(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		results := checker.Check(r.Context())
		code := http.StatusOK
		for _, result := range results {
			if result != "OK" {
				code = http.StatusServiceUnavailable
				break
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(results)
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		message, errText := status.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"message": message,
			"error":   errText,
		})
	})

	return &http.Server{
		Addr:              port,
		Handler:           logger.Middleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
