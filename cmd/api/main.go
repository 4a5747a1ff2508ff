package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanwahyu/launchlens/internal/application"
	appai "github.com/bryanwahyu/launchlens/internal/application/ai"
	appideas "github.com/bryanwahyu/launchlens/internal/application/ideas"
	appplans "github.com/bryanwahyu/launchlens/internal/application/plans"
	"github.com/bryanwahyu/launchlens/internal/config"
	"github.com/bryanwahyu/launchlens/internal/domain/ai"
	"github.com/bryanwahyu/launchlens/internal/domain/ideas"
	"github.com/bryanwahyu/launchlens/internal/domain/plans"
	"github.com/bryanwahyu/launchlens/internal/infra/ai/openai"
	"github.com/bryanwahyu/launchlens/internal/infra/ai/prompt"
	mysqlp "github.com/bryanwahyu/launchlens/internal/infra/db/mysql"
	"github.com/bryanwahyu/launchlens/internal/infra/db/postgres"
	"github.com/bryanwahyu/launchlens/internal/infra/httpserver"
	"github.com/bryanwahyu/launchlens/internal/infra/lock"
	"github.com/bryanwahyu/launchlens/internal/infra/logger"
	minioStore "github.com/bryanwahyu/launchlens/internal/infra/storage"
	"github.com/bryanwahyu/launchlens/internal/middleware"
)

// stores groups the repositories of one database driver.
type stores struct {
	analyses ideas.Repository
	subs     ideas.Subscriptions
	plans    plans.Repository
	failures ai.FailureLog
}

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// connect database
	db, st, err := connect(ctx, cfg)
	if err != nil {
		log.Fatal("database connect error", "driver", cfg.Database.Driver, "error", err)
	}
	defer db.Close()
	health := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}

	// raw completion archive (optional)
	var archive ai.ResponseArchive
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatal("minio init error", "error", err)
		}
		archive = store
	}

	// per-user in-flight lock
	var locker ideas.Locker = lock.NewMemory()
	if cfg.Redis.Addr != "" {
		rl, err := lock.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.LockTTL, log)
		if err != nil {
			log.Fatal("redis init error", "addr", cfg.Redis.Addr, "error", err)
		}
		defer rl.Close()
		locker = rl
		health["redis"] = middleware.CheckFunc(rl.Ping)
	}

	clock := application.SystemClock{}
	llm := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)
	completer := appai.NewService(llm, archive, st.failures, clock, log.With("component", "Completer"))

	// init services
	ideasSvc := &appideas.Service{
		Repo:        st.analyses,
		Subs:        st.subs,
		Locker:      locker,
		AI:          completer,
		Prompts:     prompt.Builder{},
		Normalizer:  ideas.NewNormalizer(ideas.NewRandomSource(0)),
		Clock:       clock,
		Log:         log.With("component", "IdeasService"),
		FreeMonthly: cfg.Quota.FreeMonthly,
		CallTimeout: cfg.OpenAI.Timeout,
	}
	plansSvc := &appplans.Service{
		Repo:     st.plans,
		Analyses: st.analyses,
		AI:       completer,
		Prompts:  prompt.Builder{},
		Clock:    clock,
		Log:      log.With("component", "PlansService"),
	}

	// init router
	handler := httpserver.NewRouter(ideasSvc, plansSvc, httpserver.Options{
		JWTSecret:       cfg.Auth.JWTSecret,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		RateLimit:       cfg.Server.RateLimit,
		RateLimitRefill: cfg.Server.RateLimitRefill,
		Health:          health,
		Failures:        st.failures,
		Log:             log,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// completions can take a while
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Info("server listening", "addr", addr, "driver", cfg.Database.Driver, "model", cfg.OpenAI.Model)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", "error", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error("shutdown error", "error", err)
	}
}

// connect opens the configured database driver and its repositories.
func connect(ctx context.Context, cfg *config.Config) (*sql.DB, stores, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.DSN(), cfg.Database.Migrate)
		if err != nil {
			return nil, stores{}, err
		}
		return db, stores{
			analyses: postgres.NewAnalysisRepository(db),
			subs:     postgres.NewSubscriptionRepository(db),
			plans:    postgres.NewPlanRepository(db),
			failures: postgres.NewFailureRepository(db),
		}, nil
	default:
		db, err := mysqlp.Connect(ctx, cfg.DSN(), cfg.Database.Migrate)
		if err != nil {
			return nil, stores{}, err
		}
		return db, stores{
			analyses: mysqlp.NewAnalysisRepository(db),
			subs:     mysqlp.NewSubscriptionRepository(db),
			plans:    mysqlp.NewPlanRepository(db),
			failures: mysqlp.NewFailureRepository(db),
		}, nil
	}
}
