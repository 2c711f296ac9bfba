package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"examreg/internal/notify"
	"examreg/internal/platform/config"
	"examreg/internal/platform/httpserver"
	"examreg/internal/platform/logger"
	"examreg/internal/platform/middleware"
	platformredis "examreg/internal/platform/redis"
	reghandler "examreg/internal/registration/handler"
	regmetrics "examreg/internal/registration/metrics"
	regservice "examreg/internal/registration/service"
	regstore "examreg/internal/registration/store"
	storecache "examreg/internal/registration/store/cache"
	"examreg/internal/stream"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to open database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	pg := regstore.NewPostgres(db)
	if err := pg.EnsureSchema(ctx); err != nil {
		log.Error("failed to ensure schema", "error", err.Error())
		os.Exit(1)
	}

	var st regstore.Store = pg

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect redis", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		st = storecache.New(pg, redisClient.Client, log)
		log.Info("idempotency-key cache enabled", "redis", cfg.RedisURL)
	}

	notifier := notify.NewSMTPNotifier(notify.SMTPConfig{
		Addr:     cfg.SMTPAddr,
		From:     cfg.SMTPFrom,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	})
	dispatcher := notify.NewDispatcher(notifier, log, notify.NewMetrics(), cfg.QueueSize)

	opts := []regservice.Option{
		regservice.WithMetrics(regmetrics.New()),
		regservice.WithStaffEmail(cfg.StaffEmail),
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := stream.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			log.Error("failed to connect kafka", "error", err.Error())
			os.Exit(1)
		}
		defer publisher.Close()
		opts = append(opts, regservice.WithAuditStream(publisher))
		log.Info("audit stream enabled", "brokers", cfg.KafkaBrokers)
	}

	svc := regservice.New(st, dispatcher, log, opts...)

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Logger(log))
	router.Use(middleware.ContentTypeJSON)

	reghandler.New(svc, log).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting examreg", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// The dispatcher exits with context.Canceled on shutdown; that is
		// the normal path, not a failure.
		if err := dispatcher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
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

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err.Error())
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
