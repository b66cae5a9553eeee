package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"currency-sync-service/internal/adapter/cbr"
	"currency-sync-service/internal/adapter/postgres"
	"currency-sync-service/internal/handler"
	"currency-sync-service/internal/service"
	"currency-sync-service/internal/usecase"
	"currency-sync-service/pkg/config"
	"currency-sync-service/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	log.Infof("Starting %s...", cfg.App.Name)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// initialize db pools
	dbPool, err := postgres.InitDBPool(ctx, *cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize db pools")
	}
	defer dbPool.Close()

	// initialize adapters
	cbrClient := cbr.NewClient(cfg.CBR.BaseURL, cfg.CBR.Timeout, log)
	currencyRepo := postgres.NewCurrencyRepo(dbPool, log)
	rateRepo := postgres.NewRateRepo(dbPool, log)

	var bulk postgres.BulkWriter
	if cfg.Sync.BulkInsert {
		bulk = postgres.NewBulkRateWriter(dbPool, log)
		log.Info("Bulk rate writer enabled")
	}
	log.Info("Initialized adapters")

	// initialize services
	var currencyOpts []service.CurrencyOption
	if cfg.Sync.BatchUpsert {
		currencyOpts = append(currencyOpts, service.WithBatchUpsert())
	}
	currencyService, err := service.NewCurrencyService(currencyRepo, log, currencyOpts...)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize currency service")
	}

	var rateOpts []service.RateOption
	if cfg.Sync.SkipStale {
		rateOpts = append(rateOpts, service.WithStaleFilter())
	}
	rateService, err := service.NewRateService(rateRepo, bulk, log, rateOpts...)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize rate service")
	}
	log.Info("Initialized service layer")

	syncUsecase := usecase.NewSyncUsecase(currencyService, rateService, cbrClient, log)
	log.Info("Initialized usecase layer")

	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: newRouter(handler.NewSyncHandler(syncUsecase, log)),
	}

	// task scheduler
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.Sync.Schedule, func() {
		runSync(ctx, syncUsecase, log, "scheduled")
	})
	if err != nil {
		log.WithError(err).Fatalf("Error adding sync task with schedule %q", cfg.Sync.Schedule)
	}
	scheduler.Start()
	log.Infof("Scheduler initialized with schedule %q", cfg.Sync.Schedule)

	if cfg.Sync.OnStart {
		go runSync(ctx, syncUsecase, log, "startup")
	}

	go func() {
		log.Infof("Server starting on port %s...", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s", err)
		}
	}()

	<-ctx.Done()
	log.Info("Got shutdown signal...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error during server shutdown")
	}
	log.Info("Server stopped")

	<-scheduler.Stop().Done()
	log.Info("Scheduler stopped")

	log.Info("Gracefully shut down")
}

func newRouter(h *handler.SyncHandler) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:8080", "http://127.0.0.1:8080"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))

	r.POST("/currencies", h.ImportCurrencies)
	r.POST("/rates", h.ImportRates)
	r.GET("/rates", h.GetRate)
	r.POST("/sync/cbr", h.SyncFromCBR)

	return r
}

func runSync(ctx context.Context, uc usecase.RateUsecase, log *logrus.Logger, trigger string) {
	log.Infof("Running %s CBR sync...", trigger)
	result, err := uc.SyncFromCBR(ctx)
	if err != nil {
		log.WithError(err).Errorf("%s CBR sync failed", trigger)
		return
	}
	log.WithField("run_id", result.RunID).Infof("%s CBR sync stored %d rates", trigger, result.Rates)
}
