package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/cardspring/rewardsledger/internal/cache"
	"github.com/cardspring/rewardsledger/internal/config"
	"github.com/cardspring/rewardsledger/internal/db"
	"github.com/cardspring/rewardsledger/internal/http/api"
	"github.com/cardspring/rewardsledger/internal/ledger"
	"github.com/cardspring/rewardsledger/internal/logging"
	"github.com/cardspring/rewardsledger/internal/sweeper"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "path to the config file")
	migrateOnly := flag.Bool("migrate", false, "run database migrations and exit")
	flag.Parse()

	cfg, errLoad := config.Load(config.ResolveConfigPath(*configPath))
	if errLoad != nil {
		log.WithError(errLoad).Fatal("load config")
	}
	logging.Setup(cfg.Log)

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		log.WithError(errOpen).Fatal("open database")
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		log.WithError(errMigrate).Fatal("migrate database")
	}
	if *migrateOnly {
		log.Info("migrations applied")
		return
	}

	svc := ledger.NewService(conn, ledger.Config{
		DefaultExpiryDays:      cfg.Ledger.DefaultExpiryDays,
		CancellationFeePercent: cfg.Ledger.CancellationFeePercent,
		ExpiringSoonWindow:     cfg.ExpiringSoonWindow(),
	})

	if cfg.Redis.Addr != "" {
		balanceCache, errCache := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if errCache != nil {
			log.WithError(errCache).Warn("balance cache disabled")
		} else {
			svc.AttachCache(balanceCache)
			defer func() { _ = balanceCache.Close() }()
			log.WithField("addr", cfg.Redis.Addr).Info("balance cache enabled")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper.New(svc, cfg.SweepInterval()).Start(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api.RegisterLedgerRoutes(router, conn, svc)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("rewards ledger listening")
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			log.WithError(errServe).Fatal("serve")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		log.WithError(errShutdown).Warn("shutdown")
	}
}
