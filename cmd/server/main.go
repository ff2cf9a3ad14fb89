package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/medpos/internal/config"
	"github.com/mamadbah2/medpos/internal/lock"
	"github.com/mamadbah2/medpos/internal/repository/blobstore"
	"github.com/mamadbah2/medpos/internal/repository/mongodb"
	"github.com/mamadbah2/medpos/internal/repository/sheets"
	"github.com/mamadbah2/medpos/internal/scheduler"
	"github.com/mamadbah2/medpos/internal/server/handlers"
	"github.com/mamadbah2/medpos/internal/server/router"
	"github.com/mamadbah2/medpos/internal/service/billing"
	catalogsvc "github.com/mamadbah2/medpos/internal/service/catalog"
	"github.com/mamadbah2/medpos/internal/service/invoice"
	"github.com/mamadbah2/medpos/internal/service/ledger"
	"github.com/mamadbah2/medpos/internal/service/notify"
	reportingsvc "github.com/mamadbah2/medpos/internal/service/reporting"
	"github.com/mamadbah2/medpos/pkg/clients/dropbox"
	whatsappclient "github.com/mamadbah2/medpos/pkg/clients/whatsapp"
	"github.com/mamadbah2/medpos/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	location, err := time.LoadLocation(cfg.Shop.Timezone)
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.String("timezone", cfg.Shop.Timezone), zap.Error(err))
	}

	defaultDiscount, err := decimal.NewFromString(cfg.Shop.DefaultDiscountPercent)
	if err != nil {
		baseLogger.Fatal("invalid default discount", zap.Error(err))
	}
	if err := invoice.ValidateDiscount(defaultDiscount); err != nil {
		baseLogger.Fatal("invalid default discount", zap.Error(err))
	}

	store, err := newStore(context.Background(), cfg.Store, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init remote store", zap.Error(err))
	}

	var locker lock.Locker = lock.NewLocal()
	if cfg.Redis.Enabled() {
		redisLock := lock.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, baseLogger.Named("lock.redis"))
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisLock.Ping(pingCtx)
		cancel()
		if err != nil {
			baseLogger.Fatal("failed to reach redis", zap.Error(err))
		}
		defer func() { _ = redisLock.Close() }()
		locker = redisLock
		baseLogger.Info("redis write lock enabled")
	}

	var mirror sheets.LedgerMirror
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		mirror = sheetsRepo
	}

	var reportRepo mongodb.Repository
	if cfg.MongoDB.Enabled() {
		mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		reportRepo = mongoRepo
	}

	var notifier notify.Notifier
	if cfg.WhatsApp.Enabled() {
		notifier = notify.NewWhatsAppNotifier(whatsappclient.NewClient(cfg.WhatsApp), cfg.Shop.Name, cfg.Shop.Currency, baseLogger.Named("svc.notify"))
		baseLogger.Info("whatsapp notifications enabled")
	} else {
		baseLogger.Warn("whatsapp credentials missing, receipts and report messages disabled")
	}

	salesLedger := ledger.NewSalesLedger(store, locker, cfg.Paths.SalesLedger, baseLogger.Named("svc.sales_ledger"))
	stockLedger := ledger.NewStockLedger(store, locker, cfg.Paths.StockTable, cfg.Paths.StockCatalog, baseLogger.Named("svc.stock_ledger"))

	renderer := invoice.NewRenderer(invoice.ShopInfo{
		Name:         cfg.Shop.Name,
		Address:      cfg.Shop.Address,
		Registration: cfg.Shop.Registration,
		Currency:     cfg.Shop.Currency,
		LogoPath:     cfg.Shop.LogoPath,
	})

	billingSvc := billing.NewService(billing.Dependencies{
		Catalog:         catalogsvc.NewService(store, baseLogger.Named("svc.catalog")),
		Stock:           stockLedger,
		Sales:           salesLedger,
		Renderer:        renderer,
		Store:           store,
		CatalogPath:     cfg.Paths.Catalog,
		InvoiceRoot:     cfg.Paths.InvoiceFolder,
		DefaultDiscount: defaultDiscount,
		Location:        location,
		Mirror:          mirror,
		Notifier:        notifier,
		Logger:          baseLogger.Named("svc.billing"),
	})

	posHandler := handlers.NewPOSHandler(billingSvc, baseLogger.Named("handlers.pos"))
	engine := router.New(posHandler, baseLogger.Named("router"))

	reportingSvc := reportingsvc.NewService(salesLedger, reportRepo, location, baseLogger.Named("svc.reporting"))
	sched := scheduler.NewScheduler(cfg.Reporting, location, reportingSvc, notifier, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to schedule daily report", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newStore(ctx context.Context, cfg config.StoreConfig, base *zap.Logger) (blobstore.Store, error) {
	switch cfg.Backend {
	case config.BackendDropbox:
		return blobstore.NewDropboxStore(dropbox.NewClient(ctx, cfg.Dropbox()), base.Named("repo.dropbox")), nil
	case config.BackendGCS:
		return blobstore.NewGCSStore(ctx, cfg.GCSBucket, cfg.GoogleCredentialsPath, base.Named("repo.gcs"))
	case config.BackendLocal:
		return blobstore.NewLocalStore(cfg.LocalDir)
	case config.BackendMemory:
		base.Warn("using in-memory store, nothing survives a restart")
		return blobstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Backend)
	}
}
