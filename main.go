// File: bottlebank/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bottlebank/config"
	"bottlebank/cron"
	"bottlebank/database"
	jobRepoPkg "bottlebank/database/repository/job"
	localRepo "bottlebank/database/repository/local"
	pickupRepoPkg "bottlebank/database/repository/pickup"
	userRepoPkg "bottlebank/database/repository/user"
	walletRepoPkg "bottlebank/database/repository/wallet"
	"bottlebank/geo"
	"bottlebank/handlers"
	"bottlebank/middleware"
	"bottlebank/routes"
	"bottlebank/services/intelligence"
	"bottlebank/services/notification"
	"bottlebank/services/rating"
	"bottlebank/services/sync"
	"bottlebank/services/views"
	"bottlebank/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	// Pick the backend. Remote is the Mongo document store with change
	// streams; local is the in-memory store with wallet ledgers persisted
	// through Redis. A session runs against exactly one of them.
	var (
		jobRepo    jobRepoPkg.JobRepository
		pickupRepo pickupRepoPkg.PickupRepository
		userRepo   userRepoPkg.UserRepository
		walletRepo walletRepoPkg.WalletRepository
	)
	switch config.AppConfig.BackendMode {
	case config.BackendRemote:
		database.InitDB()
		jobRepo = jobRepoPkg.NewMongoJobRepo()
		pickupRepo = pickupRepoPkg.NewMongoPickupRepo()
		userRepo = userRepoPkg.NewMongoUserRepo()
		walletRepo = walletRepoPkg.NewMongoWalletRepo()
		logger.Sugar().Info("main: using remote backend")
	default:
		store := localRepo.NewStore(utils.GetWalletCacheClient())
		jobRepo = store.Jobs()
		pickupRepo = store.Pickups()
		userRepo = store.Users()
		walletRepo = store.Wallets()
		logger.Sugar().Info("main: using local backend")
	}

	utils.FirebaseInit()

	cloudinaryStorageService, err := utils.Cloudinary()
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize cloudinary storage service: %v", err)
	}

	notifier, err := notification.NewFCMDispatcher(userRepo)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize notification dispatcher: %v", err)
	}

	engine, err := sync.NewDefaultEngine(sync.EngineDeps{
		Jobs:                jobRepo,
		Pickups:             pickupRepo,
		Users:               userRepo,
		Wallets:             walletRepo,
		Rater:               rating.NewAggregator(userRepo),
		Notifier:            notifier,
		PlatformFee:         config.AppConfig.PlatformFeePercentage,
		ConfidenceThreshold: config.AppConfig.AIConfidenceThreshold,
		ExpiryHours:         config.AppConfig.JobExpiryHours,
	})
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize sync engine: %v", err)
	}
	defer engine.Close()

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if err := engine.StartWatch(watchCtx); err != nil {
		logger.Sugar().Warnf("main: backend watch unavailable: %v", err)
	}

	viewBuilder := views.NewBuilder(jobRepo, pickupRepo, userRepo, walletRepo)
	viewBuilder.Attach(engine.Subscribe)
	defer viewBuilder.Detach()

	analyzer, err := intelligence.NewGeminiAnalyzer(context.Background(), config.AppConfig.GeminiAPIKey)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize analyzer: %v", err)
	}

	geocoder := geo.NewNominatimGeocoder(config.AppConfig.GeocoderEndpoint)

	// Background expiry sweep.
	cron.InitSweepWorker(engine)

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	handlerBundle := &handlers.HandlerBundle{
		Auth:    handlers.NewAuthHandler(userRepo),
		Jobs:    handlers.NewJobHandler(engine),
		Feed:    handlers.NewFeedHandler(viewBuilder, userRepo),
		Storage: handlers.NewStorageHandler(cloudinaryStorageService),
		AI:      handlers.NewAIHandler(analyzer),
		Geo:     handlers.NewGeoHandler(geocoder),
	}
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
