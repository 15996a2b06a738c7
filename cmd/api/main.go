package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/config"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/network"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/outbox"
	appHTTP "github.com/cmlabs-hris/wfm-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/biometrics"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/cron"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/keylock"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/storage"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/zkteco"
	"github.com/cmlabs-hris/wfm-backend-go/internal/repository/postgresql"
	serviceAuth "github.com/cmlabs-hris/wfm-backend-go/internal/service/auth"
	coverageService "github.com/cmlabs-hris/wfm-backend-go/internal/service/coverage"
	"github.com/cmlabs-hris/wfm-backend-go/internal/service/file"
	outboxService "github.com/cmlabs-hris/wfm-backend-go/internal/service/outbox"
	"github.com/cmlabs-hris/wfm-backend-go/internal/service/reconcile"
	tickService "github.com/cmlabs-hris/wfm-backend-go/internal/service/tick"
	urvService "github.com/cmlabs-hris/wfm-backend-go/internal/service/urv"
	vacancyService "github.com/cmlabs-hris/wfm-backend-go/internal/service/vacancy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error loading config: ", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL(), database.PoolConfig{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		log.Fatal("Error connecting to database: ", err)
	}
	defer db.Close()

	txManager := postgresql.NewTxManager(db)
	networkRepo := network.NewCachedRepository(postgresql.NewNetworkRepository(db), cfg.App.NetworkCacheTTL)
	shopRepo := postgresql.NewShopRepository(db)
	workTypeRepo := postgresql.NewWorkTypeRepository(db)
	terminalRepo := postgresql.NewTerminalRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	employmentRepo := postgresql.NewEmploymentRepository(db)
	workerDayRepo := postgresql.NewWorkerDayRepository(db)
	vacancyRepo := postgresql.NewVacancyRepository(db)
	partitionLocker := postgresql.NewPartitionLocker(db)
	tickRepo := postgresql.NewTickRepository(db)
	cursorRepo := postgresql.NewCursorRepository(db)
	demandRepo := postgresql.NewDemandRepository(db)
	outboxRepo := postgresql.NewOutboxRepository(db)

	var fileStorage storage.FileStorage
	switch cfg.Storage.Type {
	case "local":
		fileStorage, err = storage.NewLocalStorage(
			cfg.Storage.BasePath,
			cfg.Storage.BaseURL,
		)
		if err != nil {
			log.Fatal("Failed to initialize local storage: ", err)
		}
	case "minio":
		initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		fileStorage, err = storage.NewMinIOStorage(initCtx, storage.MinIOConfig{
			Endpoint:        cfg.Storage.MinIO.Endpoint,
			AccessKeyID:     cfg.Storage.MinIO.AccessKeyID,
			SecretAccessKey: cfg.Storage.MinIO.SecretAccessKey,
			Bucket:          cfg.Storage.MinIO.Bucket,
			Region:          cfg.Storage.MinIO.Region,
			UseSSL:          cfg.Storage.MinIO.UseSSL,
		})
		cancel()
		if err != nil {
			log.Fatal("Failed to initialize minio storage: ", err)
		}
	default:
		log.Fatal("Unsupported storage types: ", cfg.Storage.Type)
	}
	fileService := file.NewFileService(fileStorage)

	// Verification is skipped entirely when no recognizer is configured
	var recognizer tickService.Recognizer
	if cfg.Biometrics.BaseURL != "" {
		recognizer = biometrics.NewClient(cfg.Biometrics.BaseURL, cfg.Biometrics.Token, cfg.Timeouts.Biometrics)
	} else {
		slog.Warn("Biometrics service not configured, photos are stored unverified")
	}

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration, cfg.JWT.DeviceExpiration)
	publisher := outbox.NewPublisher(outboxRepo)

	reconciler := reconcile.NewReconciler(txManager, workerDayRepo, shopRepo, networkRepo, publisher, keylock.New())
	ticks := tickService.NewTickService(
		tickRepo,
		employeeRepo,
		employmentRepo,
		shopRepo,
		networkRepo,
		workerDayRepo,
		vacancyRepo,
		publisher,
		reconciler,
		fileService,
		recognizer,
		cfg.Timeouts.Biometrics,
	)
	coverage := coverageService.NewCoverageService(
		txManager,
		networkRepo,
		shopRepo,
		workTypeRepo,
		demandRepo,
		workerDayRepo,
		employmentRepo,
	)
	vacancies := vacancyService.NewController(
		txManager,
		partitionLocker,
		vacancyRepo,
		shopRepo,
		workTypeRepo,
		networkRepo,
		workerDayRepo,
		employmentRepo,
		publisher,
		coverage,
		cfg.App.VacancyConcurrency,
	)
	authService := serviceAuth.NewAuthService(terminalRepo, shopRepo, JWTService)

	// Outbox delivery: live stream subscribers first, then the notification webhook
	hub := sse.NewHub(64)
	sinks := outboxService.MultiSink{outboxService.NewHubSink(hub)}
	if cfg.Outbox.WebhookURL != "" {
		sinks = append(sinks, outboxService.NewWebhookSink(cfg.Outbox.WebhookURL, cfg.Timeouts.Notification))
	}
	dispatcher := outboxService.NewDispatcher(txManager, outboxRepo, sinks, outboxService.Config{
		BatchSize:     cfg.Outbox.BatchSize,
		FlushInterval: cfg.Outbox.FlushInterval,
		MaxAttempts:   cfg.Outbox.MaxAttempts,
	})

	var urvPoller cron.Runner
	if cfg.URV.BaseURL != "" {
		loc, _ := time.LoadLocation(cfg.URV.Timezone)
		urvPoller = urvService.NewPoller(
			zkteco.NewClient(cfg.URV.BaseURL, cfg.URV.Token, cfg.Timeouts.URV),
			cursorRepo,
			shopRepo,
			employeeRepo,
			ticks,
			urvService.Config{
				PageSize: cfg.URV.PageSize,
				Overlap:  cfg.URV.Overlap,
				Lookback: cfg.URV.Lookback,
				Location: loc,
			},
		)
	}

	scheduler := cron.NewScheduler()
	cron.NewWorkforceJobs(vacancies, reconciler, urvPoller, nil).RegisterJobs(scheduler, cron.JobIntervals{
		VacancyCheck: cfg.Cron.VacancyCheckInterval,
		URVPoll:      cfg.Cron.URVPollInterval,
		StaleFacts:   cfg.Cron.StaleFactsInterval,
		Timeout:      cfg.Cron.JobTimeout,
	})

	router := appHTTP.NewRouter(JWTService, appHTTP.Handlers{
		Auth:      appHTTP.NewAuthHandler(JWTService, authService),
		Tick:      appHTTP.NewTickHandler(ticks),
		Coverage:  appHTTP.NewCoverageHandler(coverage),
		Vacancy:   appHTTP.NewVacancyHandler(vacancies),
		WorkerDay: appHTTP.NewWorkerDayHandler(reconciler),
		Events:    appHTTP.NewEventsHandler(hub, JWTService, cfg.App.StreamKeepalive),
	}, appHTTP.RouterConfig{
		AppName:        cfg.App.Name,
		Version:        cfg.App.Version,
		Env:            cfg.App.Env,
		AllowedOrigins: cfg.App.AllowedOrigins,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	dispatcher.Start()
	scheduler.Start()

	go func() {
		slog.Info("Server running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error: ", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	scheduler.Stop()
	dispatcher.Stop()
	networkRepo.Invalidate("")
}
