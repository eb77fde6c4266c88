package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/okfn/ridl-curation/internal/config"
	"github.com/okfn/ridl-curation/internal/infra/database"
	"github.com/okfn/ridl-curation/internal/infra/mailer"
	"github.com/okfn/ridl-curation/internal/infra/queue"
	"github.com/okfn/ridl-curation/internal/infra/repository"
	"github.com/okfn/ridl-curation/internal/interface/rest"
	authmw "github.com/okfn/ridl-curation/internal/interface/rest/middleware"
	"github.com/okfn/ridl-curation/internal/service"
	"github.com/okfn/ridl-curation/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := database.NewPostgres(conf.Server.PostgresDsn)
	if err != nil {
		slog.Error("failed to connect database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := database.MigratePostgres(db); err != nil {
		slog.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rdb := database.NewRedis(conf.Server.RedisAddr, "", conf.Server.RedisDB)
	mc := database.NewMemcached(conf.Server.MemcachedAddr)

	datasetRepo := repository.NewDatasetRepository(db)
	containerRepo := repository.NewContainerRepository(db, mc)
	userRepo := repository.NewUserRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	accessRepo := repository.NewAccessRequestRepository(db)

	mailQueue := queue.NewRedisQueue(rdb, conf.Mail.Queue)
	signalService := service.NewSignalService(rdb)
	validator := service.NewDatasetValidator()

	resolver := usecase.NewStatusResolver(
		containerRepo, userRepo, validator,
		conf.Deposit.ContainerName, conf.Deposit.FinalReview,
	)
	dispatcher := usecase.NewDispatcher(
		mailQueue, userRepo, containerRepo,
		conf.Deposit.ContainerName, conf.Deposit.SiteURL,
	)
	curationUC := usecase.NewCurationUsecase(
		datasetRepo, containerRepo, activityRepo,
		resolver, validator, dispatcher, signalService,
		conf.Deposit.ContainerName,
	)
	accessUC := usecase.NewAccessRequestUsecase(
		accessRepo, datasetRepo, containerRepo, userRepo, dispatcher,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	smtpMailer := mailer.NewSMTPMailer(conf.Mail.SMTPAddr, conf.Mail.From)
	go mailQueue.Run(ctx, smtpMailer)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	auth := authmw.NewAuthMiddleware(userRepo)
	e.Use(auth.IdentifyIdentity)

	handler := rest.NewHandler(curationUC, accessUC, signalService)
	handler.RegisterRoutes(e)

	go func() {
		<-ctx.Done()
		_ = e.Shutdown(context.Background())
	}()

	e.Logger.Fatal(e.Start(conf.Server.Listen))
}
