package appServer

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"weather-notifier/config"
	"weather-notifier/internal/bot"
	repository "weather-notifier/internal/database/postgres"
	"weather-notifier/internal/service"
	"weather-notifier/internal/transport"
	"weather-notifier/internal/worker"

	"weather-notifier/pkg/postgres"
	"weather-notifier/pkg/telegram"
	"weather-notifier/pkg/weather"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.Idle_timeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func NewServer(cfg *config.Config) {

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)

	// Initialize database
	db, err := postgres.NewPostgresDB(&cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run database migrations
	if err := postgres.RunMigrations(db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)

	// Initialize Telegram bot
	tgBot, err := telegram.NewBot(cfg.Telegram.BotToken, cfg.Telegram.PollTimeout)
	if err != nil {
		logrus.Fatalf("Failed to initialize Telegram bot: %v", err)
	}
	logrus.Infof("Telegram bot authorized as @%s", tgBot.Username())

	// Initialize weather gateway
	weatherClient := weather.NewClient(weather.ClientConfig{
		APIKey:  cfg.Weather.APIKey,
		BaseURL: cfg.Weather.BaseURL,
		Timeout: cfg.Weather.Timeout,
	})

	// Initialize services
	notifyService := service.NewNotifyService(weatherClient, tgBot)
	broadcastService := service.NewBroadcastService(userRepo, requestRepo, notifyService)
	userService := service.NewUserService(userRepo)

	// Start inbound listener
	listenerCtx, stopListener := context.WithCancel(context.Background())
	defer stopListener()

	listener := bot.NewListener(tgBot, notifyService, requestRepo, cfg.Telegram.DrainTimeout)
	listenerDone := make(chan struct{})
	go func() {
		defer close(listenerDone)
		listener.Start(listenerCtx)
	}()

	// Start scheduled broadcast worker if configured
	if cfg.Broadcast.Schedule != "" {
		broadcastWorker := worker.NewBroadcastWorker(broadcastService, cfg.Broadcast.Schedule)
		if err := broadcastWorker.Start(); err != nil {
			logrus.Fatalf("Failed to start broadcast worker: %v", err)
		}
		defer broadcastWorker.Stop()
	}

	// Initialize handlers
	userHandler := transport.NewUserHandler(userService)
	broadcastHandler := transport.NewBroadcastHandler(broadcastService)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, transport.InitRoutes(userHandler, broadcastHandler)); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	if err := srv.Shutdown(context.Background()); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}

	// Stop the listener and wait for its drain to complete.
	stopListener()
	<-listenerDone
}
