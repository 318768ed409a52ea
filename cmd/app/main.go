package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"prepchat/configs"
	"prepchat/internal/bus"
	"prepchat/internal/entity"
	"prepchat/internal/handler"
	"prepchat/internal/idem"
	"prepchat/internal/input"
	"prepchat/internal/metrics"
	"prepchat/internal/nlog"
	"prepchat/internal/repository"
	"prepchat/internal/service"
	"prepchat/internal/storage"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	cfg := configs.LoadConfig()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	appLogger := nlog.NewAppLogger(os.Stderr, cfg.EnableLogging)
	mainLog := appLogger.RegisterSubsystem("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: could not open database: %v\n", err)
		os.Exit(1)
	}
	if err := db.AutoMigrate(&entity.User{}, &entity.Channel{}, &entity.Message{}); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: migration failed: %v\n", err)
		os.Exit(1)
	}

	nc, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: could not connect to NATS: %v\n", err)
		os.Exit(1)
	}
	defer nc.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		// Sends still work without the idempotency store, retries just lose
		// their dedup guarantee.
		mainLog.Logf("Redis unreachable, idempotency keys disabled: %v", err)
		rdb = nil
	}

	attachments, err := storage.NewMinioStore(storage.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		UseSSL:    cfg.MinioUseSSL,
		Bucket:    cfg.MinioBucket,
	}, appLogger.RegisterSubsystem("attachments"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: could not build attachment store: %v\n", err)
		os.Exit(1)
	}
	if err := attachments.EnsureBucket(ctx); err != nil {
		mainLog.Logf("Attachment bucket check failed: %v", err)
	}

	metricSet := metrics.New(prometheus.DefaultRegisterer)

	channelRepo := repository.NewSQLiteChannelRepository(db)
	messageRepo := repository.NewSQLiteMessageRepository(db)
	userRepo := repository.NewSQLiteUserRepository(db)

	natsBus := bus.NewNatsBus(nc, appLogger.RegisterSubsystem("bus"), metricSet)

	var idemStore idem.Store
	if rdb != nil {
		idemStore = idem.New(rdb)
	}

	channelService := service.NewChannelService(channelRepo, appLogger.RegisterSubsystem("channels"))
	messageService := service.NewMessageService(
		messageRepo, channelRepo, userRepo,
		natsBus, attachments, idemStore,
		metricSet, appLogger.RegisterSubsystem("messages"),
	)

	manager := input.NewInputManager()
	manager.SetLogger(appLogger.RegisterSubsystem("http"))
	manager.SetChannelHandler(handler.NewChannelHandler(channelService, appLogger.RegisterSubsystem("http")))
	manager.SetMessageHandler(handler.NewMessageHandler(messageService, attachments, appLogger.RegisterSubsystem("http")))
	manager.SetWSHandler(handler.NewWSHandler(natsBus, messageService, cfg.JWTSecret, appLogger.RegisterSubsystem("ws")))

	if err := manager.Run(ctx, &input.IptConfig{
		Addr:         cfg.HTTPAddr,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		JWTSecret:    cfg.JWTSecret,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: server error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Shutting off...\n")
}
