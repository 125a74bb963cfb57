package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"courierlog/config"
	"courierlog/internal/api/orders_api"
	"courierlog/internal/broker/kafka"
	"courierlog/internal/cache/rediscache"
	"courierlog/internal/services/orders"
	"courierlog/internal/storage/pgorders"
	"courierlog/internal/track"
	"courierlog/internal/worker"
)

type app struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   appOpts

	svc      *orders.Service
	api      *orders_api.OrdersAPI
	pool     *worker.Pool
	consumer *kafka.Consumer
	producer *kafka.Producer
	closeDB  func()
}

func mustBootstrap() *app {
	// .env переопределяет окружение только локально; в проде его нет.
	_ = godotenv.Load()

	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	httpAddr := cfg.CourierLog.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.CourierLog.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "courier-api"
	}
	notificationsTopic := cfg.Kafka.NotificationsTopicName
	if notificationsTopic == "" {
		notificationsTopic = "notifications.raw"
	}
	capturedTopic := cfg.Kafka.OrderCapturedTopicName
	if capturedTopic == "" {
		capturedTopic = "orders.captured"
	}

	summaryTTL := time.Duration(cfg.CourierLog.SummaryTTLSeconds) * time.Second
	if summaryTTL <= 0 {
		summaryTTL = 60 * time.Second
	}

	allowList := cfg.CourierLog.SourceAllowList
	if len(allowList) == 0 {
		allowList = []string{
			"za.co.loop.logistics",
			"za.co.cowabunga.loop",
			"za.co.cowabunga",
			"com.cowabunga",
		}
	}

	window := track.AcceptanceWindow{
		MinDeltaMeters: cfg.CourierLog.MinDeltaMeters,
		MaxDeltaMeters: cfg.CourierLog.MaxDeltaMeters,
	}
	if window.MaxDeltaMeters <= window.MinDeltaMeters {
		window = track.DefaultWindow()
	}

	samplesPerMin := int64(cfg.CourierLog.SamplesPerMinute)
	if samplesPerMin <= 0 {
		samplesPerMin = 12
	}

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st := mustOpenPostgresWithRetry(connString, 60*time.Second)

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)
	rl := rediscache.NewRateLimiter(redisAddr)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	consumer := kafka.NewConsumer(brokers, notificationsTopic, consumerGroup)
	producer := kafka.NewProducer(brokers)

	pool := worker.NewPool(cfg.CourierLog.SaverQueueSize, cfg.CourierLog.SaverWorkers)
	tracker := track.NewManager(window)

	svc := orders.New(st, rc, summaryTTL, tracker, allowList).
		WithPublisher(pool, producer, capturedTopic)

	api := orders_api.New(svc, tracker).
		WithSampleRateLimit(rl, samplesPerMin)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &app{
		ctx:    ctx,
		cancel: cancel,
		opts: appOpts{
			httpAddr:      httpAddr,
			topic:         notificationsTopic,
			consumerGroup: consumerGroup,
		},
		svc:      svc,
		api:      api,
		pool:     pool,
		consumer: consumer,
		producer: producer,
		closeDB:  st.Close,
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgorders.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgorders.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *app) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	if a.producer != nil {
		_ = a.producer.Close()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *app) Run() error {
	return runCourierAPI(a.ctx, a.opts, a.api, a.svc, a.pool, a.consumer)
}
