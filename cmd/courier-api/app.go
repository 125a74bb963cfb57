package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"courierlog/internal/api/orders_api"
	"courierlog/internal/broker/messages"
	"courierlog/internal/services/orders"
	"courierlog/internal/worker"
)

type appOpts struct {
	httpAddr      string
	topic         string
	consumerGroup string

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

func runCourierAPI(ctx context.Context, opts appOpts, api *orders_api.OrdersAPI, svc *orders.Service, pool *worker.Pool, consumer kafkaConsumer) error {
	pool.Start(ctx)

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}

	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runHTTPServer(ctx, lis, api)
	}()

	go func() {
		slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
		err := consumer.Consume(ctx, func(_key, value []byte) error {
			var m messages.NotificationPosted
			if err := json.Unmarshal(value, &m); err != nil {
				// Битое сообщение не должно останавливать поток событий.
				slog.Error("skip malformed notification event", "error", err.Error())
				return nil
			}
			return svc.HandleNotification(ctx, m)
		})
		if err != nil && ctx.Err() == nil {
			slog.Error("kafka consumer stopped", "error", err.Error())
		}
	}()

	select {
	case <-ctx.Done():
		pool.Wait()
		return ctx.Err()
	case err := <-httpErr:
		return err
	}
}

func runHTTPServer(ctx context.Context, lis net.Listener, api *orders_api.OrdersAPI) error {
	srv := &http.Server{Handler: api.Router()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	err := srv.Serve(lis)
	if errors.Is(err, http.ErrServerClosed) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
