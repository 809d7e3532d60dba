package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/auth"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/config"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/event"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/message"
	messagerepo "github.com/ovaphlow/pitchfork/service-catalog/internal/message/repo"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/product"
	productrepo "github.com/ovaphlow/pitchfork/service-catalog/internal/product/repo"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/router"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-catalog/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/database"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	lg, err := utilities.Init(cfg.Logger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Infow("starting service-catalog api", "addr", cfg.ServerAddr)

	db, err := database.Connect(cfg.Database())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users := userrepo.NewUserRepo(db)
	products := productrepo.NewRepo(db)
	messages := messagerepo.NewMessageRepo(db)
	for name, ensure := range map[string]func(context.Context) error{
		"users":    users.EnsureTable,
		"products": products.EnsureTable,
		"messages": messages.EnsureTable,
	} {
		if err := ensure(ctx); err != nil {
			sugar.Fatalf("ensure %s table: %v", name, err)
		}
	}

	transport := event.NewKafkaTransport(cfg.KafkaBrokers, cfg.PublishTimeout)
	publisher := event.NewPublisher(transport, sugar, event.Options{
		Workers:     cfg.PublisherWorkers,
		QueueSize:   cfg.PublisherQueueSize,
		SendTimeout: cfg.PublishTimeout,
	})

	ids := utilities.NewIDGenerator(cfg.SnowflakeNode)
	codec := auth.NewTokenCodec([]byte(cfg.JWTSecret))

	userSvc := user.NewUserService(users, auth.BcryptHasher{}, ids, sugar)
	productSvc := product.NewService(products, ids, publisher, cfg.ProductEventsTopic, sugar)
	messageSvc := message.NewService(messages, ids)

	handler := router.RegisterRoutes(sugar, auth.NewGate(codec, sugar), router.Handlers{
		Users:    user.NewHandler(userSvc, codec, cfg.TokenTTL(), sugar),
		Products: product.NewHandler(productSvc, sugar),
		Messages: message.NewHandler(messageSvc, sugar),
	})
	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	// handlers are gone; flush whatever events they queued
	if err := publisher.Close(doneCtx); err != nil {
		sugar.Warnf("event publisher drain incomplete: %v", err)
	}
	if err := transport.Close(); err != nil {
		sugar.Warnf("kafka writer close failed: %v", err)
	}

	sugar.Info("goodbye")
}
