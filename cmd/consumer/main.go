package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/config"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/event"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/message"
	messagerepo "github.com/ovaphlow/pitchfork/service-catalog/internal/message/repo"
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

	db, err := database.Connect(cfg.Database())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messages := messagerepo.NewMessageRepo(db)
	if err := messages.EnsureTable(ctx); err != nil {
		sugar.Fatalf("ensure messages table: %v", err)
	}
	sink := message.NewService(messages, utilities.NewIDGenerator(cfg.SnowflakeNode))

	consumer := event.NewConsumer(event.ConsumerConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.ProductEventsTopic,
		GroupID: cfg.ConsumerGroup,
	}, sink, sugar)
	defer consumer.Close()

	sugar.Infow("listening for product events",
		"topic", cfg.ProductEventsTopic,
		"group", cfg.ConsumerGroup,
	)
	if err := consumer.Run(ctx); err != nil {
		sugar.Errorw("consumer stopped", "err", err)
		return
	}
	sugar.Info("goodbye")
}
