package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/songgift/checkout/internal/config"
	"github.com/songgift/checkout/internal/fulfillment"
	kafkax "github.com/songgift/checkout/internal/kafka"
	"github.com/songgift/checkout/internal/orders"
	"github.com/songgift/checkout/internal/postgres"
	"github.com/songgift/checkout/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	sink := fulfillment.NewClient(cfg.FulfillmentWebhookURL, cfg.FulfillmentSigningSecret)
	if !sink.Configured() {
		log.Fatal("FULFILLMENT_WEBHOOK_URL is required")
	}

	notifier := &fulfillment.Notifier{
		Orders:      &orders.Repo{DB: db},
		Redis:       rdb,
		Sink:        sink,
		ServiceName: cfg.ServiceName + "-notifier",
	}

	group := getenv("NOTIFIER_GROUP", "fulfillment-notifier")
	workers := atoi(os.Getenv("NOTIFIER_WORKERS"), 4)

	consumers := []struct {
		topic   string
		handler kafkax.Handler
	}{
		{orders.TopicOrderCreated, notifier.HandleOrderCreated},
		{orders.TopicOrderPaid, notifier.HandleOrderPaid},
	}
	for _, c := range consumers {
		c := c
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, c.topic, workers)
		go func() {
			log.Printf("notifier consumer started: group=%s topic=%s workers=%d", group, c.topic, workers)
			if err := cons.Start(ctx, c.handler); err != nil {
				log.Printf("consumer exit (topic %s): %v", c.topic, err)
				cancel()
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down notifier...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
