package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/songgift/checkout/internal/checkout"
	"github.com/songgift/checkout/internal/config"
	"github.com/songgift/checkout/internal/coupon"
	"github.com/songgift/checkout/internal/handoff"
	"github.com/songgift/checkout/internal/httpx"
	kafkax "github.com/songgift/checkout/internal/kafka"
	"github.com/songgift/checkout/internal/orders"
	"github.com/songgift/checkout/internal/payments"
	"github.com/songgift/checkout/internal/postgres"
	"github.com/songgift/checkout/internal/reconcile"
	"github.com/songgift/checkout/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	createdProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	createdProd.Start(ctx)
	paidProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPaid, 1024)
	paidProd.Start(ctx)

	orderRepo := &orders.Repo{DB: db}
	couponRepo := &coupon.Repo{DB: db}
	validator := coupon.NewValidator(couponRepo)
	handoffStore := handoff.NewStore(rdb, cfg.HandoffTTL)
	provider := payments.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	creator := &checkout.Service{
		Orders:   orderRepo,
		Handoff:  handoffStore,
		Coupons:  validator,
		Provider: provider,
		Producer: createdProd,
		Pricing:  checkout.DefaultPricing,
		BaseURL:  cfg.PublicBaseURL,
		Service:  cfg.ServiceName,
	}
	recon := &reconcile.Service{
		Orders:   orderRepo,
		Handoff:  handoffStore,
		Verifier: provider,
		Producer: paidProd,
		Service:  cfg.ServiceName,
	}

	router := httpx.NewRouter()
	(&httpx.HandoffHandler{Store: handoffStore}).Register(router)
	(&httpx.CheckoutHandler{Checkout: creator}).Register(router)
	(&httpx.CouponHandler{Validator: validator, Redis: rdb}).Register(router)
	(&httpx.WebhookHandler{Recon: recon}).Register(router)
	(&httpx.OrdersHandler{Repo: orderRepo, Redis: rdb}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	createdProd.Close()
	paidProd.Close()
	cancel()
	createdProd.WaitClosed()
	paidProd.WaitClosed()
}
