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

	"github.com/Sakib8git/Plant-net-server/internal/catalog"
	"github.com/Sakib8git/Plant-net-server/internal/checkout"
	"github.com/Sakib8git/Plant-net-server/internal/config"
	"github.com/Sakib8git/Plant-net-server/internal/httpx"
	kafkax "github.com/Sakib8git/Plant-net-server/internal/kafka"
	"github.com/Sakib8git/Plant-net-server/internal/orders"
	"github.com/Sakib8git/Plant-net-server/internal/payments"
	"github.com/Sakib8git/Plant-net-server/internal/postgres"
	"github.com/Sakib8git/Plant-net-server/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers
	prodOrder := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderReconciled, 1024)
	prodOrder.Start(ctx)
	prodStock := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockDepleted, 1024)
	prodStock.Start(ctx)

	// Payment processor
	stripe := payments.NewStripe(cfg.StripeAPIURL, cfg.StripeKey, cfg.StripeTimeout)

	// Repos & services
	productRepo := &catalog.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db}
	svc := &checkout.Service{
		Payments:     stripe,
		Products:     productRepo,
		Orders:       orderRepo,
		ClientDomain: cfg.ClientDomain,
	}

	router := httpx.NewRouter()
	ch := &httpx.CheckoutHandler{
		Checkout:      svc,
		ProducerOrder: prodOrder,
		ProducerStock: prodStock,
		Redis:         rdb,
		Service:       cfg.ServiceName,
	}
	ch.Register(router)
	cat := &httpx.CatalogHandler{
		Products: productRepo,
		Orders:   orderRepo,
		Redis:    rdb,
	}
	cat.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prodOrder.Close() // close inbox -> flush & close writer
	prodStock.Close()
	cancel() // stop producer loops
	prodOrder.WaitClosed()
	prodStock.WaitClosed()
}
