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

	"github.com/Sakib8git/Plant-net-server/internal/config"
	kafkax "github.com/Sakib8git/Plant-net-server/internal/kafka"
	"github.com/Sakib8git/Plant-net-server/internal/notifier"
	"github.com/Sakib8git/Plant-net-server/internal/orders"
	"github.com/Sakib8git/Plant-net-server/internal/redisx"
)

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &notifier.Service{
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-notifier",
	}

	group := getenv("NOTIFIER_GROUP", "notifier-svc")
	workers := mustAtoi(os.Getenv("NOTIFIER_WORKERS"), "4")

	consOrder := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicOrderReconciled, workers)
	consStock := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicStockDepleted, 1)

	go func() {
		log.Printf("notifier consumer started: group=%s topic=%s workers=%d", group, orders.TopicOrderReconciled, workers)
		if err := consOrder.Start(ctx, svc.HandleOrderReconciled); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()
	go func() {
		log.Printf("notifier consumer started: group=%s topic=%s workers=1", group, orders.TopicStockDepleted)
		if err := consStock.Start(ctx, svc.HandleStockDepleted); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Println("shutting down consumers...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
