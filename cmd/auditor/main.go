package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"

	"github.com/aman-zulfiqar/superswap-settlement/internal/audit"
	"github.com/aman-zulfiqar/superswap-settlement/internal/config"
	"github.com/aman-zulfiqar/superswap-settlement/internal/constants"
	"github.com/aman-zulfiqar/superswap-settlement/internal/models"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

// main follows the coordinator's event channels and logs every committed
// state change. With -archive it also writes them to ClickHouse.
func main() {
	loadEnv()

	archive := flag.Bool("archive", false, "insert received events into ClickHouse")
	flag.Parse()

	cfg := config.Load()
	logger := cfg.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	rclient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	defer rclient.Close()
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	pub, err := audit.NewPublisher(rclient, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create subscriber")
	}

	var store *audit.ClickHouseStore
	if *archive {
		store, err = audit.NewClickHouseStore(ctx, audit.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to ClickHouse")
		}
		defer store.Close()
	}

	var wg sync.WaitGroup
	subscribe := func(channel string, handler func(*audit.Event)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := pub.Subscribe(ctx, channel, handler); err != nil {
				logger.WithError(err).WithField("channel", channel).Error("subscription ended")
			}
		}()
	}

	// Every event
	subscribe(constants.PubSubChannelAll, func(ev *audit.Event) {
		entry := logger.WithFields(logrus.Fields{
			"id":    ev.ID,
			"type":  ev.Type,
			"actor": ev.Actor,
		})
		if ev.OrderID != 0 {
			entry = entry.WithFields(logrus.Fields{
				"order":  ev.OrderID,
				"status": ev.Status,
				"gross":  ev.GrossAmount,
				"fee":    ev.FeeAmount,
				"output": ev.OutputAmount,
			})
		}
		if ev.Reason != "" {
			entry = entry.WithField("reason", ev.Reason)
		}
		entry.Info("event")

		if store != nil {
			if err := store.InsertEvent(ctx, ev); err != nil {
				logger.WithError(err).WithField("id", ev.ID).Warn("archive insert failed")
			}
		}
	})

	// Failed orders are waiting for a refund
	subscribe(constants.PubSubChannelStatusPrefix+models.StatusFailed.String(), func(ev *audit.Event) {
		logger.WithFields(logrus.Fields{
			"order":  ev.OrderID,
			"reason": ev.Reason,
		}).Warn("settlement failed, refund pending")
	})

	// Pattern over all statuses
	subscribe(constants.PubSubChannelStatusPrefix+"*", func(ev *audit.Event) {
		logger.WithFields(logrus.Fields{
			"order":  ev.OrderID,
			"status": ev.Status,
		}).Debug("status change")
	})

	logger.Info("auditor running, press Ctrl+C to stop")

	<-sigCh
	logger.Info("shutting down auditor")
	cancel()
	wg.Wait()
}
