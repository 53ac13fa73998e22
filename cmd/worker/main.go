// Worker consumes accepted run reports from Kafka and pushes them to Loki.
// Set KAFKA_BROKERS, TELEMETRY_KAFKA_TOPIC, KAFKA_GROUP_ID, and LOKI_URL. When DATABASE_URL is set the
// worker also upserts each report; saves merge, so a report the server already stored is unchanged.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"runtelemetry/internal/config"
	"runtelemetry/internal/db"
	"runtelemetry/internal/telemetry/loki"
	"runtelemetry/internal/telemetry/producer"
	"runtelemetry/internal/telemetry/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}
	if cfg.LokiURL == "" {
		log.Fatal("worker: LOKI_URL is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var repo repository.Repository
	if cfg.DatabaseURL != "" {
		sqlDB, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("worker: db: %v", err)
		}
		defer sqlDB.Close()
		repo = repository.NewPostgresRepository(sqlDB)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          cfg.TelemetryKafkaTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	log.Printf("worker: consuming from %s (group %s), pushing to %s", cfg.TelemetryKafkaTopic, cfg.KafkaGroupID, cfg.LokiURL)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("worker: stopped")
				return
			}
			log.Printf("worker: kafka read error: %v", err)
			continue
		}
		handle(ctx, cfg.LokiURL, repo, msg)
	}
}

func handle(ctx context.Context, lokiURL string, repo repository.Repository, msg kafka.Message) {
	pushCtx, pushCancel := context.WithTimeout(ctx, 10*time.Second)
	defer pushCancel()
	if err := loki.PushReportJSON(pushCtx, lokiURL, msg.Value); err != nil {
		log.Printf("worker: loki push failed: %v", err)
	}
	if repo == nil {
		return
	}
	report, err := producer.Decode(msg.Value)
	if err != nil {
		log.Printf("worker: skipping undecodable message at offset %d: %v", msg.Offset, err)
		return
	}
	if err := repo.Save(pushCtx, report); err != nil {
		log.Printf("worker: save run %s failed: %v", report.RunID, err)
	}
}
