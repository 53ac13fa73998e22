package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"runtelemetry/internal/config"
	"runtelemetry/internal/db"
	"runtelemetry/internal/security"
	"runtelemetry/internal/server"
	"runtelemetry/internal/server/interceptors"
	"runtelemetry/internal/telemetry"
	"runtelemetry/internal/telemetry/dedupe"
	"runtelemetry/internal/telemetry/handler"
	"runtelemetry/internal/telemetry/metrics"
	telemetryotel "runtelemetry/internal/telemetry/otel"
	"runtelemetry/internal/telemetry/policy"
	"runtelemetry/internal/telemetry/producer"
	"runtelemetry/internal/telemetry/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.OTelServiceName,
		Insecure:    cfg.OTelInsecure,
	})
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	reg := metrics.NewRegistry()
	m := metrics.New(reg)

	deps := server.Deps{Telemetry: handler.Deps{
		Emitter: telemetryotel.NewEventEmitter(providers.LoggerProvider),
		Metrics: m,
	}}

	var sqlDB *sql.DB
	if cfg.DatabaseURL != "" {
		sqlDB, err = db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer sqlDB.Close()
		deps.Telemetry.Repository = repository.NewPostgresRepository(sqlDB)
		deps.HealthPinger = sqlDB
	} else {
		log.Println("server: DATABASE_URL not set; reports are not persisted")
	}

	evaluator, err := policy.LoadFile(ctx, cfg.PolicyFile)
	if err != nil {
		log.Fatalf("policy: %v", err)
	}
	deps.Telemetry.Policy = evaluator
	deps.HealthPolicyChecker = evaluator

	if cfg.RedisURL != "" {
		rdb, err := dedupe.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		guard := dedupe.NewRedisGuard(rdb, cfg.DedupeWindow())
		deps.Telemetry.Guard = guard
		deps.HealthCache = guard
	} else {
		deps.Telemetry.Guard = dedupe.NewMemoryGuard(cfg.DedupeWindow())
	}

	kafkaProducer, err := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	if kafkaProducer != nil {
		deps.Telemetry.Producer = kafkaProducer
	}

	var tokens interceptors.TokenValidator
	if cfg.AuthEnabled() {
		pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
		if err != nil {
			log.Fatalf("jwt public key: %v", err)
		}
		tokens = security.NewTokenProvider(nil, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL())
	} else {
		log.Println("server: JWT_PUBLIC_KEY not set; reporters are not authenticated")
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	s := server.NewServer(server.Options{
		Tokens:  tokens,
		Metrics: m,
		Tracing: cfg.OTelEndpoint != "",
	})
	server.RegisterServices(s, deps)

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Printf("metrics listening on %s", cfg.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("metrics: %v", err)
			}
		}()
	}

	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := s.Serve(lis); err != nil {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down gRPC server...")
	s.GracefulStop()
	time.Sleep(telemetry.ShutdownDrainDuration)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("metrics: shutdown: %v", err)
		}
	}
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			log.Printf("kafka: close: %v", err)
		}
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel: shutdown: %v", err)
	}
	log.Println("gRPC server stopped")
}
