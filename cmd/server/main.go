package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course-payment-service/config"
	"course-payment-service/internal/api"
	"course-payment-service/internal/broker"
	"course-payment-service/internal/redisclient"
	"course-payment-service/internal/service"
	"course-payment-service/internal/store"
	"course-payment-service/internal/util"
	"course-payment-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting course payment service")

	tp, err := util.InitTracer("course-payment-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(
		cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
		cfg.Business.AccessCacheTTL, cfg.Business.CourseCacheTTL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicPayments)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	catalog := service.NewCatalogClient(db, redisClient)
	paymentService := service.NewPaymentService(db, catalog, eventPublisher, cfg.Business.PaymentExpiry)
	stateMachine := service.NewPaymentStateMachine(db, redisClient, eventPublisher)
	accessService := service.NewAccessService(db, redisClient)
	certificateService := service.NewCertificateService(db, eventPublisher, cfg.Business.PassingScorePercent)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	progressConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicProgress, cfg.Kafka.ConsumerGroup)
	certificateWorker := worker.NewCertificateWorker(progressConsumer, certificateService, db, redisClient)
	go func() {
		if err := certificateWorker.Start(workerCtx); err != nil {
			log.Printf("Certificate worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(paymentService, stateMachine, accessService, certificateService)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	certificateWorker.Stop()

	log.Println("Server exited")
}
