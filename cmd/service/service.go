package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	configs "practice_service/config"
	"practice_service/internal/cache"
	"practice_service/internal/docstore"
	"practice_service/internal/domain"
	"practice_service/internal/identity"
	"practice_service/internal/repository"
	"practice_service/internal/server/httpapi"
	"practice_service/internal/service"
	"practice_service/internal/tts"
	"practice_service/pkg/db"
	"practice_service/pkg/kafka"
	"practice_service/pkg/logger"

	_ "github.com/lib/pq"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()

	cfg, err := configs.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	location, err := time.LoadLocation(cfg.Platform.Timezone)
	if err != nil {
		log.Fatalf("Failed to load timezone: %v", err)
	}

	pg, err := db.NewPostgres(db.Config{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		DBName:   cfg.DB.DBName,
		SSLMode:  cfg.DB.SSLMode,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pg.Close()

	store := docstore.NewPostgresStore(pg.DB())
	assignmentRepo := repository.NewAssignmentRepository(store)
	submissionRepo := repository.NewSubmissionRepository(store)
	rosterRepo := repository.NewRosterRepository(store)

	var completionCache cache.CompletionCache
	if cfg.Redis.Address != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		completionCache = cache.NewRedisCache(rdb, cfg.Redis.TTL)
	} else {
		log.Warn("no redis configured, using in-process completion cache")
		completionCache = cache.NewMemoryCache()
	}

	var producer service.EventProducer
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafka.NewProducer(kafka.Config{Brokers: cfg.Kafka.Brokers})
		if err != nil {
			log.Fatalf("Failed to create Kafka producer: %v", err)
		}
		defer kafkaProducer.Close()
		producer = kafkaProducer
	} else {
		log.Warn("no kafka brokers configured, events disabled")
	}

	registry := domain.DefaultRegistry()
	resolver := identity.NewResolver(cfg.Accounts.StudentDomain, cfg.Accounts.TeacherDomains)

	removePolicy, err := service.ParseRemovePolicy(cfg.Platform.RosterRemovePolicy)
	if err != nil {
		log.Fatalf("Bad roster remove policy: %v", err)
	}

	assignments := service.NewAssignmentService(assignmentRepo, registry, producer, log, location)
	submissions := service.NewSubmissionService(submissionRepo, assignmentRepo, rosterRepo, completionCache, registry, producer, log)
	reconciler := service.NewReconciler(submissions, assignments, completionCache, producer, log)
	orphans := service.NewOrphanService(submissionRepo, assignmentRepo, rosterRepo, submissions, log, location)
	roster := service.NewRosterService(rosterRepo, assignmentRepo, submissionRepo, completionCache, resolver, removePolicy, log)

	ttsClient := tts.NewClient(cfg.TTS.BaseURL, cfg.TTS.Timeout)

	handler := httpapi.NewHandler(assignments, submissions, reconciler, orphans, roster, ttsClient, log)
	router := httpapi.NewRouter(handler,
		httpapi.NewLoggingMiddleware(log),
		httpapi.NewAuthMiddleware([]byte(cfg.Auth.JWTSecret), resolver, log),
	)

	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	worker := NewOrphanWorker(orphans, producer, log, cfg.Platform.OrphanWindowDays, cfg.Platform.OrphanSweepPeriod)
	worker.Start()
	defer worker.Stop()

	go func() {
		log.Infof("Starting HTTP server on %s", cfg.HTTP.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Forced shutdown: %v", err)
	}
	log.Info("Server stopped")
}
