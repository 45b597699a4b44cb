package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roundjudge/internal/api"
	"roundjudge/internal/app/service"
	"roundjudge/internal/app/worker"
	"roundjudge/internal/common/security"
	"roundjudge/internal/domain/model"
	"roundjudge/internal/domain/repository"
	"roundjudge/internal/platform/config"
	"roundjudge/internal/platform/database"
	"roundjudge/internal/platform/execution"
	"roundjudge/internal/platform/logger"
	"roundjudge/internal/platform/queue"
)

func main() {
	log := logger.NewNamedLogger("main")
	defer logger.Sync()

	// 1. Configuration and token verification
	config.Load()
	security.InitJWT()
	cfg := config.AppConfig

	// 2. Storage
	database.Connect()
	defer database.Close()
	queue.ConnectRedis()
	defer queue.CloseRedis()

	// 3. Repositories
	challengeRepo := repository.NewPgChallengeRepository(database.DB)
	userRepo := repository.NewPgUserRepository(database.DB)
	jobRepo := repository.NewRedisSubmissionJobRepository(queue.RDB, cfg.SubmissionResultTTL)

	// 4. Execution client and services
	executor := execution.NewClient(execution.Options{
		BaseURL:        cfg.ExecutionAPIURL,
		APIHost:        cfg.ExecutionAPIHost,
		APIKey:         cfg.ExecutionAPIKey,
		PollInterval:   cfg.ExecutionPollInterval,
		MaxRetries:     cfg.ExecutionMaxRetries,
		RetryBaseDelay: cfg.ExecutionRetryBaseDelay,
	})
	testRuns := service.NewTestRunService(executor, cfg.TestRunWorkers, cfg.ExecutionTimeout)
	progression := service.NewProgressionService(userRepo, model.ParseScorePolicy(cfg.ScorePolicy), cfg.ProgressionMaxAttempts)
	guard := service.NewSubmissionGuard(queue.RDB, cfg.SubmissionGuardTTL)
	submissions := service.NewSubmissionService(challengeRepo, testRuns, progression, executor, guard, cfg.ExecutionTimeout)
	jobs := service.NewSubmissionJobService(jobRepo, queue.RDB, cfg.SubmissionQueueName)
	rounds := service.NewRoundService(challengeRepo, userRepo)

	// 5. Background workers for async submissions
	submissionWorker := worker.NewSubmissionWorker(queue.RDB, jobRepo, submissions, cfg.SubmissionQueueName, cfg.SubmissionWorkers)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	workerDone := make(chan struct{})
	go func() {
		submissionWorker.Start(workerCtx)
		close(workerDone)
	}()

	// 6. HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      api.NewRouter(cfg.RequestTimeout, security.TokenAuth, submissions, jobs, rounds),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Infof("Server starting on port %s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Could not listen on %s: %v", cfg.APIPort, err)
		}
	}()

	<-stop

	log.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown failed: %v", err)
	}

	workerCancel()
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Warn("Timed out waiting for submission workers")
	}
	log.Info("Server and workers stopped gracefully")
}
