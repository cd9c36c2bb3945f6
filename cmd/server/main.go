package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codearena/internal/api"
	"codearena/internal/app/service"
	"codearena/internal/app/worker"
	"codearena/internal/common/security"
	"codearena/internal/domain/repository"
	"codearena/internal/judge"
	"codearena/internal/platform/config"
	"codearena/internal/platform/database"
	"codearena/internal/platform/logging"
	"codearena/internal/platform/queue"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Connect(cfg.DBConnStr)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	rdb, err := queue.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	defer rdb.Close()

	tokens := security.NewTokenManager(cfg.JWTKey, cfg.JWTExp)

	judgeClient := judge.NewHTTPClient(cfg.JudgeURL, cfg.JudgeAuthToken, logger)
	runner := judge.NewRunner(judgeClient, judge.PollConfig{
		Interval:    cfg.PollInterval,
		MaxInterval: cfg.PollMaxInterval,
		Deadline:    cfg.PollDeadline,
	}, logger)

	userRepo := repository.NewPgUserRepository(db)
	problemRepo := repository.NewPgProblemRepository(db)
	submissionRepo := repository.NewPgSubmissionRepository(db)

	quotaService := service.NewQuotaService(rdb, cfg.DailyUsageLimit, logger)
	authService := service.NewAuthService(userRepo, tokens)
	problemService := service.NewProblemService(problemRepo, runner, db, logger)
	submissionService := service.NewSubmissionService(
		submissionRepo, problemRepo, quotaService, runner, rdb, cfg.SubmissionQueueName, db, logger)

	executionWorker := worker.NewExecutionWorker(
		rdb, cfg.SubmissionQueueName, submissionRepo, problemRepo, runner, db, logger)
	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	go executionWorker.Start(workerCtx)

	router := api.NewRouter(tokens, authService, problemService, submissionService)
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("port", cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-stop

	logger.Info("shutting down")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server shutdown failed", zap.Error(err))
	}
	logger.Info("server and worker stopped")
}
