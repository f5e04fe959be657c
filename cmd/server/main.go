package main

import (
	"context"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"messenger/auth"
	"messenger/contract"
	"messenger/infrastructure/http"
	"messenger/infrastructure/ws"
	"messenger/internal"
	"messenger/moderation"
	"messenger/repositories"
	"messenger/runtime"
	"messenger/runtime/workers"
	"messenger/services"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer executes before the process
// exits and main stays trivially testable.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.LoggerFromLevel(config.LogLevel)

	// 2. Database (Postgres via gorm)
	db, err := gorm.Open(postgres.Open(config.DatabaseDSN), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	if err := db.AutoMigrate(repositories.Models()...); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	defer func() {
		log.Info("Closing database...")
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	// 3. Moderation
	censored, err := moderation.LoadCensoredWords()
	if err != nil {
		return fmt.Errorf("loading censored words: %w", err)
	}
	replacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}
	moderator, err := moderation.NewModerator(censored.Words, replacement)
	if err != nil {
		return fmt.Errorf("building moderator: %w", err)
	}
	log.Info("Moderation ready",
		"words", len(censored.Words), "languages", censored.Languages)

	// 4. Repositories, registry, engines
	chats := repositories.NewChatRepository(db)
	members := repositories.NewMemberRepository(db)
	messages := repositories.NewMessageRepository(db)
	files := repositories.NewFileRepository(db)
	users := repositories.NewUserRepository(db)

	registry := runtime.NewRegistry()
	locks := runtime.NewKeyedMutex()
	pushes := make(chan contract.PushEvent, config.PushBufferSize)

	directService := services.NewDirectChatService(
		chats, members, messages, files, users, locks, &moderator, pushes, log)
	groupService := services.NewGroupChatService(
		chats, members, messages, files, users, locks, &moderator, pushes, log)

	// 5. Supervision: event fanout + health monitoring
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewEventFanout(log, registry, pushes),
		workers.NewHealthMonitoringWorker(log, config.MetricInterval),
	)
	go sup.Run(ctx)

	// 6. Transport: websocket gateway + read-only HTTP queries
	tokens := auth.NewTokens(config.JWTSecret)
	gateway := ws.NewGateway(
		&tokens, registry, directService, groupService,
		config.ConnectionBufferSize, config.SinkTimeout, log)
	router := http.NewRouter(directService, groupService, &tokens, gateway.Handle, log)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &nethttp.Server{Addr: address, Handler: router}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != nethttp.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// 7. Wait for stop or error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("Server shutdown incomplete", "error", err)
	}
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
