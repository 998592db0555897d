package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chat-relay/auth"
	"chat-relay/infrastructure/ws"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/search"
	"chat-relay/services"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return exitConfig
	}

	if err := run(config); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		return exitRuntime
	}
	return exitOK
}

// run initializes every component, manages the server lifecycle, and
// centralizes error reporting so deferred cleanup always executes.
func run(config internal.Config) error {
	log := logs.GetLoggerFromString(config.LogLevel)

	censorRune, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}

	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = writer.Close()
	}()

	words, err := runtime.LoadCensoredWords()
	if err != nil {
		return err
	}
	moderator, err := moderation.NewModerator(words, censorRune)
	if err != nil {
		return fmt.Errorf("building moderator: %w", err)
	}

	monitor := observability.NewMonitor()
	repository := repositories.NewMessageRepository(db, log, config.LimitMessages)
	presence := runtime.NewPresence(log)
	membership := runtime.NewMembership()
	directory := runtime.NewStaticDirectory(config.Channels)
	pipeline := runtime.NewPipeline(
		log, membership, presence, directory, repository,
		&moderator, monitor, config.BufferSize,
	)
	index := search.NewIndex(writer, log)
	service := services.NewChatService(
		log, presence, membership, directory, repository, pipeline, index, monitor,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewEventFanout(log, pipeline.Events(), config.SinkTimeout).Add(index),
		workers.NewTelemetry(log, monitor, config.MetricInterval),
	)
	supDone := make(chan struct{})
	go func() {
		defer close(supDone)
		sup.Run(ctx)
	}()

	handler := ws.NewHandler(log, service, auth.NewVerifier([]byte(config.JWTSecret)), monitor, ws.Config{
		AuthTimeout:    config.AuthTimeout,
		MaxMessageSize: config.MaxMessageSize,
		SendBuffer:     config.ConnectionBufferSize,
		AllowedOrigins: config.AllowedOrigins,
	})

	mux := http.NewServeMux()
	mux.Handle("/ws", handler)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	srv := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting websocket server", "address", address, "at", time.Now().UTC())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("Forced shutdown", "error", err)
	}

	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")
	return nil
}
