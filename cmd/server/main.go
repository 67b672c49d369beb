package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tyrowin/roomchat/internal/auth"
	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/config"
	"github.com/Tyrowin/roomchat/internal/server"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes reported to the service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "roomchat terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires the process together and blocks until a signal or a fatal
// server error. Deferred cleanup always runs before main exits.
func run() (int, error) {
	// 1. Configuration & Logger
	cfg, err := config.Load()
	if err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage
	backend, err := openBackend(ctx, cfg, log)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		log.Info("closing store", "driver", cfg.StoreDriver)
		if err := backend.Close(); err != nil {
			log.Error("store close failed", "error", err)
		}
	}()

	// 3. Core & transport
	hub := server.NewHub(server.OptionsFrom(cfg), log)
	hub.Bind(chat.NewRouter(chat.Deps{
		Auth:      auth.NewJWTAuthenticator([]byte(cfg.JWTSecret)),
		Store:     backend,
		Directory: backend,
		Rooms:     hub,
		Log:       log,
	}))
	go hub.Run()

	httpServer := server.CreateServer(cfg.Port, server.SetupRoutes(hub))

	errChan := make(chan error, 1)
	go func() {
		if err := server.StartServer(httpServer, log); err != nil {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 4. Wait for Stop or Error
	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down gracefully")
	case serveErr = <-errChan:
	}

	// 5. Final Cleanup
	timeout := cfg.ShutdownTimeout()
	shutdownErr := errors.Join(
		server.ShutdownServer(httpServer, timeout, log),
		hub.Shutdown(timeout),
	)
	if serveErr != nil {
		return exitRuntime, serveErr
	}
	if shutdownErr != nil {
		return exitRuntime, fmt.Errorf("shutdown: %w", shutdownErr)
	}

	log.Info("server stopped cleanly")
	return exitOK, nil
}
