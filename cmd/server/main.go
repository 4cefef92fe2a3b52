// server is the retrieval core's HTTP binary: it wires the DI container
// (internal/di) and serves the thin JSON contract surface (internal/api)
// defined by spec.md §6, with graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ragmemory/internal/api"
	"ragmemory/internal/config"
	"ragmemory/internal/di"
)

func main() {
	addr := flag.String("addr", ":9080", "HTTP server address")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	container, err := di.NewContainer(cfg)
	if err != nil {
		log.Fatalf("wire dependency graph: %v", err)
	}
	defer func() {
		if err := container.Close(); err != nil {
			container.Logger.Warn("server: close container", "error", err)
		}
	}()

	httpServer := &http.Server{
		Addr:         *addr,
		Handler:      api.NewRouter(container),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		container.Logger.Info("server: listening", "addr", *addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		container.Logger.Info("server: shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			log.Fatalf("server: listen: %v", err)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("server: graceful shutdown failed", "error", err)
		fmt.Println("server: forced exit after shutdown timeout")
	}
}
