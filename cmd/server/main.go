package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fabfab/vectordb/internal/config"
	"github.com/fabfab/vectordb/internal/embeddings"
	"github.com/fabfab/vectordb/internal/server"
	"github.com/fabfab/vectordb/internal/vecdb"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("vectordb dev build")
		return
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	embedder := embeddings.NewRemoteEmbedder(
		cfg.Embed.Endpoint,
		cfg.Embed.APIKey,
		cfg.Embed.Model,
		cfg.Embed.Dimension,
		cfg.Embed.Timeout,
	)

	db := vecdb.NewDatabase()
	srv := server.New(cfg, db, embedder)

	httpServer := &http.Server{
		Addr:    cfg.Address,
		Handler: srv,
	}

	log.Printf("starting server on %s (embedding model: %s, dimension: %d)", cfg.Address, cfg.Embed.Model, cfg.Embed.Dimension)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	waitForShutdown(httpServer)
}

func waitForShutdown(srv *http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		if err := srv.Close(); err != nil {
			log.Printf("forced close failed: %v", err)
		}
	}

	log.Println("server stopped")
}
