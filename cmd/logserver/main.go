package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cleptogk/logger/internal/classify"
	"github.com/cleptogk/logger/internal/config"
	"github.com/cleptogk/logger/internal/extract"
	"github.com/cleptogk/logger/internal/index"
	"github.com/cleptogk/logger/internal/ingest"
	"github.com/cleptogk/logger/internal/query"
	"github.com/cleptogk/logger/internal/server"
	"github.com/cleptogk/logger/internal/store"
	"github.com/cleptogk/logger/internal/watch"
)

func main() {
	port := flag.Int("port", 8080, "HTTP port to listen on")
	root := flag.String("root", "", "Log tree root (overrides LOG_ROOT)")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *root != "" {
		cfg.LogRoot = *root
	}

	log.Println("Log indexer started...")

	st := store.Dial(cfg.RedisAddr(), cfg.RedisDB)
	defer st.Close()
	if err := st.Ping(context.Background()); err != nil {
		log.Printf("Redis not reachable yet: %v", err)
	}

	classifier := classify.New(classify.DefaultTable(), cfg.Hosts, cfg.Applications, classify.DefaultStepNames())
	extractor := extract.New(cfg.Timezone)
	writer := index.NewWriter(st, cfg.RetentionTTL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher := watch.NewDispatcher(cfg.LogRoot, 1000, classifier, writer)
	if err := dispatcher.Start(ctx); err != nil {
		log.Fatalf("Failed to start file watcher: %v", err)
	}

	pool := ingest.NewPool(dispatcher.Queue(), st, classifier, extractor, writer,
		cfg.Workers, cfg.MaxLinesPerFile, cfg.MaxFileSize)
	pool.Start(ctx)

	go dispatcher.RunRescanLoop(ctx, cfg.RescanInterval)

	engine, err := query.NewEngine(st, cfg.Timezone, cfg.CacheTTL)
	if err != nil {
		log.Fatalf("Failed to create query engine: %v", err)
	}

	srv := server.New(engine, dispatcher, cfg.Timezone)
	addr := fmt.Sprintf(":%d", *port)

	go func() {
		log.Printf("Listening on %s", addr)
		if err := srv.Start(addr); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("Received signal: %v. Shutting down...", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	cancel()
	pool.Wait()

	log.Println("Log indexer exited gracefully.")
}
