package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"hargalist/internal/config"
	"hargalist/internal/listener"
	"hargalist/internal/llm"
	"hargalist/internal/pipeline"
	"hargalist/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	var client *llm.Client
	if cfg.LLMAPIKey != "" {
		client = llm.NewClient(cfg)
	}
	pipe := pipeline.NewService(db, cfg, client)

	svc := listener.NewService(db, cfg, pipe)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
