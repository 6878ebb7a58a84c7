package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"splice/internal/config"
	"splice/internal/daemonrun"
)

func main() {
	configFlag := flag.String("config", "", "path to the configuration file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Secrets such as SPLICE_API_TOKEN may live in a local .env file.
	_ = godotenv.Load()

	cfg, _, _, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	if err := daemonrun.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("spliced: %v", err)
	}
}
