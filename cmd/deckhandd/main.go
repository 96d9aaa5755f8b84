package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/deckhand/deckhand/internal/buildinfo"
	"github.com/deckhand/deckhand/internal/config"
	"github.com/deckhand/deckhand/internal/daemon"
)

func main() {
	var showVersion bool
	var configPath string

	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	if showVersion {
		fmt.Println(buildinfo.String())
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatalf("deckhandd: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := daemon.Run(ctx, cfg); err != nil {
		log.Fatalf("deckhandd: %v", err)
	}
}

// loadConfig reads the config file when one exists; a missing default
// config file falls back to built-in defaults, but an explicit --config
// that cannot be read is fatal.
func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg := config.DefaultConfig()
	if _, err := os.Stat(cfg.ConfigPath); err == nil {
		return config.Load(cfg.ConfigPath)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
