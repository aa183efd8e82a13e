// Package main - Entry point for the timbercalc API server
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"timbercalc/api"
	"timbercalc/internal/app"
	"timbercalc/internal/config"
	"timbercalc/internal/logging"
)

const version = "1.0.0"

func main() {
	cfgPath := flag.String("config", os.Getenv("TIMBERCALC_CONFIG"), "Config file (JSON or YAML)")
	addr := flag.String("addr", "", "Server address (default from config)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
	defer logging.Sync()

	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logging.Named("server"))
	if err != nil {
		logging.Error("startup failed", zap.Error(err))
		os.Exit(1)
	}
	defer a.Close()

	fmt.Printf("timbercalc API server v%s\n", version)
	fmt.Printf("   API: http://localhost%s/api/v1\n", cfg.Server.Addr)
	fmt.Println()

	if err := api.NewServer(a, version).ListenAndServe(ctx, cfg.Server.Addr); err != nil {
		logging.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}
