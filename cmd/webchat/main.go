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

	"github.com/VenB304/fabric-simple-webchat/internal/app"
	"github.com/VenB304/fabric-simple-webchat/internal/config"
	"github.com/VenB304/fabric-simple-webchat/internal/game"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	configPath := flag.String("config", defaultConfigPath(), "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Without a real game host, the console stands in for it: stdin lines
	// are in-game chat, web traffic prints to stdout.
	console := game.NewConsole(os.Stdin, os.Stdout)

	application, err := app.New(cfg, console)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	console.SetEvents(application.Bridge())
	console.Start(ctx)
	defer console.Stop()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("application error: %w", err)
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-signalCh
	log.Printf("received signal %v, shutting down gracefully", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := application.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}

func defaultConfigPath() string {
	if path := os.Getenv("WEBCHAT_CONFIG_FILE"); path != "" {
		return path
	}
	return "web-chat.yaml"
}
