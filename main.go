package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/peternagy/mongoplug/internal/config"
	"github.com/peternagy/mongoplug/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	host, err := config.LoadHost()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	log := logger.New(logger.Options{Debug: host.Debug, File: host.LogFile})
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewApp(host, log).Run(ctx); err != nil {
		log.Errorw("mongoplug stopped", "error", err)
		return 1
	}
	return 0
}
