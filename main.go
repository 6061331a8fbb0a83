package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/arpanpaul-gh/InMemory-DB/internal/app"
	"github.com/arpanpaul-gh/InMemory-DB/internal/config"
	"github.com/arpanpaul-gh/InMemory-DB/internal/logger"
	"github.com/arpanpaul-gh/InMemory-DB/internal/version"
	"github.com/arpanpaul-gh/InMemory-DB/pkg/format"
)

func main() {
	startTime := time.Now()
	vlog := log.New(log.Writer(), "", 0)
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.PrintVersionInfo(true, vlog)
		os.Exit(0)
	}
	version.PrintVersionInfo(false, vlog)

	cfg, err := config.Load(func() {
		slog.Info("configuration file changed; restart to apply")
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logInstance, cleanup, err := logger.New(&logger.Config{
		Level:      cfg.Logging.Level,
		FileOutput: cfg.Logging.FileOutput,
		LogDir:     cfg.Logging.Dir,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()
	slog.SetDefault(logInstance)

	logInstance.Info("initialising", "version", version.Version, "pid", os.Getpid())

	// setup: graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logInstance.Info("shutdown signal received", "signal", sig.String())
		cancel()
	}()

	application, err := app.New(cfg, logInstance)
	if err != nil {
		logInstance.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	if err := application.Start(ctx); err != nil {
		logInstance.Error("failed to start application", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()

	if err := application.Stop(context.Background()); err != nil {
		logInstance.Error("error during shutdown", "error", err)
	}

	reportProcessStats(logInstance, startTime)
	logInstance.Info("shutdown complete")
}

func reportProcessStats(log *slog.Logger, startTime time.Time) {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	log.Info("process stats",
		"uptime", format.Duration(time.Since(startTime)),
		"heap_alloc", format.Bytes(stats.HeapAlloc),
		"total_alloc", format.Bytes(stats.TotalAlloc),
		"num_gc", stats.NumGC,
		"goroutines", runtime.NumGoroutine(),
	)
}
