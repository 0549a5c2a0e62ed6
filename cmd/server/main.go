package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"linequery/internal/config"
	"linequery/internal/logger"
	"linequery/internal/network"
)

func main() {
	// Flags
	configPath := flag.String("config", "server.conf", "Path to the key=value server config")
	optionsPath := flag.String("options", "", "Path to the YAML runtime options (optional)")
	algorithm := flag.String("algorithm", "", "Search algorithm used in reread mode")
	buffer := flag.String("buffer", "", "Buffer used when reread_on_query is false (name or 0-3)")
	host := flag.String("host", "", "Address to bind")
	quiet := flag.Bool("quiet", false, "Disable info logging (log only errors)")
	flag.Parse()

	// 0. Options
	opts, err := config.LoadOptions(*optionsPath)
	if err != nil {
		logger.Fatal("Failed to load options: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "algorithm":
			opts.Server.Algorithm = *algorithm
		case "buffer":
			opts.Server.Buffer = *buffer
		case "host":
			opts.Server.Host = *host
		}
	})
	if *quiet {
		opts.Logging.Level = "error"
	}
	if err := opts.Validate(); err != nil {
		logger.Fatal("Invalid options: %v", err)
	}

	// 1. Logging Setup
	if err := logger.Init(opts.Logging); err != nil {
		logger.Fatal("Failed to init logging: %v", err)
	}
	defer logger.Shutdown()

	logger.Info("----------------------------------------")
	logger.Info("Line query server initializing...")

	// 2. Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}
	logger.Info("Loaded config %s: %s", *configPath, cfg)

	// 3. Server (builds the buffer index in buffer mode)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := network.NewServer(ctx, cfg, opts)
	if err != nil {
		logger.Fatal("Failed to init server: %v", err)
	}
	if err := server.Start(); err != nil {
		logger.Fatal("Server error: %v", err)
	}

	logger.Info("Server started on %s. Press Ctrl+C to stop.", server.Addr())
	<-ctx.Done()
	stop()
	logger.Info("Shutting down...")

	// The pool gets the configured grace; connection handlers get a little
	// longer to unwind after it.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.Server.ShutdownGrace+2*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown finished with errors: %v", err)
	}
}
