package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"platter/internal/config"
	"platter/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "path to the platter configuration file")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	development := flag.Bool("dev", false, "enable development logging output")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("platterd: load config: %v", err)
	}

	level := *logLevel
	if level == "" {
		level = cfg.Logging.Level
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel:    level,
		Development: *development,
	}); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "platterd: %v\n", err)
		os.Exit(1)
	}
}
