// Package main runs the Graphable HTTP API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"graphable/internal/app"
	"graphable/internal/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "graphable-server: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("graphable-server", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "Path to a YAML config file")
	fs.String("listen-addr", "", "Address the HTTP API listens on")
	fs.String("meta-db-path", "", "SQLite metadata store path")
	fs.String("log-level", "", "Log level (debug, info, warn, error)")
	fs.String("env", "", "Deployment environment (development, production)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath, fs)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	scheme := "http"
	if cfg.TLSCertFile != "" {
		scheme = "https"
	}
	logger.Info("try: curl " + scheme + "://" + curlHostForListenAddr(cfg.ListenAddr) + "/healthz")

	return a.Serve(ctx)
}

// curlHostForListenAddr turns a listen address into a host:port a local
// client can dial.
func curlHostForListenAddr(listenAddr string) string {
	addr := strings.TrimSpace(listenAddr)
	if addr == "" {
		return "localhost:8080"
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}
