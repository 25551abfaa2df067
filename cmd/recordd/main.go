// Package main implements recordd, a process that hosts tuplestore shards of
// (int64, string, int64) records behind a JSON HTTP API.
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│                recordd                  │
//	├─────────────────────────────────────────┤
//	│  HTTP API:                              │
//	│    /health          - Health check      │
//	│    /info            - Node information  │
//	│    /shard/*         - Shard operations  │
//	├─────────────────────────────────────────┤
//	│  Components:                            │
//	│    server.Node - Runtime state          │
//	│    shards map  - Active shards          │
//	│    middleware  - Request IDs, logging   │
//	└─────────────────────────────────────────┘
//
// Configuration (see internal/config):
//   - RECORDD_CONFIG: optional YAML file
//   - NODE_ID: node identifier (default: "node-1")
//   - NODE_LISTEN: listen address (default: ":8081")
//   - NODE_SHARDS: shards created at startup (default: 1)
//   - LOG_LEVEL, LOG_FORMAT: logging
//
// Example usage:
//
//	NODE_ID=node-1 NODE_LISTEN=:8081 ./recordd
//
//	curl -X POST localhost:8081/shard/0/records \
//	  -d '{"first":0,"second":"a","third":1}'
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dreamware/tuplestore/internal/config"
	"github.com/dreamware/tuplestore/internal/server"
	"github.com/dreamware/tuplestore/internal/shard"
)

// exit is a variable to allow tests to intercept process termination
var exit = os.Exit

// newServer builds the HTTP server for cfg with its shards pre-created
func newServer(cfg config.Config, logger *slog.Logger) (*http.Server, *server.Node) {
	node := server.NewNode(cfg.NodeID)
	for i := 0; i < cfg.Shards; i++ {
		node.AddShard(shard.NewShard[int64, string, int64](i))
	}

	return &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.NewHandler(node, logger),
		ReadHeaderTimeout: 5 * time.Second, // Prevent slowloris attacks
	}, node
}

// main loads configuration and serves until SIGINT or SIGTERM, then shuts the
// HTTP server down gracefully.
//
// Exit codes:
//   - 0: Normal shutdown via signal
//   - 1: Invalid configuration or failed to start HTTP server
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		exit(1)
		return
	}

	logger := server.NewLogger(cfg, os.Stderr)
	s, _ := newServer(cfg, logger)
	logger.Info("node initialized", "shards", cfg.Shards)

	go func() {
		logger.Info("listening", "addr", cfg.Listen)
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", "error", err)
			exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	logger.Info("node stopped")
}
