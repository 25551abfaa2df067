package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dreamware/tuplestore/internal/config"
)

// TestNewServer tests server construction from configuration
func TestNewServer(t *testing.T) {
	tests := []struct {
		name   string
		shards int
	}{
		{name: "no preallocated shards", shards: 0},
		{name: "single shard", shards: 1},
		{name: "several shards", shards: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Listen = ":0"
			cfg.Shards = tt.shards

			srv, node := newServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

			if srv.Addr != ":0" {
				t.Errorf("Expected addr :0, got %s", srv.Addr)
			}
			if srv.ReadHeaderTimeout == 0 {
				t.Error("Expected ReadHeaderTimeout to be set")
			}
			if got := len(node.ShardInfos()); got != tt.shards {
				t.Errorf("Expected %d shards, got %d", tt.shards, got)
			}
			for i := 0; i < tt.shards; i++ {
				if node.GetShard(i) == nil {
					t.Errorf("Shard %d was not created", i)
				}
			}
		})
	}
}

// TestServerHandler verifies the handler wired into the server serves requests
func TestServerHandler(t *testing.T) {
	cfg := config.Default()
	srv, _ := newServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/shard/0/records", "application/json",
		strings.NewReader(`{"first":0,"second":"a","third":1}`))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("Expected 201, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}
