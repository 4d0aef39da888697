package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jackzampolin/lectern/internal/cache"
	"github.com/jackzampolin/lectern/internal/testutil"
)

// TestServer_CacheContainer starts the server with the packet cache enabled
// and checks that the container it started is stopped on shutdown.
// This test requires Docker to be running.
func TestServer_CacheContainer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	// Register cleanup for test containers
	_ = testutil.DockerClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	redisPort, err := testutil.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	containerName := testutil.UniqueContainerName(t, "cache")
	extra := fmt.Sprintf("cache:\n  enabled: true\n  addr: localhost:%s\n  port: \"%s\"\n  container_name: %s\n",
		redisPort, redisPort, containerName)

	cm, h, url := newTestConfig(t, extra)
	srv, err := New(Config{
		ConfigManager: cm,
		Home:          h,
		Logger:        testutil.Logger(),
		CacheLabels:   testutil.ContainerLabels(t),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	serverErr := make(chan error, 1)
	serverCtx, serverCancel := context.WithCancel(ctx)
	go func() {
		serverErr <- srv.Start(serverCtx)
	}()

	if err := testutil.WaitForServer(url, 90*time.Second); err != nil {
		serverCancel()
		t.Fatalf("server did not start: %v", err)
	}

	resp, err := http.Get(url + "/status")
	if err != nil {
		serverCancel()
		t.Fatalf("status failed: %v", err)
	}
	var status struct {
		Cache struct {
			Enabled   bool   `json:"enabled"`
			Container string `json:"container"`
			Health    string `json:"health"`
		} `json:"cache"`
	}
	json.NewDecoder(resp.Body).Decode(&status)
	resp.Body.Close()

	if !status.Cache.Enabled || status.Cache.Health != "healthy" {
		t.Errorf("cache status = %+v", status.Cache)
	}

	serverCancel()
	if err := testutil.WaitForShutdown(serverErr, 30*time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	mgr, err := cache.NewDockerManager(cache.DockerConfig{ContainerName: containerName})
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	defer mgr.Close()

	st, err := mgr.Status(ctx)
	if err != nil {
		t.Fatalf("failed to get status: %v", err)
	}
	if st == cache.StatusRunning {
		t.Error("cache container still running after shutdown")
		_ = mgr.Stop(ctx)
	}
}
