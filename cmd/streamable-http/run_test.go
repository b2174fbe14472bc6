package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRunEnv(t *testing.T) {
	t.Helper()
	t.Setenv("RPC_URL", "http://127.0.0.1:1")
	t.Setenv("MARKETPLACE_ADDRESS", "0x2000000000000000000000000000000000000002")
	t.Setenv("NFT_CONTRACT_ADDRESS", "0x1000000000000000000000000000000000000001")
	t.Setenv("POSTGRES_URL", "")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "marketplace.db"))
	t.Setenv("PRIVATE_KEY", "")
	t.Setenv("JWKS_URI", "")
	t.Setenv("RECONCILE_INTERVAL", "0s")
	t.Setenv("LOG_LEVEL", "error")
}

func freePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())
	return port
}

func TestRunReturnsConfigErrors(t *testing.T) {
	setRunEnv(t)
	t.Setenv("RPC_URL", "")

	err := run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRunReturnsBootstrapErrors(t *testing.T) {
	setRunEnv(t)
	t.Setenv("PRIVATE_KEY", "not-a-key")

	err := run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize services")
	assert.Contains(t, err.Error(), "failed to load operator key")
}

func TestRunStopsWhenContextIsCancelled(t *testing.T) {
	setRunEnv(t)
	port := freePort(t)
	t.Setenv("PORT", fmt.Sprintf("%d", port))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx)
	}()

	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(healthURL)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}
