package main

import (
	"context"
	"path/filepath"
	"testing"

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
	t.Setenv("RECONCILE_INTERVAL", "0s")
}

func TestRunReturnsConfigErrors(t *testing.T) {
	setRunEnv(t)
	t.Setenv("NFT_CONTRACT_ADDRESS", "not-an-address")

	err := run(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestRunReturnsBootstrapErrors(t *testing.T) {
	setRunEnv(t)
	t.Setenv("PRIVATE_KEY", "not-a-key")

	err := run(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load operator key")
}
