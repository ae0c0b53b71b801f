package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStockPolicyHolderReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stock_policy.yml")
	require.NoError(t, os.WriteFile(path, []byte(`inventory:
  defaultMinAlertStock: 5
  defaultMaxStockLevel: 100
  lowStockEvents: false
`), 0o600))

	holder, err := NewStockPolicyHolder(Config{StockPolicyPath: path})
	require.NoError(t, err)

	policy := holder.Get()
	assert.Equal(t, 5.0, policy.DefaultMinAlertStock)
	assert.Equal(t, 100.0, policy.DefaultMaxStockLevel)
	assert.False(t, policy.LowStockEvents)
}

func TestNewStockPolicyHolderRejectsInvertedThresholds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stock_policy.yml")
	require.NoError(t, os.WriteFile(path, []byte(`inventory:
  defaultMinAlertStock: 50
  defaultMaxStockLevel: 10
`), 0o600))

	_, err := NewStockPolicyHolder(Config{StockPolicyPath: path})
	require.Error(t, err)
}

func TestStockPolicyHolderNilFallsBackToDefaults(t *testing.T) {
	var holder *StockPolicyHolder
	assert.Equal(t, DefaultStockPolicy(), holder.Get())
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LOCK_BACKEND", "")
	t.Setenv("UOW_MAX_ATTEMPTS", "not-a-number")
	t.Setenv("OUTBOX_POLL_INTERVAL", "250ms")

	cfg := Load()
	assert.Equal(t, LockBackendLocal, cfg.Lock.Backend)
	assert.Equal(t, 5, cfg.UOW.MaxAttempts)
	assert.Equal(t, "250ms", cfg.Events.PollInterval.String())
}
