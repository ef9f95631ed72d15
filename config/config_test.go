package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"escalade", "esv"}, cfg.ModelKeywords)
	assert.True(t, cfg.NewOnly)
	assert.Equal(t, 25*time.Second, cfg.RequestTimeout)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SCANNER_DEALERS", "input/dealers.csv")
	t.Setenv("SCANNER_KEYWORDS", " Escalade, ESV ,V-Series,")
	t.Setenv("SCANNER_NEW_ONLY", "false")
	t.Setenv("SCANNER_WORKERS", "4")
	t.Setenv("SCANNER_TIMEOUT", "10s")
	t.Setenv("SCANNER_BROWSER", "true")
	t.Setenv("DB_PORT", "5433")

	cfg := DefaultConfig()
	require.NoError(t, cfg.applyEnv())

	assert.Equal(t, "input/dealers.csv", cfg.DealersPath)
	assert.Equal(t, []string{"escalade", "esv", "v-series"}, cfg.ModelKeywords)
	assert.False(t, cfg.NewOnly)
	assert.Equal(t, 4, cfg.MaxWorkers)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.UseBrowser)
	assert.Equal(t, 5433, cfg.DBPort)
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	t.Setenv("SCANNER_WORKERS", "many")
	t.Setenv("SCANNER_TIMEOUT", "soon")

	cfg := DefaultConfig()
	err := cfg.applyEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCANNER_WORKERS")
	assert.Contains(t, err.Error(), "SCANNER_TIMEOUT")
	assert.Equal(t, 1, cfg.MaxWorkers)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxWorkers = 0
	cfg.TopN = 0
	cfg.ModelKeywords = nil
	cfg.MinDelay = 2 * time.Second
	cfg.MaxDelay = time.Second

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
	assert.Contains(t, err.Error(), "top")
	assert.Contains(t, err.Error(), "keyword")
	assert.Contains(t, err.Error(), "delay")
}

func TestSplitKeywords(t *testing.T) {
	assert.Equal(t, []string{"escalade", "esv"}, SplitKeywords("Escalade,,ESV"))
	assert.Nil(t, SplitKeywords(" , "))
}
