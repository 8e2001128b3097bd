package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/polywhales/internal/server"
)

// clearEnv keeps the host environment from enabling optional components.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"STORE_BACKEND", "SUPABASE_URL", "SUPABASE_SERVICE_ROLE_KEY", "DATABASE_URL",
		"TELEGRAM_BOT_TOKEN", "REDIS_ADDR", "KAFKA_BROKERS", "SWEEP_BATCH_SIZE",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRun_NoWallets(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "store:\n  backend: memory\n")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", path}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var body struct {
		Data struct {
			Message string `json:"message"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &body))
	assert.Equal(t, server.MsgNoWallets, body.Data.Message)
}

func TestRun_ConfigError(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "store:\n  backend: rest\n")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", path}, &stdout, &stderr)
	assert.Equal(t, 1, code)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &body))
	assert.Equal(t, server.CodeConfigError, body.Error.Code)
	assert.Contains(t, stderr.String(), "failed to load config")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("stdout closed") }

func TestRun_ReportsWriteFailure(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "store:\n  backend: memory\n")

	var stderr bytes.Buffer
	code := run([]string{"-config", path}, failingWriter{}, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stderr.String(), "failed to write result")
}

func TestRun_BadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run([]string{"-nope"}, &stdout, &stderr))
	assert.Empty(t, stdout.String())
}
