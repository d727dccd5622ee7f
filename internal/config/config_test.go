package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/image-compressor/internal/compress"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: ":9090"
storage:
  endpoint: "localhost:9000"
  bucket_name: "images"
kafka:
  brokers: ["a:9092", "b:9092"]
  topic: "jobs"
  group_id: "g"
retry:
  attempts: 5
  delay: 250ms
  backoff: 1.5
compress:
  result: "blob"
  fix: false
  max_width: 640
  max_height: 480
  quality: 70
  decode_timeout: 3s
  native_blob: false
kv:
  path: ":memory:"
  prefix: "app-"
jobs:
  ttl: 1h
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.HTTPPort)
	assert.Equal(t, "localhost:9000", cfg.Storage.Endpoint)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5, cfg.Retry.Attempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.Delay)
	assert.Equal(t, "app-", cfg.KV.Prefix)
	assert.Equal(t, time.Hour, cfg.Jobs.TTL)

	cc := cfg.Compress.Compressor()
	assert.Equal(t, compress.ResultBlob, cc.Defaults.Result)
	assert.False(t, cc.Defaults.Fix)
	assert.Equal(t, 640, cc.Defaults.MaxWidth)
	assert.Equal(t, 480, cc.Defaults.MaxHeight)
	assert.Equal(t, 70, cc.Defaults.Quality)
	assert.Equal(t, 3*time.Second, cc.DecodeTimeout)
	assert.False(t, cc.NativeBlob)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  http_port: \":8081\"\n"))
	require.NoError(t, err)

	assert.Equal(t, compress.DefaultConfig(), cfg.Compress.Compressor())
	assert.Equal(t, ":memory:", cfg.KV.Path)
	assert.Equal(t, "ls-", cfg.KV.Prefix)
	assert.Equal(t, 24*time.Hour, cfg.Jobs.TTL)
	assert.Equal(t, 3, cfg.Retry.Attempts)
}

func TestLoadEnvOverridesSecrets(t *testing.T) {
	t.Setenv("MINIO_ACCESS_KEY", "access")
	t.Setenv("MINIO_SECRET_KEY", "secret")

	cfg, err := Load(writeConfig(t, "storage:\n  access_key: \"\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "access", cfg.Storage.AccessKey)
	assert.Equal(t, "secret", cfg.Storage.SecretKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}
