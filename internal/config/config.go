package config

import (
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-compressor/internal/compress"
	"github.com/aliskhannn/image-compressor/internal/storage/kv"
)

// Config holds the main configuration for the application.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Storage  Storage  `mapstructure:"storage"`
	Kafka    Kafka    `mapstructure:"kafka"`
	Retry    Retry    `mapstructure:"retry"`
	Compress Compress `mapstructure:"compress"`
	KV       KV       `mapstructure:"kv"`
	Jobs     Jobs     `mapstructure:"jobs"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort string `mapstructure:"http_port"` // HTTP port to listen on
}

// Storage holds configuration for the object storage backend.
type Storage struct {
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// Kafka holds configuration for the Kafka message queue.
type Kafka struct {
	GroupID string   `mapstructure:"group_id"` // Consumer group ID
	Topic   string   `mapstructure:"topic"`    // Kafka topic name
	Brokers []string `mapstructure:"brokers"`  // List of Kafka broker addresses
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// Compress holds the default compression options.
type Compress struct {
	Result        string        `mapstructure:"result"` // base64 or blob
	Fix           bool          `mapstructure:"fix"`
	MaxWidth      int           `mapstructure:"max_width"`
	MaxHeight     int           `mapstructure:"max_height"`
	Quality       int           `mapstructure:"quality"`
	DecodeTimeout time.Duration `mapstructure:"decode_timeout"`
	NativeBlob    bool          `mapstructure:"native_blob"`
}

// KV holds configuration for the key-value store.
type KV struct {
	Path   string `mapstructure:"path"` // buntdb file, or ":memory:"
	Prefix string `mapstructure:"prefix"`
}

// Jobs holds configuration for compression jobs.
type Jobs struct {
	TTL time.Duration `mapstructure:"ttl"` // how long job records are kept
}

// Compressor converts the section into a compressor configuration.
func (c Compress) Compressor() compress.Config {
	defaults := compress.DefaultOptions()
	defaults.Result = compress.ResultFormat(c.Result)
	defaults.Fix = c.Fix
	defaults.MaxWidth = c.MaxWidth
	defaults.MaxHeight = c.MaxHeight
	defaults.Quality = c.Quality

	return compress.Config{
		Defaults:      defaults,
		DecodeTimeout: c.DecodeTimeout,
		NativeBlob:    c.NativeBlob,
	}
}

// setDefaults registers values used when the config file omits a key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", ":8080")
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", time.Second)
	v.SetDefault("retry.backoff", 2.0)

	v.SetDefault("compress.result", string(compress.ResultBase64))
	v.SetDefault("compress.fix", true)
	v.SetDefault("compress.max_width", compress.DefaultMaxWidth)
	v.SetDefault("compress.max_height", compress.DefaultMaxHeight)
	v.SetDefault("compress.quality", compress.DefaultQuality)
	v.SetDefault("compress.decode_timeout", compress.DefaultDecodeTimeout)
	v.SetDefault("compress.native_blob", true)

	v.SetDefault("kv.path", ":memory:")
	v.SetDefault("kv.prefix", kv.DefaultPrefix)
	v.SetDefault("jobs.ttl", 24*time.Hour)
}

// mustBindEnv binds critical environment variables to Viper keys.
//
// It panics if any environment variable cannot be bound.
func mustBindEnv(v *viper.Viper) {
	bindings := map[string]string{
		"storage.access_key": "MINIO_ACCESS_KEY",
		"storage.secret_key": "MINIO_SECRET_KEY",
		"storage.endpoint":   "MINIO_ENDPOINT",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			zlog.Logger.Panic().Err(err).Msgf("failed to bind env %s", env)
		}
	}
}

// Load reads the configuration from the YAML file at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	mustBindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad loads the configuration from the specified file path.
// It panics if the configuration file cannot be loaded or unmarshaled.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to load config")
	}

	return cfg
}
