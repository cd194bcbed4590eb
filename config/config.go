// Package config loads the swap router settings from .env, a YAML config file and
// SWAP_ROUTER_ environment variables.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is the prefix of every environment variable the router reads.
	EnvPrefix = "SWAP_ROUTER"

	// DefaultClassicBaseURL is the Classic swap API base.
	DefaultClassicBaseURL = "https://api.1inch.dev/swap/v6.0"
	// DefaultFusionBaseURL is the Fusion API base.
	DefaultFusionBaseURL = "https://api.1inch.dev/fusion"
	// DefaultHTTPTimeout bounds a single upstream request.
	DefaultHTTPTimeout = 30 * time.Second
	// DefaultSubmitTimeout bounds Fusion order submission after signing.
	DefaultSubmitTimeout = 30 * time.Second

	configName = ".swap-router"
	rpcPrefix  = "rpc_"
)

// Config holds the application configuration.
type Config struct {
	APIKey         string
	ClassicBaseURL string
	FusionBaseURL  string
	Referrer       string
	HTTPTimeout    time.Duration
	SubmitTimeout  time.Duration
	LogLevel       logrus.Level
	DatabaseURL    string
	PrivateKey     string
	// RpcUrls maps chain names to RPC endpoints.
	RpcUrls map[string]string
}

// Load reads the configuration. A missing .env or config file is not an error.
//
// Parameters:
// - paths: directories searched for .swap-router.yaml; defaults to $HOME and the working directory.
//
// Returns:
// - *Config: the configuration.
// - error: an error if a file exists but cannot be parsed or a value is invalid.
func Load(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "failed to load .env file")
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"$HOME", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetDefault("classic_base_url", DefaultClassicBaseURL)
	v.SetDefault("fusion_base_url", DefaultFusionBaseURL)
	v.SetDefault("http_timeout", DefaultHTTPTimeout)
	v.SetDefault("submit_timeout", DefaultSubmitTimeout)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	level, err := logrus.ParseLevel(v.GetString("log_level"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid log_level")
	}

	cfg := &Config{
		APIKey:         v.GetString("api_key"),
		ClassicBaseURL: v.GetString("classic_base_url"),
		FusionBaseURL:  v.GetString("fusion_base_url"),
		Referrer:       v.GetString("referrer"),
		HTTPTimeout:    v.GetDuration("http_timeout"),
		SubmitTimeout:  v.GetDuration("submit_timeout"),
		LogLevel:       level,
		DatabaseURL:    v.GetString("database_url"),
		PrivateKey:     v.GetString("private_key"),
		RpcUrls:        rpcUrls(v),
	}

	if cfg.HTTPTimeout <= 0 {
		return nil, errors.New("http_timeout must be positive")
	}
	if cfg.SubmitTimeout <= 0 {
		return nil, errors.New("submit_timeout must be positive")
	}
	return cfg, nil
}

// rpcUrls collects rpc.<chain> entries from the config file and SWAP_ROUTER_RPC_<CHAIN>
// environment variables. The environment wins.
func rpcUrls(v *viper.Viper) map[string]string {
	urls := make(map[string]string)
	for chain, url := range v.GetStringMapString("rpc") {
		urls[strings.ToLower(chain)] = url
	}

	envPrefix := EnvPrefix + "_" + strings.ToUpper(rpcPrefix)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, envPrefix) || value == "" {
			continue
		}
		urls[strings.ToLower(strings.TrimPrefix(key, envPrefix))] = value
	}
	return urls
}

// Logger returns a logrus logger at the configured level.
func (c *Config) Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)
	return logger
}
