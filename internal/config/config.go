// Package config loads service configuration from layered sources:
// built-in defaults, a JSON config file at $XDG_CONFIG_HOME/recsd/config.json,
// and RECSD_* environment variables, each layer overriding the previous.
// The API token is secret and therefore environment-only (RECSD_API_TOKEN).
package config

import "fmt"

type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Recommend RecommendConfig
}

type ServerConfig struct {
	Host string
	Port int

	// APIToken guards the admin routes when non-empty. Secret: never
	// written to the config file backend.
	APIToken string
}

type LogConfig struct {
	Level string
}

// RecommendConfig bounds the k parameter before it reaches the engine.
type RecommendConfig struct {
	DefaultK int
	MaxK     int
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 5000,
		},
		Log: LogConfig{
			Level: "info",
		},
		Recommend: RecommendConfig{
			DefaultK: 8,
			MaxK:     50,
		},
	}
}

// Load reads configuration from the file backend and applies environment
// overrides.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Recommend.DefaultK < 1 || cfg.Recommend.MaxK < 1 {
		return Config{}, fmt.Errorf("recommend.default_k and recommend.max_k must be positive (got %d, %d)",
			cfg.Recommend.DefaultK, cfg.Recommend.MaxK)
	}
	if cfg.Recommend.DefaultK > cfg.Recommend.MaxK {
		return Config{}, fmt.Errorf("recommend.default_k (%d) exceeds recommend.max_k (%d)",
			cfg.Recommend.DefaultK, cfg.Recommend.MaxK)
	}

	return cfg, nil
}
