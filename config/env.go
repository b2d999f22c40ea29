package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

const EnvPrefix = "STOCKPILE_"

// Env holds the STOCKPILE_* variables. Durations are whole seconds.
type Env struct {
	RedisURL          string   `env:"REDIS_URL" envDefault:"redis://localhost:6379/1"`
	RedisSentinels    []string `env:"REDIS_SENTINELS" envSeparator:","`
	ConnectionPool    int      `env:"CONNECTION_POOL" envDefault:"100"`
	ConnectionTimeout int      `env:"CONNECTION_TIMEOUT" envDefault:"3"`
	LockExpiration    int      `env:"LOCK_EXPIRATION" envDefault:"10"`
	Slumber           int      `env:"SLUMBER" envDefault:"2"`
	Compression       bool     `env:"COMPRESSION" envDefault:"false"`
	ConfigurationFile string   `env:"CONFIGURATION_FILE"`
	DefaultDB         string   `env:"DEFAULT_DB" envDefault:"default"`
	LogLevel          string   `env:"LOG_LEVEL" envDefault:"info"`
}

func ParseEnv() (Env, error) {
	var e Env
	if err := env.ParseWithOptions(&e, env.Options{Prefix: EnvPrefix}); err != nil {
		return Env{}, fmt.Errorf("config: environment: %w", err)
	}
	if e.ConnectionPool < 0 || e.ConnectionTimeout < 0 || e.LockExpiration < 0 || e.Slumber < 0 {
		return Env{}, fmt.Errorf("config: negative value in %s* environment", EnvPrefix)
	}
	return e, nil
}

// Config is the single-database configuration described by the environment.
func (e Env) Config() Config {
	return Config{
		Default:        e.DefaultDB,
		LockExpiration: seconds(e.LockExpiration),
		Slumber:        seconds(e.Slumber),
		LogLevel:       e.LogLevel,
		Databases: []Database{{
			Name:        e.DefaultDB,
			URL:         e.RedisURL,
			Sentinels:   e.RedisSentinels,
			Compression: e.Compression,
			PoolSize:    e.ConnectionPool,
			PoolTimeout: seconds(e.ConnectionTimeout),
		}},
	}
}
