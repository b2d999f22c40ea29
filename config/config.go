// Package config resolves stockpile databases from the environment or a YAML
// file and opens a Redis-backed registry for them.
package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/stockpile"
	"github.com/unkn0wn-root/stockpile/store/redis"
)

// Config is the resolved configuration of all databases.
type Config struct {
	Default        string
	LockExpiration time.Duration
	Slumber        time.Duration
	LogLevel       string
	Databases      []Database
}

// Database describes one logical database and its connection pool.
type Database struct {
	Name        string
	URL         string
	Sentinels   []string
	Compression bool
	PoolSize    int
	PoolTimeout time.Duration

	// zero => Config-wide value
	LockExpiration time.Duration
	Slumber        time.Duration
}

// Load reads the environment and, when STOCKPILE_CONFIGURATION_FILE is set,
// the databases defined in that file.
func Load() (Config, error) {
	e, err := ParseEnv()
	if err != nil {
		return Config{}, err
	}
	if e.ConfigurationFile != "" {
		return LoadFile(e.ConfigurationFile, e)
	}
	return e.Config(), nil
}

// Options maps the config-wide timings onto stockpile.Options.
func (c Config) Options() stockpile.Options {
	return stockpile.Options{
		LockExpiration: c.LockExpiration,
		Slumber:        c.Slumber,
	}
}

// Open dials one client per database (each with its own pool) and builds the
// registry. Clients connect lazily; Open itself does no I/O.
func Open(ctx context.Context, cfg Config) (*stockpile.Registry, error) {
	if len(cfg.Databases) == 0 {
		return nil, errors.New("config: no databases configured")
	}
	dbs := make([]stockpile.Database, 0, len(cfg.Databases))
	closeAll := func() {
		for _, db := range dbs {
			_ = db.Store.Close(ctx)
		}
	}

	for _, d := range cfg.Databases {
		st, err := redis.Dial(redis.Options{
			URL:         d.URL,
			Sentinels:   d.Sentinels,
			PoolSize:    d.PoolSize,
			PoolTimeout: d.PoolTimeout,
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("config: database %q: %w", d.Name, err)
		}
		dbs = append(dbs, stockpile.Database{
			Name:           d.Name,
			Store:          st,
			Compression:    d.Compression,
			LockExpiration: d.LockExpiration,
			Slumber:        d.Slumber,
		})
	}

	reg, err := stockpile.NewRegistry(cfg.Default, dbs...)
	if err != nil {
		closeAll()
		return nil, err
	}
	return reg, nil
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
