package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// fileDatabase is one top-level entry of the YAML file:
//
//	sessions:
//	  url: redis://mymaster/2
//	  sentinels: "10.0.0.1:26379,10.0.0.2:26379"
//	  compression: true
//	  pool_options:
//	    size: 20
//	    timeout: 5
//	  lock_expiration: 30
//	  slumber: 5
type fileDatabase struct {
	URL         string `mapstructure:"url"`
	Sentinels   string `mapstructure:"sentinels"`
	Compression bool   `mapstructure:"compression"`
	PoolOptions struct {
		Size    int `mapstructure:"size"`
		Timeout int `mapstructure:"timeout"`
	} `mapstructure:"pool_options"`
	LockExpiration int `mapstructure:"lock_expiration"`
	Slumber        int `mapstructure:"slumber"`
}

// LoadFile reads database definitions from a YAML file. ${VAR} references
// are expanded before parsing. Settings a database omits fall back to base.
// Database names are case-insensitive and reported in lower case.
func LoadFile(path string, base Env) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(os.ExpandEnv(string(raw)))); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	names := make([]string, 0)
	for name, val := range v.AllSettings() {
		if _, ok := val.(map[string]any); !ok {
			return Config{}, fmt.Errorf("config: %s: %q is not a database section", path, name)
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return Config{}, fmt.Errorf("config: %s defines no databases", path)
	}
	sort.Strings(names)

	cfg := base.Config()
	cfg.Default = strings.ToLower(base.DefaultDB)
	cfg.Databases = make([]Database, 0, len(names))
	found := false
	for _, name := range names {
		var fd fileDatabase
		if err := v.UnmarshalKey(name, &fd); err != nil {
			return Config{}, fmt.Errorf("config: %s: database %q: %w", path, name, err)
		}
		if fd.PoolOptions.Size < 0 || fd.PoolOptions.Timeout < 0 || fd.LockExpiration < 0 || fd.Slumber < 0 {
			return Config{}, fmt.Errorf("config: %s: database %q has negative values", path, name)
		}
		cfg.Databases = append(cfg.Databases, fd.resolve(name, base))
		found = found || name == cfg.Default
	}
	if !found {
		return Config{}, fmt.Errorf("config: %s: default database %q is not defined", path, cfg.Default)
	}
	return cfg, nil
}

func (fd fileDatabase) resolve(name string, base Env) Database {
	d := Database{
		Name:           name,
		URL:            fd.URL,
		Sentinels:      splitSentinels(fd.Sentinels),
		Compression:    fd.Compression,
		PoolSize:       fd.PoolOptions.Size,
		PoolTimeout:    seconds(fd.PoolOptions.Timeout),
		LockExpiration: seconds(fd.LockExpiration),
		Slumber:        seconds(fd.Slumber),
	}
	if d.URL == "" {
		d.URL = base.RedisURL
	}
	if d.PoolSize == 0 {
		d.PoolSize = base.ConnectionPool
	}
	if d.PoolTimeout == 0 {
		d.PoolTimeout = seconds(base.ConnectionTimeout)
	}
	return d
}

func splitSentinels(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
