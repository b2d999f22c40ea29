package redis

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Options describes how to reach one logical database.
type Options struct {
	// URL in redis://[user:pass@]host:port/db form. With Sentinels set, the URL
	// host is the sentinel master name (redis://mymaster/1).
	URL       string
	Sentinels []string // host:port of sentinel nodes; empty => direct connection

	PoolSize    int           // 0 => 100
	PoolTimeout time.Duration // 0 => 3s
}

func (o Options) withDefaults() Options {
	if o.URL == "" {
		o.URL = "redis://localhost:6379/1"
	}
	if o.PoolSize <= 0 {
		o.PoolSize = 100
	}
	if o.PoolTimeout <= 0 {
		o.PoolTimeout = 3 * time.Second
	}
	return o
}

// Dial builds a client for opts and wraps it in a store that owns it.
// No connection is opened until the first command.
func Dial(opts Options) (*Redis, error) {
	uo, err := universalOptions(opts)
	if err != nil {
		return nil, err
	}
	return New(Config{Client: goredis.NewUniversalClient(uo), CloseClient: true})
}

func universalOptions(opts Options) (*goredis.UniversalOptions, error) {
	opts = opts.withDefaults()

	if len(opts.Sentinels) == 0 {
		po, err := goredis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("redis store: parse url: %w", err)
		}
		return &goredis.UniversalOptions{
			Addrs:        []string{po.Addr},
			DB:           po.DB,
			Username:     po.Username,
			Password:     po.Password,
			TLSConfig:    po.TLSConfig,
			DialTimeout:  po.DialTimeout,
			ReadTimeout:  po.ReadTimeout,
			WriteTimeout: po.WriteTimeout,
			PoolSize:     opts.PoolSize,
			PoolTimeout:  opts.PoolTimeout,
		}, nil
	}

	// sentinel URLs name the master instead of a host, so ParseURL can't be used
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("redis store: parse url: %w", err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("redis store: sentinel url %q has no master name", opts.URL)
	}
	uo := &goredis.UniversalOptions{
		Addrs:       opts.Sentinels,
		MasterName:  u.Hostname(),
		PoolSize:    opts.PoolSize,
		PoolTimeout: opts.PoolTimeout,
	}
	if u.User != nil {
		uo.Username = u.User.Username()
		uo.Password, _ = u.User.Password()
	}
	if db := strings.TrimLeft(u.Path, "/"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("redis store: invalid database number %q", db)
		}
		uo.DB = n
	}
	return uo, nil
}
