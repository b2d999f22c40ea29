// Command stockpile inspects and invalidates entries of stockpile-managed
// Redis databases.
//
//	stockpile databases
//	stockpile get user:42 --db sessions
//	stockpile ttl user:42
//	stockpile expire user:42
//	stockpile renew user:42 --ttl 10m
//	stockpile locked user:42
//
// Databases come from STOCKPILE_* variables or the YAML file named by
// --config (or STOCKPILE_CONFIGURATION_FILE).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/stockpile"
	"github.com/unkn0wn-root/stockpile/config"
	stockzap "github.com/unkn0wn-root/stockpile/log/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(openFromConfig).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "stockpile:", err)
		os.Exit(1)
	}
}

// openFromConfig loads the configuration (the file overriding the
// environment's choice when path is set) and opens the registry.
func openFromConfig(ctx context.Context, path string) (*stockpile.Stockpile, *zap.Logger, error) {
	env, err := config.ParseEnv()
	if err != nil {
		return nil, nil, err
	}
	if path == "" {
		path = env.ConfigurationFile
	}
	cfg := env.Config()
	if path != "" {
		if cfg, err = config.LoadFile(path, env); err != nil {
			return nil, nil, err
		}
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	reg, err := config.Open(ctx, cfg)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}

	opts := cfg.Options()
	opts.Logger = stockzap.New(logger)
	sp, err := stockpile.New(reg, opts)
	if err != nil {
		_ = reg.Close(ctx)
		return nil, nil, err
	}
	logger.Debug("registry opened", zap.Strings("databases", reg.Names()), zap.String("default", reg.Default()))
	return sp, logger, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(strings.ToLower(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.Encoding = "console"
	zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	zc.OutputPaths = []string{"stderr"}
	zc.DisableStacktrace = true
	return zc.Build()
}
