// Package zap adapts a zap.Logger to stockpile.Logger.
package zap

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/stockpile"
)

var _ stockpile.Logger = Logger{}

type Logger struct{ L *zap.Logger }

func New(l *zap.Logger) Logger { return Logger{L: l.Named("stockpile")} }

func (z Logger) Debug(msg string, f stockpile.Fields) { z.L.Debug(msg, zf(f)...) }
func (z Logger) Info(msg string, f stockpile.Fields)  { z.L.Info(msg, zf(f)...) }
func (z Logger) Warn(msg string, f stockpile.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z Logger) Error(msg string, f stockpile.Fields) { z.L.Error(msg, zf(f)...) }

// zf emits fields in key order with typed encoders for the common kinds.
func zf(f stockpile.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		switch v := f[k].(type) {
		case error:
			out = append(out, zap.NamedError(k, v))
		case time.Duration:
			out = append(out, zap.Duration(k, v))
		case string:
			out = append(out, zap.String(k, v))
		default:
			out = append(out, zap.Any(k, v))
		}
	}
	return out
}
