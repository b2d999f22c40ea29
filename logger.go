package stockpile

// Fields is a minimal structured field map for logs.
type Fields map[string]any

// Logger is a tiny leveled logger. Adapters for logrus, zap and slog live
// under log/. If Logger is nil in Options, logging is disabled.
//
// The cache logs branch decisions (lock won, contended, wait timed out) at
// Debug and degraded paths (failed release, corrupt entry) at Warn.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

type NopLogger struct{}

var _ Logger = NopLogger{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}
