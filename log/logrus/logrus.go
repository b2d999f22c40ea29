// Package logrus adapts a logrus entry to stockpile.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/stockpile"
)

var _ stockpile.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

// New tags every record with component=stockpile.
func New(l *logrus.Logger) Logger {
	return Logger{E: l.WithField("component", "stockpile")}
}

func (l Logger) Debug(msg string, f stockpile.Fields) { l.entry(f).Debug(msg) }
func (l Logger) Info(msg string, f stockpile.Fields)  { l.entry(f).Info(msg) }
func (l Logger) Warn(msg string, f stockpile.Fields)  { l.entry(f).Warn(msg) }
func (l Logger) Error(msg string, f stockpile.Fields) { l.entry(f).Error(msg) }

// entry moves an "err" field to logrus.ErrorKey so hooks that look for it
// (sentry, etc.) see the error.
func (l Logger) entry(f stockpile.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	lf := make(logrus.Fields, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			lf[logrus.ErrorKey] = err
			continue
		}
		lf[k] = v
	}
	return l.E.WithFields(lf)
}
