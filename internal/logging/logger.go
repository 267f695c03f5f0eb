// Package logging wraps the zap logger shared by the conversion components.
package logging

import (
	"github.com/fatih/color"
	"go.uber.org/zap"
)

// Logger encapsulates a Logger and module which it belongs to.
// Use this through SetLogger() of each component.
type Logger struct {
	*zap.SugaredLogger
	module string
}

type LogSetter interface {
	SetLogger(*Logger)
}

// Module returns (stylised) module name.
func (l *Logger) Module() string {
	return l.module
}

// Named returns a Logger sharing the output of l, tagged with module.
func (l *Logger) Named(module string, c color.Attribute) *Logger {
	return &Logger{
		SugaredLogger: l.SugaredLogger,
		module:        color.New(c).Sprint(module),
	}
}

// Nop returns a Logger discarding everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// OrNop returns l, or a discarding Logger if l is nil.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return Nop()
	}
	return l
}
