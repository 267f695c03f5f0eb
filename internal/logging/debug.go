//go:build debug
// +build debug

package logging

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// New returns a new development logger.
func New() (*Logger, error) {
	l, err := zap.NewDevelopment()
	if err != nil {
		return nil, errors.Wrap(err, "cannot create logger")
	}
	return &Logger{SugaredLogger: l.Sugar()}, nil
}

// NewFile returns a new development logger and also writes the log output
// to files.
func NewFile(files ...string) (*Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = append(cfg.OutputPaths, files...)
	l, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "cannot create file logger")
	}
	return &Logger{SugaredLogger: l.Sugar()}, nil
}
