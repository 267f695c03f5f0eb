//go:build !debug
// +build !debug

package logging

import (
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// New returns a new logger with default options.
func New() (*Logger, error) {
	color.NoColor = true
	l, err := zap.NewProduction()
	if err != nil {
		return nil, errors.Wrap(err, "cannot create logger")
	}
	return &Logger{SugaredLogger: l.Sugar()}, nil
}

// NewFile returns a new logger and also writes the log output to files.
func NewFile(files ...string) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = append(cfg.OutputPaths, files...)
	l, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "cannot create file logger")
	}
	return &Logger{SugaredLogger: l.Sugar()}, nil
}
