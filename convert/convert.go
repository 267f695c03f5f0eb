// Package convert is the entry point of the loop conversion pass: it
// analyses a decoded module and rewrites the loops of its functions.
package convert

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/nickng/loopconv/ast"
	"github.com/nickng/loopconv/config"
	"github.com/nickng/loopconv/internal/logging"
	"github.com/nickng/loopconv/loop"
	"github.com/nickng/loopconv/names"
	"github.com/nickng/loopconv/transform"
)

// Converter is the main loop conversion entry point.
type Converter struct {
	Config *config.Config

	// Raw skips the rewrite and prints the loop classification above the
	// unmodified source.
	Raw bool

	mod    *ast.Module
	report []string
	*logging.Logger
}

// New returns a Converter using cfg, or the default configuration if cfg
// is nil.
func New(cfg *config.Config) *Converter {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Converter{Config: cfg, Logger: logging.Nop()}
}

// SetLogger sets logger for Converter.
func (c *Converter) SetLogger(l *logging.Logger) {
	c.Logger = logging.OrNop(l)
}

// AddLogFiles replaces the current Logger with one also writing to files.
func (c *Converter) AddLogFiles(files ...string) error {
	l, err := logging.NewFile(files...)
	if err != nil {
		return err
	}
	c.Logger = l
	return nil
}

// Convert rewrites the loops of every function defined at the top level of
// mod, in place. A function whose loops cannot be rewritten is reported in
// the returned error and the other functions are still converted.
// Loops outside functions are left untouched.
func (c *Converter) Convert(mod *ast.Module) error {
	// Sync error ignored. See https://github.com/uber-go/zap/issues/328
	defer c.Logger.Sync()

	c.mod = mod
	c.report = nil

	analyser := loop.NewAnalyser(c.Config)
	analyser.SetLogger(c.Logger)
	res, err := analyser.Analyse(mod)
	if err != nil {
		return errors.Wrap(err, "analysis failed")
	}
	if c.Raw {
		for _, l := range res.Loops() {
			info, err := res.Info(l)
			if err != nil {
				return err
			}
			c.report = append(c.report, info.String())
		}
		return nil
	}

	pool := names.NewPool()
	reserve(pool, mod)
	rw := transform.New(transform.FromResult(res),
		transform.WithConfig(c.Config),
		transform.WithGenerator(pool))
	rw.SetLogger(c.Logger)

	var errs error
	for _, s := range mod.Body {
		fn, ok := s.(*ast.FunctionDef)
		if !ok {
			continue
		}
		if err := checkFacts(res, fn); err != nil {
			c.Logger.Errorf("function %s left unchanged: %v", fn.Name, err)
			errs = multierr.Append(errs, errors.Wrapf(err, "function %s", fn.Name))
			continue
		}
		if err := rw.RewriteFunc(fn); err != nil {
			c.Logger.Errorf("cannot convert function %s: %v", fn.Name, err)
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// WriteTo writes the last converted module to w.
func (c *Converter) WriteTo(w io.Writer) (int64, error) {
	if c.mod == nil {
		return 0, nil
	}
	var written int64
	for _, line := range c.report {
		n, err := fmt.Fprintf(w, "# %s\n", line)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	n, err := io.WriteString(w, ast.Source(c.mod))
	return written + int64(n), err
}

// checkFacts classifies every loop of fn before any of it is rewritten, so
// a precondition failure leaves fn unchanged.
func checkFacts(res *loop.Result, fn *ast.FunctionDef) error {
	var err error
	ast.Inspect(fn, func(n ast.Node) bool {
		if err != nil {
			return false
		}
		if l, ok := n.(ast.Loop); ok {
			_, err = res.Info(l)
		}
		return true
	})
	return err
}

// reserve registers every identifier of mod so generated names never
// shadow them.
func reserve(pool *names.Pool, mod *ast.Module) {
	ast.Inspect(mod, func(n ast.Node) bool {
		var ids []string
		switch n := n.(type) {
		case *ast.Name:
			ids = append(ids, n.ID)
		case *ast.FunctionDef:
			ids = append(append(ids, n.Name), n.Args...)
		case *ast.Nonlocal:
			ids = n.Names
		case *ast.Global:
			ids = n.Names
		}
		for _, id := range ids {
			if !pool.Used(id) {
				pool.Reserve(id)
			}
		}
		return true
	})
}
