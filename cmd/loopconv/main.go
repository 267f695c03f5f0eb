// Command loopconv rewrites the loops of a syntax tree into calls of a
// structured-loop primitive and prints the resulting source.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nickng/loopconv/ast"
	"github.com/nickng/loopconv/config"
	"github.com/nickng/loopconv/convert"
	"github.com/nickng/loopconv/internal/logging"
)

var (
	configPath string
	logPath    string
	showRaw    bool
	watch      bool
)

var rootCmd = &cobra.Command{
	Use:   "loopconv [flags] tree.yaml [tree.yaml...]",
	Short: "Rewrite loops into structured-loop calls",
	Long: `loopconv reads syntax trees in YAML form, rewrites every while and for
loop inside their functions into condition/body closures with explicit state
accessors, and prints the rewritten source.`,
	Example: `  loopconv tree.yaml                  # print rewritten source
  loopconv --raw tree.yaml            # print loop classification only
  loopconv --log - tree.yaml          # log analysis to stderr
  loopconv --watch a.yaml b.yaml      # convert again on every change`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		b, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(b)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (YAML)")
	rootCmd.Flags().StringVar(&logPath, "log", "", "Specify analysis log file (use '-' for stderr)")
	rootCmd.Flags().BoolVar(&showRaw, "raw", false, "Show loop classification instead of rewritten source")
	rootCmd.Flags().BoolVar(&watch, "watch", false, "Convert again whenever an input file changes")
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "loopconv:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func newLogger() (*logging.Logger, error) {
	switch logPath {
	case "":
		return logging.Nop(), nil
	case "-":
		return logging.New()
	default:
		return logging.NewFile(logPath)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	var failed bool
	for _, path := range args {
		if err := convertFile(cfg, logger, path, out); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "loopconv: %v\n", err)
			failed = true
		}
	}
	if watch {
		return watchFiles(cfg, logger, args, out, cmd.ErrOrStderr())
	}
	if failed {
		return errors.New("conversion failed")
	}
	return nil
}

func convertFile(cfg *config.Config, logger *logging.Logger, path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	mod, err := ast.Decode(f)
	if err != nil {
		return errors.Wrap(err, path)
	}
	c := convert.New(cfg)
	c.SetLogger(logger)
	c.Raw = showRaw
	convErr := c.Convert(mod)
	if _, err := c.WriteTo(w); err != nil {
		return err
	}
	if convErr != nil {
		return errors.Wrap(convErr, path)
	}
	return nil
}

// watchFiles converts a file again every time it is written, until the
// watcher fails.
func watchFiles(cfg *config.Config, logger *logging.Logger, paths []string, out, errOut io.Writer) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "cannot watch inputs")
	}
	defer w.Close()

	// Watch directories: editors often replace files instead of writing them.
	inputs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		inputs[abs] = true
		if err := w.Add(filepath.Dir(abs)); err != nil {
			return errors.Wrapf(err, "cannot watch %s", p)
		}
	}
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil || !inputs[abs] {
				continue
			}
			fmt.Fprintf(out, "# %s\n", ev.Name)
			if err := convertFile(cfg, logger, ev.Name, out); err != nil {
				fmt.Fprintf(errOut, "loopconv: %v\n", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return errors.Wrap(err, "watch failed")
		}
	}
}
