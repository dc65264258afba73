// Package cli implements the infero command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/ekisa-team/infero/internal/config"
	"github.com/ekisa-team/infero/internal/xfs"
	"github.com/ekisa-team/infero/predictor"
)

const usage = `Usage: infero <command> [flags]

Commands:
  init      Write a default infero.yaml
  predict   Run one prediction and print the result
  train     Run one training call and print the result
  serve     Serve the configured route over HTTP
  dev       Serve and rebind the predictor when infero.yaml changes

Run "infero <command> --help" for command flags.
`

// pluginDir is the cache subdirectory searched for compiled predictors.
const pluginDir = "plugins"

// errUsage marks errors already reported together with usage text.
var errUsage = errors.New("usage")

// App holds the streams commands read from and write to.
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewApp returns an App bound to the process streams.
func NewApp() *App {
	return &App{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run dispatches args to a command and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(a.Stderr, usage)
		return 2
	}

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "init":
		err = a.runInit(rest)
	case "predict":
		err = a.runOnce(ctx, rest, predictor.PredictMethod)
	case "train":
		err = a.runOnce(ctx, rest, predictor.TrainMethod)
	case "serve":
		err = a.runServe(ctx, rest, false)
	case "dev":
		err = a.runServe(ctx, rest, true)
	case "help", "-h", "--help":
		fmt.Fprint(a.Stdout, usage)
		return 0
	default:
		fmt.Fprintf(a.Stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, pflag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		fmt.Fprintf(a.Stderr, "Error: %v\n", err)
		return 1
	}
}

func (a *App) flagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.Stderr)
	return fs
}

func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

// loadConfig loads path. A missing file is reported only when required.
func loadConfig(path string, required bool) (*config.File, error) {
	if !config.Exists(path) {
		if required {
			return nil, fmt.Errorf("%w: %s, run \"infero init\" first", config.ErrNotFound, path)
		}
		return nil, nil
	}
	return config.Load(path)
}

// loaderFor searches the config directory, the working directory and the
// plugin cache, in that order.
func loaderFor(path string, cfg *config.File) *predictor.Loader {
	opts := []predictor.LoaderOption{predictor.WithConfigDir(config.Dir(path))}
	if cfg != nil && cfg.Infero.Server.CacheDir != "" {
		opts = append(opts, predictor.WithSearchPath(filepath.Join(xfs.ExpandTilde(cfg.Infero.Server.CacheDir), pluginDir)))
	}
	return predictor.NewLoader(opts...)
}
