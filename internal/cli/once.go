package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ekisa-team/infero/internal/config"
	"github.com/ekisa-team/infero/internal/service"
	"github.com/ekisa-team/infero/predictor"
)

var (
	errNoPredictor = errors.New("no predictor configured, set route.predictor or pass --predictor")
	errNoTrainer   = errors.New("no trainer configured, set training.trainer or pass --predictor")
)

// runOnce backs predict and train: one instance, one call.
func (a *App) runOnce(ctx context.Context, args []string, method string) error {
	fs := a.flagSet(method)
	configPath := fs.StringP("config", "c", config.DefaultConfigPath(), "Path to "+config.FileName)
	payload := fs.StringP("payload", "p", "{}", "JSON object passed to the predictor")
	locator := fs.String("predictor", "", "Locator overriding the configured one, module:Symbol")
	echo := fs.Bool("echo", false, "Include the validated payload in the response")
	if err := parse(fs, args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath, fs.Changed("config"))
	if err != nil {
		return err
	}

	loader := loaderFor(*configPath, cfg)
	opts := []predictor.Option{predictor.WithLoader(loader), predictor.WithEntryOperation(method)}

	target := *locator
	if target == "" {
		switch {
		case cfg == nil:
		case method == predictor.TrainMethod:
			target = cfg.Infero.Training.Trainer
		case cfg.Infero.Server.Route != nil:
			route := cfg.Infero.Server.Route
			target = route.Predictor
			routeOpts, err := service.RouteOptions(route, loader)
			if err != nil {
				return err
			}
			opts = append(routeOpts, predictor.WithEntryOperation(method))
			*echo = *echo || route.EchoInput
		}
	}
	if target == "" {
		if method == predictor.TrainMethod {
			return errNoTrainer
		}
		return errNoPredictor
	}

	data, err := predictor.DecodePayload([]byte(*payload))
	if err != nil {
		return err
	}

	res, err := service.RunOnce(ctx, target, data, opts, predictor.WithInputEcho(*echo))
	if err != nil {
		return err
	}

	return a.printResult(res)
}

// printResult prints a bare string result verbatim and anything else as the
// packaged response indented by four spaces.
func (a *App) printResult(res *predictor.Result) error {
	if s, ok := res.Value.(string); ok && !res.Structured() && res.Input == nil {
		_, err := fmt.Fprintln(a.Stdout, s)
		return err
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "    "); err != nil {
		return err
	}
	out.WriteByte('\n')

	_, err = a.Stdout.Write(out.Bytes())
	return err
}
