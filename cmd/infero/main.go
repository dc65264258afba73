package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ekisa-team/infero/internal/cli"
	"github.com/ekisa-team/infero/internal/env"
	"github.com/ekisa-team/infero/internal/envvar"
	"github.com/ekisa-team/infero/internal/logger"

	_ "github.com/ekisa-team/infero/examples/predict"
	_ "github.com/ekisa-team/infero/examples/train"
)

func main() {
	environment := env.FromEnv()

	opts := []logger.Option{logger.WithWriter(os.Stderr)}
	if path := os.Getenv(envvar.InferoLogFile); path != "" {
		opts = append(opts, logger.WithLogToFile(true), logger.WithLogFile(path))
	}
	slog.SetDefault(logger.New(environment, opts...))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.NewApp().Run(ctx, os.Args[1:])
	stop()

	os.Exit(code)
}
