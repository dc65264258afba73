package service

import (
	"context"
	"log/slog"

	"github.com/ekisa-team/infero/predictor"
)

// RunOnce binds locator, runs setup and a single invocation, then releases
// the instance. It backs the one-shot predict and train commands.
func RunOnce(ctx context.Context, locator string, payload map[string]any, opts []predictor.Option, invokeOpts ...predictor.InvokeOption) (*predictor.Result, error) {
	b, err := predictor.Bind(locator, opts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := b.Close(); err != nil {
			slog.Warn("Failed to close predictor", "locator", locator, "error", err)
		}
	}()

	if err := b.Setup(ctx); err != nil {
		return nil, err
	}

	return b.Predict(ctx, payload, invokeOpts...)
}
