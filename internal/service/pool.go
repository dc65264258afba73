package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ekisa-team/infero/internal/config"
	"github.com/ekisa-team/infero/predictor"
	"github.com/ekisa-team/infero/schema"
)

// Pool holds one ready binding per worker thread. A request borrows a
// binding exclusively, so no predictor instance sees concurrent calls.
type Pool struct {
	route    config.RouteConfig
	bindings []*predictor.Binding
	workers  chan *predictor.Binding
}

// RouteOptions translates a route descriptor into binding options.
func RouteOptions(route *config.RouteConfig, loader *predictor.Loader) ([]predictor.Option, error) {
	opts := []predictor.Option{predictor.WithLoader(loader)}

	params, err := route.Parameters()
	if err != nil {
		return nil, err
	}
	if params != nil {
		opts = append(opts, predictor.WithParameters(params))
	}
	if name := route.ResponseName(); name != "" {
		opts = append(opts, predictor.WithResponseName(name))
	}

	return opts, nil
}

// NewPool loads and sets up threads instances of the route's predictor.
// Any load or setup failure aborts the whole pool.
func NewPool(ctx context.Context, route *config.RouteConfig, threads int, loader *predictor.Loader) (*Pool, error) {
	if threads < 1 {
		threads = 1
	}

	opts, err := RouteOptions(route, loader)
	if err != nil {
		return nil, &predictor.Error{Kind: predictor.KindLoad, Message: fmt.Sprintf("route %s: %v", route.Path, err), Err: err}
	}

	p := &Pool{
		route:   *route,
		workers: make(chan *predictor.Binding, threads),
	}

	for i := 0; i < threads; i++ {
		b, err := predictor.Bind(route.Predictor, opts...)
		if err != nil {
			p.closeBindings()
			return nil, err
		}
		p.bindings = append(p.bindings, b)

		if err := b.Setup(ctx); err != nil {
			p.closeBindings()
			return nil, err
		}

		p.workers <- b
		slog.Debug("Worker ready", "route", route.Path, "worker", i, "predictor", route.Predictor)
	}

	slog.Info("Predictor pool ready", "route", route.Path, "predictor", route.Predictor, "workers", threads)

	return p, nil
}

// Route returns the route the pool serves.
func (p *Pool) Route() config.RouteConfig {
	return p.route
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.bindings)
}

// Request returns the request schema shared by every worker.
func (p *Pool) Request() *schema.Request {
	return p.bindings[0].Request()
}

// Response returns the response schema shared by every worker.
func (p *Pool) Response() *schema.Response {
	return p.bindings[0].Response()
}

// Predict runs one prediction on a free worker.
func (p *Pool) Predict(ctx context.Context, payload map[string]any, opts ...predictor.InvokeOption) (*predictor.Result, error) {
	var b *predictor.Binding
	select {
	case b = <-p.workers:
	case <-ctx.Done():
		return nil, &predictor.Error{
			Kind:    predictor.KindExecution,
			Message: fmt.Sprintf("no worker available: %v", ctx.Err()),
			Err:     ctx.Err(),
		}
	}
	defer func() { p.workers <- b }()

	return b.Predict(ctx, payload, opts...)
}

// Close waits for in-flight predictions and releases every instance.
func (p *Pool) Close(ctx context.Context) error {
	for range p.bindings {
		select {
		case <-p.workers:
		case <-ctx.Done():
			return fmt.Errorf("service: pool drain: %w", ctx.Err())
		}
	}

	return p.closeBindings()
}

func (p *Pool) closeBindings() error {
	var errs []error
	for _, b := range p.bindings {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
