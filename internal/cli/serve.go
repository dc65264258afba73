package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/ekisa-team/infero/internal/config"
	grpcserver "github.com/ekisa-team/infero/internal/server/grpc"
	httpserver "github.com/ekisa-team/infero/internal/server/http"
	"github.com/ekisa-team/infero/internal/service"
	"github.com/ekisa-team/infero/internal/xfs"
)

const shutdownTimeout = 30 * time.Second

// runServe sets up every worker, then serves until ctx is cancelled. With
// watch set, changes to the config file rebind a fresh worker pool.
func (a *App) runServe(ctx context.Context, args []string, watch bool) error {
	name := "serve"
	if watch {
		name = "dev"
	}

	fs := a.flagSet(name)
	configPath := fs.StringP("config", "c", config.DefaultConfigPath(), "Path to "+config.FileName)
	httpPort := fs.Int("http-port", config.DefaultHTTPPort(), "HTTP port to listen on")
	grpcPort := fs.Int("grpc-port", config.DefaultGRPCPort(), "gRPC health port to listen on, 0 disables it")
	threads := fs.IntP("threads", "t", 0, "Worker threads, overrides server.threads")
	if err := parse(fs, args); err != nil {
		return err
	}

	override := func(cfg *config.File) {
		s := &cfg.Infero.Server
		if fs.Changed("http-port") {
			s.HTTP.Port = *httpPort
		}
		if fs.Changed("grpc-port") || s.GRPC.Port == 0 {
			s.GRPC.Port = *grpcPort
		}
		if *threads > 0 {
			s.Threads = *threads
		}
	}

	cfg, err := loadConfig(*configPath, true)
	if err != nil {
		return err
	}
	override(cfg)

	manager := service.NewManager(loaderFor(*configPath, cfg))

	if watch {
		watcher, err := config.NewWatcher(*configPath, "", func(f *config.File, err error) {
			if err != nil {
				slog.Error("Failed to reload config", "error", err)
				return
			}
			override(f)
			if err := manager.LoadFromConfig(ctx, f); err != nil {
				slog.Error("Failed to rebind predictor, keeping previous workers", "error", err)
				return
			}
			route := f.Infero.Server.Route
			if served := cfg.Infero.Server.Route; served != nil && route.Path != served.Path {
				slog.Warn("Route path changes take effect after a restart", "serving", served.Path, "configured", route.Path)
			}
			slog.Info("Predictor rebound", "predictor", route.Predictor)
		})
		if err != nil {
			return err
		}
		defer watcher.Close()
	}

	if err := manager.LoadFromConfig(ctx, cfg); err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := manager.Close(ctx); err != nil {
			slog.Error("Failed to close workers", "error", err)
		}
	}()

	s := cfg.Infero.Server
	pool := manager.Pool()
	metrics := httpserver.NewMetrics()

	httpSrv := httpserver.New(s, httpserver.Options{
		Route:     pool.Route(),
		Request:   pool.Request(),
		Response:  pool.Response(),
		Predictor: manager,
		Metrics:   metrics,
	})

	httpLis, err := httpSrv.Listen()
	if err != nil {
		return err
	}

	var (
		grpcSrv *grpcserver.Server
		grpcLis net.Listener
	)
	if s.GRPC.Port > 0 {
		grpcSrv = grpcserver.New(s.GRPC.Port)
		if grpcLis, err = grpcSrv.Listen(); err != nil {
			httpLis.Close()
			return err
		}
	}

	errs := make(chan error, 2)
	go func() { errs <- httpSrv.Serve(httpLis) }()
	if grpcSrv != nil {
		go func() { errs <- grpcSrv.Serve(grpcLis) }()
	}

	if s.ReadinessFile != "" {
		if err := xfs.Touch(s.ReadinessFile); err != nil {
			slog.Warn("Failed to write readiness file", "path", s.ReadinessFile, "error", err)
		}
		defer func() {
			if err := xfs.Remove(s.ReadinessFile); err != nil {
				slog.Warn("Failed to remove readiness file", "path", s.ReadinessFile, "error", err)
			}
		}()
	}
	metrics.SetReady(true)
	if grpcSrv != nil {
		grpcSrv.SetServing(true)
	}

	slog.Info("Server ready", "name", s.Name, "route", pool.Route().Path, "predictor", pool.Route().Predictor, "workers", pool.Size())

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutting down")
	case serveErr = <-errs:
		if serveErr != nil {
			serveErr = fmt.Errorf("server stopped: %w", serveErr)
		}
	}

	metrics.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if grpcSrv != nil {
		grpcSrv.Stop(shutdownCtx)
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		serveErr = errors.Join(serveErr, fmt.Errorf("http shutdown: %w", err))
	}

	return serveErr
}
