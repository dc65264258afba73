package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/ekisa-team/infero/internal/envvar"
)

// FileName is the conventional name of the configuration file.
const FileName = "infero.yaml"

const (
	defaultHTTPPort      = 8000
	defaultGRPCPort      = 8001
	defaultThreads       = 1
	defaultRoutePath     = "/v1/predict"
	defaultReadinessFile = "/var/lock/infero-readiness.lock"
)

// DefaultHTTPPort returns INFERO_HTTP_PORT or 8000.
func DefaultHTTPPort() int {
	return portFromEnv(envvar.InferoHTTPPort, defaultHTTPPort)
}

// DefaultGRPCPort returns INFERO_GRPC_PORT or 8001.
func DefaultGRPCPort() int {
	return portFromEnv(envvar.InferoGRPCPort, defaultGRPCPort)
}

func portFromEnv(name string, fallback int) int {
	if v := os.Getenv(name); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 && port < 65536 {
			return port
		}
	}
	return fallback
}

// DefaultConfigPath returns INFERO_CONFIG or ./infero.yaml.
func DefaultConfigPath() string {
	if p := os.Getenv(envvar.InferoConfigPath); p != "" {
		return p
	}
	return FileName
}

// DefaultCacheDir returns the default path for the INFERO cache directory.
func DefaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "infero")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Local", "infero", "cache")
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "infero")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
			return filepath.Join(xdg, "infero")
		}
		return filepath.Join(home, ".cache", "infero")
	}
}

// DefaultRoute is the route written by `infero init`.
func DefaultRoute() *RouteConfig {
	return &RouteConfig{
		Name:        "Predict",
		Description: "Make a single prediction",
		Path:        defaultRoutePath,
		Predictor:   "predict:Predictor",
		Response: &ResponseConfig{
			Type:        "PredictResponse",
			Description: "The generated text",
		},
		Tags: []string{"predict"},
	}
}

// Default returns the configuration written by `infero init`.
func Default() *File {
	return &File{
		Infero: Config{
			Server: ServerConfig{
				Name:        "Infero",
				Description: "Inference server",
				Version:     "0.1.0",
				HTTP: HTTPConfig{
					Host:      "0.0.0.0",
					Port:      defaultHTTPPort,
					AccessLog: true,
				},
				GRPC:          GRPCConfig{Port: defaultGRPCPort},
				Route:         DefaultRoute(),
				CacheDir:      DefaultCacheDir(),
				Threads:       defaultThreads,
				ReadinessFile: defaultReadinessFile,
			},
			Training: TrainingConfig{
				Trainer: "train:Trainer",
			},
		},
	}
}

// applyDefaults fills zero values left out of a loaded file.
func (f *File) applyDefaults() {
	s := &f.Infero.Server
	if s.Threads < 1 {
		s.Threads = defaultThreads
	}
	if s.HTTP.Port == 0 {
		s.HTTP.Port = DefaultHTTPPort()
	}
	if s.Route != nil && s.Route.Path == "" {
		s.Route.Path = defaultRoutePath
	}
}
