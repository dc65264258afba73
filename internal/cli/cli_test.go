package cli

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/ekisa-team/infero/examples/predict"
	_ "github.com/ekisa-team/infero/examples/train"
	"github.com/ekisa-team/infero/internal/config"
)

type run struct {
	code   int
	stdout string
	stderr string
}

func runApp(t *testing.T, stdin string, args ...string) run {
	t.Helper()

	var stdout, stderr bytes.Buffer
	app := &App{Stdin: strings.NewReader(stdin), Stdout: &stdout, Stderr: &stderr}
	code := app.Run(context.Background(), args)

	return run{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeRouteConfig(t *testing.T, mutate func(*config.File)) string {
	t.Helper()

	cfg := config.Default()
	cfg.Infero.Server.Route.Predictor = "examples.predict:Predictor"
	cfg.Infero.Server.Route.Response = nil
	cfg.Infero.Server.ReadinessFile = filepath.Join(t.TempDir(), "ready.lock")
	cfg.Infero.Training.Trainer = "examples.train:Trainer"
	if mutate != nil {
		mutate(cfg)
	}

	path := filepath.Join(t.TempDir(), config.FileName)
	require.NoError(t, cfg.Save(path))

	return path
}

func TestPredict_PrintsStringVerbatim(t *testing.T) {
	r := runApp(t, "", "predict", "--predictor", "examples.predict:Predictor", "--payload", `{"prompt": "world"}`)

	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "hello world\n", r.stdout)
}

func TestPredict_FromConfig(t *testing.T) {
	path := writeRouteConfig(t, nil)

	r := runApp(t, "", "predict", "-c", path, "-p", `{"prompt": "there", "repeat": 2}`)

	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "hello there hello there\n", r.stdout)
}

func TestPredict_EchoPrintsIndentedEnvelope(t *testing.T) {
	r := runApp(t, "", "predict", "--predictor", "examples.predict:Predictor", "--echo", "--payload", `{"prompt": "x"}`)

	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "\n    \"inference_time_seconds\": ")
	assert.Contains(t, r.stdout, "\n    \"input\": {\n        \"prompt\": \"x\",")
	assert.Contains(t, r.stdout, "\n    \"result\": \"hello x\"")
}

func TestPredict_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{
			name:     "malformed payload",
			args:     []string{"--predictor", "examples.predict:Predictor", "--payload", `{"prompt": `},
			contains: "invalid JSON payload",
		},
		{
			name:     "missing module",
			args:     []string{"--predictor", "nomodule:Predictor"},
			contains: "nomodule:Predictor",
		},
		{
			name:     "validation",
			args:     []string{"--predictor", "examples.predict:Predictor", "--payload", `{"repeat": "2"}`},
			contains: "prompt",
		},
		{
			name:     "missing config",
			args:     []string{"-c", filepath.Join(os.TempDir(), "does-not-exist", config.FileName)},
			contains: "not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := runApp(t, "", append([]string{"predict"}, tt.args...)...)

			assert.Equal(t, 1, r.code)
			assert.True(t, strings.HasPrefix(r.stderr, "Error:"), r.stderr)
			assert.Contains(t, r.stderr, tt.contains)
			assert.Empty(t, r.stdout)
		})
	}
}

func TestTrain_PrintsStructuredResult(t *testing.T) {
	path := writeRouteConfig(t, nil)

	r := runApp(t, "", "train", "-c", path, "-p", `{"dataset": "a b a", "top_k": 1}`)

	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "{\n    \"epochs\": 3,\n    \"tokens\": 3,\n    \"top\": [\n        \"a\"\n    ],\n    \"vocabulary\": 2\n}\n", r.stdout)
}

func TestUsage(t *testing.T) {
	assert.Equal(t, 2, runApp(t, "").code)
	assert.Equal(t, 2, runApp(t, "", "bogus").code)
	assert.Equal(t, 2, runApp(t, "", "predict", "--bogus").code)
	assert.Equal(t, 0, runApp(t, "", "help").code)
	assert.Equal(t, 0, runApp(t, "", "predict", "--help").code)
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)

	r := runApp(t, "", "init", "-c", dir, "-d")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Initialized successfully")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Infero.Server.Name, cfg.Infero.Server.Name)

	r = runApp(t, "", "init", "-c", dir, "-d")
	require.Equal(t, 0, r.code)
	assert.Contains(t, r.stdout, "Already initialized.")

	answers := "Demo\n\n2.0.0\n127.0.0.1\n9100\ny\nn\nn\n"
	r = runApp(t, answers, "init", "-c", dir, "--force")
	require.Equal(t, 0, r.code, r.stderr)

	cfg, err = config.Load(path)
	require.NoError(t, err)

	s := cfg.Infero.Server
	assert.Equal(t, "Demo", s.Name)
	assert.Equal(t, "2.0.0", s.Version)
	assert.Equal(t, "127.0.0.1", s.HTTP.Host)
	assert.Equal(t, 9100, s.HTTP.Port)
	assert.True(t, s.HTTP.Debug)
	assert.False(t, s.HTTP.AccessLog)
	assert.Nil(t, s.Route)
}

func TestInit_InvalidPort(t *testing.T) {
	r := runApp(t, "Demo\n\n\n\nnope\n", "init", "-c", t.TempDir())

	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, `invalid port "nope"`)
}

func TestServe_ReadinessFile(t *testing.T) {
	ready := filepath.Join(t.TempDir(), "ready.lock")
	path := writeRouteConfig(t, func(cfg *config.File) {
		cfg.Infero.Server.HTTP.Host = "127.0.0.1"
		cfg.Infero.Server.ReadinessFile = ready
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stderr bytes.Buffer
	app := &App{Stdin: strings.NewReader(""), Stdout: &bytes.Buffer{}, Stderr: &stderr}

	done := make(chan int, 1)
	go func() {
		done <- app.Run(ctx, []string{"serve", "-c", path, "--http-port", "0", "--grpc-port", "0", "--threads", "2"})
	}()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(ready)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case code := <-done:
		assert.Equal(t, 0, code, stderr.String())
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}

	_, err := os.Stat(ready)
	assert.True(t, os.IsNotExist(err))
}

func TestServe_SetupFailureExits(t *testing.T) {
	path := writeRouteConfig(t, func(cfg *config.File) {
		cfg.Infero.Server.Route.Predictor = "nomodule:Predictor"
	})

	r := runApp(t, "", "serve", "-c", path, "--http-port", "0", "--grpc-port", "0")

	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "nomodule:Predictor")
}

func TestServe_BusyPortNeverSignalsReady(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	ready := filepath.Join(t.TempDir(), "ready.lock")
	path := writeRouteConfig(t, func(cfg *config.File) {
		cfg.Infero.Server.HTTP.Host = "127.0.0.1"
		cfg.Infero.Server.ReadinessFile = ready
	})

	r := runApp(t, "", "serve", "-c", path, "--http-port", strconv.Itoa(port), "--grpc-port", "0")

	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "failed to listen")

	_, err = os.Stat(ready)
	assert.True(t, os.IsNotExist(err))
}
