package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/infero/internal/envvar"
	"github.com/ekisa-team/infero/schema"
)

const sampleYAML = `
infero:
  server:
    name: Cogito ergo infero
    description: Inference server
    version: 1.0.0
    http:
      host: 127.0.0.1
      port: 9000
    route:
      name: Predict
      path: /v1/predict
      predictor: predict:Predictor
      args:
        - name: prompt
          type: str
          description: The prompt to generate text from
        - name: temperature
          type: float
          default: 0.5
      response:
        type: PredictResponse
      tags: [predict]
    threads: 2
  training:
    trainer: train:Trainer
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	s := cfg.Infero.Server
	assert.Equal(t, "Cogito ergo infero", s.Name)
	assert.Equal(t, 9000, s.HTTP.Port)
	assert.Equal(t, 2, s.Threads)
	assert.Equal(t, "train:Trainer", cfg.Infero.Training.Trainer)

	route, err := cfg.Route()
	require.NoError(t, err)
	assert.Equal(t, "predict:Predictor", route.Predictor)
	assert.Equal(t, "PredictResponse", route.ResponseName())

	params, err := route.Parameters()
	require.NoError(t, err)
	assert.Equal(t, []schema.Parameter{
		{Name: "prompt", Type: schema.String, Required: true, Description: "The prompt to generate text from"},
		{Name: "temperature", Type: schema.Float, Default: 0.5},
	}, params)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	t.Setenv(envvar.InferoHTTPPort, "")

	cfg, err := Load(writeConfig(t, `
infero:
  server:
    name: minimal
    route:
      path: /predict
      predictor: predict:Predictor
`))
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Infero.Server.Threads)
	assert.Equal(t, 8000, cfg.Infero.Server.HTTP.Port)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Load(writeConfig(t, "infero: [unterminated"))
	assert.ErrorContains(t, err, "invalid YAML")

	_, err = Load(writeConfig(t, `
infero:
  server:
    name: bad
    threads: 0
    route:
      path: no-slash
      predictor: nocolon
`))
	assert.ErrorContains(t, err, "validation failed")

	_, err = Load(writeConfig(t, `
infero:
  server:
    name: bad
    unknown_key: true
`))
	assert.ErrorContains(t, err, "validation failed")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	require.NoError(t, Default().Save(path))
	assert.True(t, Exists(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Infero.Server.Route, cfg.Infero.Server.Route)
	assert.Equal(t, Default().Infero.Server.HTTP, cfg.Infero.Server.HTTP)
}

func TestRoute_Missing(t *testing.T) {
	f := &File{}
	_, err := f.Route()
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestArgConfig_Parameter(t *testing.T) {
	no := false

	p, err := ArgConfig{Name: "tags", Type: "list[str]", Required: &no}.Parameter()
	require.NoError(t, err)
	assert.False(t, p.Required)
	assert.Equal(t, schema.ListOf(schema.String), p.Type)

	p, err = ArgConfig{Name: "maybe", Type: "optional[int]"}.Parameter()
	require.NoError(t, err)
	assert.False(t, p.Required)

	_, err = ArgConfig{Name: "x", Type: "tensor"}.Parameter()
	assert.ErrorIs(t, err, schema.ErrUnknownType)
}

func TestDefaultPorts(t *testing.T) {
	t.Setenv(envvar.InferoHTTPPort, "9100")
	t.Setenv(envvar.InferoGRPCPort, "not-a-port")

	assert.Equal(t, 9100, DefaultHTTPPort())
	assert.Equal(t, 8001, DefaultGRPCPort())
}

func TestWatcher_Reload(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	var (
		mu    sync.Mutex
		names []string
	)
	w, err := NewWatcher(path, "", func(f *File, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err == nil {
			names = append(names, f.Infero.Server.Name)
		}
	})
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, "Cogito ergo infero", w.Snapshot().Infero.Server.Name)

	updated := []byte(`
infero:
  server:
    name: reloaded
    route:
      path: /v1/predict
      predictor: predict:Predictor
`)
	require.NoError(t, os.WriteFile(path, updated, 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(names) > 0 && names[len(names)-1] == "reloaded"
	}, 5*time.Second, 50*time.Millisecond)

	assert.Equal(t, "reloaded", w.Snapshot().Infero.Server.Name)
	assert.GreaterOrEqual(t, w.ReloadCount(), uint32(1))
}
