package predictor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/infero/schema"
)

func TestBind_FromLocator(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("predict:Predictor", func() (any, error) { return &textPredictor{}, nil }))

	b, err := Bind("predict:Predictor", WithLoader(NewLoader(WithRegistry(reg))))
	require.NoError(t, err)

	assert.Equal(t, "predict:Predictor", b.Locator())
	assert.Equal(t, "textPredictorRequest", b.Request().Name())
	assert.Equal(t, "textPredictorResponse", b.Response().Name())
	assert.Equal(t, StateUninitialized, b.State())

	require.NoError(t, b.Setup(context.Background()))
	require.NoError(t, b.Setup(context.Background()))
	assert.Equal(t, 1, b.Instance().(*textPredictor).setups)
}

func TestBind_LoadError(t *testing.T) {
	_, err := Bind("nomodule:Predictor", WithLoader(NewLoader(WithRegistry(NewRegistry()), WithSearchPath(t.TempDir()))))
	require.Error(t, err)
	assert.Equal(t, KindLoad, KindOf(err))
	assert.Contains(t, err.Error(), "nomodule:Predictor")
}

func TestBind_IntrospectionErrorIsLoadError(t *testing.T) {
	_, err := New(badInputPredictor{})
	assert.Equal(t, KindLoad, KindOf(err))
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestBind_SchemasCachedPerType(t *testing.T) {
	a, err := New(&textPredictor{})
	require.NoError(t, err)
	b, err := New(&textPredictor{})
	require.NoError(t, err)

	assert.Same(t, a.Request(), b.Request())
	assert.Same(t, a.Response(), b.Response())
	assert.Equal(t, a.Request().Parameters(), b.Request().Parameters())
}

func TestBind_ExplicitParameters(t *testing.T) {
	params := []schema.Parameter{
		{Name: "prompt", Type: schema.String, Required: true, Description: "The prompt to generate text from"},
	}

	b, err := New(&textPredictor{}, WithParameters(params), WithResponseName("PredictResponse"))
	require.NoError(t, err)
	require.NoError(t, b.Setup(context.Background()))

	assert.Equal(t, params, b.Request().Parameters())
	assert.Equal(t, "PredictResponse", b.Response().Name())

	// The input struct still decodes what the explicit table validated.
	res, err := b.Predict(context.Background(), map[string]any{"prompt": "x", "temperature": "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "Generated text for 'x' with temperature 0.0", res.Value)

	cached, err := New(&textPredictor{})
	require.NoError(t, err)
	assert.NotSame(t, cached.Request(), b.Request())
}

func TestBind_TrainEntryOperation(t *testing.T) {
	b := readyBinding(t, trainer{}, WithEntryOperation(TrainMethod))

	res, err := b.Predict(context.Background(), map[string]any{
		"model_name":    "bert",
		"epochs":        3,
		"learning_rate": 0.01,
		"batch_size":    8,
	})
	require.NoError(t, err)
	assert.Equal(t, "Training completed", res.Value)
}

type closingPredictor struct {
	noInputPredictor
	closed bool
}

func (c *closingPredictor) Close() error {
	c.closed = true
	return nil
}

func TestBinding_Close(t *testing.T) {
	p := &closingPredictor{}
	b, err := New(p)
	require.NoError(t, err)

	require.NoError(t, b.Close())
	assert.True(t, p.closed)
}
