package predictor

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func readyBinding(t *testing.T, p any, opts ...Option) *Binding {
	t.Helper()

	b, err := New(p, opts...)
	require.NoError(t, err)
	require.NoError(t, b.Setup(context.Background()))

	return b
}

func TestInvoke_Envelope(t *testing.T) {
	b := readyBinding(t, &textPredictor{})

	res, err := b.Predict(context.Background(), map[string]any{"prompt": "A cow", "temperature": 0.2})
	require.NoError(t, err)

	assert.Equal(t, "Generated text for 'A cow' with temperature 0.2", res.Value)
	assert.GreaterOrEqual(t, res.Elapsed, 0.0)
	assert.Nil(t, res.Input)
	assert.False(t, res.Structured())

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Contains(t, body, "inference_time_seconds")
	assert.Contains(t, body, "result")
	assert.NotContains(t, body, "input")
}

func TestInvoke_EchoInput(t *testing.T) {
	b := readyBinding(t, &textPredictor{})

	res, err := b.Predict(context.Background(), map[string]any{"prompt": "A cow", "ignored": 1}, WithInputEcho(true))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"prompt": "A cow", "temperature": 0.5}, res.Input)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"inference_time_seconds": 0,
		"input": {"prompt": "A cow", "temperature": 0.5},
		"result": "Generated text for 'A cow' with temperature 0.5"
	}`, string(data))
}

func TestInvoke_DefaultApplied(t *testing.T) {
	m := new(mockPredictor)
	m.On("Setup", mock.Anything).Return(nil)
	m.On("Predict", requiredInput{RequiredParam: "value", DefaultParam: 123}).Return("ok", nil).Once()

	b := readyBinding(t, m)

	res, err := b.Predict(context.Background(), map[string]any{"required_param": "value"})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Value)

	m.AssertExpectations(t)
}

func TestInvoke_MissingRequiredNeverCallsPredictor(t *testing.T) {
	m := new(mockPredictor)
	m.On("Setup", mock.Anything).Return(nil)

	b := readyBinding(t, m)

	_, err := b.Predict(context.Background(), map[string]any{"default_param": "nope"})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Len(t, perr.Violations, 2)
	assert.Equal(t, "required_param", perr.Violations[0].Field)
	assert.Equal(t, "default_param", perr.Violations[1].Field)

	m.AssertNotCalled(t, "Predict", mock.Anything)
	assert.Equal(t, StateReady, b.State())
}

func TestInvoke_NotReadyNeverCallsPredictor(t *testing.T) {
	m := new(mockPredictor)
	b, err := New(m)
	require.NoError(t, err)

	_, err = b.Predict(context.Background(), map[string]any{"required_param": 1})
	assert.ErrorIs(t, err, ErrNotReady)
	m.AssertNotCalled(t, "Predict", mock.Anything)

	failed := new(mockPredictor)
	failed.On("Setup", mock.Anything).Return(assert.AnError)
	fb, err := New(failed)
	require.NoError(t, err)
	require.Error(t, fb.Setup(context.Background()))

	_, err = fb.Predict(context.Background(), map[string]any{"required_param": 1})
	assert.ErrorIs(t, err, ErrNotReady)
	failed.AssertNotCalled(t, "Predict", mock.Anything)
}

func TestInvoke_ElapsedIsRounded(t *testing.T) {
	b := readyBinding(t, sleepyPredictor{delay: 100 * time.Millisecond})

	res, err := b.Predict(context.Background(), nil)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.Elapsed, 0.09)
	assert.LessOrEqual(t, res.Elapsed, 0.20)
	assert.Equal(t, math.Round(res.Elapsed*100)/100, res.Elapsed)
}

func TestRoundElapsed(t *testing.T) {
	assert.Equal(t, 0.0, roundElapsed(-0.5))
	assert.Equal(t, 0.0, roundElapsed(0.004))
	assert.Equal(t, 0.1, roundElapsed(0.104))
	assert.Equal(t, 1.24, roundElapsed(1.2351))
}

func TestInvoke_ExecutionError(t *testing.T) {
	b := readyBinding(t, failingPredictor{})

	_, err := b.Predict(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, KindExecution, KindOf(err))
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, StateReady, b.State())
}

func TestInvoke_PanicIsExecutionError(t *testing.T) {
	b := readyBinding(t, panickingPredictor{})

	_, err := b.Predict(context.Background(), nil)
	assert.Equal(t, KindExecution, KindOf(err))
	assert.ErrorContains(t, err, "kaboom")
}

func TestInvoke_CancelledBeforeCall(t *testing.T) {
	m := new(mockPredictor)
	m.On("Setup", mock.Anything).Return(nil)
	b := readyBinding(t, m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Predict(ctx, map[string]any{"required_param": 1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, KindExecution, KindOf(err))
	m.AssertNotCalled(t, "Predict", mock.Anything)
}

func TestInvoke_StructuredResponse(t *testing.T) {
	b := readyBinding(t, &structuredPredictor{})
	assert.True(t, b.Response().Structured())
	assert.Equal(t, "PredictResponse", b.Response().Name())

	res, err := b.Predict(context.Background(), map[string]any{"prompt": "hi"}, WithInputEcho(true))
	require.NoError(t, err)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"image": "https://example.com/image.jpg",
		"text": "Hello world",
		"my_custom_variable": "Hello"
	}`, string(data))
}

func TestInvoke_ObjectResultConvertedToMap(t *testing.T) {
	b := readyBinding(t, objectPredictor{})

	res, err := b.Predict(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": json.Number("1"), "y": json.Number("2")}, res.Value)
}

func TestInvoke_SerializationError(t *testing.T) {
	b := readyBinding(t, channelPredictor{})

	_, err := b.Predict(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, KindSerialization, KindOf(err))
}

type nanPredictor struct{}

func (nanPredictor) Predict() map[string]any { return map[string]any{"score": math.NaN()} }

func TestInvoke_NaNIsSerializationError(t *testing.T) {
	b := readyBinding(t, nanPredictor{})

	_, err := b.Predict(context.Background(), nil)
	assert.Equal(t, KindSerialization, KindOf(err))
}

func TestInvoke_PointerInputAndContext(t *testing.T) {
	b := readyBinding(t, complexPredictor{})

	res, err := b.Predict(context.Background(), map[string]any{"text": "hello"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"text": "hello", "numbers": []any{json.Number("1"), json.Number("2"), json.Number("3")}}, res.Value)
}

type idInput struct {
	ID    int64   `json:"id"`
	Score float64 `json:"score" default:"0.5"`
}

type idPredictor struct{}

func (idPredictor) Predict(in idInput) int64 { return in.ID }

func TestInvoke_LargeIntegerKeepsPrecision(t *testing.T) {
	b := readyBinding(t, idPredictor{})

	payload, err := DecodePayload([]byte(`{"id": 9007199254740993}`))
	require.NoError(t, err)

	res, err := b.Predict(context.Background(), payload, WithInputEcho(true))
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740993), res.Value)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"result":9007199254740993`)
	assert.Contains(t, string(data), `"id":9007199254740993`)
}
