package predictor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stretchr/testify/mock"
)

type generateInput struct {
	Prompt      string  `json:"prompt" description:"The prompt to generate text from" minLength:"1"`
	Temperature float64 `json:"temperature" default:"0.5" description:"Sampling temperature" exclusiveMinimum:"0" exclusiveMaximum:"1"`
}

// textPredictor returns a string and counts setups.
type textPredictor struct {
	setups int
}

func (p *textPredictor) Setup() error {
	p.setups++
	return nil
}

func (p *textPredictor) Predict(in generateInput) (string, error) {
	return fmt.Sprintf("Generated text for '%s' with temperature %.1f", in.Prompt, in.Temperature), nil
}

type complexInput struct {
	Text          string         `json:"text"`
	Numbers       []int          `json:"numbers" default:"[1,2,3]"`
	OptionalParam *string        `json:"optional_param"`
	AnyParam      any            `json:"any_param" default:"\"anything\""`
	FieldParam    string         `json:"field_param" default:"field_default" description:"A field with metadata"`
	Extra         map[string]int `json:"extra,omitempty" required:"false"`
	hidden        int
}

type complexPredictor struct{}

func (complexPredictor) Predict(_ context.Context, in *complexInput) (map[string]any, error) {
	return map[string]any{"text": in.Text, "numbers": in.Numbers}, nil
}

type requiredInput struct {
	RequiredParam any `json:"required_param"`
	DefaultParam  int `json:"default_param" default:"123"`
}

// mockPredictor records Setup and Predict calls.
type mockPredictor struct {
	mock.Mock
}

func (m *mockPredictor) Setup(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockPredictor) Predict(in requiredInput) (any, error) {
	args := m.Called(in)
	return args.Get(0), args.Error(1)
}

type sleepyPredictor struct {
	delay time.Duration
}

func (p sleepyPredictor) Predict(ctx context.Context) (string, error) {
	time.Sleep(p.delay)
	return "done", nil
}

type failingPredictor struct{}

func (failingPredictor) Predict() (any, error) {
	return nil, errors.New("ValueError: boom")
}

type panickingPredictor struct{}

func (panickingPredictor) Predict() any {
	panic("kaboom")
}

type PredictResponse struct {
	Image            string `json:"image"`
	Text             string `json:"text"`
	MyCustomVariable string `json:"my_custom_variable"`
}

type structuredPredictor struct {
	variable string
}

func (p *structuredPredictor) Setup(context.Context) error {
	p.variable = "Hello"
	return nil
}

func (p *structuredPredictor) Predict(in generateInput) (*PredictResponse, error) {
	return &PredictResponse{
		Image:            "https://example.com/image.jpg",
		Text:             "Hello world",
		MyCustomVariable: p.variable,
	}, nil
}

type point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type objectPredictor struct{}

func (objectPredictor) Predict() any {
	return point{X: 1, Y: 2}
}

type channelPredictor struct{}

func (channelPredictor) Predict() any {
	return make(chan int)
}

type noInputPredictor struct{}

func (noInputPredictor) Predict() string { return "ok" }

type badInputPredictor struct{}

func (badInputPredictor) Predict(prompt string) string { return prompt }

type tooManyArgsPredictor struct{}

func (tooManyArgsPredictor) Predict(a, b generateInput) string { return "" }

type duplicateInput struct {
	A string `json:"name"`
	B string `json:"name"`
}

type duplicatePredictor struct{}

func (duplicatePredictor) Predict(in duplicateInput) string { return in.A }

type trainerInput struct {
	ModelName    string  `json:"model_name"`
	Epochs       int     `json:"epochs"`
	LearningRate float64 `json:"learning_rate"`
	BatchSize    int     `json:"batch_size"`
}

type trainer struct{}

func (trainer) Train(in trainerInput) string { return "Training completed" }
