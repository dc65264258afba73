package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ekisa-team/infero/internal/config"
	"github.com/ekisa-team/infero/predictor"
	"github.com/ekisa-team/infero/schema"
)

const contentTypeJSON = "application/json"

// Predictor runs predictions for the served route.
type Predictor interface {
	Predict(ctx context.Context, payload map[string]any, opts ...predictor.InvokeOption) (*predictor.Result, error)
	Ready() bool
}

type (
	PredictInput struct {
		EchoInput bool `query:"echo_input" doc:"Echo the validated payload in the response"`
		RawBody   []byte
	}

	PredictOutput struct {
		Status      int
		ContentType string `header:"Content-Type"`
		Body        []byte
	}

	ErrorMessage struct {
		Message string `json:"message"`
	}
)

// PredictHandler handles prediction requests for one route.
type PredictHandler struct {
	route     config.RouteConfig
	predictor Predictor
	metrics   *Metrics
}

// NewPredictHandler registers the route's predict operation on api.
func NewPredictHandler(api huma.API, route config.RouteConfig, request *schema.Request, response *schema.Response, p Predictor, metrics *Metrics) *PredictHandler {
	h := &PredictHandler{route: route, predictor: p, metrics: metrics}

	summary := route.Name
	if summary == "" {
		summary = "Make a single prediction"
	}

	huma.Register(api, huma.Operation{
		OperationID:      "predict",
		Method:           http.MethodPost,
		Path:             route.Path,
		Summary:          summary,
		Description:      route.Description,
		Tags:             route.Tags,
		DefaultStatus:    http.StatusOK,
		SkipValidateBody: true,
		RequestBody: &huma.RequestBody{
			Required: false,
			Content: map[string]*huma.MediaType{
				contentTypeJSON: {Schema: requestSchema(request)},
			},
		},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Prediction result",
				Content:     map[string]*huma.MediaType{contentTypeJSON: {Schema: responseSchema(response)}},
			},
			"400": {
				Description: "Validation error",
				Content:     map[string]*huma.MediaType{contentTypeJSON: {Schema: messageSchema()}},
			},
			"500": {
				Description: "Setup, execution or serialization error",
				Content:     map[string]*huma.MediaType{contentTypeJSON: {Schema: messageSchema()}},
			},
		},
	}, h.handlePredict)

	return h
}

// handlePredict handles the predict operation.
func (h *PredictHandler) handlePredict(ctx context.Context, input *PredictInput) (*PredictOutput, error) {
	payload, err := predictor.DecodePayload(input.RawBody)
	if err != nil {
		return h.fail(err), nil
	}

	echo := input.EchoInput || h.route.EchoInput

	res, err := h.predictor.Predict(ctx, payload, predictor.WithInputEcho(echo))
	if err != nil {
		return h.fail(err), nil
	}

	body, err := json.Marshal(res)
	if err != nil {
		return h.fail(&predictor.Error{Kind: predictor.KindSerialization, Message: err.Error(), Err: err}), nil
	}

	h.metrics.ObservePrediction(h.route.Path, "", res.Elapsed)

	return &PredictOutput{Status: http.StatusOK, ContentType: contentTypeJSON, Body: body}, nil
}

// fail maps a binding error to its HTTP status and {message} body.
func (h *PredictHandler) fail(err error) *PredictOutput {
	kind := predictor.KindOf(err)
	if kind == "" {
		kind = predictor.KindExecution
	}

	status := http.StatusInternalServerError
	if kind == predictor.KindValidation {
		status = http.StatusBadRequest
	} else {
		slog.Error("Prediction failed", "route", h.route.Path, "kind", kind, "error", err)
	}

	h.metrics.ObservePrediction(h.route.Path, kind, 0)

	body, _ := json.Marshal(ErrorMessage{Message: err.Error()})

	return &PredictOutput{Status: status, ContentType: contentTypeJSON, Body: body}
}
