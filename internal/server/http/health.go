package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

const (
	StatusOK       = "OK"
	StatusStarting = "STARTING"
)

type (
	HealthOutput struct {
		Status int
		Body   HealthBody
	}

	HealthBody struct {
		Status string `json:"status" enum:"OK,STARTING"`
	}
)

// NewHealthHandler registers GET /health.
func NewHealthHandler(api huma.API, p Predictor) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Report whether the predictor is ready",
		Tags:        []string{"health"},
	}, func(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
		if !p.Ready() {
			return &HealthOutput{Status: http.StatusServiceUnavailable, Body: HealthBody{Status: StatusStarting}}, nil
		}
		return &HealthOutput{Status: http.StatusOK, Body: HealthBody{Status: StatusOK}}, nil
	})
}
