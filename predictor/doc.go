// Package predictor binds a plain Go type to a request/response contract.
//
// A predictor is any type with a Predict method of the shape
//
//	func (p *T) Predict([ctx context.Context,] [in Input]) ([R,] [error])
//
// and, optionally, a Setup method (Setup(ctx) error, Setup() error or
// Setup()). The exported fields of Input are the request parameters, in
// declaration order; struct tags carry the field specification:
//
//	type Input struct {
//		Prompt      string  `json:"prompt" minLength:"1"`
//		Temperature float64 `json:"temperature" default:"0.5" exclusiveMinimum:"0" exclusiveMaximum:"1"`
//	}
//
// Predictors are located by "module:Symbol" locators, registered with
// Register or exported from a Go plugin named module.so.
package predictor
