package predictor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ekisa-team/infero/schema"
)

// Result is the packaged outcome of one invocation.
type Result struct {
	// Elapsed is the predictor wall time in seconds, rounded to 2 decimals.
	Elapsed float64
	// Input is the validated payload, set only when echo was requested.
	Input map[string]any
	// Value is the predictor's return value mapped onto the JSON data model.
	Value any

	structured bool
	encoded    []byte
}

// Envelope is the generic response body.
type Envelope struct {
	InferenceTimeSeconds float64        `json:"inference_time_seconds"`
	Input                map[string]any `json:"input,omitzero"`
	Result               any            `json:"result"`
}

// Structured reports whether Value is sent without envelope.
func (r *Result) Structured() bool {
	return r.structured
}

// Body returns the wire body: the value itself for structured responses,
// the envelope otherwise.
func (r *Result) Body() any {
	if r.structured {
		return r.Value
	}
	return Envelope{
		InferenceTimeSeconds: r.Elapsed,
		Input:                r.Input,
		Result:               r.Value,
	}
}

// MarshalJSON encodes the wire body.
func (r *Result) MarshalJSON() ([]byte, error) {
	if r.encoded != nil {
		return r.encoded, nil
	}
	return json.Marshal(r.Body())
}

// seal encodes the body once; failure is a serialization error.
func (r *Result) seal(resp *schema.Response) error {
	data, err := json.Marshal(r.Body())
	if err != nil {
		return newError(KindSerialization, err, "failed to serialize %s: %v", resp.Name(), err)
	}
	r.encoded = data
	return nil
}

// roundElapsed rounds seconds to 2 decimals, floored at 0.
func roundElapsed(seconds float64) float64 {
	return math.Max(0, math.Round(seconds*100)/100)
}

// normalize maps v onto the JSON data model. Values structpb accepts are
// kept as-is; anything else (structs, typed maps and slices) goes through an
// attribute-to-map conversion of its exported fields.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	if _, err := structpb.NewValue(v); err == nil {
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return nil, fmt.Errorf("unsupported float value %v", f)
		}
		return v, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}

	return out, nil
}
