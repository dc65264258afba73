package predictor

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

var (
	errNotObject    = errors.New("payload must be a JSON object")
	errTrailingData = errors.New("unexpected data after JSON object")
)

// DecodePayload parses a JSON request body into a payload map. An empty
// body is an empty payload. Numbers are kept as json.Number so integers
// beyond float64 precision survive until they are bound.
func DecodePayload(data []byte) (map[string]any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, newError(KindValidation, err, "invalid JSON payload: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, newError(KindValidation, errTrailingData, "invalid JSON payload: %v", errTrailingData)
	}

	payload, ok := v.(map[string]any)
	if !ok {
		return nil, newError(KindValidation, errNotObject, "invalid JSON payload: %v", errNotObject)
	}

	return payload, nil
}
