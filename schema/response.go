package schema

// Envelope field names.
const (
	FieldInferenceTime = "inference_time_seconds"
	FieldInput         = "input"
	FieldResult        = "result"
)

// Response describes the wire shape of a prediction result. A structured
// response reuses the declared return type verbatim; otherwise results are
// wrapped in the generic envelope.
type Response struct {
	name       string
	structured bool
	fields     []Parameter
	document   map[string]any
}

// ResponseName derives the envelope name from a predictor type name.
func ResponseName(typeName string) string {
	return typeName + "Response"
}

// NewStructuredResponse reuses a declared return type named name.
func NewStructuredResponse(name string, fields []Parameter) *Response {
	owned := make([]Parameter, len(fields))
	copy(owned, fields)

	return &Response{
		name:       name,
		structured: true,
		fields:     owned,
		document:   objectDocument(name, "", owned),
	}
}

// NewEnvelopeResponse returns the generic envelope schema named name.
func NewEnvelopeResponse(name, description string) *Response {
	fields := []Parameter{
		{Name: FieldInferenceTime, Type: Float, Required: true, Description: "Wall time spent in the predictor, in seconds"},
		{Name: FieldInput, Type: Structured, Description: "Validated request payload, present only when echo is requested"},
		{Name: FieldResult, Type: Any, Required: true, Description: "Value returned by the predictor"},
	}

	return &Response{
		name:     name,
		fields:   fields,
		document: objectDocument(name, description, fields),
	}
}

// Name returns the response schema name.
func (r *Response) Name() string {
	return r.name
}

// Structured reports whether the declared return type is used without envelope.
func (r *Response) Structured() bool {
	return r.structured
}

// Fields returns a copy of the response fields.
func (r *Response) Fields() []Parameter {
	out := make([]Parameter, len(r.fields))
	copy(out, r.fields)
	return out
}

// Document returns the JSON Schema document of the response.
func (r *Response) Document() map[string]any {
	return r.document
}
