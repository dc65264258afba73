package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Request is the synthesized validation schema of a predictor entry operation.
type Request struct {
	name     string
	params   []Parameter
	index    map[string]int
	document map[string]any
	compiled *jsonschema.Schema
}

// RequestName derives the request schema name from a predictor type name.
func RequestName(typeName string) string {
	return typeName + "Request"
}

// NewRequest builds the request schema of typeName from an ordered parameter
// table. Names must be unique and required parameters must not carry defaults.
func NewRequest(typeName string, params []Parameter) (*Request, error) {
	name := RequestName(typeName)

	index := make(map[string]int, len(params))
	for i, p := range params {
		if p.Name == "" {
			return nil, fmt.Errorf("%s: %w at position %d", name, ErrEmptyName, i)
		}
		if _, dup := index[p.Name]; dup {
			return nil, fmt.Errorf("%s: %w: %q", name, ErrDuplicateParameter, p.Name)
		}
		if p.Required && p.Default != nil {
			return nil, fmt.Errorf("%s: %w: %q", name, ErrRequiredDefault, p.Name)
		}
		index[p.Name] = i
	}

	owned := make([]Parameter, len(params))
	copy(owned, params)

	if err := checkDefaults(name, owned); err != nil {
		return nil, err
	}

	document := objectDocument(name, "", owned)
	compiled, err := compile(name, document)
	if err != nil {
		return nil, err
	}

	return &Request{
		name:     name,
		params:   owned,
		index:    index,
		document: document,
		compiled: compiled,
	}, nil
}

// Name returns the deterministic schema name, e.g. "PredictorRequest".
func (r *Request) Name() string {
	return r.name
}

// Parameters returns a copy of the ordered parameter table.
func (r *Request) Parameters() []Parameter {
	out := make([]Parameter, len(r.params))
	copy(out, r.params)
	return out
}

// Document returns the JSON Schema document backing the request schema.
func (r *Request) Document() map[string]any {
	return r.document
}

// Validate checks payload against the schema. Every violation is collected
// into a single *ValidationError. Unknown keys are dropped, absent optional
// fields are filled with their defaults; the result holds exactly the
// declared parameters that have a value.
func (r *Request) Validate(payload map[string]any) (map[string]any, error) {
	if payload == nil {
		payload = map[string]any{}
	}

	doc, err := toJSON(payload)
	if err != nil {
		return nil, &ValidationError{
			Schema:     r.name,
			Violations: []Violation{{Message: "payload is not JSON-representable: " + err.Error()}},
		}
	}
	instance, _ := doc.(map[string]any)

	if err := r.compiled.Validate(instance); err != nil {
		var verr *jsonschema.ValidationError
		if !errors.As(err, &verr) {
			return nil, fmt.Errorf("schema: %s: %w", r.name, err)
		}
		return nil, &ValidationError{Schema: r.name, Violations: r.violations(verr, instance)}
	}

	out := make(map[string]any, len(r.params))
	for _, p := range r.params {
		if v, ok := instance[p.Name]; ok {
			out[p.Name] = v
			continue
		}
		switch {
		case p.Required:
		case p.Default != nil:
			out[p.Name] = cloneJSON(p.Default)
		case p.Type.IsOptional():
			out[p.Name] = nil
		}
	}

	return out, nil
}

// violations flattens the cause tree into one entry per failing field.
func (r *Request) violations(root *jsonschema.ValidationError, instance map[string]any) []Violation {
	var out []Violation
	missingReported := false

	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}

		if strings.HasSuffix(e.KeywordLocation, "/required") && e.InstanceLocation == "" {
			if missingReported {
				return
			}
			missingReported = true
			for _, p := range r.params {
				if _, ok := instance[p.Name]; p.Required && !ok {
					out = append(out, Violation{Field: p.Name, Message: "field required"})
				}
			}
			return
		}

		out = append(out, Violation{
			Field:   pointerToField(e.InstanceLocation),
			Message: e.Message,
		})
	}
	walk(root)

	sort.SliceStable(out, func(i, j int) bool {
		return r.position(out[i].Field) < r.position(out[j].Field)
	})

	return out
}

func (r *Request) position(field string) int {
	head, _, _ := strings.Cut(field, ".")
	if i, ok := r.index[head]; ok {
		return i
	}
	return len(r.params)
}

func pointerToField(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "/")
	ptr = strings.ReplaceAll(ptr, "/", ".")
	ptr = strings.ReplaceAll(ptr, "~1", "/")
	return strings.ReplaceAll(ptr, "~0", "~")
}

// toJSON maps v onto the JSON data model (nil, bool, json.Number, string,
// []any, map[string]any). Numbers keep their literal so integers beyond
// float64 precision reach the predictor unchanged.
func toJSON(v any) (any, error) {
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

// checkDefaults validates every declared default against its own parameter.
func checkDefaults(name string, params []Parameter) error {
	optional := make([]Parameter, 0, len(params))
	defaults := make(map[string]any, len(params))
	for _, p := range params {
		if p.Default == nil {
			continue
		}
		p.Required = false
		optional = append(optional, p)
		defaults[p.Name] = p.Default
	}
	if len(defaults) == 0 {
		return nil
	}

	compiled, err := compile(name+"Defaults", objectDocument(name+"Defaults", "", optional))
	if err != nil {
		return err
	}

	doc, err := toJSON(defaults)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", name, ErrInvalidDefault, err)
	}

	if err := compiled.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			r := &Request{params: optional, index: indexOf(optional)}
			return fmt.Errorf("%s: %w: %s", name, ErrInvalidDefault, (&ValidationError{Schema: name, Violations: r.violations(verr, nil)}).detail())
		}
		return fmt.Errorf("%s: %w: %v", name, ErrInvalidDefault, err)
	}

	return nil
}

func indexOf(params []Parameter) map[string]int {
	index := make(map[string]int, len(params))
	for i, p := range params {
		index[p.Name] = i
	}
	return index
}

func cloneJSON(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = cloneJSON(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneJSON(e)
		}
		return out
	default:
		return v
	}
}
