package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	draftURL  = "https://json-schema.org/draft/2020-12/schema"
	schemaURL = "https://infero.local/schemas/"
)

// typeDocument renders t as a JSON Schema fragment.
func typeDocument(t Type) map[string]any {
	switch t.Tag {
	case TagString:
		return map[string]any{"type": "string"}
	case TagInt:
		return map[string]any{"type": "integer"}
	case TagFloat:
		return map[string]any{"type": "number"}
	case TagBool:
		return map[string]any{"type": "boolean"}
	case TagStructured:
		return map[string]any{"type": "object"}
	case TagList:
		doc := map[string]any{"type": "array"}
		if t.Elem != nil && t.Elem.Tag != TagAny {
			doc["items"] = typeDocument(*t.Elem)
		}
		return doc
	case TagOptional:
		if t.Elem == nil {
			return map[string]any{}
		}
		doc := typeDocument(*t.Elem)
		switch typ := doc["type"].(type) {
		case string:
			doc["type"] = []any{typ, "null"}
		case []any:
			doc["type"] = append(typ, "null")
		}
		return doc
	default:
		return map[string]any{}
	}
}

// parameterDocument renders one property, constraints and metadata included.
func parameterDocument(p Parameter) map[string]any {
	doc := typeDocument(p.Type)
	if p.Description != "" {
		doc["description"] = p.Description
	}
	if !p.Required && p.Default != nil {
		doc["default"] = p.Default
	}

	c := p.Constraints
	setFloat := func(key string, v *float64) {
		if v != nil {
			doc[key] = *v
		}
	}
	setInt := func(key string, v *int) {
		if v != nil {
			doc[key] = *v
		}
	}
	setFloat("minimum", c.Minimum)
	setFloat("maximum", c.Maximum)
	setFloat("exclusiveMinimum", c.ExclusiveMinimum)
	setFloat("exclusiveMaximum", c.ExclusiveMaximum)
	setInt("minLength", c.MinLength)
	setInt("maxLength", c.MaxLength)
	setInt("minItems", c.MinItems)
	setInt("maxItems", c.MaxItems)
	if c.Pattern != "" {
		doc["pattern"] = c.Pattern
	}
	if len(c.Enum) > 0 {
		enum := c.Enum
		if p.Type.IsOptional() {
			enum = append(append([]any{}, enum...), nil)
		}
		doc["enum"] = enum
	}

	return doc
}

// objectDocument renders an ordered parameter table as an object schema.
func objectDocument(title, description string, params []Parameter) map[string]any {
	properties := make(map[string]any, len(params))
	required := make([]any, 0, len(params))
	for _, p := range params {
		properties[p.Name] = parameterDocument(p)
		if p.Required {
			required = append(required, p.Name)
		}
	}

	doc := map[string]any{
		"$schema":    draftURL,
		"title":      title,
		"type":       "object",
		"properties": properties,
	}
	if description != "" {
		doc["description"] = description
	}
	if len(required) > 0 {
		doc["required"] = required
	}

	return doc
}

// compile compiles doc under a URL derived from name.
func compile(name string, doc map[string]any) (*jsonschema.Schema, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("schema: failed to encode %s: %w", name, err)
	}

	url := schemaURL + name + ".json"

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("schema: failed to add %s: %w", name, err)
	}

	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schema: failed to compile %s: %w", name, err)
	}

	return compiled, nil
}
