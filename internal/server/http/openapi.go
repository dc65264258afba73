package http

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/ekisa-team/infero/schema"
)

// typeSchema renders a parameter type as an OpenAPI schema.
func typeSchema(t schema.Type) *huma.Schema {
	switch t.Tag {
	case schema.TagString:
		return &huma.Schema{Type: huma.TypeString}
	case schema.TagInt:
		return &huma.Schema{Type: huma.TypeInteger}
	case schema.TagFloat:
		return &huma.Schema{Type: huma.TypeNumber}
	case schema.TagBool:
		return &huma.Schema{Type: huma.TypeBoolean}
	case schema.TagStructured:
		return &huma.Schema{Type: huma.TypeObject}
	case schema.TagList:
		s := &huma.Schema{Type: huma.TypeArray}
		if t.Elem != nil && t.Elem.Tag != schema.TagAny {
			s.Items = typeSchema(*t.Elem)
		}
		return s
	case schema.TagOptional:
		if t.Elem == nil {
			return &huma.Schema{}
		}
		s := typeSchema(*t.Elem)
		s.Nullable = true
		return s
	default:
		return &huma.Schema{}
	}
}

func parameterSchema(p schema.Parameter) *huma.Schema {
	s := typeSchema(p.Type)
	s.Description = p.Description
	if !p.Required {
		s.Default = p.Default
	}

	c := p.Constraints
	s.Minimum = c.Minimum
	s.Maximum = c.Maximum
	s.ExclusiveMinimum = c.ExclusiveMinimum
	s.ExclusiveMaximum = c.ExclusiveMaximum
	s.MinLength = c.MinLength
	s.MaxLength = c.MaxLength
	s.MinItems = c.MinItems
	s.MaxItems = c.MaxItems
	s.Pattern = c.Pattern
	s.Enum = c.Enum

	return s
}

// objectSchema renders an ordered parameter table as an object schema.
func objectSchema(title, description string, params []schema.Parameter) *huma.Schema {
	s := &huma.Schema{
		Type:        huma.TypeObject,
		Title:       title,
		Description: description,
		Properties:  make(map[string]*huma.Schema, len(params)),
	}
	for _, p := range params {
		s.Properties[p.Name] = parameterSchema(p)
		if p.Required {
			s.Required = append(s.Required, p.Name)
		}
	}
	return s
}

func requestSchema(r *schema.Request) *huma.Schema {
	return objectSchema(r.Name(), "", r.Parameters())
}

func responseSchema(r *schema.Response) *huma.Schema {
	return objectSchema(r.Name(), "", r.Fields())
}

func messageSchema() *huma.Schema {
	return &huma.Schema{
		Type:       huma.TypeObject,
		Title:      "ErrorMessage",
		Properties: map[string]*huma.Schema{"message": {Type: huma.TypeString}},
		Required:   []string{"message"},
	}
}
