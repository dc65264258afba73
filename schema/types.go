package schema

import (
	"fmt"
	"strings"
)

// Tag is the canonical type tag of a parameter.
type Tag string

const (
	TagString     Tag = "string"
	TagInt        Tag = "int"
	TagFloat      Tag = "float"
	TagBool       Tag = "bool"
	TagList       Tag = "list"
	TagOptional   Tag = "optional"
	TagAny        Tag = "any"
	TagStructured Tag = "structured"
)

// Type is a type tag plus, for list and optional, its element type.
type Type struct {
	Tag  Tag   `json:"tag"`
	Elem *Type `json:"elem,omitempty"`
}

// Primitive types.
var (
	String     = Type{Tag: TagString}
	Int        = Type{Tag: TagInt}
	Float      = Type{Tag: TagFloat}
	Bool       = Type{Tag: TagBool}
	Any        = Type{Tag: TagAny}
	Structured = Type{Tag: TagStructured}
)

// ListOf returns list<elem>.
func ListOf(elem Type) Type {
	return Type{Tag: TagList, Elem: &elem}
}

// OptionalOf returns optional<elem>.
func OptionalOf(elem Type) Type {
	return Type{Tag: TagOptional, Elem: &elem}
}

// String renders the type as "list<int>", "optional<string>", etc.
func (t Type) String() string {
	if t.Elem == nil {
		return string(t.Tag)
	}
	return fmt.Sprintf("%s<%s>", t.Tag, t.Elem.String())
}

// IsOptional reports whether null is an accepted value.
func (t Type) IsOptional() bool {
	return t.Tag == TagOptional || t.Tag == TagAny
}

// ParseType parses the type names accepted in route configuration, e.g.
// "str", "int", "float", "bool", "dict", "any", "list[int]", "optional<str>".
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Any, nil
	}

	if head, inner, ok := splitGeneric(s); ok {
		elem, err := ParseType(inner)
		if err != nil {
			return Type{}, err
		}

		switch strings.ToLower(head) {
		case "list", "array":
			return ListOf(elem), nil
		case "optional":
			return OptionalOf(elem), nil
		default:
			return Type{}, fmt.Errorf("%w: %q", ErrUnknownType, s)
		}
	}

	switch strings.ToLower(s) {
	case "str", "string":
		return String, nil
	case "int", "integer":
		return Int, nil
	case "float", "number":
		return Float, nil
	case "bool", "boolean":
		return Bool, nil
	case "list", "array":
		return ListOf(Any), nil
	case "dict", "map", "object", "structured":
		return Structured, nil
	case "any":
		return Any, nil
	}

	return Type{}, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

func splitGeneric(s string) (head, inner string, ok bool) {
	for _, pair := range [...][2]byte{{'[', ']'}, {'<', '>'}} {
		open := strings.IndexByte(s, pair[0])
		if open > 0 && s[len(s)-1] == pair[1] {
			return s[:open], s[open+1 : len(s)-1], true
		}
	}
	return "", "", false
}

// Constraints are the optional bounds of a parameter.
type Constraints struct {
	Minimum          *float64 `json:"minimum,omitempty"`
	Maximum          *float64 `json:"maximum,omitempty"`
	ExclusiveMinimum *float64 `json:"exclusiveMinimum,omitempty"`
	ExclusiveMaximum *float64 `json:"exclusiveMaximum,omitempty"`
	MinLength        *int     `json:"minLength,omitempty"`
	MaxLength        *int     `json:"maxLength,omitempty"`
	Pattern          string   `json:"pattern,omitempty"`
	MinItems         *int     `json:"minItems,omitempty"`
	MaxItems         *int     `json:"maxItems,omitempty"`
	Enum             []any    `json:"enum,omitempty"`
}

// IsZero reports whether no bound is set.
func (c Constraints) IsZero() bool {
	return c.Minimum == nil && c.Maximum == nil &&
		c.ExclusiveMinimum == nil && c.ExclusiveMaximum == nil &&
		c.MinLength == nil && c.MaxLength == nil && c.Pattern == "" &&
		c.MinItems == nil && c.MaxItems == nil && len(c.Enum) == 0
}

// Parameter describes one formal parameter of a predictor entry operation.
// A required parameter never carries a default.
type Parameter struct {
	Name        string      `json:"name"`
	Type        Type        `json:"type"`
	Required    bool        `json:"required"`
	Default     any         `json:"default,omitempty"`
	Description string      `json:"description,omitempty"`
	Constraints Constraints `json:"constraints,omitzero"`
}
