package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ekisa-team/infero/schema"
)

// Entry operation names.
const (
	PredictMethod = "Predict"
	TrainMethod   = "Train"
)

var (
	contextType    = reflect.TypeOf((*context.Context)(nil)).Elem()
	rawMessageType = reflect.TypeOf(json.RawMessage(nil))
	timeType       = reflect.TypeOf(time.Time{})
)

// Signature is the descriptor table of a predictor entry operation.
type Signature struct {
	// TypeName is the predictor type name, e.g. "Predictor".
	TypeName string
	// Method is the entry operation name.
	Method string
	// Params are the formal parameters in declaration order.
	Params []schema.Parameter
	// Returns is the declared struct return type, nil otherwise.
	Returns *ReturnType

	withContext bool
	input       reflect.Type
	inputPtr    bool
	withValue   bool
	withError   bool
}

// ReturnType is a structured return declared by the entry operation.
type ReturnType struct {
	Name   string
	Fields []schema.Parameter
}

type signatureKey struct {
	t      reflect.Type
	method string
}

var signatures sync.Map

// Introspect builds the signature of p's Predict operation.
func Introspect(p any) (*Signature, error) {
	return IntrospectMethod(p, PredictMethod)
}

// IntrospectMethod builds the signature of the named entry operation. The
// accepted shape is
//
//	func (T) Name([ctx context.Context,] [in S]) ([R,] [error])
//
// where S is a struct or pointer to struct whose exported fields are the
// parameters. Signatures are cached per predictor type.
func IntrospectMethod(p any, method string) (*Signature, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil predictor", ErrNoEntryOperation)
	}

	t := reflect.TypeOf(p)
	key := signatureKey{t: t, method: method}
	if cached, ok := signatures.Load(key); ok {
		return cached.(*Signature), nil
	}

	sig, err := introspect(t, method)
	if err != nil {
		return nil, err
	}

	actual, _ := signatures.LoadOrStore(key, sig)
	return actual.(*Signature), nil
}

func introspect(t reflect.Type, method string) (*Signature, error) {
	m, ok := t.MethodByName(method)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no method %s", ErrNoEntryOperation, t, method)
	}

	sig := &Signature{
		TypeName: typeName(t),
		Method:   method,
	}

	// In(0) is the receiver.
	ft := m.Type
	next := 1
	if next < ft.NumIn() && ft.In(next) == contextType {
		sig.withContext = true
		next++
	}

	if next < ft.NumIn() {
		in := ft.In(next)
		if in.Kind() == reflect.Pointer {
			sig.inputPtr = true
			in = in.Elem()
		}
		if in.Kind() != reflect.Struct {
			return nil, fmt.Errorf("%w: %s.%s input must be a struct, got %s", ErrBadSignature, sig.TypeName, method, ft.In(next))
		}

		params, err := fieldsOf(in)
		if err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %v", ErrBadSignature, sig.TypeName, method, err)
		}

		sig.input = in
		sig.Params = params
		next++
	}

	if next != ft.NumIn() {
		return nil, fmt.Errorf("%w: %s.%s takes at most a context and one input struct", ErrBadSignature, sig.TypeName, method)
	}

	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			sig.withError = true
		} else {
			sig.withValue = true
		}
	case 2:
		if ft.Out(1) != errorType {
			return nil, fmt.Errorf("%w: %s.%s second result must be error", ErrBadSignature, sig.TypeName, method)
		}
		sig.withValue, sig.withError = true, true
	default:
		return nil, fmt.Errorf("%w: %s.%s returns too many values", ErrBadSignature, sig.TypeName, method)
	}

	if sig.withValue {
		ret, err := returnTypeOf(ft.Out(0))
		if err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %v", ErrBadSignature, sig.TypeName, method, err)
		}
		sig.Returns = ret
	}

	return sig, nil
}

func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if i := strings.IndexByte(name, '['); i > 0 {
		name = name[:i]
	}
	return name
}

func returnTypeOf(t reflect.Type) (*ReturnType, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || t == timeType || t.Name() == "" {
		return nil, nil
	}

	fields, err := fieldsOf(t)
	if err != nil {
		return nil, err
	}
	for i := range fields {
		// Every field of a returned struct is present on the wire.
		fields[i].Required, fields[i].Default = fields[i].Type.Tag != schema.TagOptional, nil
	}

	return &ReturnType{Name: typeName(t), Fields: fields}, nil
}

// fieldsOf walks the exported fields of struct type t in declaration order.
// Untagged embedded structs are flattened the way encoding/json does.
func fieldsOf(t reflect.Type) ([]schema.Parameter, error) {
	var params []schema.Parameter
	seen := make(map[string]bool)

	var walk func(t reflect.Type) error
	walk = func(t reflect.Type) error {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			tag := f.Tag.Get("json")
			name, _, _ := strings.Cut(tag, ",")
			if name == "-" && tag == "-" {
				continue
			}

			if f.Anonymous && name == "" {
				ft := f.Type
				if ft.Kind() == reflect.Pointer {
					ft = ft.Elem()
				}
				if ft.Kind() == reflect.Struct {
					if err := walk(ft); err != nil {
						return err
					}
					continue
				}
			}

			if !f.IsExported() {
				continue
			}

			p, err := parameterOf(f)
			if err != nil {
				return err
			}
			if seen[p.Name] {
				return fmt.Errorf("%w: %q", schema.ErrDuplicateParameter, p.Name)
			}
			seen[p.Name] = true
			params = append(params, p)
		}
		return nil
	}

	if err := walk(t); err != nil {
		return nil, err
	}

	return params, nil
}

// parameterOf maps one struct field to a parameter descriptor. Field tags
// carry the field specification: default, description, required and the
// numeric/string bounds.
func parameterOf(f reflect.StructField) (schema.Parameter, error) {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" {
		name = f.Name
	}

	typ, err := typeOf(f.Type)
	if err != nil {
		return schema.Parameter{}, fmt.Errorf("field %s: %w", f.Name, err)
	}

	p := schema.Parameter{
		Name:        name,
		Type:        typ,
		Description: f.Tag.Get("description"),
	}

	raw, hasDefault := f.Tag.Lookup("default")
	if hasDefault {
		v, err := parseValue(raw, f.Type)
		if err != nil {
			return schema.Parameter{}, fmt.Errorf("field %s: invalid default %q: %w", f.Name, raw, err)
		}
		p.Default = v
	}

	switch req := f.Tag.Get("required"); {
	case req != "":
		p.Required, err = strconv.ParseBool(req)
		if err != nil {
			return schema.Parameter{}, fmt.Errorf("field %s: invalid required tag: %w", f.Name, err)
		}
		if p.Required && hasDefault {
			return schema.Parameter{}, fmt.Errorf("field %s: %w", f.Name, schema.ErrRequiredDefault)
		}
	default:
		p.Required = !hasDefault && typ.Tag != schema.TagOptional
	}

	p.Constraints, err = constraintsOf(f)
	if err != nil {
		return schema.Parameter{}, fmt.Errorf("field %s: %w", f.Name, err)
	}

	return p, nil
}

// typeOf maps a Go type onto a canonical type tag.
func typeOf(t reflect.Type) (schema.Type, error) {
	switch t {
	case rawMessageType:
		return schema.Any, nil
	case timeType:
		return schema.String, nil
	}

	switch t.Kind() {
	case reflect.String:
		return schema.String, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return schema.Int, nil
	case reflect.Float32, reflect.Float64:
		return schema.Float, nil
	case reflect.Bool:
		return schema.Bool, nil
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return schema.String, nil
		}
		elem, err := typeOf(t.Elem())
		if err != nil {
			return schema.Type{}, err
		}
		return schema.ListOf(elem), nil
	case reflect.Pointer:
		elem, err := typeOf(t.Elem())
		if err != nil {
			return schema.Type{}, err
		}
		if elem.Tag == schema.TagOptional || elem.Tag == schema.TagAny {
			return elem, nil
		}
		return schema.OptionalOf(elem), nil
	case reflect.Interface:
		return schema.Any, nil
	case reflect.Struct, reflect.Map:
		return schema.Structured, nil
	}

	return schema.Type{}, fmt.Errorf("%w: %s", schema.ErrUnknownType, t)
}

// parseValue decodes a tag value as JSON typed by t. String fields accept
// bare text.
func parseValue(raw string, t reflect.Type) (any, error) {
	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Kind() == reflect.String && !strings.HasPrefix(strings.TrimSpace(raw), `"`) {
		return raw, nil
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}

	// Reject values that could not populate the field.
	if err := json.Unmarshal([]byte(raw), reflect.New(t).Interface()); err != nil {
		return nil, err
	}

	return v, nil
}

func constraintsOf(f reflect.StructField) (schema.Constraints, error) {
	var c schema.Constraints

	floats := []struct {
		tag string
		dst **float64
	}{
		{"minimum", &c.Minimum},
		{"maximum", &c.Maximum},
		{"exclusiveMinimum", &c.ExclusiveMinimum},
		{"exclusiveMaximum", &c.ExclusiveMaximum},
	}
	for _, fl := range floats {
		if raw, ok := f.Tag.Lookup(fl.tag); ok {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return c, fmt.Errorf("invalid %s tag: %w", fl.tag, err)
			}
			*fl.dst = &v
		}
	}

	ints := []struct {
		tag string
		dst **int
	}{
		{"minLength", &c.MinLength},
		{"maxLength", &c.MaxLength},
		{"minItems", &c.MinItems},
		{"maxItems", &c.MaxItems},
	}
	for _, in := range ints {
		if raw, ok := f.Tag.Lookup(in.tag); ok {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return c, fmt.Errorf("invalid %s tag: %w", in.tag, err)
			}
			*in.dst = &v
		}
	}

	c.Pattern = f.Tag.Get("pattern")

	if raw, ok := f.Tag.Lookup("enum"); ok {
		elem := f.Type
		for elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		for _, item := range strings.Split(raw, ",") {
			v, err := parseValue(strings.TrimSpace(item), elem)
			if err != nil {
				return c, fmt.Errorf("invalid enum value %q: %w", item, err)
			}
			c.Enum = append(c.Enum, v)
		}
	}

	return c, nil
}
