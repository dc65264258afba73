package predictor

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"sync"

	"github.com/ekisa-team/infero/schema"
)

// Binding owns exactly one predictor instance together with its lifecycle
// and the schemas of its type. It replaces any process-wide predictor: pass
// it to whoever needs to predict.
type Binding struct {
	locator   string
	instance  any
	sig       *Signature
	request   *schema.Request
	response  *schema.Response
	lifecycle *Lifecycle
	invoker   *Invoker
}

// Option configures Bind and New.
type Option func(*bindOptions)

type bindOptions struct {
	loader       *Loader
	method       string
	params       []schema.Parameter
	responseName string
}

// WithLoader sets the loader used by Bind.
func WithLoader(l *Loader) Option {
	return func(o *bindOptions) {
		o.loader = l
	}
}

// WithEntryOperation selects the entry operation, Predict by default.
func WithEntryOperation(method string) Option {
	return func(o *bindOptions) {
		o.method = method
	}
}

// WithParameters replaces introspected parameters with an explicit table.
func WithParameters(params []schema.Parameter) Option {
	return func(o *bindOptions) {
		o.params = params
	}
}

// WithResponseName names the envelope response schema.
func WithResponseName(name string) Option {
	return func(o *bindOptions) {
		o.responseName = name
	}
}

// schemas are synthesized once per predictor type and entry operation.
type schemas struct {
	request  *schema.Request
	response *schema.Response
}

var schemaCache sync.Map

// Bind loads the predictor named by locator and binds it.
func Bind(locator string, opts ...Option) (*Binding, error) {
	o := collect(opts)
	if o.loader == nil {
		o.loader = NewLoader()
	}

	instance, err := o.loader.Load(locator)
	if err != nil {
		return nil, err
	}

	return bind(locator, instance, o)
}

// New binds an already constructed predictor instance.
func New(instance any, opts ...Option) (*Binding, error) {
	return bind(fmt.Sprintf("%T", instance), instance, collect(opts))
}

func collect(opts []Option) bindOptions {
	o := bindOptions{method: PredictMethod}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func bind(locator string, instance any, o bindOptions) (*Binding, error) {
	sig, err := IntrospectMethod(instance, o.method)
	if err != nil {
		return nil, loadError(locator, err)
	}

	s, err := schemasFor(instance, sig, o)
	if err != nil {
		return nil, loadError(locator, err)
	}

	lifecycle := NewLifecycle(instance, sig.TypeName)

	return &Binding{
		locator:   locator,
		instance:  instance,
		sig:       sig,
		request:   s.request,
		response:  s.response,
		lifecycle: lifecycle,
		invoker:   NewInvoker(instance, sig, s.request, s.response, lifecycle),
	}, nil
}

func schemasFor(instance any, sig *Signature, o bindOptions) (*schemas, error) {
	cacheable := o.params == nil && o.responseName == ""
	key := signatureKey{t: reflect.TypeOf(instance), method: sig.Method}

	if cacheable {
		if cached, ok := schemaCache.Load(key); ok {
			return cached.(*schemas), nil
		}
	}

	params := sig.Params
	if o.params != nil {
		params = o.params
	}

	request, err := schema.NewRequest(sig.TypeName, params)
	if err != nil {
		return nil, err
	}

	var response *schema.Response
	switch {
	case sig.Returns != nil:
		response = schema.NewStructuredResponse(sig.Returns.Name, sig.Returns.Fields)
	case o.responseName != "":
		response = schema.NewEnvelopeResponse(o.responseName, "")
	default:
		response = schema.NewEnvelopeResponse(schema.ResponseName(sig.TypeName), "")
	}

	s := &schemas{request: request, response: response}
	if cacheable {
		actual, _ := schemaCache.LoadOrStore(key, s)
		return actual.(*schemas), nil
	}

	return s, nil
}

// Locator returns the locator the instance was loaded from.
func (b *Binding) Locator() string {
	return b.locator
}

// Instance returns the bound predictor instance.
func (b *Binding) Instance() any {
	return b.instance
}

// Signature returns the introspected entry operation.
func (b *Binding) Signature() *Signature {
	return b.sig
}

// Request returns the request schema.
func (b *Binding) Request() *schema.Request {
	return b.request
}

// Response returns the response schema.
func (b *Binding) Response() *schema.Response {
	return b.response
}

// State returns the lifecycle state of the instance.
func (b *Binding) State() State {
	return b.lifecycle.State()
}

// Setup runs the predictor setup at most once.
func (b *Binding) Setup(ctx context.Context) error {
	return b.lifecycle.Setup(ctx)
}

// Predict invokes the entry operation with payload.
func (b *Binding) Predict(ctx context.Context, payload map[string]any, opts ...InvokeOption) (*Result, error) {
	return b.invoker.Invoke(ctx, payload, opts...)
}

// Close releases the instance if it implements io.Closer.
func (b *Binding) Close() error {
	if c, ok := b.instance.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
