package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/ekisa-team/infero/schema"
)

// InvokeOption configures a single invocation.
type InvokeOption func(*invokeConfig)

type invokeConfig struct {
	echoInput bool
}

// WithInputEcho attaches the validated payload to the result.
func WithInputEcho(echo bool) InvokeOption {
	return func(c *invokeConfig) {
		c.echoInput = echo
	}
}

// Invoker validates, times, calls and packages one prediction. It performs
// no locking: callers must not share an instance across concurrent calls.
type Invoker struct {
	target    any
	sig       *Signature
	request   *schema.Request
	response  *schema.Response
	lifecycle *Lifecycle
	now       func() time.Time
}

// NewInvoker creates an invoker for target.
func NewInvoker(target any, sig *Signature, request *schema.Request, response *schema.Response, lifecycle *Lifecycle) *Invoker {
	return &Invoker{
		target:    target,
		sig:       sig,
		request:   request,
		response:  response,
		lifecycle: lifecycle,
		now:       time.Now,
	}
}

// Invoke runs the entry operation for payload. Failures are *Error values of
// kind Setup (not ready), Validation, Execution or Serialization. The context
// is checked once, right before the predictor is called; a predictor that
// honours cancellation itself must leave its state consistent.
func (inv *Invoker) Invoke(ctx context.Context, payload map[string]any, opts ...InvokeOption) (*Result, error) {
	var cfg invokeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := inv.lifecycle.Ensure(); err != nil {
		return nil, err
	}

	validated, err := inv.request.Validate(payload)
	if err != nil {
		return nil, validationError(err)
	}

	args, err := inv.arguments(ctx, validated)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, newError(KindExecution, err, "%s.%s cancelled: %v", inv.sig.TypeName, inv.sig.Method, err)
	}

	start := inv.now()
	value, callErr := inv.call(args)
	elapsed := roundElapsed(inv.now().Sub(start).Seconds())

	if callErr != nil {
		return nil, newError(KindExecution, callErr, "%s.%s failed: %v", inv.sig.TypeName, inv.sig.Method, callErr)
	}

	normalized, err := normalize(value)
	if err != nil {
		return nil, newError(KindSerialization, err, "failed to serialize %s result: %v", inv.sig.TypeName, err)
	}

	result := &Result{
		Elapsed:    elapsed,
		Value:      normalized,
		structured: inv.response.Structured(),
	}
	if cfg.echoInput {
		result.Input = validated
	}

	if err := result.seal(inv.response); err != nil {
		return nil, err
	}

	return result, nil
}

func validationError(err error) *Error {
	e := newError(KindValidation, err, "%v", err)

	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		e.Violations = verr.Violations
	}

	return e
}

// arguments builds the call arguments, decoding the validated fields into
// the entry operation's input struct.
func (inv *Invoker) arguments(ctx context.Context, validated map[string]any) ([]reflect.Value, error) {
	var args []reflect.Value
	if inv.sig.withContext {
		args = append(args, reflect.ValueOf(ctx))
	}

	if inv.sig.input == nil {
		return args, nil
	}

	data, err := json.Marshal(validated)
	if err != nil {
		return nil, newError(KindValidation, err, "%s: %v", inv.request.Name(), err)
	}

	in := reflect.New(inv.sig.input)
	if err := json.Unmarshal(data, in.Interface()); err != nil {
		return nil, newError(KindValidation, err, "%s: %v", inv.request.Name(), err)
	}

	if inv.sig.inputPtr {
		return append(args, in), nil
	}
	return append(args, in.Elem()), nil
}

// call invokes the entry operation, converting panics into errors.
func (inv *Invoker) call(args []reflect.Value) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	out := reflect.ValueOf(inv.target).MethodByName(inv.sig.Method).Call(args)

	if inv.sig.withError {
		if e := out[len(out)-1]; !e.IsNil() {
			return nil, e.Interface().(error)
		}
	}

	if inv.sig.withValue {
		return out[0].Interface(), nil
	}

	return nil, nil
}
