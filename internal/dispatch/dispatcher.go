package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/ehaomiao/slim/internal/errors"
	"github.com/ehaomiao/slim/internal/web"
)

// DefaultMaxDepth is the default number of handler invocations per dispatch
const DefaultMaxDepth = 3

// ErrDepthExceeded is matched by every DepthExceededError
var ErrDepthExceeded = errors.New("exception handler re-dispatch limit exceeded")

// DepthExceededError is returned when every handler invocation allowed for a
// single dispatch failed. Chain holds the original error followed by each
// error raised by a handler, in order.
type DepthExceededError struct {
	MaxDepth int
	Chain    []error
}

// Error implements the error interface
func (e *DepthExceededError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, err := range e.Chain {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("%s after %d handler invocations: %s",
		ErrDepthExceeded, e.MaxDepth, strings.Join(parts, " -> "))
}

// Is matches ErrDepthExceeded
func (e *DepthExceededError) Is(target error) bool {
	return target == ErrDepthExceeded
}

// Unwrap exposes the exception chain to errors.Is and errors.As
func (e *DepthExceededError) Unwrap() []error {
	return e.Chain
}

// Dispatcher routes raised errors to configured exception handlers
type Dispatcher struct {
	routes   []Route
	factory  Factory
	fallback Fallback
	maxDepth int
	logger   *slog.Logger

	tracer trace.Tracer
	meter  metric.Meter
	tel    *telemetry
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithMaxDepth limits handler invocations per dispatch
func WithMaxDepth(n int) Option {
	return func(d *Dispatcher) {
		d.maxDepth = n
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithTracer sets the tracer used for dispatch spans
func WithTracer(tracer trace.Tracer) Option {
	return func(d *Dispatcher) {
		d.tracer = tracer
	}
}

// WithMeter sets the meter used for dispatch metrics
func WithMeter(meter metric.Meter) Option {
	return func(d *Dispatcher) {
		d.meter = meter
	}
}

// New creates a dispatcher over an ordered route list
func New(routes []Route, factory Factory, fallback Fallback, opts ...Option) (*Dispatcher, error) {
	if factory == nil {
		return nil, fmt.Errorf("handler factory must not be nil")
	}
	if fallback == nil {
		return nil, fmt.Errorf("fallback must not be nil")
	}
	for i, route := range routes {
		if route.Kind == nil {
			return nil, fmt.Errorf("route %d: kind must not be nil", i)
		}
		if route.Handler == "" {
			return nil, fmt.Errorf("route %d (%s): handler identifier must not be empty", i, route.Kind)
		}
	}

	d := &Dispatcher{
		routes:   append([]Route(nil), routes...),
		factory:  factory,
		fallback: fallback,
		maxDepth: DefaultMaxDepth,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.maxDepth < 1 {
		return nil, fmt.Errorf("max depth must be at least 1, got %d", d.maxDepth)
	}
	d.logger = d.logger.With(slog.String("component", "exception_dispatcher"))

	tel, err := newTelemetry(d.tracer, d.meter)
	if err != nil {
		return nil, err
	}
	d.tel = tel

	return d, nil
}

// Routes returns a copy of the configured routes
func (d *Dispatcher) Routes() []Route {
	return append([]Route(nil), d.routes...)
}

// MaxDepth returns the handler invocation limit
func (d *Dispatcher) MaxDepth() int {
	return d.maxDepth
}

// Match returns the first route whose kind err is-a
func (d *Dispatcher) Match(err error) (Route, bool) {
	kind := apperrors.KindOf(err)
	for _, route := range d.routes {
		if kind.Is(route.Kind) {
			return route, true
		}
	}
	return Route{}, false
}

// Dispatch produces a response for err. r and resp are the ambient request
// and response of the failed exchange; they are used whenever the exception
// does not carry its own. The only errors returned are a handler resolution
// failure, unchanged, and a *DepthExceededError.
func (d *Dispatcher) Dispatch(ctx context.Context, err error, r *http.Request, resp *web.Response) (*web.Response, error) {
	if err == nil {
		return resp, nil
	}

	ctx, span := d.tel.tracer.Start(ctx, "dispatch", trace.WithAttributes(
		attribute.String("exception.kind", apperrors.KindOf(Normalize(err)).Name()),
	))
	defer span.End()

	chain := make([]error, 0, d.maxDepth+1)
	current := err
	invocations := 0

	for {
		chain = append(chain, current)
		normalized := Normalize(current)

		route, ok := d.Match(normalized)
		if !ok {
			d.tel.finish(ctx, span, OutcomeFallback, invocations)
			return d.fallback.Render(current, r, resp), nil
		}

		handler, resolveErr := d.factory.Resolve(route.Handler)
		if resolveErr != nil {
			d.logger.ErrorContext(ctx, "failed to resolve exception handler",
				slog.String("handler", route.Handler),
				slog.String("kind", route.Kind.Name()),
				slog.String("error", resolveErr.Error()))
			span.RecordError(resolveErr)
			span.SetStatus(codes.Error, "handler resolution failed")
			d.tel.finish(ctx, span, OutcomeFatal, invocations)
			return nil, resolveErr
		}

		handler.Bind(normalized)
		hreq, hresp := requestResponse(normalized, r, resp)

		span.AddEvent("invoke", trace.WithAttributes(
			attribute.String("handler.id", route.Handler),
			attribute.String("exception.kind", apperrors.KindOf(normalized).Name()),
		))
		out, handlerErr := invoke(handler, hreq, hresp)
		invocations++

		if handlerErr == nil {
			if out == nil {
				out = hresp
			}
			if out == nil {
				out = web.NewResponse()
			}
			d.tel.finish(ctx, span, OutcomeHandled, invocations)
			return out, nil
		}

		d.logger.WarnContext(ctx, "exception handler failed",
			slog.String("handler", route.Handler),
			slog.String("kind", apperrors.KindOf(normalized).Name()),
			slog.String("error", handlerErr.Error()),
			slog.Int("invocation", invocations))

		if invocations >= d.maxDepth {
			fatal := &DepthExceededError{
				MaxDepth: d.maxDepth,
				Chain:    append(chain, handlerErr),
			}
			d.logger.ErrorContext(ctx, "exception dispatch aborted",
				slog.Int("max_depth", d.maxDepth),
				slog.String("error", fatal.Error()))
			span.RecordError(fatal)
			span.SetStatus(codes.Error, ErrDepthExceeded.Error())
			d.tel.finish(ctx, span, OutcomeFatal, invocations)
			return nil, fatal
		}

		d.tel.redispatched(ctx, route.Handler)
		current = handlerErr
	}
}

// requestResponse picks the exception's own request and response, each
// independently falling back to the ambient value.
func requestResponse(err error, r *http.Request, resp *web.Response) (*http.Request, *web.Response) {
	var reqCarrier interface{ Request() *http.Request }
	if errors.As(err, &reqCarrier) {
		if own := reqCarrier.Request(); own != nil {
			r = own
		}
	}

	var respCarrier interface{ Response() *web.Response }
	if errors.As(err, &respCarrier) {
		if own := respCarrier.Response(); own != nil {
			resp = own
		}
	}

	return r, resp
}

// invoke runs the handler, turning a panic into a Runtime exception
func invoke(h Handler, r *http.Request, resp *web.Response) (out *web.Response, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			err = apperrors.New(apperrors.KindRuntime,
				fmt.Sprintf("exception handler panicked: %v", rec),
				apperrors.WithContext(apperrors.ContextPanic, rec),
			)
		}
	}()
	return h.Handle(r, resp)
}
