package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"github.com/ehaomiao/slim/internal/config"
	"github.com/ehaomiao/slim/internal/container"
	"github.com/ehaomiao/slim/internal/dispatch"
	apperrors "github.com/ehaomiao/slim/internal/errors"
	"github.com/ehaomiao/slim/internal/handlers"
	"github.com/ehaomiao/slim/internal/infrastructure"
	appmiddleware "github.com/ehaomiao/slim/internal/middleware"
	"github.com/ehaomiao/slim/internal/renderer"
	transport "github.com/ehaomiao/slim/internal/transport/http"
	"github.com/ehaomiao/slim/internal/web"
)

// Application wires configuration, exception dispatch and the HTTP server
type Application struct {
	Config       *config.Config
	Logger       *slog.Logger
	OTel         *infrastructure.OTelProviders
	Container    *container.Container
	Taxonomy     *apperrors.Taxonomy
	Renderer     *renderer.JSON
	ErrorHandler *apperrors.ErrorHandler
	Dispatcher   *dispatch.Dispatcher
	Health       *transport.HealthHandler
	Router       *chi.Mux
	Server       *http.Server

	ownsLogger bool
}

// Initializer runs after the built-in handlers are registered and before
// the handler mapping is resolved. It may register handlers and define
// exception kinds.
type Initializer func(a *Application) error

// RouteRegistrar registers application routes on the router
type RouteRegistrar func(r chi.Router, a *Application)

type options struct {
	logger       *slog.Logger
	taxonomy     *apperrors.Taxonomy
	convertors   []renderer.Convertor
	initializers []Initializer
	routes       []RouteRegistrar
}

// Option configures NewApplication
type Option func(*options)

// WithLogger uses logger instead of initializing the global one
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTaxonomy uses a prepared exception taxonomy
func WithTaxonomy(t *apperrors.Taxonomy) Option {
	return func(o *options) {
		o.taxonomy = t
	}
}

// WithConvertors appends renderer convertors after the configured ones
func WithConvertors(convertors ...renderer.Convertor) Option {
	return func(o *options) {
		o.convertors = append(o.convertors, convertors...)
	}
}

// WithInitializer adds a startup hook
func WithInitializer(fn Initializer) Option {
	return func(o *options) {
		o.initializers = append(o.initializers, fn)
	}
}

// WithRoutes adds a route registration hook
func WithRoutes(fn RouteRegistrar) Option {
	return func(o *options) {
		o.routes = append(o.routes, fn)
	}
}

// NewApplication builds the application from cfg. A nil cfg is loaded from
// the environment.
func NewApplication(cfg *config.Config, opts ...Option) (*Application, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	}

	a := &Application{Config: cfg, Logger: o.logger}
	if a.Logger == nil {
		logger, err := infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		a.Logger = logger
		a.ownsLogger = true
	}

	a.Logger.Info("application starting",
		slog.String("name", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment))

	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, cfg.App, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	a.OTel = otelProviders

	a.Container = container.New()
	if err := a.Container.RegisterSettings(cfg); err != nil {
		return nil, err
	}

	a.Taxonomy = o.taxonomy
	if a.Taxonomy == nil {
		a.Taxonomy = apperrors.NewTaxonomy()
	}

	if a.Renderer, err = newRenderer(cfg.Renderer, o.convertors); err != nil {
		return nil, err
	}

	if err := a.registerBuiltinHandlers(); err != nil {
		return nil, err
	}

	for _, initialize := range o.initializers {
		if err := initialize(a); err != nil {
			return nil, fmt.Errorf("initializer failed: %w", err)
		}
	}

	routes, err := a.resolveRoutes()
	if err != nil {
		return nil, err
	}

	a.ErrorHandler = apperrors.NewErrorHandler(a.Logger, cfg.Dispatch.Debug)
	a.Dispatcher, err = dispatch.New(routes, a.Container, a.ErrorHandler,
		dispatch.WithMaxDepth(cfg.Dispatch.MaxDepth),
		dispatch.WithLogger(a.Logger),
		dispatch.WithTracer(a.OTel.Tracer),
		dispatch.WithMeter(a.OTel.Meter),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create exception dispatcher: %w", err)
	}

	a.Health = transport.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.App.Environment, a.Logger)
	a.Health.AddCheck("exception_handlers", a.checkHandlers)
	a.Health.SetRoutes(a.routeInfo)

	if err := a.setupRouter(o.routes); err != nil {
		return nil, err
	}
	a.createServer()

	return a, nil
}

func newRenderer(cfg config.RendererConfig, extra []renderer.Convertor) (*renderer.JSON, error) {
	configured, err := renderer.ByNames(cfg.Convertors)
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}

	opts := []renderer.Option{renderer.WithIndent(cfg.Indent)}
	if cfg.OverrideConvertors {
		opts = append(opts, renderer.WithOverride(configured...))
	} else {
		opts = append(opts, renderer.WithConvertors(configured...))
	}
	opts = append(opts, renderer.WithConvertors(extra...))

	return renderer.NewJSON(opts...), nil
}

func (a *Application) registerBuiltinHandlers() error {
	r := a.Renderer
	debug := a.Config.Dispatch.Debug

	builtins := []struct {
		id  string
		new container.HandlerConstructor
	}{
		{handlers.NotFoundID, func() (dispatch.Handler, error) { return handlers.NewNotFoundHandler(r), nil }},
		{handlers.MethodNotAllowedID, func() (dispatch.Handler, error) { return handlers.NewMethodNotAllowedHandler(r), nil }},
		{handlers.RuntimeID, func() (dispatch.Handler, error) { return handlers.NewRuntimeHandler(r, debug), nil }},
		{handlers.ClientID, func() (dispatch.Handler, error) { return handlers.NewClientHandler(r), nil }},
		{handlers.ExceptionID, func() (dispatch.Handler, error) { return handlers.NewExceptionHandler(r), nil }},
	}
	for _, b := range builtins {
		if err := a.Container.RegisterHandler(b.id, b.new); err != nil {
			return err
		}
	}
	return nil
}

// resolveRoutes turns the configured mapping into dispatch routes. Unknown
// kinds and unregistered handlers fail startup.
func (a *Application) resolveRoutes() ([]dispatch.Route, error) {
	mappings := a.Config.Dispatch.Handlers
	routes := make([]dispatch.Route, 0, len(mappings))
	for i, m := range mappings {
		kind, ok := a.Taxonomy.Lookup(m.Kind)
		if !ok {
			return nil, fmt.Errorf("dispatch.handlers[%d]: unknown exception kind %q", i, m.Kind)
		}
		if !a.Container.Has(m.Handler) {
			return nil, fmt.Errorf("dispatch.handlers[%d]: exception handler %q is not registered", i, m.Handler)
		}
		routes = append(routes, dispatch.Route{Kind: kind, Handler: m.Handler})
	}
	return routes, nil
}

func (a *Application) setupRouter(registrars []RouteRegistrar) error {
	r := chi.NewRouter()

	r.NotFound(a.Handle(func(req *http.Request, resp *web.Response) (*web.Response, error) {
		return nil, web.NewNotFoundError(req, resp)
	}))
	r.MethodNotAllowed(a.Handle(func(req *http.Request, resp *web.Response) (*web.Response, error) {
		return nil, web.NewMethodNotAllowedError(req, resp, a.allowedMethods(req))
	}))

	r.Use(appmiddleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apperrors.NewErrorMiddleware(a.ErrorHandler, a.Logger).Handler)

	otelMiddleware, err := appmiddleware.NewOTelMiddleware(a.OTel)
	if err != nil {
		return err
	}
	r.Use(otelMiddleware.Handler)
	r.Use(appmiddleware.SecurityHeaders)

	if rl := a.Config.Server.RateLimit; rl.Enabled {
		r.Use(appmiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
	}
	r.Use(appmiddleware.Recoverer(a.ErrorHandler, a.recoverPanic))

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/health", a.Health.HealthCheck)
		r.Get("/health/live", a.Health.LivenessCheck)
		r.Get("/health/ready", a.Health.ReadinessCheck)
		r.Get("/version", a.Health.Version)
		r.Get("/exceptions", a.Health.ExceptionRoutes)
	})

	if a.OTel.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTel.PrometheusHTTP)
	}

	a.Router = r
	for _, register := range registrars {
		register(r, a)
	}
	return nil
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(a.Logger.Handler(), slog.LevelError),
	}
}

// Handle adapts an application handler. A returned error or a panic is
// dispatched to the configured exception handlers.
func (a *Application) Handle(fn web.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := web.NewResponse()

		out, err := invoke(fn, r, resp)
		if err != nil {
			a.respond(w, r, resp, err)
			return
		}
		if out == nil {
			out = resp
		}
		a.write(w, r, out)
	}
}

// respond dispatches err and writes the outcome. A failed dispatch is
// answered by the error handler.
func (a *Application) respond(w http.ResponseWriter, r *http.Request, resp *web.Response, err error) {
	out, fatal := a.Dispatcher.Dispatch(r.Context(), err, r, resp)
	if fatal != nil {
		a.ErrorHandler.HandleFatal(w, r, fatal)
		return
	}
	a.write(w, r, out)
}

func (a *Application) write(w http.ResponseWriter, r *http.Request, out *web.Response) {
	if err := out.WriteTo(w); err != nil {
		a.Logger.WarnContext(r.Context(), "failed to write response",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
}

// recoverPanic turns a panic in a plain http.Handler into a dispatched
// Runtime exception
func (a *Application) recoverPanic(w http.ResponseWriter, r *http.Request, recovered any) {
	a.Logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("path", r.URL.Path))

	a.respond(w, r, web.NewResponse(), panicException(recovered, r))
}

func invoke(fn web.HandlerFunc, r *http.Request, resp *web.Response) (out *web.Response, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			err = panicException(rec, r)
		}
	}()
	return fn(r, resp)
}

func panicException(recovered any, r *http.Request) *apperrors.Exception {
	opts := []apperrors.Option{
		apperrors.WithContext(apperrors.ContextPanic, recovered),
		apperrors.WithRequest(r),
	}
	if err, ok := recovered.(error); ok {
		opts = append(opts, apperrors.WithCause(err))
	}
	return apperrors.New(apperrors.KindRuntime, fmt.Sprintf("handler panicked: %v", recovered), opts...)
}

var candidateMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

// allowedMethods lists the methods routed for the request path
func (a *Application) allowedMethods(r *http.Request) []string {
	var allowed []string
	for _, m := range candidateMethods {
		if a.Router.Match(chi.NewRouteContext(), m, r.URL.Path) {
			allowed = append(allowed, m)
		}
	}
	return allowed
}

func (a *Application) checkHandlers(context.Context) error {
	var errs []error
	for _, route := range a.Dispatcher.Routes() {
		if _, err := a.Container.Resolve(route.Handler); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *Application) routeInfo() []transport.RouteInfo {
	routes := a.Dispatcher.Routes()
	out := make([]transport.RouteInfo, len(routes))
	for i, route := range routes {
		out[i] = transport.RouteInfo{Kind: route.Kind.Name(), Handler: route.Handler}
	}
	return out
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "server listening",
			slog.String("address", ln.Addr().String()))
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.InfoContext(context.Background(), "shutdown requested")
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop shuts the server down and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if a.OTel != nil {
		if err := a.OTel.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	if a.ownsLogger {
		if err := infrastructure.CloseLogFile(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
