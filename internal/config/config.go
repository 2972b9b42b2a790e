package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	App       AppConfig       `yaml:"app" split_words:"true"`
	Server    ServerConfig    `yaml:"server" split_words:"true"`
	Logging   LoggingConfig   `yaml:"logging" split_words:"true"`
	Telemetry TelemetryConfig `yaml:"telemetry" split_words:"true"`
	Dispatch  DispatchConfig  `yaml:"dispatch" split_words:"true"`
	Renderer  RendererConfig  `yaml:"renderer" split_words:"true"`
}

// AppConfig identifies the running application
type AppConfig struct {
	Name        string `yaml:"name" split_words:"true" validate:"required"`
	Version     string `yaml:"version" split_words:"true" validate:"required"`
	Environment string `yaml:"environment" split_words:"true" validate:"oneof=development staging production test"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string          `yaml:"host" split_words:"true"`
	Port            int             `yaml:"port" split_words:"true" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" split_words:"true" validate:"gt=0"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" split_words:"true" validate:"gt=0"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" split_words:"true" validate:"gt=0"`
	MaxHeaderBytes  int             `yaml:"max_header_bytes" split_words:"true" validate:"gt=0"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" split_words:"true" validate:"gt=0"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" split_words:"true"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" split_words:"true"`
	RPS     float64 `yaml:"rps" split_words:"true" validate:"gt=0"`
	Burst   int     `yaml:"burst" split_words:"true" validate:"gt=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" split_words:"true" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" split_words:"true" validate:"oneof=json text"`
	Output   string `yaml:"output" split_words:"true" validate:"oneof=stdout file both"`
	FilePath string `yaml:"file_path" split_words:"true" validate:"required_unless=Output stdout"`
}

// TelemetryConfig selects the OpenTelemetry exporters
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" split_words:"true" validate:"required"`
	TraceExporter  string  `yaml:"trace_exporter" split_words:"true" validate:"oneof=stdout none"`
	MetricExporter string  `yaml:"metric_exporter" split_words:"true" validate:"oneof=prometheus none"`
	SampleRatio    float64 `yaml:"sample_ratio" split_words:"true" validate:"gte=0,lte=1"`
}

// DispatchConfig configures exception dispatch
type DispatchConfig struct {
	MaxDepth int             `yaml:"max_depth" split_words:"true" validate:"min=1,max=32"`
	Debug    bool            `yaml:"debug" split_words:"true"`
	Handlers HandlerMappings `yaml:"handlers" split_words:"true" validate:"dive"`
}

// HandlerMapping maps an exception kind name to a handler identifier
type HandlerMapping struct {
	Kind    string `yaml:"kind" validate:"required"`
	Handler string `yaml:"handler" validate:"required"`
}

// HandlerMappings is the ordered exception handler mapping
type HandlerMappings []HandlerMapping

// Decode parses "Kind=Handler,Kind=Handler" from the environment
func (m *HandlerMappings) Decode(value string) error {
	var out HandlerMappings
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kind, handler, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid handler mapping %q, want Kind=Handler", pair)
		}
		out = append(out, HandlerMapping{
			Kind:    strings.TrimSpace(kind),
			Handler: strings.TrimSpace(handler),
		})
	}
	*m = out
	return nil
}

// RendererConfig configures the JSON renderer
type RendererConfig struct {
	Convertors         []string `yaml:"convertors" split_words:"true" validate:"dive,oneofci=gb2312 trim nfc"`
	OverrideConvertors bool     `yaml:"override_convertors" split_words:"true"`
	Indent             string   `yaml:"indent" split_words:"true"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:        AppName,
			Version:     AppVersion,
			Environment: "development",
		},
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			MaxHeaderBytes:  DefaultMaxHeaderBytes,
			ShutdownTimeout: DefaultShutdownTimeout,
			RateLimit: RateLimitConfig{
				Enabled: false,
				RPS:     DefaultRateLimitRPS,
				Burst:   DefaultRateLimitBurst,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "stdout",
			FilePath: "logs/app.log",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1,
		},
		Dispatch: DispatchConfig{
			MaxDepth: DefaultMaxDepth,
			Handlers: DefaultHandlers(),
		},
		Renderer: RendererConfig{
			Indent: "    ",
		},
	}
}

// DefaultHandlers returns the built-in exception handler mapping
func DefaultHandlers() HandlerMappings {
	return HandlerMappings{
		{Kind: "ClientRouteNotFound", Handler: "NotFoundHandler"},
		{Kind: "ClientMethodNotAllowed", Handler: "MethodNotAllowedHandler"},
		{Kind: "Runtime", Handler: "RuntimeHandler"},
		{Kind: "Client", Handler: "ClientHandler"},
		{Kind: "Exception", Handler: "ExceptionHandler"},
	}
}

// Load reads SLIM_CONFIG_FILE, or ./config.yaml when present, then applies
// the environment
func Load() (*Config, error) {
	if path := os.Getenv(EnvConfigFile); path != "" {
		return LoadFromFile(path)
	}
	return load(DefaultConfigFile, false)
}

// LoadFromFile reads the given YAML file, which must exist, then applies the
// environment
func LoadFromFile(path string) (*Config, error) {
	return load(path, true)
}

func load(path string, required bool) (*Config, error) {
	cfg := Default()

	if err := cfg.mergeFile(path); err != nil {
		if required || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// mergeFile overlays the YAML file on cfg. Keys absent from the file keep
// their current value; a present handler list replaces the default one.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	if len(c.Dispatch.Handlers) == 0 {
		return errors.New("dispatch.handlers must declare at least one mapping")
	}
	return nil
}

// Addr returns the server listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsProduction reports whether the application runs in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}
