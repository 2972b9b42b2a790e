package config

import "time"

// Application info
const (
	AppName    = "slim"
	AppVersion = "1.0.0"
)

// Configuration sources
const (
	EnvPrefix         = "SLIM"
	EnvConfigFile     = "SLIM_CONFIG_FILE"
	DefaultConfigFile = "config.yaml"
)

// Server defaults
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8080
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20
	DefaultShutdownTimeout = 30 * time.Second
	DefaultRateLimitRPS    = 100
	DefaultRateLimitBurst  = 50
)

// Dispatch defaults
const (
	DefaultMaxDepth = 3
	MaxMaxDepth     = 32
)
