// Package container resolves exception handlers and shared settings through
// a vessel dependency-injection container.
package container

import (
	"fmt"
	"sync"

	"github.com/xraph/vessel"

	"github.com/ehaomiao/slim/internal/config"
	"github.com/ehaomiao/slim/internal/dispatch"
)

// SettingsName is the name the application settings are registered under
const SettingsName = "settings"

// HandlerConstructor builds a fresh exception handler
type HandlerConstructor func() (dispatch.Handler, error)

// Container registers exception handlers by identifier and resolves a new
// instance on every request. It implements dispatch.Factory.
type Container struct {
	v vessel.Vessel

	mu  sync.RWMutex
	ids []string
}

// New creates an empty container
func New() *Container {
	return &Container{v: vessel.New()}
}

// RegisterHandler registers a transient handler constructor under id
func (c *Container) RegisterHandler(id string, constructor HandlerConstructor) error {
	if id == "" {
		return fmt.Errorf("handler identifier must not be empty")
	}
	if constructor == nil {
		return fmt.Errorf("handler %q: constructor must not be nil", id)
	}
	if c.Has(id) {
		return fmt.Errorf("handler %q already registered", id)
	}

	if err := vessel.ProvideNamed(c.v, id, func() (dispatch.Handler, error) {
		h, err := constructor()
		if err != nil {
			return nil, err
		}
		if h == nil {
			return nil, fmt.Errorf("handler %q: constructor returned nil", id)
		}
		return h, nil
	}, vessel.AsTransient()); err != nil {
		return fmt.Errorf("register handler %q: %w", id, err)
	}

	c.mu.Lock()
	c.ids = append(c.ids, id)
	c.mu.Unlock()
	return nil
}

// Resolve implements dispatch.Factory
func (c *Container) Resolve(id string) (dispatch.Handler, error) {
	if !c.Has(id) {
		return nil, fmt.Errorf("exception handler %q is not registered", id)
	}
	h, err := vessel.InjectNamed[dispatch.Handler](c.v, id)
	if err != nil {
		return nil, fmt.Errorf("resolve exception handler %q: %w", id, err)
	}
	return h, nil
}

// Has reports whether a handler is registered under id
func (c *Container) Has(id string) bool {
	return vessel.HasTypeNamed[dispatch.Handler](c.v, id)
}

// Handlers returns the registered handler identifiers in registration order
func (c *Container) Handlers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.ids...)
}

// RegisterSettings stores the application settings
func (c *Container) RegisterSettings(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("settings must not be nil")
	}
	if err := vessel.ProvideValue[*config.Config](c.v, cfg, vessel.WithName(SettingsName)); err != nil {
		return fmt.Errorf("register settings: %w", err)
	}
	return nil
}

// Settings returns the registered application settings
func (c *Container) Settings() (*config.Config, error) {
	cfg, err := vessel.InjectNamed[*config.Config](c.v, SettingsName)
	if err != nil {
		return nil, fmt.Errorf("resolve settings: %w", err)
	}
	return cfg, nil
}
