// Package di provides dependency injection container
package di

import (
	"github.com/ssargent/lagerconv/pkg/api" //nolint:depguard
	"github.com/ssargent/lagerconv/pkg/sink"
)

// BackendLookup resolves an output format name to a sink backend
type BackendLookup func(name string) (sink.Backend, error)

// Container holds all the dependencies for the application
type Container struct {
	serverFactory api.ServerFactory
	backends      BackendLookup
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		serverFactory: api.NewServerFactory(),
		backends:      sink.Lookup,
	}
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// GetSinkBackend resolves an output format
func (c *Container) GetSinkBackend(name string) (sink.Backend, error) {
	return c.backends(name)
}

// SetBackendLookup allows overriding output format resolution (for testing)
func (c *Container) SetBackendLookup(lookup BackendLookup) {
	c.backends = lookup
}
