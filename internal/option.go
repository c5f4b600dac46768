package internal

import (
	"io"

	"github.com/starford/kasten/internal/storage"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	backend storage.Backend
	out     io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithBackend overrides the backend selected by the store configuration.
func WithBackend(b storage.Backend) Option {
	return func(a *application) {
		a.backend = b
	}
}

// WithOutput sets where PrintTree writes. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.out = w
	}
}
