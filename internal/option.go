package internal

import (
	"io"

	"github.com/starford/temple/internal/noteservice"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config      *Config
	logOutput   io.Writer
	serviceOpts []noteservice.Option
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput redirects the JSON logger. CLI and MCP modes log to stderr
// so stdout carries only command output.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithServiceOptions appends options applied when the render service is built.
func WithServiceOptions(opts ...noteservice.Option) Option {
	return func(a *application) {
		a.serviceOpts = append(a.serviceOpts, opts...)
	}
}
