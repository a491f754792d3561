package rpcschema

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for registration (debug level) and
// contract violations (error level). The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithFormat adds or replaces a format predicate. Built-in formats are
// idate, buffer and date-time.
func WithFormat(name string, fn FormatFunc) Option {
	return func(r *Registry) {
		if fn == nil {
			delete(r.formats, name)
			return
		}
		r.formats[name] = fn
	}
}

// WithMetrics registers contract check counters on reg. Collectors already
// registered by another Registry are shared.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(r *Registry) {
		if reg != nil {
			r.metrics = newContractMetrics(reg)
		}
	}
}
