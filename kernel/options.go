package kernel

import "github.com/crudbug/reactorkernel/kernel/emit"

// Option is a functional option for configuring an Engine.
type Option func(*engineConfig) error

type engineConfig struct {
	emitter        emit.Emitter
	metrics        *Metrics
	maxActivations int
}

// WithEmitter attaches an observability sink. Every reactor start, suspend,
// resume, termination and chain boundary is reported to it. Defaults to
// emit.NewNullEmitter() when unset.
func WithEmitter(e emit.Emitter) Option {
	return func(cfg *engineConfig) error {
		cfg.emitter = e
		return nil
	}
}

// WithMetrics attaches a Prometheus metrics collector. See NewMetrics.
func WithMetrics(m *Metrics) Option {
	return func(cfg *engineConfig) error {
		cfg.metrics = m
		return nil
	}
}

// WithMaxActivations bounds the number of activations a single propagation
// chain may process before Fire returns ErrChainNonTermination, an optional
// non-termination watchdog; 0 (the default) disables the bound.
func WithMaxActivations(n int) Option {
	return func(cfg *engineConfig) error {
		cfg.maxActivations = n
		return nil
	}
}
