package hyperate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Defaults for the client's duty loops.
const (
	DefaultKeepAliveInterval = 10 * time.Second
	DefaultIdleDelay         = 50 * time.Millisecond
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
)

// Option configures a Client.
type Option func(*options)

type options struct {
	logger            logrus.FieldLogger
	keepAliveInterval time.Duration
	idleDelay         time.Duration
	handshakeTimeout  time.Duration
	writeTimeout      time.Duration
	registry          prometheus.Registerer
	namespace         string
	tracerProvider    trace.TracerProvider

	refSource refSource
	dial      dialer
}

func clientDefaults() options {
	return options{
		logger:            logrus.StandardLogger(),
		keepAliveInterval: DefaultKeepAliveInterval,
		idleDelay:         DefaultIdleDelay,
		handshakeTimeout:  DefaultHandshakeTimeout,
		writeTimeout:      DefaultWriteTimeout,
		namespace:         "hyperate",
		tracerProvider:    otel.GetTracerProvider(),
	}
}

// WithLogger sets the logger used for connection and channel events.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithKeepAliveInterval sets how often a keep-alive is sent on an open connection.
func WithKeepAliveInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.keepAliveInterval = d
		}
	}
}

// WithIdleDelay sets how long the receive loop waits between checks while no
// connection is open.
func WithIdleDelay(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.idleDelay = d
		}
	}
}

// WithHandshakeTimeout bounds the WebSocket opening handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.handshakeTimeout = d
		}
	}
}

// WithWriteTimeout bounds every outbound frame. A context deadline shorter
// than d takes precedence.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.writeTimeout = d
		}
	}
}

// WithMetricsRegistry registers the client's Prometheus collectors with reg.
// Without it the collectors live in a private registry.
func WithMetricsRegistry(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithMetricsNamespace sets the Prometheus namespace (default: "hyperate").
func WithMetricsNamespace(namespace string) Option {
	return func(o *options) {
		o.namespace = namespace
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
// Default: the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

func withRefSource(src refSource) Option {
	return func(o *options) {
		o.refSource = src
	}
}

func withDialer(d dialer) Option {
	return func(o *options) {
		o.dial = d
	}
}
