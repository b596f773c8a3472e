package openscreen

import (
	"time"

	opentracing "github.com/opentracing/opentracing-go"

	"github.com/gtalis/openscreen/internal/availability"
)

// DefaultConfig is the default controller configuration. Clock, Transport,
// Demuxer, and Codec have no usable zero value and must always be supplied
// by the caller; every other field falls back to a sensible default.
var DefaultConfig = Config{
	Logger:              NewLogger(false),
	Tracer:              opentracing.NoopTracer{},
	WatchDuration:       availability.DefaultWatchDuration,
	WatchRefreshPadding: availability.DefaultWatchRefreshPadding,
}

// Config describes a Coordinator's dependencies and tuning parameters.
type Config struct {
	// Clock is the monotonic time source used to evaluate watch expiry.
	Clock availability.Clock

	// Transport establishes connections to receiver endpoints.
	Transport availability.Transport

	// Demuxer dispatches inbound responses and events to the requester
	// that owns each endpoint.
	Demuxer availability.Demuxer

	// Codec encodes and decodes the three availability wire messages.
	Codec availability.Codec

	// Logger receives the controller's log lines. Defaults to
	// DefaultConfig.Logger, a non-debug Logger writing to stdout, if left
	// nil.
	Logger Logger

	// Tracer receives a span per externally-triggered coordinator
	// operation. Defaults to opentracing.NoopTracer{} if left nil.
	Tracer opentracing.Tracer

	// WatchDuration is how long a watch remains valid after it is
	// (re)established. Defaults to availability.DefaultWatchDuration.
	WatchDuration time.Duration

	// WatchRefreshPadding is how far ahead of a watch's deadline it is
	// renewed. Defaults to availability.DefaultWatchRefreshPadding.
	WatchRefreshPadding time.Duration
}

func withDefaults(cfg Config) Config {
	if cfg.Logger == nil {
		cfg.Logger = DefaultConfig.Logger
	}
	if cfg.Tracer == nil {
		cfg.Tracer = DefaultConfig.Tracer
	}
	if cfg.WatchDuration == 0 {
		cfg.WatchDuration = DefaultConfig.WatchDuration
	}
	if cfg.WatchRefreshPadding == 0 {
		cfg.WatchRefreshPadding = DefaultConfig.WatchRefreshPadding
	}
	return cfg
}
