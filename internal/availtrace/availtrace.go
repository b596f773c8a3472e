// Package availtrace centralizes the opentracing span field naming used by
// internal/availability, the way internal/opentr centralizes it for the
// notification and command subsystems.
package availtrace

import (
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/log"

	"github.com/gtalis/openscreen/internal/ident"
)

var (
	refreshEvent = log.String("event", "watch-refresh")
	edgeEvent    = log.String("event", "availability-edge")
	errorEvent   = log.String("event", "error")
)

// ChildOf starts a span named op as a child of parent, or a new root span if
// parent is nil.
func ChildOf(t opentracing.Tracer, op string, parent opentracing.SpanContext) opentracing.Span {
	opts := []opentracing.StartSpanOption{ext.SpanKindRPCServer}
	if parent != nil {
		opts = append(opts, opentracing.ChildOf(parent))
	}
	return t.StartSpan(op, opts...)
}

// SetupRequest configures s as a span for a single AddObserver/AddReceiver/
// RemoveReceiver-style coordinator operation.
func SetupRequest(s opentracing.Span, op string, urlCount int) {
	s.SetTag("subsystem", "availability")
	s.SetTag("operation", op)
	if urlCount > 0 {
		s.SetTag("url_count", urlCount)
	}
}

// LogRefresh records a watch-refresh cycle against s.
func LogRefresh(s opentracing.Span, serviceID ident.ServiceID, refreshedURLs int) {
	s.LogFields(
		refreshEvent,
		log.String("receiver", serviceID.ShortString()),
		log.Int("refreshed_urls", refreshedURLs),
	)
}

// LogEdge records an edge delivery (an actual onAvailable/onUnavailable
// transition) against s.
func LogEdge(s opentracing.Span, u ident.URL, serviceID ident.ServiceID, available bool) {
	s.LogFields(
		edgeEvent,
		log.String("url", string(u)),
		log.String("receiver", serviceID.ShortString()),
		log.Bool("available", available),
	)
}

// LogError marks s as failed and records err against it.
func LogError(s opentracing.Span, err error) {
	if err == nil {
		return
	}
	ext.Error.Set(s, true)
	s.LogFields(errorEvent, log.String("message", err.Error()))
}
