// Package availability implements the URL-availability requester: a
// per-receiver protocol state machine (ReceiverRequester) multiplexed by a
// controller-wide coordinator (Coordinator).
//
// The package models the transport, the message demultiplexer, the wire
// codec and the monotonic clock as consumed interfaces (see transport.go and
// wire.go); concrete implementations of those interfaces live outside this
// package, in internal/amqptransport, internal/wire and internal/clock.
//
// Coordinator and ReceiverRequester execute on a single logical thread: all
// public entry points funnel through Coordinator's internal actor loop, so
// neither type takes a lock over its own state. See Coordinator.sm.
package availability
