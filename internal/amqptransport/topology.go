package amqptransport

import "strconv" // used by requestRoutingKey

// Exchange and queue names for the availability protocol's AMQP topology.
//
// Outbound requests are published to requestExchange with a routing key
// scoped to the receiver's endpoint. Inbound responses and events from every
// receiver this process has connected to land on one shared queue, bound to
// inboundExchange once per endpoint so the demultiplexer never needs a
// dedicated consumer goroutine per receiver.
const (
	requestExchange  = "openscreen.availability.request"
	inboundExchange  = "openscreen.availability.inbound"
	inboundQueueName = "openscreen.availability.inbound"
)

// headerMessageTypeKey and headerEndpointIDKey are AMQP message headers set
// by a receiver on every response/event delivery, read by the
// demultiplexer to route the delivery without parsing the body first.
const (
	headerMessageTypeKey = "x-openscreen-message-type"
	headerEndpointIDKey  = "x-openscreen-endpoint-id"
)

func requestRoutingKey(endpointID uint64) string {
	return "endpoint." + strconv.FormatUint(endpointID, 10)
}
