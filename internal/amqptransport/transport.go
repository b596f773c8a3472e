package amqptransport

import (
	"github.com/streadway/amqp"

	"github.com/gtalis/openscreen/internal/availability"
)

// connectRequest is the ConnectRequest handle returned by Gateway.Connect.
// It carries no state; the core only holds it.
type connectRequest struct{}

// Connect implements availability.Transport. It runs asynchronously: the
// observer is notified exactly once, from a goroutine dedicated to this
// connect attempt, once a channel has been leased from the pool.
func (g *Gateway) Connect(endpoint string, observer availability.ConnectObserver) availability.ConnectRequest {
	endpointID := nextEndpointID(g)

	go g.connect(endpoint, endpointID, observer)

	return &connectRequest{}
}

func (g *Gateway) connect(endpoint string, endpointID uint64, observer availability.ConnectObserver) {
	logGatewayConnect(g.logger, endpoint, endpointID)

	channel, err := g.pool.Get()
	if err != nil {
		logGatewayConnectFailed(g.logger, endpoint, err)
		observer.OnConnectionFailed()
		return
	}

	observer.OnConnectionOpened(&connection{
		pool:       g.pool,
		channel:    channel,
		endpoint:   endpoint,
		endpointID: endpointID,
	})
}

// connection publishes framed requests to a receiver's endpoint-scoped
// routing key on requestExchange. Responses and events travel back through
// the Gateway's shared demuxer, not through this type.
type connection struct {
	pool       *channelPool
	channel    *amqp.Channel
	endpoint   string
	endpointID uint64
}

// Write implements availability.Connection.
func (c *connection) Write(b []byte) error {
	return c.channel.Publish(
		requestExchange,
		requestRoutingKey(c.endpointID),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/cbor",
			Headers: amqp.Table{
				headerMessageTypeKey: int64(availability.MessageTypeURLAvailabilityRequest),
				headerEndpointIDKey:  int64(c.endpointID),
			},
			Body: b,
		},
	)
}

// EndpointID implements availability.Connection.
func (c *connection) EndpointID() uint64 {
	return c.endpointID
}

// Close implements availability.Connection by returning the leased channel
// to the pool, matching the pool's get/use/Put lifecycle.
func (c *connection) Close() error {
	return c.pool.Put(c.channel)
}
