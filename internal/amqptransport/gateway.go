// Package amqptransport implements availability.Transport and
// availability.Demuxer over a single AMQP broker connection, grounded on
// the channel-pool and dispatcher patterns of this codebase's AMQP layer.
package amqptransport

import (
	"sync/atomic"

	"github.com/streadway/amqp"

	"github.com/gtalis/openscreen/internal/availability"
)

// DefaultPoolSize is the default channel pool size for a Gateway.
const DefaultPoolSize = 20

// Gateway is both an availability.Transport and an availability.Demuxer,
// sharing one broker connection and one channel pool between every
// receiver endpoint it is asked to connect to.
type Gateway struct {
	broker *amqp.Connection
	pool   *channelPool
	demux  *demuxer
	logger availability.Logger

	nextEndpointID uint64
}

// NewGateway validates the broker's advertised protocol version, declares
// the shared exchange topology, and starts a channel pool and a demuxer
// ready to accept Connect calls.
func NewGateway(broker *amqp.Connection, poolSize uint, logger availability.Logger) (*Gateway, error) {
	if logger == nil {
		logger = availability.NopLogger{}
	}
	if poolSize == 0 {
		poolSize = DefaultPoolSize
	}

	if err := checkBrokerVersion(broker); err != nil {
		return nil, err
	}

	setup, err := broker.Channel()
	if err != nil {
		return nil, err
	}
	defer setup.Close()

	if err := declareTopology(setup); err != nil {
		return nil, err
	}

	demuxChannel, err := broker.Channel()
	if err != nil {
		return nil, err
	}

	dx, err := newDemuxer(demuxChannel, logger)
	if err != nil {
		demuxChannel.Close()
		return nil, err
	}

	return &Gateway{
		broker: broker,
		pool:   newChannelPool(broker, poolSize, logger),
		demux:  dx,
		logger: logger,
	}, nil
}

// WatchMessageType implements availability.Demuxer by delegating to the
// Gateway's demuxer.
func (g *Gateway) WatchMessageType(endpointID uint64, t availability.MessageType, h availability.StreamHandler) availability.Registration {
	return g.demux.WatchMessageType(endpointID, t, h)
}

func checkBrokerVersion(broker *amqp.Connection) error {
	ver, _ := broker.Properties["version"].(string)
	return checkProtocolVersion(ver)
}

func declareTopology(channel *amqp.Channel) error {
	if err := channel.ExchangeDeclare(
		requestExchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,   // args
	); err != nil {
		return err
	}

	return channel.ExchangeDeclare(
		inboundExchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,   // args
	)
}

func nextEndpointID(g *Gateway) uint64 {
	return atomic.AddUint64(&g.nextEndpointID, 1)
}
