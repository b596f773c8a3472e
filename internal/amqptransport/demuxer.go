package amqptransport

import (
	"github.com/streadway/amqp"
	"github.com/uber-go/multierr"

	"github.com/gtalis/openscreen/internal/availability"
	"github.com/gtalis/openscreen/internal/service"
)

// handlerKey identifies one registered watch: a single endpoint and message
// type pair.
type handlerKey struct {
	endpointID uint64
	msgType    availability.MessageType
}

// demuxer fans out deliveries from one shared AMQP queue to the registered
// availability.StreamHandler for each (endpoint, message type) pair, the
// way listener.go fans out notifications to per-namespace handlers.
//
// Unlike listener.go, the bind/unbind reference count here is keyed by
// endpoint rather than by routing namespace: every message type watched on
// the same endpoint shares one binding, so the response-watch and the
// event-watch of a single receiver only cost one QueueBind between them.
type demuxer struct {
	service.Service
	sm *service.StateMachine

	channel    *amqp.Channel
	deliveries <-chan amqp.Delivery
	amqpClosed chan *amqp.Error
	logger     availability.Logger

	// state-machine data
	refs     map[uint64]uint
	handlers map[handlerKey]availability.StreamHandler
}

func newDemuxer(channel *amqp.Channel, logger availability.Logger) (*demuxer, error) {
	d := &demuxer{
		channel:    channel,
		amqpClosed: make(chan *amqp.Error, 1),
		logger:     logger,

		refs:     make(map[uint64]uint),
		handlers: make(map[handlerKey]availability.StreamHandler),
	}

	if _, err := channel.QueueDeclare(
		inboundQueueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		return nil, err
	}

	channel.NotifyClose(d.amqpClosed)

	deliveries, err := channel.Consume(
		inboundQueueName,
		inboundQueueName, // consumer tag
		false,            // autoAck
		false,            // exclusive
		false,            // noLocal
		false,            // noWait
		nil,              // args
	)
	if err != nil {
		return nil, err
	}
	d.deliveries = deliveries

	d.sm = service.NewStateMachine(d.run, d.finalize)
	d.Service = d.sm

	go d.sm.Run()

	return d, nil
}

// WatchMessageType implements availability.Demuxer.
func (d *demuxer) WatchMessageType(endpointID uint64, t availability.MessageType, h availability.StreamHandler) availability.Registration {
	_ = d.sm.Do(func() error {
		d.watch(endpointID, t, h)
		return nil
	})

	return &registration{d: d, key: handlerKey{endpointID, t}}
}

func (d *demuxer) watch(endpointID uint64, t availability.MessageType, h availability.StreamHandler) {
	key := handlerKey{endpointID, t}

	if _, exists := d.handlers[key]; !exists {
		d.refs[endpointID]++
		if d.refs[endpointID] == 1 {
			if err := d.bind(endpointID); err != nil {
				logDemuxerRejected(d.logger, endpointID, err)
			}
		}
	}

	d.handlers[key] = h
}

func (d *demuxer) unwatch(key handlerKey) {
	if _, exists := d.handlers[key]; !exists {
		return
	}
	delete(d.handlers, key)

	d.refs[key.endpointID]--
	if d.refs[key.endpointID] == 0 {
		delete(d.refs, key.endpointID)
		if err := d.unbind(key.endpointID); err != nil {
			logDemuxerRejected(d.logger, key.endpointID, err)
		}
	}
}

func (d *demuxer) bind(endpointID uint64) error {
	err := d.channel.QueueBind(
		inboundQueueName,
		requestRoutingKey(endpointID),
		inboundExchange,
		false, // noWait
		nil,   // args
	)
	logDemuxerBind(d.logger, endpointID, d.refs[endpointID])
	return err
}

func (d *demuxer) unbind(endpointID uint64) error {
	err := d.channel.QueueUnbind(
		inboundQueueName,
		requestRoutingKey(endpointID),
		inboundExchange,
		nil, // args
	)
	logDemuxerUnbind(d.logger, endpointID, 0)
	return err
}

// registration releases one (endpoint, message type) watch on Close.
type registration struct {
	d   *demuxer
	key handlerKey
}

func (r *registration) Close() {
	_ = r.d.sm.Do(func() error {
		r.d.unwatch(r.key)
		return nil
	})
}

func (d *demuxer) run() (service.State, error) {
	for {
		select {
		case msg, ok := <-d.deliveries:
			if !ok {
				return nil, <-d.amqpClosed
			}
			d.dispatch(&msg)

		case req := <-d.sm.Commands:
			d.sm.Execute(req)

		case <-d.sm.Graceful:
			return nil, nil

		case <-d.sm.Forceful:
			return nil, nil

		case err := <-d.amqpClosed:
			return nil, err
		}
	}
}

func (d *demuxer) finalize(err error) error {
	closeErr := d.channel.Close()
	return multierr.Append(err, closeErr)
}

// dispatch runs on the demuxer's own actor goroutine, not a per-delivery
// goroutine: message ordering within one endpoint matters to the requester
// above it (a response must not be reordered against the event that
// follows it), so deliveries are handled one at a time.
//
// Any handler error, ErrIncompleteMessage included, rejects the delivery;
// its bytes are not retained for a later retry.
func (d *demuxer) dispatch(msg *amqp.Delivery) {
	endpointID, _ := headerUint64(msg.Headers, headerEndpointIDKey)
	msgType := headerMsgType(msg.Headers)

	h, ok := d.handlers[handlerKey{endpointID, msgType}]
	if !ok {
		logDemuxerUnroutable(d.logger, endpointID, int(msgType))
		_ = msg.Reject(false) // false = don't requeue
		return
	}

	// endpointID doubles as the connection id: this transport never
	// multiplexes more than one open connection per endpoint.
	if _, err := h.OnStreamMessage(endpointID, endpointID, msgType, msg.Body); err != nil {
		logDemuxerRejected(d.logger, endpointID, err)
		_ = msg.Reject(false)
		return
	}

	_ = msg.Ack(false)
}

func headerUint64(headers amqp.Table, key string) (uint64, bool) {
	if headers == nil {
		return 0, false
	}
	switch v := headers[key].(type) {
	case int64:
		return uint64(v), true
	case int32:
		return uint64(v), true
	case uint64:
		return v, true
	default:
		return 0, false
	}
}

func headerMsgType(headers amqp.Table) availability.MessageType {
	v, ok := headerUint64(headers, headerMessageTypeKey)
	if !ok {
		return availability.MessageTypeUnknown
	}
	return availability.MessageType(v)
}
