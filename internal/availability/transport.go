package availability

import "time"

// Clock is a monotonic time source, injected so watch expiry is testable
// without a real timer.
type Clock interface {
	Now() time.Time
}

// Connection is an open, ordered, best-effort transport connection to a
// single receiver.
type Connection interface {
	// Write sends b to the receiver. Delivery is best-effort; any framing or
	// buffering happens below this interface.
	Write(b []byte) error

	// EndpointID is a stable identifier the demultiplexer uses to route
	// inbound messages on this connection. It is only valid while the
	// connection is open.
	EndpointID() uint64

	// Close releases the connection. Called exactly once, when the
	// requester that owns it tears down.
	Close() error
}

// ConnectRequest is the handle returned by Transport.Connect while a connect
// attempt is outstanding. The core never inspects it beyond holding it.
type ConnectRequest interface{}

// ConnectObserver receives the outcome of a Transport.Connect call. Exactly
// one of OnConnectionOpened or OnConnectionFailed is invoked, at most once.
type ConnectObserver interface {
	OnConnectionOpened(conn Connection)
	OnConnectionFailed()
}

// Transport establishes connections to receiver endpoints.
type Transport interface {
	Connect(endpoint string, observer ConnectObserver) ConnectRequest
}

// StreamHandler is invoked by a Demuxer for every inbound message matching a
// registered (endpoint, message type) pair.
//
// It returns the number of bytes consumed from b, or an error. Returning
// ErrIncompleteMessage instructs the demultiplexer to retain b and retry
// once more bytes have arrived.
type StreamHandler interface {
	OnStreamMessage(endpointID, connectionID uint64, t MessageType, b []byte) (consumed int, err error)
}

// Registration is a demultiplexer subscription. Closing it releases the
// subscription; it is safe to close more than once.
type Registration interface {
	Close()
}

// Demuxer dispatches decoded inbound messages to registered handlers by
// endpoint and message type.
type Demuxer interface {
	// WatchMessageType registers h to receive messages of type t arriving on
	// endpointID, returning a handle that releases the registration when
	// closed.
	WatchMessageType(endpointID uint64, t MessageType, h StreamHandler) Registration
}
