package availability

import "github.com/gtalis/openscreen/internal/ident"

// Availability is a receiver's verdict for a single presentation URL.
//
// The wire ordinals are fixed by the protocol; Valid() must be checked
// before switching on a value decoded from the network, since a receiver
// may send an ordinal this version does not recognize.
type Availability uint8

// Wire ordinals for Availability, fixed by the protocol.
const (
	Compatible Availability = iota
	NotCompatible
	NotValid
)

// Valid reports whether a is one of the ordinals defined by this version of
// the protocol. Unknown ordinals are silently ignored by the core rather
// than rejected, per the wire contract.
func (a Availability) Valid() bool {
	return a <= NotValid
}

func (a Availability) String() string {
	switch a {
	case Compatible:
		return "compatible"
	case NotCompatible:
		return "not-compatible"
	case NotValid:
		return "not-valid"
	default:
		return "unknown"
	}
}

// MessageType identifies the wire-level shape of a stream message, as
// reported by the demultiplexer.
type MessageType int

// Message types of the availability protocol. ReceiverRequester accepts
// only the response and event types; any other type is rejected with
// ErrUnknownMessageType.
const (
	MessageTypeUnknown MessageType = iota
	MessageTypeURLAvailabilityRequest
	MessageTypeURLAvailabilityResponse
	MessageTypeURLAvailabilityEvent
)

// WireRequest is the "urlAvailabilityRequest" message: a one-shot query for
// the availability of a list of URLs that also establishes a watch.
type WireRequest struct {
	RequestID uint64
	WatchID   uint64
	URLs      []ident.URL
}

// WireResponse is the "urlAvailabilityResponse" message answering a
// WireRequest by RequestID. Availabilities corresponds index-for-index with
// the URLs of the matching request.
type WireResponse struct {
	RequestID      uint64
	Availabilities []Availability
}

// WireEvent is the "urlAvailabilityEvent" message: an unsolicited push of
// new availabilities for a non-strict subset of a watch's URLs. It does not
// extend the watch's deadline.
type WireEvent struct {
	WatchID        uint64
	URLs           []ident.URL
	Availabilities []Availability
}

// Codec encodes outbound requests and decodes inbound responses and events.
//
// Decode methods report ErrIncompleteMessage when b does not yet contain a
// full message (the demultiplexer should retain the bytes and retry once
// more arrive), and any other error when b is malformed.
type Codec interface {
	EncodeRequest(req WireRequest) ([]byte, error)
	DecodeResponse(b []byte) (rsp WireResponse, consumed int, err error)
	DecodeEvent(b []byte) (evt WireEvent, consumed int, err error)
}
