// Package wire implements availability.Codec over CBOR, framed with a
// 4-byte big-endian length prefix on the underlying stream.
//
// The encoder/decoder pool is adapted directly from internal/x/cbor: a
// sync.Pool of *codec.Encoder/*codec.Decoder bound to one shared
// codec.CborHandle, so a hot path never allocates a fresh handle per
// message.
package wire

import (
	"bytes"
	"sync"

	"github.com/ugorji/go/codec"

	"github.com/gtalis/openscreen/internal/availability"
	"github.com/gtalis/openscreen/internal/ident"
)

var encoders sync.Pool
var decoders sync.Pool

func init() {
	var handle codec.CborHandle

	encoders.New = func() interface{} {
		return codec.NewEncoder(nil, &handle)
	}
	decoders.New = func() interface{} {
		return codec.NewDecoder(nil, &handle)
	}
}

func encode(v interface{}) ([]byte, error) {
	e := encoders.Get().(*codec.Encoder)
	defer encoders.Put(e)

	var buf bytes.Buffer
	e.Reset(&buf)
	if err := e.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeBytes(b []byte, v interface{}) error {
	d := decoders.Get().(*codec.Decoder)
	defer decoders.Put(d)

	d.ResetBytes(b)
	return d.Decode(v)
}

// message shapes mirror the protocol's compact-object wire layout.
type requestMessage struct {
	RequestID uint64   `codec:"request_id"`
	WatchID   uint64   `codec:"watch_id"`
	URLs      []string `codec:"urls"`
}

type responseMessage struct {
	RequestID      uint64 `codec:"request_id"`
	Availabilities []byte `codec:"url_availabilities"`
}

type eventMessage struct {
	WatchID        uint64   `codec:"watch_id"`
	URLs           []string `codec:"urls"`
	Availabilities []byte   `codec:"url_availabilities"`
}

// Codec is the CBOR implementation of availability.Codec.
type Codec struct{}

// NewCodec returns a ready-to-use Codec. It holds no state of its own; the
// encoder/decoder pool above is shared package-wide.
func NewCodec() *Codec {
	return &Codec{}
}

// EncodeRequest implements availability.Codec.
func (Codec) EncodeRequest(req availability.WireRequest) ([]byte, error) {
	msg := requestMessage{
		RequestID: req.RequestID,
		WatchID:   req.WatchID,
		URLs:      urlsToStrings(req.URLs),
	}
	b, err := encode(msg)
	if err != nil {
		return nil, err
	}
	return frameEncode(b), nil
}

// DecodeResponse implements availability.Codec.
func (Codec) DecodeResponse(b []byte) (availability.WireResponse, int, error) {
	body, consumed, err := frameDecode(b)
	if err != nil {
		return availability.WireResponse{}, 0, err
	}

	var msg responseMessage
	if err := decodeBytes(body, &msg); err != nil {
		return availability.WireResponse{}, 0, err
	}

	return availability.WireResponse{
		RequestID:      msg.RequestID,
		Availabilities: bytesToAvailabilities(msg.Availabilities),
	}, consumed, nil
}

// DecodeEvent implements availability.Codec.
func (Codec) DecodeEvent(b []byte) (availability.WireEvent, int, error) {
	body, consumed, err := frameDecode(b)
	if err != nil {
		return availability.WireEvent{}, 0, err
	}

	var msg eventMessage
	if err := decodeBytes(body, &msg); err != nil {
		return availability.WireEvent{}, 0, err
	}

	return availability.WireEvent{
		WatchID:        msg.WatchID,
		URLs:           stringsToURLs(msg.URLs),
		Availabilities: bytesToAvailabilities(msg.Availabilities),
	}, consumed, nil
}

func urlsToStrings(urls []ident.URL) []string {
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = string(u)
	}
	return out
}

func stringsToURLs(ss []string) []ident.URL {
	out := make([]ident.URL, len(ss))
	for i, s := range ss {
		out[i] = ident.URL(s)
	}
	return out
}

func bytesToAvailabilities(bs []byte) []availability.Availability {
	out := make([]availability.Availability, len(bs))
	for i, b := range bs {
		out[i] = availability.Availability(b)
	}
	return out
}
