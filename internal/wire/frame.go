package wire

import (
	"encoding/binary"

	"github.com/gtalis/openscreen/internal/availability"
)

const lengthPrefixSize = 4

// frameEncode wraps body in a 4-byte big-endian length prefix.
func frameEncode(body []byte) []byte {
	framed := make([]byte, lengthPrefixSize+len(body))
	binary.BigEndian.PutUint32(framed, uint32(len(body)))
	copy(framed[lengthPrefixSize:], body)
	return framed
}

// frameDecode strips a length-prefixed frame from b, returning the body and
// the total number of bytes consumed (prefix + body). It reports
// availability.ErrIncompleteMessage when b does not yet hold a full frame.
func frameDecode(b []byte) (body []byte, consumed int, err error) {
	if len(b) < lengthPrefixSize {
		return nil, 0, availability.ErrIncompleteMessage
	}

	length := binary.BigEndian.Uint32(b)
	total := lengthPrefixSize + int(length)
	if len(b) < total {
		return nil, 0, availability.ErrIncompleteMessage
	}

	return b[lengthPrefixSize:total], total, nil
}
