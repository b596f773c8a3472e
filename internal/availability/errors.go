package availability

import "errors"

// ErrIncompleteMessage is returned by a Codec decode method when b does not
// yet contain a complete message.
var ErrIncompleteMessage = errors.New("availability: incomplete message")

// ErrUnknownRequestID is returned from OnStreamMessage when a response
// arrives for a request-id this requester has no record of.
var ErrUnknownRequestID = errors.New("availability: unknown response request id")

// ErrInvalidMessage is returned from OnStreamMessage when a response's
// availability count does not match the number of URLs in the request it
// answers.
var ErrInvalidMessage = errors.New("availability: response length does not match request")

// ErrUnknownMessageType is returned from OnStreamMessage for any message
// type other than UrlAvailabilityResponse and UrlAvailabilityEvent.
var ErrUnknownMessageType = errors.New("availability: message type not handled by this requester")
