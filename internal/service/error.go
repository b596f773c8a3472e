package service

import "errors"

// ErrStopped is returned by an operation that can not be fulfilled because
// the service backing it is stopping or has already stopped.
var ErrStopped = errors.New("service has been stopped")
