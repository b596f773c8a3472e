package availability

import "github.com/gtalis/openscreen/internal/ident"

// request is an outstanding one-shot query for a set of URLs' availability.
//
// HasWatch is false for a request that was recorded while no transport
// connection existed; WatchID is then the placeholder value 0, which is
// never observed externally and is overwritten once the request is
// (re)transmitted in onConnectionOpened.
type request struct {
	RequestID uint64
	WatchID   uint64
	HasWatch  bool
	URLs      []ident.URL
}
