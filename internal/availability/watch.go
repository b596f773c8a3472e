package availability

import (
	"time"

	"github.com/gtalis/openscreen/internal/ident"
)

// watch is a live subscription on the receiver, established by a request,
// that will push events whenever any of URLs' availability changes.
type watch struct {
	WatchID  uint64
	Deadline time.Time
	URLs     []ident.URL
}
