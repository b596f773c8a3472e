package availability

import (
	"sort"

	"github.com/gtalis/openscreen/internal/ident"
)

// cache holds the last availability reported for each observed URL at one
// receiver. It doubles as the dedup mechanism for outbound requests and as
// the "last delivered" reference for edge-triggering: do not add a
// separate per-observer history alongside it.
type cache map[ident.URL]Availability

func (c cache) get(u ident.URL) (Availability, bool) {
	a, ok := c[u]
	return a, ok
}

// put inserts or overwrites u's availability, reporting whether the value
// actually changed (inserted, or overwritten with a different value).
func (c cache) put(u ident.URL, a Availability) (changed bool) {
	old, existed := c[u]
	c[u] = a
	return !existed || old != a
}

func (c cache) evict(u ident.URL) {
	delete(c, u)
}

// compatibleURLs returns the URLs currently cached as Compatible, in a
// deterministic order, for use when tearing down a requester.
func (c cache) compatibleURLs() []ident.URL {
	var urls []ident.URL
	for u, a := range c {
		if a == Compatible {
			urls = append(urls, u)
		}
	}
	sort.Slice(urls, func(i, j int) bool { return urls[i] < urls[j] })
	return urls
}
