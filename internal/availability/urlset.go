package availability

import "github.com/gtalis/openscreen/internal/ident"

// partitionURLs splits urls into those not present in removed (kept, in
// their original relative order) and those that are (removed, likewise). It
// is a stable, two-pass filter rather than an in-place partition, so a
// follow-up request built from kept preserves wire order exactly.
func partitionURLs(urls []ident.URL, removed map[ident.URL]struct{}) (kept, dropped []ident.URL) {
	for _, u := range urls {
		if _, ok := removed[u]; ok {
			dropped = append(dropped, u)
		} else {
			kept = append(kept, u)
		}
	}
	return kept, dropped
}
