package availability

import "github.com/gtalis/openscreen/internal/ident"

// Observer is notified of changes to a URL's availability at a specific
// receiver. Implementations are owned by the embedder; the core holds only
// non-owning references and never calls a method after the observer has been
// removed from every URL it was registered against.
type Observer interface {
	// OnAvailable reports that url can now be presented at svc.
	OnAvailable(url ident.URL, svc ident.ServiceID)

	// OnUnavailable reports that url can no longer be presented at svc, or
	// that svc has reported it as invalid.
	OnUnavailable(url ident.URL, svc ident.ServiceID)

	// OnRequestFailed reports that a query for url's availability at svc
	// could not be sent or will never be answered (e.g. the receiver's
	// connection failed before responding).
	OnRequestFailed(url ident.URL, svc ident.ServiceID)
}
