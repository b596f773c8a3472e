// Package discovery feeds receiver lifecycle events to the availability
// coordinator. It is intentionally minimal: actual receiver discovery
// (mDNS/DNS-SD or any other mechanism) is a separate concern, so this
// package only defines the seam cmd/controller wires the core through.
package discovery

import "github.com/gtalis/openscreen/internal/ident"

// ServiceInfo names one receiver: the service id the core keys it by, and
// the transport endpoint used to connect to it.
type ServiceInfo struct {
	ServiceID ident.ServiceID
	Endpoint  string
}

// Listener receives receiver lifecycle events from a Source.
type Listener interface {
	OnReceiverAdded(info ServiceInfo)
	OnReceiverChanged(info ServiceInfo)
	OnReceiverRemoved(serviceID ident.ServiceID)
}

// Source discovers receivers and reports them to l until Close is called.
type Source interface {
	Watch(l Listener) error
	Close() error
}

// StaticSource is a fixed, test-friendly Source: it reports every
// configured receiver once, on Watch, and never changes.
type StaticSource struct {
	receivers []ServiceInfo
}

// NewStaticSource returns a Source that reports exactly receivers, in
// order, and nothing more.
func NewStaticSource(receivers ...ServiceInfo) *StaticSource {
	return &StaticSource{receivers: receivers}
}

// Watch implements Source.
func (s *StaticSource) Watch(l Listener) error {
	for _, info := range s.receivers {
		l.OnReceiverAdded(info)
	}
	return nil
}

// Close implements Source. StaticSource holds no resources.
func (s *StaticSource) Close() error {
	return nil
}
