package openscreen

import (
	"github.com/gtalis/openscreen/internal/availability"
	"github.com/gtalis/openscreen/internal/discovery"
	"github.com/gtalis/openscreen/internal/ident"
)

// Coordinator is the public entry point: it wraps the core availability
// coordinator and adds a discovery.Source adapter so a receiver-discovery
// mechanism never needs to know the core's API directly.
type Coordinator struct {
	*availability.Coordinator

	logger Logger
}

// NewCoordinator builds a Coordinator from cfg, filling in defaults for any
// field DefaultConfig covers. Transport, Demuxer, Codec, and Clock must be
// supplied by the caller.
func NewCoordinator(cfg Config) *Coordinator {
	cfg = withDefaults(cfg)

	core := availability.NewCoordinator(availability.Deps{
		Clock:     cfg.Clock,
		Transport: cfg.Transport,
		Demuxer:   cfg.Demuxer,
		Codec:     cfg.Codec,
		Logger:    cfg.Logger,
		Tracer:    cfg.Tracer,

		WatchDuration:       cfg.WatchDuration,
		WatchRefreshPadding: cfg.WatchRefreshPadding,
	})

	return &Coordinator{Coordinator: core, logger: cfg.Logger}
}

// ListenDiscovery subscribes to src for the lifetime of the call, driving
// AddReceiver/ChangeReceiver/RemoveReceiver from its events. Errors
// returned by those calls are logged rather than propagated: a discovery
// source should not be able to halt on a single bad event.
func (c *Coordinator) ListenDiscovery(src discovery.Source) error {
	return src.Watch(&discoveryAdapter{coord: c.Coordinator, logger: c.logger})
}

type discoveryAdapter struct {
	coord  *availability.Coordinator
	logger Logger
}

func (a *discoveryAdapter) OnReceiverAdded(info discovery.ServiceInfo) {
	if err := a.coord.AddReceiver(info.ServiceID, info.Endpoint); err != nil {
		a.logger.Log("openscreen: add receiver %s failed: %s", info.ServiceID.ShortString(), err)
	}
}

func (a *discoveryAdapter) OnReceiverChanged(info discovery.ServiceInfo) {
	if err := a.coord.ChangeReceiver(info.ServiceID); err != nil {
		a.logger.Log("openscreen: change receiver %s failed: %s", info.ServiceID.ShortString(), err)
	}
}

func (a *discoveryAdapter) OnReceiverRemoved(serviceID ident.ServiceID) {
	if err := a.coord.RemoveReceiver(serviceID); err != nil {
		a.logger.Log("openscreen: remove receiver %s failed: %s", serviceID.ShortString(), err)
	}
}
