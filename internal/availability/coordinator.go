package availability

import (
	"sort"
	"time"

	opentracing "github.com/opentracing/opentracing-go"

	"github.com/gtalis/openscreen/internal/availtrace"
	"github.com/gtalis/openscreen/internal/ident"
	"github.com/gtalis/openscreen/internal/service"
)

// Default watch lifetime and refresh padding, used whenever a Deps value
// leaves WatchDuration/WatchRefreshPadding unset.
const (
	DefaultWatchDuration       = 20 * time.Second
	DefaultWatchRefreshPadding = 2 * time.Second
)

// Deps collects a Coordinator's external collaborators: the transport,
// demultiplexer and wire codec to one or more receivers, a monotonic clock,
// and a logger. All are consumed as interfaces; concrete implementations
// live outside this package.
type Deps struct {
	Clock     Clock
	Transport Transport
	Demuxer   Demuxer
	Codec     Codec
	Logger    Logger
	Tracer    opentracing.Tracer

	WatchDuration       time.Duration
	WatchRefreshPadding time.Duration
}

// Coordinator multiplexes observer interest across the current set of
// receivers. It is the single entry point into the package: every public
// method serializes onto one actor goroutine via its embedded
// service.StateMachine, so ReceiverRequester and Coordinator together never
// take a lock over their own state.
type Coordinator struct {
	service.Service
	sm *service.StateMachine

	clock     Clock
	transport Transport
	demuxer   Demuxer
	codec     Codec
	logger    Logger
	tracer    opentracing.Tracer

	watchDuration       time.Duration
	watchRefreshPadding time.Duration

	observersByURL map[ident.URL][]Observer
	receivers      map[ident.ServiceID]*receiverRequester
}

// NewCoordinator constructs a Coordinator and starts its actor goroutine.
func NewCoordinator(deps Deps) *Coordinator {
	if deps.Logger == nil {
		deps.Logger = NopLogger{}
	}
	if deps.WatchDuration == 0 {
		deps.WatchDuration = DefaultWatchDuration
	}
	if deps.WatchRefreshPadding == 0 {
		deps.WatchRefreshPadding = DefaultWatchRefreshPadding
	}
	if deps.Tracer == nil {
		deps.Tracer = opentracing.NoopTracer{}
	}

	c := &Coordinator{
		clock:     deps.Clock,
		transport: deps.Transport,
		demuxer:   deps.Demuxer,
		codec:     deps.Codec,
		logger:    deps.Logger,
		tracer:    deps.Tracer,

		watchDuration:       deps.WatchDuration,
		watchRefreshPadding: deps.WatchRefreshPadding,

		observersByURL: make(map[ident.URL][]Observer),
		receivers:      make(map[ident.ServiceID]*receiverRequester),
	}

	c.sm = service.NewStateMachine(c.run, c.finalize)
	c.Service = c.sm

	go c.sm.Run()

	return c
}

func (c *Coordinator) run() (service.State, error) {
	for {
		select {
		case req := <-c.sm.Commands:
			c.sm.Execute(req)

		case <-c.sm.Graceful:
			return nil, nil

		case <-c.sm.Forceful:
			return nil, nil
		}
	}
}

func (c *Coordinator) finalize(err error) error {
	logCoordinatorStop(c.logger, len(c.receivers), err)
	c.removeAllReceivers()
	return err
}

// observersSnapshot returns a defensive copy of the observers currently
// registered for u, so a callback invoked mid-iteration cannot invalidate
// the loop driving it.
func (c *Coordinator) observersSnapshot(u ident.URL) []Observer {
	observers := c.observersByURL[u]
	if len(observers) == 0 {
		return nil
	}
	out := make([]Observer, len(observers))
	copy(out, observers)
	return out
}

func removeObserverFromSlice(observers []Observer, target Observer) []Observer {
	var out []Observer
	for _, o := range observers {
		if o != target {
			out = append(out, o)
		}
	}
	return out
}

// AddObserver registers observer against every url in urls and asks every
// current receiver to reply from cache or query for it. It is the only
// entry point that passes a non-nil observer to requestOrReply, so a cached
// value is delivered only to the newly added observer.
func (c *Coordinator) AddObserver(urls []ident.URL, observer Observer) error {
	span := availtrace.ChildOf(c.tracer, "AddObserver", nil)
	availtrace.SetupRequest(span, "AddObserver", len(urls))
	defer span.Finish()

	err := c.sm.Do(func() error {
		c.addObserver(urls, observer)
		return nil
	})
	availtrace.LogError(span, err)
	return err
}

func (c *Coordinator) addObserver(urls []ident.URL, observer Observer) {
	for _, u := range urls {
		c.observersByURL[u] = append(c.observersByURL[u], observer)
	}
	for _, r := range c.receivers {
		r.requestOrReply(urls, observer)
	}
}

// RemoveObserverURLs removes observer from each of urls. A url left with no
// observers is evicted from every receiver's cache and its outstanding
// requests and watches are trimmed across every receiver.
func (c *Coordinator) RemoveObserverURLs(urls []ident.URL, observer Observer) error {
	span := availtrace.ChildOf(c.tracer, "RemoveObserverURLs", nil)
	availtrace.SetupRequest(span, "RemoveObserverURLs", len(urls))
	defer span.Finish()

	err := c.sm.Do(func() error {
		c.removeObserverURLs(urls, observer)
		return nil
	})
	availtrace.LogError(span, err)
	return err
}

func (c *Coordinator) removeObserverURLs(urls []ident.URL, observer Observer) {
	unobserved := make(map[ident.URL]struct{})

	for _, u := range urls {
		remaining := removeObserverFromSlice(c.observersByURL[u], observer)
		if len(remaining) == 0 {
			delete(c.observersByURL, u)
			unobserved[u] = struct{}{}
			for _, r := range c.receivers {
				r.cacheURLEviction(u)
			}
		} else {
			c.observersByURL[u] = remaining
		}
	}

	c.trimUnobserved(unobserved)
}

// RemoveObserver removes observer from every url it is registered against.
//
// Unlike RemoveObserverURLs, this does not evict the observer's urls from
// any receiver's cache — re-adding the same observer right after may
// therefore hit a cached value that url-granular removal would have
// cleared.
func (c *Coordinator) RemoveObserver(observer Observer) error {
	span := availtrace.ChildOf(c.tracer, "RemoveObserver", nil)
	availtrace.SetupRequest(span, "RemoveObserver", 0)
	defer span.Finish()

	err := c.sm.Do(func() error {
		c.removeObserver(observer)
		return nil
	})
	availtrace.LogError(span, err)
	return err
}

func (c *Coordinator) removeObserver(observer Observer) {
	unobserved := make(map[ident.URL]struct{})

	for u, observers := range c.observersByURL {
		remaining := removeObserverFromSlice(observers, observer)
		if len(remaining) == 0 {
			delete(c.observersByURL, u)
			unobserved[u] = struct{}{}
		} else {
			c.observersByURL[u] = remaining
		}
	}

	c.trimUnobserved(unobserved)
}

func (c *Coordinator) trimUnobserved(unobserved map[ident.URL]struct{}) {
	if len(unobserved) == 0 {
		return
	}
	for _, r := range c.receivers {
		r.removeUnobservedRequests(unobserved)
	}
	for _, r := range c.receivers {
		r.removeUnobservedWatches(unobserved)
	}
}

// AddReceiver registers a new receiver and begins connecting to it. Every
// currently-observed url is queried (or answered from cache) against it,
// fanning out to every observer already registered rather than just one.
func (c *Coordinator) AddReceiver(serviceID ident.ServiceID, endpoint string) error {
	span := availtrace.ChildOf(c.tracer, "AddReceiver", nil)
	span.SetTag("receiver", serviceID.ShortString())
	availtrace.SetupRequest(span, "AddReceiver", 0)
	defer span.Finish()

	err := c.sm.Do(func() error {
		c.addReceiver(serviceID, endpoint)
		return nil
	})
	availtrace.LogError(span, err)
	return err
}

func (c *Coordinator) addReceiver(serviceID ident.ServiceID, endpoint string) {
	if _, exists := c.receivers[serviceID]; exists {
		return
	}

	r := newReceiverRequester(c, serviceID, endpoint)
	c.receivers[serviceID] = r

	urls := make([]ident.URL, 0, len(c.observersByURL))
	for u := range c.observersByURL {
		urls = append(urls, u)
	}
	if len(urls) == 0 {
		return
	}
	sort.Slice(urls, func(i, j int) bool { return urls[i] < urls[j] })

	r.requestOrReply(urls, nil)
}

// ChangeReceiver notes that the receiver's discovery metadata changed
// without its service id changing. It is intentionally a no-op: an
// already-connected requester's endpoint never changes mid-connection in
// this model, so reconnection only ever happens via RemoveReceiver followed
// by AddReceiver. The hook exists so a discovery source has somewhere to
// call, matching the reference's public surface.
func (c *Coordinator) ChangeReceiver(serviceID ident.ServiceID) error {
	return c.sm.Do(func() error {
		return nil
	})
}

// RemoveReceiver tears down the named receiver, if any: every url it
// currently reports Compatible is delivered an onUnavailable edge to its
// current observers before all of its state is dropped.
func (c *Coordinator) RemoveReceiver(serviceID ident.ServiceID) error {
	span := availtrace.ChildOf(c.tracer, "RemoveReceiver", nil)
	span.SetTag("receiver", serviceID.ShortString())
	availtrace.SetupRequest(span, "RemoveReceiver", 0)
	defer span.Finish()

	err := c.sm.Do(func() error {
		c.removeReceiver(serviceID)
		return nil
	})
	availtrace.LogError(span, err)
	return err
}

func (c *Coordinator) removeReceiver(serviceID ident.ServiceID) {
	r, ok := c.receivers[serviceID]
	if !ok {
		return
	}
	r.teardown()
	delete(c.receivers, serviceID)
}

// RemoveAllReceivers tears down every receiver.
func (c *Coordinator) RemoveAllReceivers() error {
	return c.sm.Do(func() error {
		c.removeAllReceivers()
		return nil
	})
}

func (c *Coordinator) removeAllReceivers() {
	for id, r := range c.receivers {
		r.teardown()
		delete(c.receivers, id)
	}
}

// RefreshWatches renews every watch across every receiver that is due, and
// returns the delay the caller should wait before calling RefreshWatches
// again (never more than DefaultWatchDuration / the configured
// WatchDuration).
func (c *Coordinator) RefreshWatches() (time.Duration, error) {
	span := availtrace.ChildOf(c.tracer, "RefreshWatches", nil)
	availtrace.SetupRequest(span, "RefreshWatches", 0)
	defer span.Finish()

	var next time.Duration
	err := c.sm.Do(func() error {
		next = c.refreshWatches(span)
		return nil
	})
	availtrace.LogError(span, err)
	return next, err
}

func (c *Coordinator) refreshWatches(span opentracing.Span) time.Duration {
	next := c.watchDuration
	now := c.clock.Now()

	for _, r := range c.receivers {
		d, refreshed := r.refreshWatches(now)
		if refreshed > 0 {
			availtrace.LogRefresh(span, r.serviceID, refreshed)
		}
		if d < next {
			next = d
		}
	}

	if next > c.watchDuration {
		next = c.watchDuration
	}
	return next
}
