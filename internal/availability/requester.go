package availability

import (
	"time"

	"github.com/gtalis/openscreen/internal/ident"
)

// receiverRequester realizes the availability protocol against exactly one
// receiver. It is owned exclusively by a Coordinator and never runs its own
// goroutine or takes a lock: every method here executes on the coordinator's
// actor goroutine, reached either directly (coordinator methods calling in)
// or via a requesterBridge's sm.Do/DoGraceful call (transport and demuxer
// callbacks).
type receiverRequester struct {
	coord     *Coordinator
	serviceID ident.ServiceID
	endpoint  string

	connectRequest ConnectRequest
	connection     Connection
	endpointID     uint64

	nextRequestID uint64
	nextWatchID   uint64

	requests map[uint64]*request
	watches  map[uint64]*watch
	cache    cache

	responseWatch Registration
	eventWatch    Registration
}

func newReceiverRequester(coord *Coordinator, serviceID ident.ServiceID, endpoint string) *receiverRequester {
	r := &receiverRequester{
		coord:     coord,
		serviceID: serviceID,
		endpoint:  endpoint,
		requests:  make(map[uint64]*request),
		watches:   make(map[uint64]*watch),
		cache:     make(cache),
	}

	r.connectRequest = coord.transport.Connect(endpoint, &requesterBridge{r})

	return r
}

func deliverEdge(o Observer, u ident.URL, svc ident.ServiceID, a Availability) {
	if a == Compatible {
		o.OnAvailable(u, svc)
		return
	}
	o.OnUnavailable(u, svc)
}

// requestOrReply delivers a cached edge immediately for every url already in
// the cache, and sends a query for the rest. observer is nil to mean "fan
// out to every current observer of each url" rather than just one.
func (r *receiverRequester) requestOrReply(urls []ident.URL, observer Observer) {
	var collected []ident.URL

	for _, u := range urls {
		a, ok := r.cache.get(u)
		if !ok {
			collected = append(collected, u)
			continue
		}
		if observer != nil {
			deliverEdge(observer, u, r.serviceID, a)
			continue
		}
		for _, o := range r.coord.observersSnapshot(u) {
			deliverEdge(o, u, r.serviceID, a)
		}
	}

	if len(collected) > 0 {
		r.sendQuery(collected)
	}
}

// sendQuery allocates a fresh request-id for urls and dispatches it.
func (r *receiverRequester) sendQuery(urls []ident.URL) {
	id := r.nextRequestID
	r.nextRequestID++
	r.dispatchQuery(id, urls)
}

// dispatchQuery sends urls under the given request-id. If no connection is
// open the request is recorded with a placeholder watch-id and
// retransmitted by onConnectionOpened. On encode or write failure the
// request is not recorded; every url fails instead.
func (r *receiverRequester) dispatchQuery(id uint64, urls []ident.URL) {
	if r.connection == nil {
		r.requests[id] = &request{RequestID: id, URLs: urls}
		return
	}

	watchID := r.nextWatchID
	r.nextWatchID++

	b, err := r.coord.codec.EncodeRequest(WireRequest{RequestID: id, WatchID: watchID, URLs: urls})
	if err == nil {
		err = r.connection.Write(b)
	}
	if err != nil {
		r.failURLs(urls)
		return
	}

	r.requests[id] = &request{RequestID: id, WatchID: watchID, HasWatch: true, URLs: urls}
	r.watches[watchID] = &watch{
		WatchID:  watchID,
		Deadline: r.coord.clock.Now().Add(r.coord.watchDuration),
		URLs:     urls,
	}

	r.acquireResponseWatch()
	r.acquireEventWatch()
}

func (r *receiverRequester) failURLs(urls []ident.URL) {
	for _, u := range urls {
		for _, o := range r.coord.observersSnapshot(u) {
			o.OnRequestFailed(u, r.serviceID)
		}
	}
}

func (r *receiverRequester) acquireResponseWatch() {
	if r.responseWatch != nil {
		return
	}
	r.responseWatch = r.coord.demuxer.WatchMessageType(r.endpointID, MessageTypeURLAvailabilityResponse, &requesterBridge{r})
}

func (r *receiverRequester) releaseResponseWatch() {
	if r.responseWatch == nil {
		return
	}
	r.responseWatch.Close()
	r.responseWatch = nil
}

func (r *receiverRequester) acquireEventWatch() {
	if r.eventWatch != nil {
		return
	}
	r.eventWatch = r.coord.demuxer.WatchMessageType(r.endpointID, MessageTypeURLAvailabilityEvent, &requesterBridge{r})
}

func (r *receiverRequester) releaseEventWatch() {
	if r.eventWatch == nil {
		return
	}
	r.eventWatch.Close()
	r.eventWatch = nil
}

// refreshWatches releases and reissues every watch due for renewal, and
// reports the delay the coordinator should wait before calling it again
// along with the number of urls that were refreshed (for tracing).
func (r *receiverRequester) refreshWatches(now time.Time) (time.Duration, int) {
	var expired []ident.URL
	next := r.coord.watchDuration

	for id, w := range r.watches {
		due := w.Deadline.Add(-r.coord.watchRefreshPadding)
		if now.After(due) {
			delete(r.watches, id)
			expired = append(expired, w.URLs...)
			continue
		}
		if remaining := due.Sub(now); remaining < next {
			next = remaining
		}
	}

	logWatchRefresh(r.coord.logger, r.serviceID, len(expired))

	if len(expired) > 0 {
		r.sendQuery(expired)
	}

	if len(r.watches) == 0 {
		r.releaseEventWatch()
	}

	if next < 0 {
		next = 0
	}
	if next > r.coord.watchDuration {
		next = r.coord.watchDuration
	}
	return next, len(expired)
}

// removeUnobservedRequests drops unobserved urls from every outstanding
// request's url list, reissuing whatever survives as one new request.
//
// A request whose url list is left empty by this pass stays in requests
// (only its watch is erased) rather than being deleted outright, matching
// the reference behavior exactly.
func (r *receiverRequester) removeUnobservedRequests(unobserved map[ident.URL]struct{}) {
	var survivors []ident.URL

	for _, req := range r.requests {
		kept, dropped := partitionURLs(req.URLs, unobserved)
		if len(dropped) == 0 {
			continue
		}
		req.URLs = kept
		if req.HasWatch {
			delete(r.watches, req.WatchID)
			req.HasWatch = false
		}
		survivors = append(survivors, kept...)
	}

	if len(survivors) > 0 {
		r.sendQuery(survivors)
	}

	if len(r.requests) == 0 {
		r.releaseResponseWatch()
	}
}

// removeUnobservedWatches drops unobserved urls from every watch, erasing
// any watch touched by the pass and reissuing all survivors as one new
// request (which allocates fresh request and watch ids).
func (r *receiverRequester) removeUnobservedWatches(unobserved map[ident.URL]struct{}) {
	var survivors []ident.URL

	for id, w := range r.watches {
		kept, dropped := partitionURLs(w.URLs, unobserved)
		if len(dropped) == 0 {
			continue
		}
		delete(r.watches, id)
		survivors = append(survivors, kept...)
	}

	if len(survivors) > 0 {
		r.sendQuery(survivors)
	}

	if len(r.watches) == 0 {
		r.releaseEventWatch()
	}
}

// teardown emits onUnavailable for every url this requester believes is
// Compatible, then drops all internal state. Called on RemoveReceiver and
// on connection failure.
func (r *receiverRequester) teardown() {
	logReceiverTeardown(r.coord.logger, r.serviceID)

	for _, u := range r.cache.compatibleURLs() {
		for _, o := range r.coord.observersSnapshot(u) {
			o.OnUnavailable(u, r.serviceID)
		}
	}

	r.releaseResponseWatch()
	r.releaseEventWatch()

	if r.connection != nil {
		if err := r.connection.Close(); err != nil {
			logReceiverDisconnectFailed(r.coord.logger, r.serviceID, err)
		}
		r.connection = nil
	}

	r.requests = nil
	r.watches = nil
	r.cache = nil
}

func (r *receiverRequester) cacheURLEviction(u ident.URL) {
	r.cache.evict(u)
}

// onConnectionOpened retransmits every request queued while disconnected,
// preserving each one's request-id but allocating it a fresh watch-id.
func (r *receiverRequester) onConnectionOpened(conn Connection) {
	r.connection = conn
	r.endpointID = conn.EndpointID()
	r.connectRequest = nil

	logReceiverConnected(r.coord.logger, r.serviceID)

	pending := r.requests
	r.requests = make(map[uint64]*request, len(pending))

	for id, req := range pending {
		r.dispatchQuery(id, req.URLs)
	}
}

// onConnectionFailed is the terminal transition out of CONNECTING: every url
// referenced by a queued request fails once, and the coordinator is asked to
// drop this requester entirely. There is no equivalent transition once READY:
// a connection that opens and later drops is not modeled.
func (r *receiverRequester) onConnectionFailed() {
	r.connectRequest = nil

	seen := make(map[ident.URL]struct{})
	var urls []ident.URL
	for _, req := range r.requests {
		for _, u := range req.URLs {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}

	logReceiverFailed(r.coord.logger, r.serviceID, len(urls))

	for _, u := range urls {
		for _, o := range r.coord.observersSnapshot(u) {
			o.OnRequestFailed(u, r.serviceID)
		}
	}

	r.coord.removeReceiver(r.serviceID)
}

// onStreamMessage dispatches a demuxed inbound message to the response or
// event handler. Any other message type is rejected.
func (r *receiverRequester) onStreamMessage(t MessageType, b []byte) (int, error) {
	switch t {
	case MessageTypeURLAvailabilityResponse:
		return r.handleResponse(b)
	case MessageTypeURLAvailabilityEvent:
		return r.handleEvent(b)
	default:
		return 0, ErrUnknownMessageType
	}
}

func (r *receiverRequester) handleResponse(b []byte) (int, error) {
	rsp, consumed, err := r.coord.codec.DecodeResponse(b)
	if err != nil {
		return 0, err
	}

	req, ok := r.requests[rsp.RequestID]
	if !ok {
		return 0, ErrUnknownRequestID
	}
	if len(rsp.Availabilities) != len(req.URLs) {
		return 0, ErrInvalidMessage
	}

	r.updateAvailabilities(req.URLs, rsp.Availabilities)
	delete(r.requests, rsp.RequestID)

	if len(r.requests) == 0 {
		r.releaseResponseWatch()
	}

	return consumed, nil
}

func (r *receiverRequester) handleEvent(b []byte) (int, error) {
	evt, consumed, err := r.coord.codec.DecodeEvent(b)
	if err != nil {
		return 0, err
	}

	// an event does not extend its watch's deadline.
	if _, ok := r.watches[evt.WatchID]; ok {
		r.updateAvailabilities(evt.URLs, evt.Availabilities)
	}

	return consumed, nil
}

// updateAvailabilities applies a batch of (url, availability) pairs, caching
// and delivering an edge only where the value actually changed and at least
// one observer remains interested in the url.
func (r *receiverRequester) updateAvailabilities(urls []ident.URL, availabilities []Availability) {
	for i, u := range urls {
		a := availabilities[i]

		observers := r.coord.observersSnapshot(u)
		if len(observers) == 0 {
			continue
		}
		if !a.Valid() {
			continue
		}
		if !r.cache.put(u, a) {
			continue
		}

		for _, o := range observers {
			deliverEdge(o, u, r.serviceID, a)
		}
	}
}

// requesterBridge adapts a receiverRequester to the Transport and Demuxer
// callback interfaces, funneling every invocation through the coordinator's
// state machine so the requester itself never needs a lock.
type requesterBridge struct {
	r *receiverRequester
}

func (b *requesterBridge) OnConnectionOpened(conn Connection) {
	_ = b.r.coord.sm.DoGraceful(func() error {
		b.r.onConnectionOpened(conn)
		return nil
	})
}

func (b *requesterBridge) OnConnectionFailed() {
	_ = b.r.coord.sm.DoGraceful(func() error {
		b.r.onConnectionFailed()
		return nil
	})
}

func (b *requesterBridge) OnStreamMessage(endpointID, connectionID uint64, t MessageType, msg []byte) (consumed int, err error) {
	doErr := b.r.coord.sm.DoGraceful(func() error {
		consumed, err = b.r.onStreamMessage(t, msg)
		return nil
	})
	if doErr != nil {
		return 0, doErr
	}
	return consumed, err
}
