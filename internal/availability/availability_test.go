package availability_test

import (
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	. "github.com/gtalis/openscreen/internal/availability"
	"github.com/gtalis/openscreen/internal/ident"
)

const svc = ident.ServiceID("asdf")
const endpoint = "asdf.example.com:1234"

var u1 = ident.URL("https://example.com/foo.html")
var u2 = ident.URL("https://example.com/bar.html")

var t0 = time.Unix(213489, 0)

type edge struct {
	url ident.URL
	svc ident.ServiceID
}

type recordingObserver struct {
	available   []edge
	unavailable []edge
	failed      []edge
}

func (o *recordingObserver) OnAvailable(u ident.URL, s ident.ServiceID) {
	o.available = append(o.available, edge{u, s})
}

func (o *recordingObserver) OnUnavailable(u ident.URL, s ident.ServiceID) {
	o.unavailable = append(o.unavailable, edge{u, s})
}

func (o *recordingObserver) OnRequestFailed(u ident.URL, s ident.ServiceID) {
	o.failed = append(o.failed, edge{u, s})
}

// fakeCodec uses JSON rather than the real wire format, so tests can inspect
// and construct messages without pulling in internal/wire (which itself
// depends on this package).
type fakeCodec struct{}

func (fakeCodec) EncodeRequest(req WireRequest) ([]byte, error) {
	return json.Marshal(req)
}

func (fakeCodec) DecodeResponse(b []byte) (WireResponse, int, error) {
	var rsp WireResponse
	if err := json.Unmarshal(b, &rsp); err != nil {
		return WireResponse{}, 0, err
	}
	return rsp, len(b), nil
}

func (fakeCodec) DecodeEvent(b []byte) (WireEvent, int, error) {
	var evt WireEvent
	if err := json.Unmarshal(b, &evt); err != nil {
		return WireEvent{}, 0, err
	}
	return evt, len(b), nil
}

func decodeRequest(b []byte) WireRequest {
	var req WireRequest
	ExpectWithOffset(1, json.Unmarshal(b, &req)).To(Succeed())
	return req
}

type fakeConnection struct {
	endpointID uint64
	writes     [][]byte
	closed     bool
}

func (c *fakeConnection) Write(b []byte) error {
	c.writes = append(c.writes, b)
	return nil
}

func (c *fakeConnection) EndpointID() uint64 {
	return c.endpointID
}

func (c *fakeConnection) Close() error {
	c.closed = true
	return nil
}

type fakeTransport struct {
	pending []ConnectObserver
}

func (t *fakeTransport) Connect(endpoint string, observer ConnectObserver) ConnectRequest {
	t.pending = append(t.pending, observer)
	return struct{}{}
}

func (t *fakeTransport) openNext(conn Connection) {
	o := t.pending[0]
	t.pending = t.pending[1:]
	o.OnConnectionOpened(conn)
}

func (t *fakeTransport) failNext() {
	o := t.pending[0]
	t.pending = t.pending[1:]
	o.OnConnectionFailed()
}

type demuxKey struct {
	endpointID uint64
	msgType    MessageType
}

type fakeDemuxer struct {
	handlers map[demuxKey]StreamHandler
}

func (d *fakeDemuxer) WatchMessageType(endpointID uint64, t MessageType, h StreamHandler) Registration {
	if d.handlers == nil {
		d.handlers = make(map[demuxKey]StreamHandler)
	}
	key := demuxKey{endpointID, t}
	d.handlers[key] = h
	return &fakeRegistration{d: d, key: key}
}

func (d *fakeDemuxer) deliver(endpointID uint64, t MessageType, b []byte) (int, error) {
	h, ok := d.handlers[demuxKey{endpointID, t}]
	if !ok {
		return 0, errors.New("availability_test: no handler registered for message type")
	}
	return h.OnStreamMessage(endpointID, 1, t, b)
}

type fakeRegistration struct {
	d   *fakeDemuxer
	key demuxKey
}

func (r *fakeRegistration) Close() {
	delete(r.d.handlers, r.key)
}

type harness struct {
	coord     *Coordinator
	transport *fakeTransport
	demuxer   *fakeDemuxer
	clock     *fakeClock
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newHarness() *harness {
	transport := &fakeTransport{}
	demuxer := &fakeDemuxer{}
	clk := &fakeClock{now: t0}

	coord := NewCoordinator(Deps{
		Clock:     clk,
		Transport: transport,
		Demuxer:   demuxer,
		Codec:     fakeCodec{},
		Logger:    NopLogger{},
	})

	return &harness{coord: coord, transport: transport, demuxer: demuxer, clock: clk}
}

func respond(h *harness, endpointID uint64, requestID uint64, availabilities ...Availability) {
	b, err := json.Marshal(WireResponse{RequestID: requestID, Availabilities: availabilities})
	Expect(err).ShouldNot(HaveOccurred())
	_, err = h.demuxer.deliver(endpointID, MessageTypeURLAvailabilityResponse, b)
	Expect(err).ShouldNot(HaveOccurred())
}

func sendEvent(h *harness, endpointID uint64, watchID uint64, urls []ident.URL, availabilities ...Availability) {
	b, err := json.Marshal(WireEvent{WatchID: watchID, URLs: urls, Availabilities: availabilities})
	Expect(err).ShouldNot(HaveOccurred())
	_, err = h.demuxer.deliver(endpointID, MessageTypeURLAvailabilityEvent, b)
	Expect(err).ShouldNot(HaveOccurred())
}

var _ = Describe("Coordinator", func() {
	It("AvailableObserverFirst: delivers onAvailable once a response arrives for a pre-registered observer", func() {
		h := newHarness()
		o := &recordingObserver{}

		Expect(h.coord.AddObserver([]ident.URL{u1}, o)).To(Succeed())
		Expect(h.coord.AddReceiver(svc, endpoint)).To(Succeed())

		conn := &fakeConnection{endpointID: 1}
		h.transport.openNext(conn)

		Expect(conn.writes).To(HaveLen(1))
		req := decodeRequest(conn.writes[0])
		Expect(req.URLs).To(Equal([]ident.URL{u1}))

		respond(h, 1, req.RequestID, Compatible)

		Expect(o.available).To(Equal([]edge{{u1, svc}}))
		Expect(o.unavailable).To(BeEmpty())
	})

	It("Unavailable cached: a second observer sees the cached edge with no round-trip", func() {
		h := newHarness()

		Expect(h.coord.AddReceiver(svc, endpoint)).To(Succeed())
		conn := &fakeConnection{endpointID: 1}
		h.transport.openNext(conn)
		Expect(conn.writes).To(BeEmpty())

		o1 := &recordingObserver{}
		Expect(h.coord.AddObserver([]ident.URL{u1}, o1)).To(Succeed())
		Expect(conn.writes).To(HaveLen(1))
		req := decodeRequest(conn.writes[0])

		respond(h, 1, req.RequestID, NotCompatible)
		Expect(o1.unavailable).To(Equal([]edge{{u1, svc}}))

		o2 := &recordingObserver{}
		Expect(h.coord.AddObserver([]ident.URL{u1}, o2)).To(Succeed())

		Expect(conn.writes).To(HaveLen(1)) // no new round trip
		Expect(o2.unavailable).To(Equal([]edge{{u1, svc}}))
	})

	It("Partially cached: a mixed url set delivers the cached edge and requests only the uncached url", func() {
		h := newHarness()

		Expect(h.coord.AddReceiver(svc, endpoint)).To(Succeed())
		conn := &fakeConnection{endpointID: 1}
		h.transport.openNext(conn)

		o1 := &recordingObserver{}
		Expect(h.coord.AddObserver([]ident.URL{u1}, o1)).To(Succeed())
		req1 := decodeRequest(conn.writes[0])
		respond(h, 1, req1.RequestID, NotCompatible)

		o2 := &recordingObserver{}
		Expect(h.coord.AddObserver([]ident.URL{u1, u2}, o2)).To(Succeed())

		Expect(o2.unavailable).To(ContainElement(edge{u1, svc}))
		Expect(conn.writes).To(HaveLen(2))

		req2 := decodeRequest(conn.writes[1])
		Expect(req2.URLs).To(Equal([]ident.URL{u2}))

		respond(h, 1, req2.RequestID, NotCompatible)
		Expect(o2.unavailable).To(ContainElement(edge{u2, svc}))
	})

	It("Event update: an event delivers an edge without extending the watch or issuing a new request", func() {
		h := newHarness()
		o := &recordingObserver{}

		Expect(h.coord.AddObserver([]ident.URL{u1, u2}, o)).To(Succeed())
		Expect(h.coord.AddReceiver(svc, endpoint)).To(Succeed())

		conn := &fakeConnection{endpointID: 1}
		h.transport.openNext(conn)

		req := decodeRequest(conn.writes[0])
		respond(h, 1, req.RequestID, Compatible, Compatible)
		// AddReceiver queries observed urls in sorted order: bar.html (u2)
		// before foo.html (u1).
		Expect(o.available).To(Equal([]edge{{u2, svc}, {u1, svc}}))

		sendEvent(h, 1, req.WatchID, []ident.URL{u2}, NotCompatible)

		Expect(o.unavailable).To(Equal([]edge{{u2, svc}}))
		Expect(conn.writes).To(HaveLen(1)) // no new outbound request
	})

	It("Refresh cycle: a due watch is renewed with a fresh watch-id", func() {
		h := newHarness()
		o := &recordingObserver{}

		Expect(h.coord.AddObserver([]ident.URL{u1}, o)).To(Succeed())
		Expect(h.coord.AddReceiver(svc, endpoint)).To(Succeed())

		conn := &fakeConnection{endpointID: 1}
		h.transport.openNext(conn)
		req := decodeRequest(conn.writes[0])
		respond(h, 1, req.RequestID, Compatible)

		h.clock.now = t0.Add(60 * time.Second)
		next, err := h.coord.RefreshWatches()
		Expect(err).ShouldNot(HaveOccurred())
		Expect(next).To(BeNumerically("<=", DefaultWatchDuration))

		Expect(conn.writes).To(HaveLen(2))
		refreshed := decodeRequest(conn.writes[1])
		Expect(refreshed.URLs).To(Equal([]ident.URL{u1}))
		Expect(refreshed.WatchID).NotTo(Equal(req.WatchID))

		respond(h, 1, refreshed.RequestID, NotCompatible)
		Expect(o.unavailable).To(Equal([]edge{{u1, svc}}))
	})

	It("Response after removal: no edge reaches an observer removed before the response arrives", func() {
		h := newHarness()

		Expect(h.coord.AddReceiver(svc, endpoint)).To(Succeed())
		conn := &fakeConnection{endpointID: 1}
		h.transport.openNext(conn)

		o := &recordingObserver{}
		Expect(h.coord.AddObserver([]ident.URL{u1}, o)).To(Succeed())
		req := decodeRequest(conn.writes[0])

		Expect(h.coord.RemoveObserverURLs([]ident.URL{u1}, o)).To(Succeed())

		// the request's url-list was truncated to empty by the removal, so
		// the response no longer matches it by length; it is discarded.
		b, err := json.Marshal(WireResponse{RequestID: req.RequestID, Availabilities: []Availability{Compatible}})
		Expect(err).ShouldNot(HaveOccurred())
		_, _ = h.demuxer.deliver(1, MessageTypeURLAvailabilityResponse, b)

		Expect(o.available).To(BeEmpty())
		Expect(o.unavailable).To(BeEmpty())

		o2 := &recordingObserver{}
		Expect(h.coord.AddObserver([]ident.URL{u1}, o2)).To(Succeed())
		Expect(conn.writes).To(HaveLen(2)) // no cached value, new request issued
	})

	It("L3: adding then removing a receiver is a no-op on observers, and unavailable fires for cached-compatible urls", func() {
		h := newHarness()
		o := &recordingObserver{}

		Expect(h.coord.AddObserver([]ident.URL{u1}, o)).To(Succeed())
		Expect(h.coord.AddReceiver(svc, endpoint)).To(Succeed())

		conn := &fakeConnection{endpointID: 1}
		h.transport.openNext(conn)
		req := decodeRequest(conn.writes[0])
		respond(h, 1, req.RequestID, Compatible)

		Expect(h.coord.RemoveReceiver(svc)).To(Succeed())
		Expect(o.unavailable).To(Equal([]edge{{u1, svc}}))
	})

	It("fails queued urls and drops the receiver when the connection fails to open", func() {
		h := newHarness()
		o := &recordingObserver{}

		Expect(h.coord.AddObserver([]ident.URL{u1}, o)).To(Succeed())
		Expect(h.coord.AddReceiver(svc, endpoint)).To(Succeed())

		h.transport.failNext()

		Expect(o.failed).To(Equal([]edge{{u1, svc}}))

		// the receiver is gone: adding it again opens a brand new connect.
		Expect(h.coord.AddReceiver(svc, endpoint)).To(Succeed())
		Expect(h.transport.pending).To(HaveLen(1))
	})
})
