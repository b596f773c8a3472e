package wire

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/gtalis/openscreen/internal/availability"
	"github.com/gtalis/openscreen/internal/ident"
)

var _ = Describe("Codec", func() {
	var c Codec

	It("round-trips a request's fields through EncodeRequest", func() {
		req := availability.WireRequest{
			RequestID: 7,
			WatchID:   9,
			URLs:      []ident.URL{"https://example.com/foo.html", "https://example.com/bar.html"},
		}

		b, err := c.EncodeRequest(req)
		Expect(err).ShouldNot(HaveOccurred())

		body, consumed, err := frameDecode(b)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(consumed).To(Equal(len(b)))

		var msg requestMessage
		Expect(decodeBytes(body, &msg)).To(Succeed())
		Expect(msg.RequestID).To(Equal(uint64(7)))
		Expect(msg.WatchID).To(Equal(uint64(9)))
		Expect(msg.URLs).To(Equal([]string{"https://example.com/foo.html", "https://example.com/bar.html"}))
	})

	It("round-trips a response through DecodeResponse", func() {
		body, err := encode(responseMessage{
			RequestID:      3,
			Availabilities: []byte{0, 1},
		})
		Expect(err).ShouldNot(HaveOccurred())
		framed := frameEncode(body)

		rsp, consumed, err := c.DecodeResponse(framed)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(consumed).To(Equal(len(framed)))
		Expect(rsp.RequestID).To(Equal(uint64(3)))
		Expect(rsp.Availabilities).To(Equal([]availability.Availability{
			availability.Compatible,
			availability.NotCompatible,
		}))
	})

	It("round-trips an event through DecodeEvent", func() {
		body, err := encode(eventMessage{
			WatchID:        5,
			URLs:           []string{"https://example.com/bar.html"},
			Availabilities: []byte{2},
		})
		Expect(err).ShouldNot(HaveOccurred())
		framed := frameEncode(body)

		evt, consumed, err := c.DecodeEvent(framed)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(consumed).To(Equal(len(framed)))
		Expect(evt.WatchID).To(Equal(uint64(5)))
		Expect(evt.URLs).To(Equal([]ident.URL{"https://example.com/bar.html"}))
		Expect(evt.Availabilities).To(Equal([]availability.Availability{availability.NotValid}))
	})

	It("reports an incomplete message when fewer than the length prefix is buffered", func() {
		_, _, err := c.DecodeResponse([]byte{0, 1})
		Expect(err).To(Equal(availability.ErrIncompleteMessage))
	})

	It("reports an incomplete message when the body is still arriving", func() {
		body, err := encode(responseMessage{RequestID: 1, Availabilities: []byte{0}})
		Expect(err).ShouldNot(HaveOccurred())
		framed := frameEncode(body)

		_, _, err = c.DecodeResponse(framed[:len(framed)-1])
		Expect(err).To(Equal(availability.ErrIncompleteMessage))
	})
})
