package amqptransport

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("checkProtocolVersion", func() {
	It("accepts a version at the minimum", func() {
		Expect(checkProtocolVersion("1.0.0")).To(Succeed())
	})

	It("accepts a version above the minimum", func() {
		Expect(checkProtocolVersion("1.4.2")).To(Succeed())
	})

	It("rejects a version below the minimum", func() {
		Expect(checkProtocolVersion("0.9.0")).To(HaveOccurred())
	})

	It("rejects an empty version", func() {
		Expect(checkProtocolVersion("")).To(HaveOccurred())
	})

	It("rejects an unparseable version", func() {
		Expect(checkProtocolVersion("not-a-version")).To(HaveOccurred())
	})
})

var _ = Describe("requestRoutingKey", func() {
	It("is stable for the same endpoint id", func() {
		Expect(requestRoutingKey(7)).To(Equal(requestRoutingKey(7)))
	})

	It("differs across endpoint ids", func() {
		Expect(requestRoutingKey(7)).NotTo(Equal(requestRoutingKey(8)))
	})
})
