package ident_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	. "github.com/gtalis/openscreen/internal/ident"
)

var _ = Describe("URL", func() {
	DescribeTable(
		"Validate",
		func(subject URL, isValid bool) {
			if isValid {
				Expect(subject.Validate()).To(Succeed())
			} else {
				Expect(subject.Validate()).Should(HaveOccurred())
			}
		},
		Entry("empty string", URL(""), false),
		Entry("non-empty string", URL("https://example.com/foo.html"), true),
	)
})

var _ = Describe("ServiceID", func() {
	DescribeTable(
		"Validate",
		func(subject ServiceID, isValid bool) {
			if isValid {
				Expect(subject.Validate()).To(Succeed())
			} else {
				Expect(subject.Validate()).Should(HaveOccurred())
			}
		},
		Entry("empty string", ServiceID(""), false),
		Entry("non-empty string", ServiceID("asdf"), true),
	)

	Describe("ShortString", func() {
		It("truncates long ids", func() {
			id := ServiceID("0123456789abcdef")
			Expect(id.ShortString()).To(Equal("0123456789ab…"))
		})

		It("returns short ids unchanged", func() {
			id := ServiceID("asdf")
			Expect(id.ShortString()).To(Equal("asdf"))
		})
	})
})
