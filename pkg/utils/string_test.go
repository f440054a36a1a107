package utils

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("truncate", func() {
	It("returns the string unchanged when within the limit", func() {
		Expect(Truncate("short", 10)).To(Equal("short"))
	})

	It("returns the string unchanged when exactly at the limit", func() {
		Expect(Truncate("12345", 5)).To(Equal("12345"))
	})

	It("truncates with ellipsis when over the limit", func() {
		result := Truncate("this is a long string", 10)
		Expect(result).To(Equal("this is a ..."))
	})

	It("never splits a multi-byte character", func() {
		Expect(Truncate("héllo wörld", 4)).To(Equal("héll..."))
	})
})

var _ = Describe("preview", func() {
	It("collapses whitespace before truncating", func() {
		Expect(Preview("line one\n\n  line\ttwo", 100)).To(Equal("line one line two"))
	})

	It("truncates the collapsed text", func() {
		Expect(Preview("a  b  c  d", 3)).To(Equal("a b..."))
	})
})
