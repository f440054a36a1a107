package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stacks/pkg/cliui"
)

var _ = Describe("cliui", func() {
	Describe("FormatDuration", func() {
		It("uses milliseconds below a second", func() {
			Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
		})

		It("uses seconds with one decimal otherwise", func() {
			Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
		})
	})

	Describe("Mark", func() {
		It("picks the mark from the error", func() {
			Expect(cliui.Mark(nil)).To(Equal(cliui.SuccessMark))
			Expect(cliui.Mark(errors.New("boom"))).To(Equal(cliui.FailMark))
		})
	})

	Describe("Step", func() {
		It("prints the message with a success mark", func() {
			var buf bytes.Buffer
			Expect(cliui.Step(&buf, "Storing chunks", func() error { return nil })).To(Succeed())

			out := buf.String()
			Expect(out).To(ContainSubstring("Storing chunks"))
			Expect(out).To(ContainSubstring(cliui.SuccessMark))
			Expect(out).To(HaveSuffix("\n"))
		})

		It("returns the error and prints a failure mark", func() {
			var buf bytes.Buffer
			boom := errors.New("boom")

			Expect(cliui.Step(&buf, "Storing chunks", func() error { return boom })).To(MatchError(boom))
			Expect(buf.String()).To(ContainSubstring(cliui.FailMark))
		})
	})

	Describe("RenderMarkdown", func() {
		It("renders headings as text", func() {
			out, err := cliui.RenderMarkdown("# Title\n\nBody text.")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Title"))
			Expect(out).To(ContainSubstring("Body text."))
		})
	})
})
