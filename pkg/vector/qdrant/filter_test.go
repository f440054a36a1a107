package qdrant

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stacks/pkg/vector"
)

var _ = Describe("translateWhere", func() {
	It("returns nil for an empty clause", func() {
		f, err := translateWhere(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(f).To(BeNil())
	})

	It("matches strings as keywords under the metadata key", func() {
		f, err := translateWhere(vector.Where{"source": "notes.txt"})
		Expect(err).NotTo(HaveOccurred())
		Expect(f.GetMust()).To(HaveLen(1))

		field := f.GetMust()[0].GetField()
		Expect(field.GetKey()).To(Equal("metadata.source"))
		Expect(field.GetMatch().GetKeyword()).To(Equal("notes.txt"))
	})

	It("matches whole numbers as integers", func() {
		f, err := translateWhere(vector.Where{"chunk_index": 2.0})
		Expect(err).NotTo(HaveOccurred())
		Expect(f.GetMust()[0].GetField().GetMatch().GetInteger()).To(Equal(int64(2)))
	})

	It("matches booleans", func() {
		f, err := translateWhere(vector.Where{"draft": true})
		Expect(err).NotTo(HaveOccurred())
		Expect(f.GetMust()[0].GetField().GetMatch().GetBoolean()).To(BeTrue())
	})

	It("translates range operators", func() {
		f, err := translateWhere(vector.Where{"chunk_index": vector.Where{"$lt": 3}})
		Expect(err).NotTo(HaveOccurred())

		r := f.GetMust()[0].GetField().GetRange()
		Expect(r.GetLt()).To(Equal(3.0))
		Expect(r.Gt).To(BeNil())
	})

	It("excludes missing fields from $ne", func() {
		f, err := translateWhere(vector.Where{"lang": vector.Where{"$ne": "en"}})
		Expect(err).NotTo(HaveOccurred())

		mustNot := f.GetMust()[0].GetFilter().GetMustNot()
		Expect(mustNot).To(HaveLen(2))
		Expect(mustNot[0].GetField().GetMatch().GetKeyword()).To(Equal("en"))
		Expect(mustNot[1].GetIsEmpty().GetKey()).To(Equal("metadata.lang"))
	})

	It("translates $in into a should filter", func() {
		f, err := translateWhere(vector.Where{"lang": vector.Where{"$in": []string{"en", "de"}}})
		Expect(err).NotTo(HaveOccurred())

		should := f.GetMust()[0].GetFilter().GetShould()
		Expect(should).To(HaveLen(2))
		Expect(should[1].GetField().GetMatch().GetKeyword()).To(Equal("de"))
	})

	It("nests logical operators", func() {
		f, err := translateWhere(vector.Where{
			"$or": []any{
				map[string]any{"lang": "en"},
				map[string]any{"chunk_index": 0},
			},
		})
		Expect(err).NotTo(HaveOccurred())

		should := f.GetMust()[0].GetFilter().GetShould()
		Expect(should).To(HaveLen(2))
		Expect(should[0].GetField().GetKey()).To(Equal("metadata.lang"))
		Expect(should[1].GetField().GetKey()).To(Equal("metadata.chunk_index"))
	})

	It("combines multiple fields with must", func() {
		f, err := translateWhere(vector.Where{"a": "x", "b": "y"})
		Expect(err).NotTo(HaveOccurred())
		Expect(f.GetMust()[0].GetFilter().GetMust()).To(HaveLen(2))
	})

	It("rejects invalid clauses", func() {
		_, err := translateWhere(vector.Where{"a": vector.Where{"$regex": "x"}})
		Expect(errors.Is(err, vector.ErrInvalidFilter)).To(BeTrue())
	})
})
