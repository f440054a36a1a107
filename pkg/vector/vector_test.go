package vector_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	testutils "github.com/papercomputeco/stacks/pkg/utils/test"
	"github.com/papercomputeco/stacks/pkg/vector"
)

var _ = Describe("CosineDistance", func() {
	It("is zero for identical directions", func() {
		Expect(vector.CosineDistance([]float32{1, 2, 3}, []float32{2, 4, 6})).To(BeNumerically("~", 0, 1e-6))
	})

	It("is one for orthogonal vectors", func() {
		Expect(vector.CosineDistance([]float32{1, 0}, []float32{0, 1})).To(BeNumerically("~", 1, 1e-6))
	})

	It("is two for opposite vectors", func() {
		Expect(vector.CosineDistance([]float32{1, 0}, []float32{-1, 0})).To(BeNumerically("~", 2, 1e-6))
	})

	It("treats zero vectors and length mismatches as unrelated", func() {
		Expect(vector.CosineDistance([]float32{0, 0}, []float32{1, 0})).To(Equal(float32(1)))
		Expect(vector.CosineDistance([]float32{1}, []float32{1, 0})).To(Equal(float32(1)))
	})
})

var _ = Describe("CheckAddInput", func() {
	It("accepts aligned slices", func() {
		Expect(vector.CheckAddInput([]string{"a"}, []string{"x"}, []map[string]any{{}})).To(Succeed())
	})

	It("rejects misaligned slices", func() {
		Expect(vector.CheckAddInput([]string{"a"}, nil, nil)).To(MatchError(vector.ErrMismatchedInput))
	})
})

var _ = Describe("EmptyQueryResult", func() {
	It("has one empty group per query", func() {
		r := vector.EmptyQueryResult(2)
		Expect(r.IDs).To(HaveLen(2))
		Expect(r.Len(0)).To(Equal(0))
		Expect(r.Len(1)).To(Equal(0))
		Expect(r.Len(5)).To(Equal(0))
	})
})

var _ = Describe("EmbedTexts", func() {
	It("embeds every text in order", func() {
		e := testutils.NewMockEmbedder()
		e.Embeddings["a"] = []float32{1}
		e.Embeddings["b"] = []float32{2}

		vecs, err := vector.EmbedTexts(context.Background(), e, []string{"a", "b"})
		Expect(err).NotTo(HaveOccurred())
		Expect(vecs).To(Equal([][]float32{{1}, {2}}))
	})

	It("marks failures as embedding errors", func() {
		e := testutils.NewMockEmbedder()
		e.FailOn = "b"

		_, err := vector.EmbedTexts(context.Background(), e, []string{"a", "b"})
		Expect(errors.Is(err, vector.ErrEmbedding)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("mock embedding failure"))
	})
})
