package retriever_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stacks/pkg/document"
	"github.com/papercomputeco/stacks/pkg/logger"
	"github.com/papercomputeco/stacks/pkg/retriever"
	testutils "github.com/papercomputeco/stacks/pkg/utils/test"
	"github.com/papercomputeco/stacks/pkg/vector"
	"github.com/papercomputeco/stacks/pkg/vector/inmemory"
)

var _ = Describe("Retriever", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("with a mock driver", func() {
		var (
			driver *testutils.MockVectorDriver
			r      *retriever.Retriever
		)

		BeforeEach(func() {
			driver = testutils.NewMockVectorDriver()
			r = retriever.New(driver, "notes", logger.Nop())
		})

		It("defaults the collection name", func() {
			Expect(retriever.New(driver, "", logger.Nop()).Collection()).To(Equal(retriever.DefaultCollectionName))
		})

		It("sends all documents in one add call", func() {
			a := document.New("alpha", document.WithID("a"), document.WithMetadata(map[string]any{"k": "v"}))
			b := document.Document{ID: "b", Content: "beta"}

			Expect(r.Add(ctx, a, b)).To(Succeed())

			Expect(driver.AddCalls).To(HaveLen(1))
			call := driver.AddCalls[0]
			Expect(call.Collection).To(Equal("notes"))
			Expect(call.IDs).To(Equal([]string{"a", "b"}))
			Expect(call.Texts).To(Equal([]string{"alpha", "beta"}))
			Expect(call.Metadatas).To(Equal([]map[string]any{{"k": "v"}, {}}))
		})

		It("does not call the driver for an empty add", func() {
			Expect(r.Add(ctx)).To(Succeed())
			Expect(driver.AddCalls).To(BeEmpty())
		})

		It("uses the default topK when none is given", func() {
			_, err := r.Retrieve(ctx, "q", 0, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.QueryCalls).To(HaveLen(1))
			Expect(driver.QueryCalls[0].NResults).To(Equal(retriever.DefaultTopK))
			Expect(driver.QueryCalls[0].QueryTexts).To(Equal([]string{"q"}))
		})

		It("passes the filter through", func() {
			where := vector.Where{"source": "a.txt"}
			_, err := r.Retrieve(ctx, "q", 2, where)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.QueryCalls[0].Where).To(Equal(where))
		})

		It("converts the first result group into documents", func() {
			driver.Result = &vector.QueryResult{
				IDs:       [][]string{{"x", "y"}},
				Documents: [][]string{{"text x", "text y"}},
				Metadatas: [][]map[string]any{{{"chunk_index": 0}, nil}},
				Distances: [][]float32{{0.1, 0.2}},
			}

			docs, err := r.Retrieve(ctx, "q", 5, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(2))
			Expect(docs[0]).To(Equal(document.Document{ID: "x", Content: "text x", Metadata: map[string]any{"chunk_index": 0}}))
			Expect(docs[1].Metadata).NotTo(BeNil())

			matches, err := r.Search(ctx, "q", 5, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches[1].Distance).To(Equal(float32(0.2)))
		})

		It("never returns more than topK documents", func() {
			driver.Result = &vector.QueryResult{
				IDs:       [][]string{{"x", "y", "z"}},
				Documents: [][]string{{"1", "2", "3"}},
			}

			docs, err := r.Retrieve(ctx, "q", 2, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(2))
		})

		It("returns driver errors unchanged", func() {
			driver.Err = vector.ErrConnection

			err := r.Add(ctx, document.New("x"))
			Expect(err).To(MatchError(vector.ErrConnection))

			_, err = r.Retrieve(ctx, "q", 1, nil)
			Expect(errors.Is(err, vector.ErrConnection)).To(BeTrue())

			Expect(r.DeleteCollection(ctx)).To(MatchError(vector.ErrConnection))
		})

		It("deletes its own collection", func() {
			Expect(r.DeleteCollection(ctx)).To(Succeed())
			Expect(driver.DeletedNames).To(Equal([]string{"notes"}))
		})

		It("closes the driver", func() {
			Expect(r.Close()).To(Succeed())
			Expect(driver.Closed).To(BeTrue())
		})
	})

	Describe("with the in-memory driver", func() {
		var r *retriever.Retriever

		BeforeEach(func() {
			driver, err := inmemory.NewDriver(inmemory.Config{Embedder: testutils.NewHashEmbedder(64)}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			r = retriever.New(driver, "", logger.Nop())
		})

		AfterEach(func() {
			Expect(r.Close()).To(Succeed())
		})

		It("returns an empty slice for an empty collection", func() {
			docs, err := r.Retrieve(ctx, "anything", 3, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())
		})

		It("returns at most topK documents, most similar first", func() {
			Expect(r.Add(ctx,
				document.New("the quick brown fox", document.WithID("fox")),
				document.New("a lazy sleeping dog", document.WithID("dog")),
				document.New("quick brown bread recipes", document.WithID("bread")),
				document.New("tax forms and receipts", document.WithID("tax")),
			)).To(Succeed())

			docs, err := r.Retrieve(ctx, "quick brown fox", 2, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(2))
			Expect(docs[0].ID).To(Equal("fox"))
			Expect(docs[1].ID).To(Equal("bread"))
		})

		It("returns nothing after the collection is deleted", func() {
			Expect(r.Add(ctx, document.New("some text"))).To(Succeed())
			Expect(r.DeleteCollection(ctx)).To(Succeed())

			docs, err := r.Retrieve(ctx, "some text", 3, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())
		})

		It("replaces documents added again with the same id", func() {
			Expect(r.Add(ctx, document.New("first version", document.WithID("doc")))).To(Succeed())
			Expect(r.Add(ctx, document.New("second version", document.WithID("doc")))).To(Succeed())

			docs, err := r.Retrieve(ctx, "version", 5, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Content).To(Equal("second version"))
		})
	})
})
