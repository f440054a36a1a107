package library_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stacks/pkg/chunker"
	"github.com/papercomputeco/stacks/pkg/document"
	"github.com/papercomputeco/stacks/pkg/library"
	"github.com/papercomputeco/stacks/pkg/logger"
	"github.com/papercomputeco/stacks/pkg/retriever"
	testutils "github.com/papercomputeco/stacks/pkg/utils/test"
	"github.com/papercomputeco/stacks/pkg/vector"
	"github.com/papercomputeco/stacks/pkg/vector/inmemory"
)

var _ = Describe("VectorLibrary", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("New", func() {
		DescribeTable("rejects invalid chunking parameters",
			func(size, overlap int, cause error) {
				_, err := library.New(testutils.NewMockVectorDriver(), library.Config{
					ChunkSize:    size,
					ChunkOverlap: overlap,
				}, logger.Nop())
				Expect(err).To(HaveOccurred())
				Expect(errors.Is(err, library.ErrInvalidConfig)).To(BeTrue())
				Expect(errors.Is(err, cause)).To(BeTrue())
			},
			Entry("zero size", 0, 0, chunker.ErrInvalidChunkSize),
			Entry("negative size", -5, 0, chunker.ErrInvalidChunkSize),
			Entry("overlap equal to size", 100, 100, chunker.ErrInvalidChunkOverlap),
			Entry("overlap larger than size", 100, 150, chunker.ErrInvalidChunkOverlap),
			Entry("negative overlap", 100, -1, chunker.ErrInvalidChunkOverlap),
		)

		It("accepts the default configuration", func() {
			lib, err := library.New(testutils.NewMockVectorDriver(), library.DefaultConfig(), logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(lib.Retriever().Collection()).To(Equal(retriever.DefaultCollectionName))
		})
	})

	Describe("with a mock driver", func() {
		var (
			driver *testutils.MockVectorDriver
			lib    *library.VectorLibrary
		)

		BeforeEach(func() {
			driver = testutils.NewMockVectorDriver()

			var err error
			lib, err = library.New(driver, library.Config{
				CollectionName: "kb",
				ChunkSize:      1000,
				ChunkOverlap:   0,
			}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
		})

		It("stores the chunks of every document in one add call", func() {
			long := document.New(strings.Repeat("a", 2500), document.WithID("long"))
			short := document.New("short text", document.WithID("short"))

			Expect(lib.AddDocuments(ctx, long, short)).To(Succeed())

			Expect(driver.AddCalls).To(HaveLen(1))
			call := driver.AddCalls[0]
			Expect(call.Collection).To(Equal("kb"))
			Expect(call.Texts).To(HaveLen(4))
			Expect(len(call.Texts[0])).To(Equal(1000))
			Expect(len(call.Texts[1])).To(Equal(1000))
			Expect(len(call.Texts[2])).To(Equal(500))
			Expect(call.Texts[3]).To(Equal("short text"))

			Expect(call.Metadatas).To(HaveLen(4))
			for i := 0; i < 3; i++ {
				Expect(call.Metadatas[i]).To(HaveKeyWithValue(document.MetadataChunkIndex, i))
				Expect(call.Metadatas[i]).To(HaveKeyWithValue(document.MetadataOriginalDocumentID, "long"))
			}
			Expect(call.Metadatas[3]).To(HaveKeyWithValue(document.MetadataChunkIndex, 0))
			Expect(call.Metadatas[3]).To(HaveKeyWithValue(document.MetadataOriginalDocumentID, "short"))
		})

		It("tags chunks with their index and source id", func() {
			doc := document.New(strings.Repeat("a", 2500),
				document.WithID("src"),
				document.WithMetadata(map[string]any{"source": "a.txt"}),
			)

			Expect(lib.AddDocuments(ctx, doc)).To(Succeed())

			call := driver.AddCalls[0]
			for i, md := range call.Metadatas {
				Expect(md).To(HaveKeyWithValue(document.MetadataChunkIndex, i))
				Expect(md).To(HaveKeyWithValue(document.MetadataOriginalDocumentID, "src"))
				Expect(md).To(HaveKeyWithValue("source", "a.txt"))
				Expect(call.IDs[i]).NotTo(Equal("src"))
			}
			Expect(doc.Metadata).NotTo(HaveKey(document.MetadataChunkIndex))
		})

		It("passes retrieval straight through to the driver", func() {
			where := vector.Where{"source": "a.txt"}
			_, err := lib.Retrieve(ctx, "question", 2, where)
			Expect(err).NotTo(HaveOccurred())

			Expect(driver.QueryCalls).To(HaveLen(1))
			Expect(driver.QueryCalls[0].Collection).To(Equal("kb"))
			Expect(driver.QueryCalls[0].NResults).To(Equal(2))
			Expect(driver.QueryCalls[0].Where).To(Equal(where))
		})

		It("deletes the collection on clear", func() {
			Expect(lib.Clear(ctx)).To(Succeed())
			Expect(driver.DeletedNames).To(Equal([]string{"kb"}))
		})

		It("returns store errors unchanged", func() {
			driver.Err = vector.ErrConnection
			Expect(lib.AddDocuments(ctx, document.New("x"))).To(MatchError(vector.ErrConnection))
		})

		It("closes the driver", func() {
			Expect(lib.Close()).To(Succeed())
			Expect(driver.Closed).To(BeTrue())
		})
	})

	Describe("with the in-memory driver", func() {
		var lib *library.VectorLibrary

		BeforeEach(func() {
			driver, err := inmemory.NewDriver(inmemory.Config{Embedder: testutils.NewHashEmbedder(128)}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())

			lib, err = library.New(driver, library.Config{ChunkSize: 60, ChunkOverlap: 10}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(lib.Close()).To(Succeed())
		})

		It("returns nothing from an empty library", func() {
			docs, err := lib.Retrieve(ctx, "anything", 3, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())
		})

		It("finds a chunk of the document whose content is queried", func() {
			target := document.New("penguins huddle together to survive antarctic winters", document.WithID("penguins"))
			Expect(lib.AddDocuments(ctx,
				document.New("the stock market closed higher on friday", document.WithID("stocks")),
				target,
				document.New("bake the bread at two hundred degrees", document.WithID("bread")),
			)).To(Succeed())

			docs, err := lib.Retrieve(ctx, target.Content, 1, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))

			id, ok := docs[0].OriginalDocumentID()
			Expect(ok).To(BeTrue())
			Expect(id).To(Equal("penguins"))
		})

		It("never returns more than topK chunks", func() {
			for range 5 {
				Expect(lib.AddDocuments(ctx, document.New("repeated note about gardening"))).To(Succeed())
			}

			docs, err := lib.Retrieve(ctx, "gardening", 2, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(2))

			docs, err = lib.Retrieve(ctx, "gardening", 0, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(retriever.DefaultTopK))
		})

		It("restricts results with a metadata filter", func() {
			Expect(lib.AddDocuments(ctx,
				document.New("notes on tomatoes", document.WithMetadata(map[string]any{"source": "garden.md"})),
				document.New("notes on tomatoes", document.WithMetadata(map[string]any{"source": "kitchen.md"})),
			)).To(Succeed())

			docs, err := lib.Retrieve(ctx, "tomatoes", 5, vector.Where{"source": "kitchen.md"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Metadata).To(HaveKeyWithValue("source", "kitchen.md"))
		})

		It("returns nothing after clear and accepts new documents", func() {
			Expect(lib.AddDocuments(ctx, document.New("ephemeral content"))).To(Succeed())
			Expect(lib.Clear(ctx)).To(Succeed())

			docs, err := lib.Retrieve(ctx, "ephemeral content", 3, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())

			Expect(lib.AddDocuments(ctx, document.New("fresh content"))).To(Succeed())
			docs, err = lib.Retrieve(ctx, "fresh content", 3, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
		})
	})
})
