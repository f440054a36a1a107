package qdrant

import (
	"context"
	"net"
	"os"
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stacks/pkg/logger"
	testutils "github.com/papercomputeco/stacks/pkg/utils/test"
	"github.com/papercomputeco/stacks/pkg/vector"
)

var _ = Describe("Driver", func() {
	Describe("NewDriver", func() {
		It("requires a host", func() {
			_, err := NewDriver(Config{Dimensions: 8, Embedder: testutils.NewHashEmbedder(8)}, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("qdrant host is required")))
		})

		It("requires dimensions", func() {
			_, err := NewDriver(Config{Host: "localhost", Embedder: testutils.NewHashEmbedder(8)}, logger.Nop())
			Expect(err).To(HaveOccurred())
		})

		It("requires an embedder", func() {
			_, err := NewDriver(Config{Host: "localhost", Dimensions: 8}, logger.Nop())
			Expect(err).To(MatchError(vector.ErrNoEmbedder))
		})
	})

	Describe("against a live server", func() {
		var (
			driver     *Driver
			ctx        context.Context
			collection string
		)

		BeforeEach(func() {
			addr := os.Getenv("STACKS_TEST_QDRANT_ADDR")
			if addr == "" {
				Skip("STACKS_TEST_QDRANT_ADDR not set")
			}

			host, portStr, err := net.SplitHostPort(addr)
			Expect(err).NotTo(HaveOccurred())
			port, err := strconv.Atoi(portStr)
			Expect(err).NotTo(HaveOccurred())

			driver, err = NewDriver(Config{
				Host:       host,
				Port:       port,
				Dimensions: 32,
				Embedder:   testutils.NewHashEmbedder(32),
			}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())

			ctx = context.Background()
			collection = "stacks_test_" + strconv.Itoa(GinkgoParallelProcess())
			Expect(driver.DeleteCollection(ctx, collection)).To(Succeed())
		})

		AfterEach(func() {
			if driver != nil {
				Expect(driver.DeleteCollection(ctx, collection)).To(Succeed())
				Expect(driver.Close()).To(Succeed())
			}
		})

		It("adds, filters, and deletes documents", func() {
			Expect(driver.Add(ctx, collection,
				[]string{"a", "b"},
				[]string{"red apples grow on trees", "blue whales swim in oceans"},
				[]map[string]any{{"kind": "plant", "chunk_index": 0}, {"kind": "animal", "chunk_index": 1}},
			)).To(Succeed())

			res, err := driver.Query(ctx, collection, []string{"whales in the ocean"}, 2, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IDs[0][0]).To(Equal("b"))
			Expect(res.Documents[0][0]).To(Equal("blue whales swim in oceans"))
			Expect(res.Metadatas[0][0]).To(HaveKeyWithValue("chunk_index", 1))

			res, err = driver.Query(ctx, collection, []string{"whales"}, 2, vector.Where{"kind": "plant"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IDs[0]).To(Equal([]string{"a"}))

			Expect(driver.DeleteCollection(ctx, collection)).To(Succeed())
			res, err = driver.Query(ctx, collection, []string{"whales"}, 2, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Len(0)).To(Equal(0))
		})
	})
})
