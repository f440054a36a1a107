package authcmder_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/stacks/cmd/stacks/auth"
	"github.com/papercomputeco/stacks/pkg/credentials"
)

var _ = Describe("Auth Command", func() {
	var (
		tmpDir string
		out    *bytes.Buffer
	)

	newCmd := func(stdin string, args ...string) *cobra.Command {
		cmd := authcmder.NewAuthCmd()
		cmd.PersistentFlags().String("config-dir", "", "Override path to .stacks/ config directory")
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetOut(out)
		cmd.SetArgs(append(args, "--config-dir", tmpDir))
		return cmd
	}

	storedKey := func(provider string) string {
		mgr, err := credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		key, err := mgr.GetKey(provider)
		Expect(err).NotTo(HaveOccurred())
		return key
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
	})

	Describe("NewAuthCmd", func() {
		It("creates a command with expected properties", func() {
			cmd := authcmder.NewAuthCmd()
			Expect(cmd.Use).To(Equal("auth [provider]"))
			Expect(cmd.Short).NotTo(BeEmpty())
			Expect(cmd.Flags().Lookup("list")).NotTo(BeNil())
			Expect(cmd.Flags().Lookup("remove")).NotTo(BeNil())
		})
	})

	Describe("storing a key", func() {
		It("reads the key from piped stdin", func() {
			Expect(newCmd("qd-secret\n", "qdrant").Execute()).To(Succeed())
			Expect(storedKey("qdrant")).To(Equal("qd-secret"))
			Expect(out.String()).To(ContainSubstring("Stored"))
			Expect(out.String()).NotTo(ContainSubstring("qd-secret"))
		})

		It("normalizes the provider name", func() {
			Expect(newCmd("ck-token\n", " Chroma ").Execute()).To(Succeed())
			Expect(storedKey("chroma")).To(Equal("ck-token"))
		})

		It("requires a provider", func() {
			err := newCmd("").Execute()
			Expect(err).To(MatchError(ContainSubstring("provider argument required")))
		})

		It("rejects unsupported providers", func() {
			err := newCmd("key\n", "pgvector").Execute()
			Expect(err).To(MatchError(ContainSubstring("unsupported provider")))
		})

		It("rejects an empty key", func() {
			err := newCmd("   \n", "qdrant").Execute()
			Expect(err).To(MatchError(ContainSubstring("cannot be empty")))
		})

		It("rejects missing input", func() {
			err := newCmd("", "qdrant").Execute()
			Expect(err).To(MatchError(ContainSubstring("no input received")))
		})
	})

	Describe("--list flag", func() {
		It("shows no credentials when none stored", func() {
			Expect(newCmd("", "--list").Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("No stored credentials"))
		})

		It("lists stored providers", func() {
			Expect(newCmd("qd-secret\n", "qdrant").Execute()).To(Succeed())

			out.Reset()
			Expect(newCmd("", "--list").Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("qdrant"))
			Expect(out.String()).To(ContainSubstring("QDRANT_API_KEY"))
			Expect(out.String()).NotTo(ContainSubstring("qd-secret"))
		})
	})

	Describe("--remove flag", func() {
		It("removes a stored key", func() {
			Expect(newCmd("qd-secret\n", "qdrant").Execute()).To(Succeed())
			Expect(newCmd("", "--remove", "qdrant").Execute()).To(Succeed())
			Expect(storedKey("qdrant")).To(BeEmpty())
		})
	})
})
