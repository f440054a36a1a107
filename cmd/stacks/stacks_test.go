package stackscmder_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	stackscmder "github.com/papercomputeco/stacks/cmd/stacks"
	querycmder "github.com/papercomputeco/stacks/cmd/stacks/query"
	testutils "github.com/papercomputeco/stacks/pkg/utils/test"
	"github.com/papercomputeco/stacks/pkg/vector/sqlitevec"
)

var _ = Describe("NewStacksCmd", func() {
	It("registers every subcommand", func() {
		cmd := stackscmder.NewStacksCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("init", "add", "query", "clear", "status", "config", "auth", "version"))
	})

	It("has the global flags", func() {
		cmd := stackscmder.NewStacksCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("log-file")).NotTo(BeNil())
	})
})

var _ = Describe("add, query and clear", func() {
	var (
		configDir string
		docsDir   string
		ollama    *httptest.Server
	)

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
		docsDir = GinkgoT().TempDir()

		ollama = testutils.NewOllamaServer(128)
		DeferCleanup(ollama.Close)

		writeDoc := func(name, content string) {
			Expect(os.WriteFile(filepath.Join(docsDir, name), []byte(content), 0o600)).To(Succeed())
		}
		writeDoc("penguins.md", "Penguins huddle together to survive the antarctic winter.")
		writeDoc("bread.md", "Bake the sourdough bread at a high temperature with steam.")
		writeDoc("deploys.md", "Deploys roll out through staging before production traffic.")
	})

	// run executes the root command against the temp store and returns stdout.
	run := func(args ...string) (string, error) {
		var stdout, stderr bytes.Buffer

		cmd := stackscmder.NewStacksCmd()
		cmd.SetOut(&stdout)
		cmd.SetErr(&stderr)
		cmd.SetArgs(append(args,
			"--config-dir", configDir,
			"--vector-store-provider", "sqlite",
			"--embedding-target", ollama.URL,
			"--embedding-dimensions", "128",
		))

		err := cmd.Execute()
		return stdout.String(), err
	}

	addAll := func() {
		out, err := run("add",
			filepath.Join(docsDir, "penguins.md"),
			filepath.Join(docsDir, "bread.md"),
			filepath.Join(docsDir, "deploys.md"),
			"--meta", "team=docs",
		)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Adding 3 document(s) to stacks_docs"))
	}

	queryJSON := func(args ...string) []querycmder.Result {
		out, err := run(append([]string{"query"}, append(args, "--json")...)...)
		Expect(err).NotTo(HaveOccurred())

		var results []querycmder.Result
		Expect(json.Unmarshal([]byte(out), &results)).To(Succeed())
		return results
	}

	It("persists chunks in the store under the config dir", func() {
		addAll()

		_, err := os.Stat(filepath.Join(configDir, "store", sqlitevec.DBFileName))
		Expect(err).NotTo(HaveOccurred())
	})

	It("returns the most similar chunk first", func() {
		addAll()

		results := queryJSON("penguins antarctic winter", "--top", "2")
		Expect(results).To(HaveLen(2))
		Expect(results[0].Metadata["source"]).To(HaveSuffix("penguins.md"))
		Expect(results[0].Metadata).To(HaveKeyWithValue("team", "docs"))
		Expect(results[0].Metadata).To(HaveKeyWithValue("project", filepath.Base(docsDir)))
		Expect(results[0].Metadata).To(HaveKeyWithValue("chunk_index", BeNumerically("==", 0)))
		Expect(results[0].Distance).To(BeNumerically("<", results[1].Distance))
	})

	It("applies a metadata filter", func() {
		addAll()

		results := queryJSON("penguins antarctic winter",
			"--where", `{"source": {"$eq": "`+filepath.Join(docsDir, "bread.md")+`"}}`)
		Expect(results).To(HaveLen(1))
		Expect(results[0].Content).To(ContainSubstring("sourdough"))
	})

	It("prints styled results", func() {
		addAll()

		out, err := run("query", "sourdough bread", "--top", "1")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("#1"))
		Expect(out).To(ContainSubstring("sourdough"))
		Expect(out).To(ContainSubstring("bread.md [chunk 0]"))
	})

	It("reports an empty library", func() {
		out, err := run("query", "anything")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("No results found."))
	})

	It("returns nothing after clear", func() {
		addAll()

		out, err := run("clear")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Cleared collection"))

		Expect(queryJSON("penguins")).To(BeEmpty())
	})

	It("rejects an invalid filter", func() {
		_, err := run("query", "x", "--where", "{not json")
		Expect(err).To(MatchError(ContainSubstring("--where")))
	})

	It("rejects invalid chunking settings", func() {
		_, err := run("add", filepath.Join(docsDir, "bread.md"), "--chunk-size", "10", "--chunk-overlap", "10")
		Expect(err).To(MatchError(ContainSubstring("invalid library configuration")))
	})

	It("writes JSON logs to --log-file", func() {
		logFile := filepath.Join(GinkgoT().TempDir(), "stacks.log")

		_, err := run("add", filepath.Join(docsDir, "bread.md"), "--log-file", logFile)
		Expect(err).NotTo(HaveOccurred())

		data, err := os.ReadFile(logFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"msg":"opened library"`))
	})
})
