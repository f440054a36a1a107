package credentials_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stacks/pkg/credentials"
)

var _ = Describe("Manager", func() {
	var (
		tmpDir string
		mgr    *credentials.Manager
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()

		var err error
		mgr, err = credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewManager", func() {
		It("creates a manager with an override directory", func() {
			Expect(mgr.GetTarget()).To(Equal(filepath.Join(tmpDir, "credentials.toml")))
		})

		It("falls back to ~/.stacks when no directory resolves", func() {
			home := GinkgoT().TempDir()
			GinkgoT().Setenv("HOME", home)

			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(GinkgoT().TempDir())).To(Succeed())
			DeferCleanup(func() { Expect(os.Chdir(origDir)).To(Succeed()) })

			m, err := credentials.NewManager("")
			Expect(err).NotTo(HaveOccurred())
			Expect(m.GetTarget()).To(Equal(filepath.Join(home, ".stacks", "credentials.toml")))

			info, err := os.Stat(filepath.Join(home, ".stacks"))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})
	})

	Describe("Load", func() {
		It("returns empty credentials when no file exists", func() {
			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds).NotTo(BeNil())
			Expect(creds.Providers).To(BeEmpty())
		})

		It("loads existing credentials", func() {
			data := `version = 0

[providers.qdrant]
api_key = "qd-test-key"
`
			Expect(os.WriteFile(filepath.Join(tmpDir, "credentials.toml"), []byte(data), 0o600)).To(Succeed())

			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Providers).To(HaveKeyWithValue("qdrant", credentials.ProviderCredential{APIKey: "qd-test-key"}))
		})

		It("returns error for malformed TOML", func() {
			Expect(os.WriteFile(filepath.Join(tmpDir, "credentials.toml"), []byte("not valid [[["), 0o600)).To(Succeed())

			creds, err := mgr.Load()
			Expect(err).To(MatchError(ContainSubstring("parsing credentials")))
			Expect(creds).To(BeNil())
		})
	})

	Describe("Save", func() {
		It("persists credentials to disk with restricted permissions", func() {
			creds := &credentials.Credentials{
				Providers: map[string]credentials.ProviderCredential{
					"qdrant": {APIKey: "qd-test"},
				},
			}
			Expect(mgr.Save(creds)).To(Succeed())

			info, err := os.Stat(filepath.Join(tmpDir, "credentials.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("returns error for nil credentials", func() {
			Expect(mgr.Save(nil)).NotTo(Succeed())
		})
	})

	Describe("SetKey and GetKey", func() {
		It("stores a new API key", func() {
			Expect(mgr.SetKey("qdrant", "qd-new-key")).To(Succeed())

			key, err := mgr.GetKey("qdrant")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("qd-new-key"))
		})

		It("overwrites an existing key", func() {
			Expect(mgr.SetKey("qdrant", "qd-old")).To(Succeed())
			Expect(mgr.SetKey("qdrant", "qd-new")).To(Succeed())

			key, err := mgr.GetKey("qdrant")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("qd-new"))
		})

		It("preserves other provider keys", func() {
			Expect(mgr.SetKey("qdrant", "qd-key")).To(Succeed())
			Expect(mgr.SetKey("chroma", "ck-key")).To(Succeed())

			key, err := mgr.GetKey("qdrant")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("qd-key"))

			key, err = mgr.GetKey("chroma")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("ck-key"))
		})

		It("returns empty string for unknown provider", func() {
			key, err := mgr.GetKey("nonexistent")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
		})
	})

	Describe("LookupKey", func() {
		It("prefers the provider environment variable", func() {
			Expect(mgr.SetKey("qdrant", "qd-stored")).To(Succeed())
			GinkgoT().Setenv("QDRANT_API_KEY", "qd-env")

			key, err := mgr.LookupKey("qdrant")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("qd-env"))
		})

		It("falls back to the stored key", func() {
			GinkgoT().Setenv("CHROMA_API_KEY", "")
			Expect(mgr.SetKey("chroma", "ck-stored")).To(Succeed())

			key, err := mgr.LookupKey("chroma")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("ck-stored"))
		})

		It("returns empty for providers without keys", func() {
			key, err := mgr.LookupKey("sqlite")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
		})
	})

	Describe("RemoveKey", func() {
		It("removes an existing key", func() {
			Expect(mgr.SetKey("qdrant", "qd-test")).To(Succeed())
			Expect(mgr.RemoveKey("qdrant")).To(Succeed())

			key, err := mgr.GetKey("qdrant")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
		})

		It("is a no-op for nonexistent provider", func() {
			Expect(mgr.RemoveKey("nonexistent")).To(Succeed())
		})
	})

	Describe("ListProviders", func() {
		It("returns empty list when no credentials stored", func() {
			providers, err := mgr.ListProviders()
			Expect(err).NotTo(HaveOccurred())
			Expect(providers).To(BeEmpty())
		})

		It("returns stored providers in sorted order", func() {
			Expect(mgr.SetKey("qdrant", "qd-1")).To(Succeed())
			Expect(mgr.SetKey("chroma", "ck-2")).To(Succeed())

			providers, err := mgr.ListProviders()
			Expect(err).NotTo(HaveOccurred())
			Expect(providers).To(Equal([]string{"chroma", "qdrant"}))
		})
	})
})

var _ = Describe("EnvVarForProvider", func() {
	It("maps providers to their environment variables", func() {
		Expect(credentials.EnvVarForProvider("qdrant")).To(Equal("QDRANT_API_KEY"))
		Expect(credentials.EnvVarForProvider("chroma")).To(Equal("CHROMA_API_KEY"))
	})

	It("returns empty string for unknown provider", func() {
		Expect(credentials.EnvVarForProvider("unknown")).To(BeEmpty())
	})
})

var _ = Describe("IsSupportedProvider", func() {
	It("returns true for supported providers", func() {
		Expect(credentials.IsSupportedProvider("qdrant")).To(BeTrue())
		Expect(credentials.IsSupportedProvider("chroma")).To(BeTrue())
	})

	It("returns false for providers without keys", func() {
		Expect(credentials.IsSupportedProvider("sqlite")).To(BeFalse())
		Expect(credentials.IsSupportedProvider("pgvector")).To(BeFalse())
	})
})

var _ = Describe("Credentials", func() {
	creds := &credentials.Credentials{
		Providers: map[string]credentials.ProviderCredential{
			"qdrant": {APIKey: "qd-1"},
			"chroma": {APIKey: ""},
		},
	}

	It("treats blank keys as missing", func() {
		key, ok := creds.Key("qdrant")
		Expect(ok).To(BeTrue())
		Expect(key).To(Equal("qd-1"))

		_, ok = creds.Key("chroma")
		Expect(ok).To(BeFalse())

		_, ok = creds.Key("pgvector")
		Expect(ok).To(BeFalse())
	})

	It("lists only providers with a key", func() {
		Expect(creds.Names()).To(Equal([]string{"qdrant"}))
	})
})
