package credentials

import "sort"

// Credentials is the content of credentials.toml.
type Credentials struct {
	Version   int                           `toml:"version"`
	Providers map[string]ProviderCredential `toml:"providers"`
}

// ProviderCredential holds the API key for one vector store provider.
type ProviderCredential struct {
	APIKey string `toml:"api_key"`
}

// Key returns the stored API key for provider. Blank keys count as missing.
func (c *Credentials) Key(provider string) (string, bool) {
	pc, ok := c.Providers[provider]
	if !ok || pc.APIKey == "" {
		return "", false
	}
	return pc.APIKey, true
}

// Names returns the providers with a stored key, sorted.
func (c *Credentials) Names() []string {
	names := make([]string, 0, len(c.Providers))
	for name, pc := range c.Providers {
		if pc.APIKey != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
