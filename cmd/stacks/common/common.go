// Package commoncmder holds helpers shared by the stacks subcommands: logger
// construction from the global flags and opening the configured library.
package commoncmder

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/stacks/pkg/config"
	"github.com/papercomputeco/stacks/pkg/credentials"
	"github.com/papercomputeco/stacks/pkg/dotdir"
	"github.com/papercomputeco/stacks/pkg/library"
	"github.com/papercomputeco/stacks/pkg/logger"
	vectorutils "github.com/papercomputeco/stacks/pkg/vector/utils"
)

// NewLogger builds the command logger from the persistent --debug and
// --log-file flags. Pretty logs go to stderr; with --log-file, JSON logs are
// also appended to that file. The returned func closes the log file.
func NewLogger(cmd *cobra.Command) (*slog.Logger, func() error, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	logFile, _ := cmd.Flags().GetString("log-file")

	return logger.NewCLI(cmd.ErrOrStderr(), logFile, debug)
}

// LoadConfig resolves the library configuration for cmd: flags registered
// with config.AddLibraryFlags, then STACKS_* env vars, then config.toml,
// then defaults. It also returns the resolved .stacks/ directory, which may
// be empty.
func LoadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, "", err
	}
	config.BindRegisteredFlags(v, cmd, config.LibraryFlags, config.LibraryFlagKeys())

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, "", err
	}

	return config.FromViper(v), target, nil
}

// OpenLibrary loads the configuration for cmd and opens the library it
// describes.
func OpenLibrary(cmd *cobra.Command, log *slog.Logger) (*library.VectorLibrary, error) {
	cfg, target, err := LoadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	opts := &library.OpenOpts{
		Config:                  cfg,
		DefaultPersistDirectory: dotdir.NewManager().StoreDir(target),
		Logger:                  log,
	}

	provider := library.ResolveStore(cfg, opts.DefaultPersistDirectory).Provider
	if cfg.VectorStore.APIKey == "" && credentials.IsSupportedProvider(provider) {
		key, err := lookupAPIKey(target, provider)
		if err != nil {
			return nil, err
		}
		cfg.VectorStore.APIKey = key
	}

	if provider == vectorutils.ProviderMemory {
		log.Warn("using the in-memory vector store; documents are discarded on exit",
			"hint", "run 'stacks init' or set vector_store.provider")
	}

	return library.Open(opts)
}

// lookupAPIKey returns the provider's API key from its environment variable
// or from credentials.toml in target.
func lookupAPIKey(target, provider string) (string, error) {
	if target == "" {
		if envVar := credentials.EnvVarForProvider(provider); envVar != "" {
			return os.Getenv(envVar), nil
		}
		return "", nil
	}

	mgr, err := credentials.NewManager(target)
	if err != nil {
		return "", fmt.Errorf("loading credentials: %w", err)
	}
	return mgr.LookupKey(provider)
}
