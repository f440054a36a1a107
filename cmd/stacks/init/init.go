// Package initcmder provides the init command for initializing a local .stacks
// directory in the current working directory.
package initcmder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/stacks/pkg/config"
	"github.com/papercomputeco/stacks/pkg/dotdir"
)

// DefaultPreset is the preset used when --preset is not given.
const DefaultPreset = "local"

const initLongDesc string = `Initialize a new .stacks/ directory in the current working directory.

Creates a local .stacks/ directory that takes precedence over the default
~/.stacks/ directory, and writes a config.toml from a preset:

  memory     In-memory vector store (nothing is persisted)
  local      SQLite vector store in .stacks/store (default)
  chroma     Chroma server at http://localhost:8000
  qdrant     Qdrant server at localhost:6334
  pgvector   PostgreSQL with pgvector at localhost:5432

--preset also accepts an http(s) URL to a config.toml to download.
Re-running init with --preset overwrites config.toml. Without --preset an
existing config.toml is kept.

Examples:
  stacks init
  stacks init --preset qdrant
  stacks init --preset https://example.com/team/stacks.toml`

const initShortDesc string = "Initialize a local .stacks/ directory"

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		fmt.Sprintf("Config preset (%s) or URL to a config.toml", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func (c *initCommander) run(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	// resolve the preset before touching the filesystem
	var cfg *config.Config
	var err error
	if c.preset != "" {
		cfg, err = loadPreset(cmd.Context(), c.preset)
		if err != nil {
			return err
		}
	}

	ddm := dotdir.NewManager()
	dir, err := ddm.InitLocal()
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg == nil {
		if _, err := os.Stat(cfger.GetTarget()); err == nil {
			fmt.Fprintf(out, "Already initialized: %s\n", dir)
			return nil
		}
		cfg, err = config.PresetConfig(DefaultPreset)
		if err != nil {
			return err
		}
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "Initialized .stacks directory: %s\n", dir)
	fmt.Fprintf(out, "Wrote %s\n", filepath.Base(cfger.GetTarget()))
	return nil
}

func loadPreset(ctx context.Context, preset string) (*config.Config, error) {
	if !strings.HasPrefix(preset, "http://") && !strings.HasPrefix(preset, "https://") {
		return config.PresetConfig(preset)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, preset, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
