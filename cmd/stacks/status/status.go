// Package statuscmder provides the status command for displaying the
// resolved configuration and vector store of the library.
package statuscmder

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	commoncmder "github.com/papercomputeco/stacks/cmd/stacks/common"
	"github.com/papercomputeco/stacks/pkg/cliui"
	"github.com/papercomputeco/stacks/pkg/config"
	"github.com/papercomputeco/stacks/pkg/dotdir"
	"github.com/papercomputeco/stacks/pkg/library"
)

const statusLongDesc string = `Show the resolved library configuration.

Reads the local .stacks/ directory (or ~/.stacks/), applies STACKS_* environment
variables and flags, and prints the collection, chunking settings, vector store
and embedding model that add and query would use. Nothing is contacted.

Examples:
  stacks status
  stacks status --vector-store-provider qdrant --vector-store-target localhost:6334`

const statusShortDesc string = "Show the resolved library configuration"

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd)
		},
	}

	config.AddLibraryFlags(cmd)

	return cmd
}

func runStatus(cmd *cobra.Command) error {
	cfg, target, err := commoncmder.LoadConfig(cmd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	w := cmd.OutOrStdout()
	store := library.ResolveStore(cfg, dotdir.NewManager().StoreDir(target))

	fmt.Fprintln(w)
	if target == "" {
		printRow(w, "Directory:", cliui.DimStyle.Render("<none> (run 'stacks init')"))
	} else {
		printRow(w, "Directory:", target)
		printRow(w, "Config:", filepath.Join(target, "config.toml"))
	}

	printRow(w, "Collection:", cfg.Library.CollectionName)
	printRow(w, "Chunking:", fmt.Sprintf("%d chars, %d overlap", cfg.Library.ChunkSize, cfg.Library.ChunkOverlap))

	location := store.Location
	if location == "" {
		location = cliui.DimStyle.Render("in-memory, discarded on exit")
	}
	printRow(w, "Vector store:", fmt.Sprintf("%s  %s", store.Provider, location))

	embedding := fmt.Sprintf("%s %s", cfg.Embedding.Provider, cfg.Embedding.Model)
	if cfg.Embedding.Dimensions > 0 {
		embedding += fmt.Sprintf(" (%d dims)", cfg.Embedding.Dimensions)
	}
	if cfg.Embedding.Target != "" {
		embedding += "  " + cfg.Embedding.Target
	}
	printRow(w, "Embedding:", embedding)
	fmt.Fprintln(w)

	return nil
}

func printRow(w io.Writer, key, value string) {
	fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render(fmt.Sprintf("%-13s", key)), cliui.ValueStyle.Render(value))
}
