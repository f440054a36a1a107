// Package stackscmder
package stackscmder

import (
	"github.com/spf13/cobra"

	addcmder "github.com/papercomputeco/stacks/cmd/stacks/add"
	authcmder "github.com/papercomputeco/stacks/cmd/stacks/auth"
	clearcmder "github.com/papercomputeco/stacks/cmd/stacks/clear"
	configcmder "github.com/papercomputeco/stacks/cmd/stacks/config"
	initcmder "github.com/papercomputeco/stacks/cmd/stacks/init"
	querycmder "github.com/papercomputeco/stacks/cmd/stacks/query"
	statuscmder "github.com/papercomputeco/stacks/cmd/stacks/status"
	versioncmder "github.com/papercomputeco/stacks/cmd/version"
)

const stacksLongDesc string = `Stacks is a document library for agent retrieval-augmented generation.

Documents are split into overlapping chunks, embedded, and stored in a vector
store. Queries return the chunks most similar to the query text.

Get started with:
  stacks init                      Create a local .stacks/ directory
  stacks add notes.md guide.txt    Chunk and store documents
  stacks query "how do I deploy"   Retrieve the most relevant chunks`

const stacksShortDesc string = "Stacks - RAG document library"

func NewStacksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stacks",
		Short:         stacksShortDesc,
		Long:          stacksLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .stacks/ config directory")
	cmd.PersistentFlags().String("log-file", "", "Also write JSON logs to this file")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(addcmder.NewAddCmd())
	cmd.AddCommand(querycmder.NewQueryCmd())
	cmd.AddCommand(clearcmder.NewClearCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
