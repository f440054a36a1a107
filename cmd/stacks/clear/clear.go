// Package clearcmder provides the clear command for deleting every stored
// chunk in the library's collection.
package clearcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	commoncmder "github.com/papercomputeco/stacks/cmd/stacks/common"
	"github.com/papercomputeco/stacks/pkg/cliui"
	"github.com/papercomputeco/stacks/pkg/config"
)

const clearLongDesc string = `Delete every chunk in the library's collection.

The collection itself is removed from the vector store and is recreated by the
next "stacks add". Other collections in the same store are not touched.

Examples:
  stacks clear
  stacks clear --collection scratch`

const clearShortDesc string = "Delete every stored chunk"

func NewClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: clearShortDesc,
		Long:  clearLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, closeLog, err := commoncmder.NewLogger(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			lib, err := commoncmder.OpenLibrary(cmd, log)
			if err != nil {
				return err
			}
			defer func() { _ = lib.Close() }()

			if err := lib.Clear(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "  %s Cleared collection %s\n",
				cliui.SuccessMark,
				cliui.KeyStyle.Render(lib.Retriever().Collection()),
			)
			return nil
		},
	}

	config.AddLibraryFlags(cmd)

	return cmd
}
