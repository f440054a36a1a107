// Package querycmder provides the query command for retrieving the chunks
// most similar to a query.
package querycmder

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	commoncmder "github.com/papercomputeco/stacks/cmd/stacks/common"
	"github.com/papercomputeco/stacks/pkg/cliui"
	"github.com/papercomputeco/stacks/pkg/config"
	"github.com/papercomputeco/stacks/pkg/retriever"
	"github.com/papercomputeco/stacks/pkg/utils"
	"github.com/papercomputeco/stacks/pkg/vector"
)

const previewLen = 160

type queryCommander struct {
	query  string
	topK   int
	where  string
	json   bool
	render bool

	logger *slog.Logger
}

// Result is the JSON form of one retrieved chunk.
type Result struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Distance float32        `json:"distance"`
}

const queryLongDesc string = `Retrieve the chunks most similar to a query.

Results are ordered from most to least similar. Use --where to restrict the
search with a metadata filter written as JSON, using equality
({"team": "infra"}), comparison operators ($eq, $ne, $gt, $gte, $lt, $lte),
list operators ($in, $nin) and the logical operators $and and $or.

Use --json to print the results as a JSON array for piping into other tools.

Examples:
  stacks query "how do I rotate credentials"
  stacks query "deploy steps" --top 5
  stacks query "outage timeline" --where '{"kind": "postmortem"}'
  stacks query "retry policy" --where '{"$and": [{"team": "infra"}, {"chunk_index": {"$lt": 3}}]}'
  stacks query "setup" --json | jq '.[0].content'`

const queryShortDesc string = "Retrieve the most relevant chunks"

func NewQueryCmd() *cobra.Command {
	cmder := &queryCommander{}

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: queryShortDesc,
		Long:  queryLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]

			log, closeLog, err := commoncmder.NewLogger(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()
			cmder.logger = log

			return cmder.run(cmd)
		},
	}

	cmd.Flags().IntVarP(&cmder.topK, "top", "k", retriever.DefaultTopK, "Number of chunks to return")
	cmd.Flags().StringVarP(&cmder.where, "where", "w", "", "Metadata filter as JSON")
	cmd.Flags().BoolVar(&cmder.json, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&cmder.render, "render", false, "Render chunk content as markdown")
	config.AddLibraryFlags(cmd)

	return cmd
}

func (c *queryCommander) run(cmd *cobra.Command) error {
	where, err := ParseWhere(c.where)
	if err != nil {
		return err
	}

	lib, err := commoncmder.OpenLibrary(cmd, c.logger)
	if err != nil {
		return err
	}
	defer func() { _ = lib.Close() }()

	matches, err := lib.Search(cmd.Context(), c.query, c.topK, where)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if c.json {
		return writeJSON(out, matches)
	}

	if len(matches) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	fmt.Fprintf(out, "\n%s %s\n\n",
		cliui.HeaderStyle.Render("Results for:"),
		cliui.KeyStyle.Render(fmt.Sprintf("%q", c.query)),
	)

	for i, m := range matches {
		c.printMatch(out, i+1, m)
	}

	return nil
}

func (c *queryCommander) printMatch(w io.Writer, rank int, m retriever.Match) {
	fmt.Fprintf(w, "  %s  %s  %s\n",
		cliui.RankStyle.Render(fmt.Sprintf("#%d", rank)),
		cliui.ScoreStyle.Render(fmt.Sprintf("distance: %.4f", m.Distance)),
		cliui.DimStyle.Render(m.Document.ID),
	)

	if source, ok := m.Document.Metadata["source"].(string); ok {
		label := source
		if idx, ok := m.Document.ChunkIndex(); ok {
			label = fmt.Sprintf("%s [chunk %d]", source, idx)
		}
		fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render(label))
	}

	if c.render {
		rendered, err := cliui.RenderMarkdown(m.Document.Content)
		if err != nil {
			c.logger.Debug("rendering markdown", "error", err)
		}
		fmt.Fprintln(w, strings.TrimRight(rendered, "\n"))
	} else {
		fmt.Fprintf(w, "  %s\n", cliui.PreviewStyle.Render(utils.Preview(m.Document.Content, previewLen)))
	}

	fmt.Fprintln(w)
}

// ParseWhere decodes a JSON metadata filter. An empty string means no filter.
func ParseWhere(s string) (vector.Where, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var where vector.Where
	if err := json.Unmarshal([]byte(s), &where); err != nil {
		return nil, fmt.Errorf("%w: parsing --where: %v", vector.ErrInvalidFilter, err)
	}
	return where, nil
}

func writeJSON(w io.Writer, matches []retriever.Match) error {
	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			ID:       m.Document.ID,
			Content:  m.Document.Content,
			Metadata: m.Document.Metadata,
			Distance: m.Distance,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
