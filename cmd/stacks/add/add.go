// Package addcmder provides the add command for chunking and storing
// documents in the library.
package addcmder

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	commoncmder "github.com/papercomputeco/stacks/cmd/stacks/common"
	"github.com/papercomputeco/stacks/pkg/cliui"
	"github.com/papercomputeco/stacks/pkg/config"
	"github.com/papercomputeco/stacks/pkg/document"
	"github.com/papercomputeco/stacks/pkg/git"
)

const (
	// MetadataSource is the metadata key holding the path a document was read from.
	MetadataSource = "source"

	// MetadataProject is the metadata key holding the git repository (or
	// directory) name the document was read from.
	MetadataProject = "project"
)

// ErrNotUTF8 is returned for input that is not valid UTF-8 text.
var ErrNotUTF8 = errors.New("input is not valid UTF-8 text")

type addCommander struct {
	paths []string
	meta  []string

	logger *slog.Logger
}

const addLongDesc string = `Chunk documents and store them in the library.

Each file becomes one document. Its path is stored in the "source" metadata
field and the name of its git repository in "project", alongside any --meta
key=value pairs. A --meta pair overrides either field. Use "-" to read a
document from stdin.

Documents are split into chunks of library.chunk_size characters that share
library.chunk_overlap characters with their neighbours, then embedded and
written to the configured vector store in a single batch.

Examples:
  stacks add README.md docs/*.md
  stacks add notes.txt --meta team=infra --meta kind=runbook
  cat incident.txt | stacks add - --meta kind=postmortem`

const addShortDesc string = "Chunk and store documents"

func NewAddCmd() *cobra.Command {
	cmder := &addCommander{}

	cmd := &cobra.Command{
		Use:   "add <file>...",
		Short: addShortDesc,
		Long:  addLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.paths = args

			log, closeLog, err := commoncmder.NewLogger(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()
			cmder.logger = log

			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&cmder.meta, "meta", "m", nil, "Metadata key=value attached to every document (repeatable)")
	config.AddLibraryFlags(cmd)

	return cmd
}

func (c *addCommander) run(cmd *cobra.Command) error {
	meta, err := ParseMeta(c.meta)
	if err != nil {
		return err
	}

	docs := make([]document.Document, 0, len(c.paths))
	for _, path := range c.paths {
		doc, err := readDocument(cmd.InOrStdin(), path, meta)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	lib, err := commoncmder.OpenLibrary(cmd, c.logger)
	if err != nil {
		return err
	}
	defer func() { _ = lib.Close() }()

	ctx := cmd.Context()
	msg := fmt.Sprintf("Adding %d document(s) to %s", len(docs), lib.Retriever().Collection())
	return cliui.Step(cmd.OutOrStdout(), msg, func() error {
		return lib.AddDocuments(ctx, docs...)
	})
}

// ParseMeta parses key=value pairs. Values that look like integers,
// floats or booleans keep those types so they can be used in range filters.
func ParseMeta(pairs []string) (map[string]any, error) {
	meta := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid metadata %q: expected key=value", pair)
		}
		meta[key] = parseValue(value)
	}
	return meta, nil
}

func readDocument(stdin io.Reader, path string, meta map[string]any) (document.Document, error) {
	var (
		data   []byte
		err    error
		source = path
		dir    string
	)

	if path == "-" {
		data, err = io.ReadAll(stdin)
		source = "stdin"
	} else {
		data, err = os.ReadFile(path)
		if abs, absErr := filepath.Abs(path); absErr == nil {
			source = abs
		}
		dir = filepath.Dir(source)
	}
	if err != nil {
		return document.Document{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return document.Document{}, fmt.Errorf("%w: %s", ErrNotUTF8, source)
	}

	md := make(map[string]any, len(meta)+2)
	md[MetadataSource] = source
	if project := git.RepoName(dir); project != "" {
		md[MetadataProject] = project
	}
	for k, v := range meta {
		md[k] = v
	}

	return document.New(string(data), document.WithMetadata(md)), nil
}

func parseValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
