// Package ingest implements the one-shot topic ingestion command.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/goresearch/internal/bootstrap"
	ingestsvc "github.com/jonesrussell/goresearch/internal/ingest"
)

// Command returns the ingest command.
func Command(cfgFile *string, debug *bool) *cobra.Command {
	var (
		maxLinks  int
		freshness string
		chunks    bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "ingest [topic]",
		Short: "Ingest web content for a research topic",
		Long: `Discovers URLs for the topic, extracts their content concurrently, and
prints the validated documents (or chunks with --chunks).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := args[0]
			if topic == "" {
				return errors.New("topic must not be empty")
			}

			app, err := bootstrap.New(*cfgFile, *debug)
			if err != nil {
				return fmt.Errorf("initialize application: %w", err)
			}
			defer app.Close()

			if maxLinks <= 0 {
				maxLinks = app.Config.Ingest.MaxLinks
			}

			if chunks {
				result, ingestErr := app.Service.IngestAndChunk(cmd.Context(), topic, maxLinks, freshness)
				if ingestErr != nil {
					return fmt.Errorf("ingest topic: %w", ingestErr)
				}
				return printChunks(result, asJSON)
			}

			docs, err := app.Service.IngestTopic(cmd.Context(), topic, maxLinks, freshness)
			if err != nil {
				return fmt.Errorf("ingest topic: %w", err)
			}
			return printDocuments(docs, asJSON)
		},
	}

	cmd.Flags().IntVar(&maxLinks, "max-links", 0, "maximum URLs to ingest (default from config)")
	cmd.Flags().StringVar(&freshness, "freshness", "", "recency window hint, e.g. \"month\"")
	cmd.Flags().BoolVar(&chunks, "chunks", false, "emit embedding-ready chunks instead of documents")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON output")

	return cmd
}

func printDocuments(docs []ingestsvc.CleanDocument, asJSON bool) error {
	if asJSON {
		return emitJSON(docs)
	}

	for _, doc := range docs {
		fmt.Printf("%s\n  %s\n  %d chars\n", doc.Title, doc.URL, len(doc.CleanedText))
	}
	fmt.Printf("\n%d documents\n", len(docs))
	return nil
}

func printChunks(chunks []ingestsvc.Chunk, asJSON bool) error {
	if asJSON {
		return emitJSON(chunks)
	}

	for _, chunk := range chunks {
		fmt.Printf("%s [%d] %s (~%d tokens)\n", chunk.ParentID, chunk.Index, chunk.Title, chunk.TokenCount)
	}
	fmt.Printf("\n%d chunks\n", len(chunks))
	return nil
}

func emitJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
