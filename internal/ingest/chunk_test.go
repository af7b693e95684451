package ingest_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/goresearch/internal/ingest"
	"github.com/jonesrussell/goresearch/internal/logger"
)

func newTransformer(cfg ingest.TransformerConfig) *ingest.Transformer {
	return ingest.NewTransformer(cfg, logger.NewNop(), nil)
}

// sentence builds a sentence of exactly n words ending with a period.
func sentence(id, n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d_%d", id, i)
	}
	return strings.Join(words, " ") + "."
}

func cleanDoc(id, text string) ingest.CleanDocument {
	return ingest.CleanDocument{
		RawDocument: ingest.RawDocument{
			ID:     id,
			Title:  "Title " + id,
			Format: ingest.FormatHTML,
			URL:    "https://example.com/" + id,
		},
		CleanedText: text,
	}
}

func TestTransform_SmallDocumentSingleChunk(t *testing.T) {
	t.Parallel()

	text := sentence(1, 20) + " " + sentence(2, 20) + " " + sentence(3, 20)
	chunks := newTransformer(ingest.TransformerConfig{}).Transform(cleanDoc("doc-1", text))

	require.Len(t, chunks, 1)
	assert.Equal(t, "doc-1-0", chunks[0].ID)
	assert.Equal(t, "doc-1", chunks[0].ParentID)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 45, chunks[0].TokenCount) // ceil(60 words * 0.75)
}

func TestTransform_SplitsLongDocument(t *testing.T) {
	t.Parallel()

	// 40 sentences of 40 words each: ~30 tokens per sentence, well past one budget.
	var parts []string
	for i := 0; i < 40; i++ {
		parts = append(parts, sentence(i, 40))
	}
	text := strings.Join(parts, " ")

	chunks := newTransformer(ingest.TransformerConfig{}).Transform(cleanDoc("doc-1", text))

	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, fmt.Sprintf("doc-1-%d", i), chunk.ID)
		assert.Equal(t, "Title doc-1", chunk.Title)
	}
}

func TestTransform_OverlapSeedsNextChunk(t *testing.T) {
	t.Parallel()

	var parts []string
	for i := 0; i < 40; i++ {
		parts = append(parts, sentence(i, 40))
	}
	text := strings.Join(parts, " ")

	chunks := newTransformer(ingest.TransformerConfig{OverlapSentences: 3}).Transform(cleanDoc("doc-1", text))
	require.Greater(t, len(chunks), 1)

	// Each chunk after the first starts with the last 3 sentences of its predecessor.
	firstSentences := strings.SplitAfter(chunks[0].Text, ".")
	var tail []string
	for _, s := range firstSentences {
		if strings.TrimSpace(s) != "" {
			tail = append(tail, strings.TrimSpace(s))
		}
	}
	require.GreaterOrEqual(t, len(tail), 3)
	overlap := strings.Join(tail[len(tail)-3:], " ")
	assert.True(t, strings.HasPrefix(chunks[1].Text, overlap),
		"second chunk should start with the first chunk's trailing sentences")
}

func TestTransform_NoSentenceBoundaries(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("word ", 50)
	chunks := newTransformer(ingest.TransformerConfig{}).Transform(cleanDoc("doc-1", text))

	require.Len(t, chunks, 1)
	assert.Equal(t, strings.TrimSpace(text), chunks[0].Text)
}

func TestTransform_EmptyText(t *testing.T) {
	t.Parallel()

	chunks := newTransformer(ingest.TransformerConfig{}).Transform(cleanDoc("doc-1", "   "))
	assert.Empty(t, chunks)
}

func TestTransform_Deterministic(t *testing.T) {
	t.Parallel()

	var parts []string
	for i := 0; i < 30; i++ {
		parts = append(parts, sentence(i, 30))
	}
	doc := cleanDoc("doc-1", strings.Join(parts, " "))

	tr := newTransformer(ingest.TransformerConfig{})
	first := tr.Transform(doc)
	second := tr.Transform(doc)

	assert.Equal(t, first, second)
}

func TestTransform_MetadataIsolatedPerChunk(t *testing.T) {
	t.Parallel()

	doc := cleanDoc("doc-1", sentence(1, 30))
	doc.Metadata.Extra = map[string]any{"lang": "en"}

	chunks := newTransformer(ingest.TransformerConfig{}).Transform(doc)
	require.Len(t, chunks, 1)

	chunks[0].Metadata.Extra["lang"] = "fr"
	assert.Equal(t, "en", doc.Metadata.Extra["lang"])
}

func TestTransformBulk_PreservesDocumentOrder(t *testing.T) {
	t.Parallel()

	docs := make([]ingest.CleanDocument, 10)
	for i := range docs {
		docs[i] = cleanDoc(fmt.Sprintf("doc-%d", i), sentence(i, 30))
	}

	chunks := newTransformer(ingest.TransformerConfig{Workers: 4}).TransformBulk(docs)

	require.Len(t, chunks, 10)
	for i, chunk := range chunks {
		assert.Equal(t, fmt.Sprintf("doc-%d", i), chunk.ParentID)
	}
}

func TestTransformBulk_Empty(t *testing.T) {
	t.Parallel()

	chunks := newTransformer(ingest.TransformerConfig{}).TransformBulk(nil)
	assert.Empty(t, chunks)
}

func TestTransform_QuestionAndExclamationBoundaries(t *testing.T) {
	t.Parallel()

	text := "Is this a sentence? Yes it is! And one more."
	chunks := newTransformer(ingest.TransformerConfig{}).Transform(cleanDoc("doc-1", text))

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
}
