package ingest

import (
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/jonesrussell/goresearch/internal/logger"
	"github.com/jonesrussell/goresearch/internal/telemetry"
)

// Chunking defaults.
const (
	// DefaultMaxTokens is the approximate token budget per chunk.
	DefaultMaxTokens = 512
	// DefaultOverlapSentences is how many trailing sentences seed the next chunk.
	DefaultOverlapSentences = 3
	// DefaultChunkWorkers bounds the bulk-transform worker pool.
	DefaultChunkWorkers = 4
)

// TransformerConfig tunes the chunker.
type TransformerConfig struct {
	// MaxTokens is the approximate token budget per chunk.
	MaxTokens int
	// OverlapSentences is the fixed count of trailing sentences carried into
	// the next chunk. The overlap is sentence-counted, not token-budgeted: if
	// those sentences are long the next chunk can start over budget. That is
	// a known property of the heuristic, kept deliberately.
	OverlapSentences int
	// Workers bounds the worker pool used by TransformBulk, keeping
	// CPU-bound chunking from stalling concurrent I/O tasks.
	Workers int
}

// Transformer splits cleaned documents into token-bounded, sentence-aware,
// overlapping chunks.
type Transformer struct {
	maxTokens int
	overlap   int
	workers   int
	log       logger.Logger
	metrics   *telemetry.Metrics
}

// NewTransformer creates a Transformer. Zero config fields get defaults.
func NewTransformer(cfg TransformerConfig, log logger.Logger, metrics *telemetry.Metrics) *Transformer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.OverlapSentences <= 0 {
		cfg.OverlapSentences = DefaultOverlapSentences
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultChunkWorkers
	}
	return &Transformer{
		maxTokens: cfg.MaxTokens,
		overlap:   cfg.OverlapSentences,
		workers:   cfg.Workers,
		log:       log,
		metrics:   metrics,
	}
}

// approxTokens estimates the token count of text (1 token is roughly 0.75 words).
func approxTokens(text string) int {
	words := len(strings.Fields(text))
	return int(math.Ceil(float64(words) * 0.75))
}

// normalizeText collapses whitespace runs and trims. The input is already
// cleaned text, so this is an idempotent re-application.
func normalizeText(text string) string {
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(text, " "))
}

// splitSentences splits text on whitespace immediately following '.', '!',
// or '?', discarding empty fragments. Text without any terminal punctuation
// comes back as a single sentence.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes)-1; i++ {
		if !isSentenceEnd(runes[i]) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}

	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			sentences = append(sentences, s)
		}
	}

	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// chunkSentences greedily accumulates sentences into chunks that respect the
// token budget, seeding each new chunk with the trailing sentences of the
// previous one for context overlap.
func (t *Transformer) chunkSentences(sentences []string) []string {
	var chunks []string
	var current []string
	currentTokens := 0

	for _, sentence := range sentences {
		sentTokens := approxTokens(sentence)
		if currentTokens+sentTokens > t.maxTokens && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))

			overlapStart := len(current) - t.overlap
			if overlapStart < 0 {
				overlapStart = 0
			}
			current = append([]string(nil), current[overlapStart:]...)
			currentTokens = 0
			for _, s := range current {
				currentTokens += approxTokens(s)
			}
		}

		current = append(current, sentence)
		currentTokens += sentTokens
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}

// Transform splits one cleaned document into chunks with contiguous indexes
// starting at 0. A document that fits the budget yields exactly one chunk.
func (t *Transformer) Transform(doc CleanDocument) []Chunk {
	normalized := normalizeText(doc.CleanedText)
	sentences := splitSentences(normalized)
	texts := t.chunkSentences(sentences)

	// No sentence boundaries at all: the whole normalized text is one chunk.
	if len(texts) == 0 && normalized != "" {
		texts = []string{normalized}
	}

	chunks := make([]Chunk, 0, len(texts))
	for idx, text := range texts {
		chunks = append(chunks, Chunk{
			ID:         chunkID(doc.ID, idx),
			ParentID:   doc.ID,
			Title:      doc.Title,
			Format:     doc.Format,
			URL:        doc.URL,
			Metadata:   doc.Metadata.Clone(),
			Index:      idx,
			Text:       text,
			TokenCount: approxTokens(text),
		})
	}

	t.log.Debug("document transformed",
		logger.String("doc_id", doc.ID),
		logger.Int("chunks", len(chunks)),
	)

	return chunks
}

// TransformBulk transforms many documents on a bounded worker pool,
// flattening all chunks while preserving per-document order and global
// document order.
func (t *Transformer) TransformBulk(docs []CleanDocument) []Chunk {
	if len(docs) == 0 {
		return nil
	}

	workers := t.workers
	if workers > len(docs) {
		workers = len(docs)
	}

	perDoc := make([][]Chunk, len(docs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				perDoc[i] = t.Transform(docs[i])
			}
		}()
	}

	for i := range docs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var all []Chunk
	for _, chunks := range perDoc {
		all = append(all, chunks...)
	}

	t.log.Info("bulk transform complete",
		logger.Int("documents", len(docs)),
		logger.Int("chunks", len(all)),
	)
	t.metrics.ObserveChunks(len(all))

	return all
}
