// Package ingest implements the topic ingestion pipeline: discovery via a
// search provider, concurrent content extraction, validation and cleaning,
// and token-bounded chunking for downstream embedding.
package ingest

import "fmt"

// Supported raw document formats.
const (
	FormatHTML      = "html"
	FormatMarkdown  = "markdown"
	FormatPlaintext = "plaintext"
	FormatPDF       = "pdf"
	FormatCSV       = "csv"
	FormatJSON      = "json"
	FormatXML       = "xml"
	FormatDOCX      = "docx"
)

// SupportedFormats lists the accepted raw document format tags.
var SupportedFormats = []string{
	FormatHTML,
	FormatMarkdown,
	FormatPlaintext,
	FormatPDF,
	FormatCSV,
	FormatJSON,
	FormatXML,
	FormatDOCX,
}

// Metadata carries document annotations through the pipeline. Well-known
// fields are typed; anything else goes into the open-ended Extra bag.
type Metadata struct {
	// Source names the provider chain that produced the document.
	Source string `json:"source,omitempty"`
	// ValidationErrors records why a document failed validation.
	ValidationErrors []string `json:"validation_errors,omitempty"`
	// Extra is an open-ended bag for annotations without a typed field.
	Extra map[string]any `json:"extra,omitempty"`
}

// Clone returns a copy of the metadata with its own Extra map.
func (m Metadata) Clone() Metadata {
	out := m
	if m.Extra != nil {
		out.Extra = make(map[string]any, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = v
		}
	}
	if m.ValidationErrors != nil {
		out.ValidationErrors = append([]string(nil), m.ValidationErrors...)
	}
	return out
}

// RawDocument is a piece of content fetched by the extraction stage before
// validation and chunking. Its lifetime is scoped to one ingestion call.
type RawDocument struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Format   string   `json:"format"`
	Text     string   `json:"text"`
	URL      string   `json:"url"`
	Metadata Metadata `json:"metadata"`
}

// CleanDocument is a document that passed validation and had its text cleaned.
// CleanedText is non-empty, whitespace-collapsed, and HTML-entity-decoded.
type CleanDocument struct {
	RawDocument
	CleanedText string `json:"cleaned_text"`
}

// Chunk is a token-bounded slice of a cleaned document's text, ready for
// embedding. Chunks from one document have contiguous indexes starting at 0.
type Chunk struct {
	ID         string   `json:"id"`
	ParentID   string   `json:"parent_id"`
	Title      string   `json:"title"`
	Format     string   `json:"format"`
	URL        string   `json:"url"`
	Metadata   Metadata `json:"metadata"`
	Index      int      `json:"chunk_index"`
	Text       string   `json:"chunk_text"`
	TokenCount int      `json:"chunk_token_count"`
}

// chunkID derives a chunk identifier from its parent document and index.
func chunkID(parentID string, index int) string {
	return fmt.Sprintf("%s-%d", parentID, index)
}
