package ingest

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jonesrussell/goresearch/internal/logger"
	"github.com/jonesrussell/goresearch/internal/telemetry"
)

// MinTextLength is the minimum accepted text length in characters.
const MinTextLength = 100

// whitespaceRE matches runs of whitespace, including newlines and Unicode
// spaces such as the no-break space produced by unescaping &nbsp;.
var whitespaceRE = regexp.MustCompile(`[\s\p{Z}]+`)

// Validator validates raw documents and normalizes their text.
type Validator struct {
	log     logger.Logger
	metrics *telemetry.Metrics
}

// NewValidator creates a Validator.
func NewValidator(log logger.Logger, metrics *telemetry.Metrics) *Validator {
	return &Validator{log: log, metrics: metrics}
}

// Validate checks mandatory fields and basic heuristics.
// All applicable rules are checked; errors accumulate rather than short-circuit.
func (v *Validator) Validate(doc *RawDocument) (bool, []string) {
	var errors []string

	if strings.TrimSpace(doc.Text) == "" {
		errors = append(errors, "Empty text content")
	}

	if length := utf8.RuneCountInString(doc.Text); length < MinTextLength {
		errors = append(errors, fmt.Sprintf("Text too short (<%d chars): %d", MinTextLength, length))
	}

	if !isSupportedFormat(doc.Format) {
		errors = append(errors, fmt.Sprintf("Unsupported format: %s", doc.Format))
	}

	if doc.Title == "" {
		errors = append(errors, "Missing title")
	}

	return len(errors) == 0, errors
}

// CleanText normalizes text: HTML-entity unescape, collapse whitespace runs
// (including newlines) to single spaces, trim. Applying it twice equals
// applying it once.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = html.UnescapeString(text)
	text = whitespaceRE.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// ValidateAndClean validates doc and, if valid, returns its cleaned form.
// Invalid documents have their error list recorded into metadata for
// upstream diagnostics and are dropped.
func (v *Validator) ValidateAndClean(doc *RawDocument) (*CleanDocument, bool) {
	valid, errors := v.Validate(doc)
	if !valid {
		v.log.Warn("document failed validation",
			logger.String("doc_id", doc.ID),
			logger.Strings("errors", errors),
		)
		if doc.Metadata.ValidationErrors == nil {
			doc.Metadata.ValidationErrors = errors
		}
		v.metrics.ObserveValidation("invalid")
		return nil, false
	}

	cleaned := &CleanDocument{
		RawDocument: *doc,
		CleanedText: CleanText(doc.Text),
	}
	v.log.Debug("document cleaned",
		logger.String("doc_id", doc.ID),
		logger.Int("length", len(cleaned.CleanedText)),
	)
	v.metrics.ObserveValidation("valid")
	return cleaned, true
}

// ValidateAndCleanBulk validates and cleans a batch, returning only the
// valid, cleaned subset in input order.
func (v *Validator) ValidateAndCleanBulk(docs []RawDocument) []CleanDocument {
	cleaned := make([]CleanDocument, 0, len(docs))
	for i := range docs {
		if doc, ok := v.ValidateAndClean(&docs[i]); ok {
			cleaned = append(cleaned, *doc)
		}
	}
	v.log.Info("validation complete",
		logger.Int("passed", len(cleaned)),
		logger.Int("total", len(docs)),
	)
	return cleaned
}

func isSupportedFormat(format string) bool {
	for _, f := range SupportedFormats {
		if f == format {
			return true
		}
	}
	return false
}
