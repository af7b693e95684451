package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/goresearch/internal/ingest"
	"github.com/jonesrussell/goresearch/internal/logger"
)

// maxLinksCap bounds how many URLs one API request may ingest.
const maxLinksCap = 50

// IngestRequest is the body of POST /api/v1/ingest.
type IngestRequest struct {
	Topic     string `json:"topic" binding:"required"`
	MaxLinks  int    `json:"max_links"`
	Freshness string `json:"freshness"`
	Chunk     bool   `json:"chunk"`
}

// IngestResponse is the result of one ingestion run.
type IngestResponse struct {
	Topic     string                 `json:"topic"`
	Documents []ingest.CleanDocument `json:"documents,omitempty"`
	Chunks    []ingest.Chunk         `json:"chunks,omitempty"`
	Count     int                    `json:"count"`
	Elapsed   string                 `json:"elapsed"`
}

// Handler serves the ingestion API endpoints.
type Handler struct {
	service         *ingest.Service
	defaultMaxLinks int
	log             logger.Logger
}

// NewHandler creates an API handler.
func NewHandler(service *ingest.Service, defaultMaxLinks int, log logger.Logger) *Handler {
	if defaultMaxLinks <= 0 {
		defaultMaxLinks = 20
	}
	return &Handler{
		service:         service,
		defaultMaxLinks: defaultMaxLinks,
		log:             log,
	}
}

// Ingest handles POST /api/v1/ingest.
func (h *Handler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	maxLinks := req.MaxLinks
	if maxLinks <= 0 {
		maxLinks = h.defaultMaxLinks
	}
	if maxLinks > maxLinksCap {
		maxLinks = maxLinksCap
	}

	start := time.Now()
	resp := IngestResponse{Topic: req.Topic}

	if req.Chunk {
		chunks, err := h.service.IngestAndChunk(c.Request.Context(), req.Topic, maxLinks, req.Freshness)
		if err != nil {
			h.log.Error("ingest request failed",
				logger.String("topic", req.Topic),
				logger.Error(err),
			)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		resp.Chunks = chunks
		resp.Count = len(chunks)
	} else {
		docs, err := h.service.IngestTopic(c.Request.Context(), req.Topic, maxLinks, req.Freshness)
		if err != nil {
			h.log.Error("ingest request failed",
				logger.String("topic", req.Topic),
				logger.Error(err),
			)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		resp.Documents = docs
		resp.Count = len(docs)
	}

	resp.Elapsed = time.Since(start).String()
	c.JSON(http.StatusOK, resp)
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
