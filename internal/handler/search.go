package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	chatpipline "github.com/faqrag/engine/internal/application/service/chat_pipline"
	"github.com/faqrag/engine/internal/logger"
	"github.com/faqrag/engine/internal/pipeline"
	"github.com/faqrag/engine/internal/types"
)

// SearchHandler serves GET /search (spec §6: "{query, results: [{content,
// score, metadata}, ...]}"), running the hybrid retrieval stage directly
// rather than the full conversational pipeline — a retrieval-only query
// has no session, cache, or dialog context to thread through.
type SearchHandler struct {
	retrieval *chatpipline.HybridRetrievalNode
}

// NewSearchHandler builds the handler over the shared retrieval node.
func NewSearchHandler(retrieval *chatpipline.HybridRetrievalNode) *SearchHandler {
	return &SearchHandler{retrieval: retrieval}
}

type searchResultView struct {
	Content  string                 `json:"content"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Search godoc
// @Summary      Retrieve documents
// @Description  Runs hybrid dense+lexical retrieval for a raw query
// @Tags         search
// @Produce      json
// @Param        q  query  string  true  "search query"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /search [get]
func (h *SearchHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	out, err := pipeline.Dispatch(ctx, h.retrieval, &types.State{Question: query}, nil)
	if err != nil {
		logger.Errorf(ctx, "search failed for query %q: %v", query, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	results := make([]searchResultView, 0, len(out.Docs))
	for i, doc := range out.Docs {
		var score float64
		if i < len(out.Scores) {
			score = out.Scores[i]
		}
		var metadata map[string]interface{}
		if i == 0 {
			metadata = out.BestDocMetadata
		}
		results = append(results, searchResultView{Content: doc, Score: score, Metadata: metadata})
	}

	c.JSON(http.StatusOK, gin.H{"query": query, "results": results})
}
