package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/faqrag/engine/internal/logger"
	"github.com/faqrag/engine/internal/middleware"
	"github.com/faqrag/engine/internal/pipeline"
	"github.com/faqrag/engine/internal/types"
	"github.com/faqrag/engine/internal/utils"
)

// RAGQueryHandler serves POST /rag/query (spec §6), running the full
// pipeline graph with caller-supplied conversation history, user_id, and
// session_id so multi-turn dialog state (session load/update, topic-loop
// detection, clarification) is exercised end to end.
type RAGQueryHandler struct {
	graph *pipeline.Graph
}

// NewRAGQueryHandler builds the handler over the assembled pipeline graph.
func NewRAGQueryHandler(graph *pipeline.Graph) *RAGQueryHandler {
	return &RAGQueryHandler{graph: graph}
}

type historyTurnBody struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

type ragQueryRequest struct {
	Question            string            `json:"question" binding:"required"`
	ConversationHistory []historyTurnBody `json:"conversation_history"`
	UserID              string            `json:"user_id"`
	SessionID            string           `json:"session_id"`
}

type ragQueryResponse struct {
	Answer     string                 `json:"answer"`
	Sources    []string               `json:"sources,omitempty"`
	Confidence float64                `json:"confidence"`
	QueryID    string                 `json:"query_id"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// ragQueryRequestSchema is the JSON schema for ragQueryRequest, generated
// once at package init and served from Schema so callers can validate a
// /rag/query body client-side before sending it.
var ragQueryRequestSchema = utils.GenerateSchema[ragQueryRequest]()

// Schema godoc
// @Summary      JSON schema for the /rag/query request body
// @Tags         rag
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /rag/query/schema [get]
func (h *RAGQueryHandler) Schema(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", ragQueryRequestSchema)
}

// Query godoc
// @Summary      Multi-turn RAG query
// @Description  Runs the full pipeline with session, cache, dialog and retrieval stages
// @Tags         rag
// @Accept       json
// @Produce      json
// @Param        body  body  ragQueryRequest  true  "query"
// @Success      200  {object}  ragQueryResponse
// @Failure      400  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /rag/query [post]
func (h *RAGQueryHandler) Query(c *gin.Context) {
	ctx := c.Request.Context()

	var req ragQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	queryID := uuid.NewString()
	history := make([]types.HistoryTurn, 0, len(req.ConversationHistory))
	for _, t := range req.ConversationHistory {
		history = append(history, types.HistoryTurn{Role: t.Role, Content: t.Content})
	}

	userID := req.UserID
	if asserted, ok := middleware.UserIDFromContext(c); ok {
		userID = asserted
	}

	in := &types.State{
		Question:            req.Question,
		UserID:               userID,
		SessionID:            req.SessionID,
		QueryID:              queryID,
		ConversationHistory:  history,
	}

	out, err := h.graph.Run(ctx, in)
	if err != nil {
		if types.KindOf(err) == types.ErrInvalidRequest {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		logger.Errorf(ctx, "rag query %s failed: %v; request=%s", queryID, err, utils.ToJSON(req))
		c.JSON(http.StatusInternalServerError, gin.H{
			"answer":   "Не смог найти ответ.",
			"query_id": queryID,
		})
		return
	}

	answer := out.Answer
	if answer == "" {
		answer = "Не смог найти ответ."
	}

	resp := ragQueryResponse{
		Answer:     answer,
		Sources:    out.Sources,
		Confidence: out.Confidence,
		QueryID:    queryID,
	}
	if out.GuardrailsBlocked || out.FallbackTriggered || out.TopicLoopDetected {
		resp.Metadata = map[string]interface{}{
			"guardrails_blocked":  out.GuardrailsBlocked,
			"fallback_triggered":  out.FallbackTriggered,
			"topic_loop_detected": out.TopicLoopDetected,
			"dialog_state":        string(out.DialogState),
		}
	}
	c.JSON(http.StatusOK, resp)
}
