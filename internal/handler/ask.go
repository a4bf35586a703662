package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/faqrag/engine/internal/logger"
	"github.com/faqrag/engine/internal/pipeline"
	"github.com/faqrag/engine/internal/types"
)

// AskHandler serves GET /ask (spec §6: "{answer}"), running the full
// conversational pipeline graph for a single anonymous turn — each call
// gets a fresh "anonymous:<uuid>" user id, so no earlier session or
// history is loaded, matching the one-shot shape of the original /ask
// route.
type AskHandler struct {
	graph *pipeline.Graph
}

// NewAskHandler builds the handler over the assembled pipeline graph.
func NewAskHandler(graph *pipeline.Graph) *AskHandler {
	return &AskHandler{graph: graph}
}

// Ask godoc
// @Summary      Ask a question
// @Description  Runs the full RAG pipeline for a single-turn question
// @Tags         ask
// @Produce      json
// @Param        q       query  string  true   "question"
// @Param        hybrid  query  bool    false  "unused toggle kept for API compatibility"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /ask [get]
func (h *AskHandler) Ask(c *gin.Context) {
	ctx := c.Request.Context()
	question := strings.TrimSpace(c.Query("q"))
	if question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	// hybrid is accepted for API compatibility (spec §6) but the graph
	// always runs hybrid retrieval; there is no lexical-only mode to
	// toggle to.
	_, _ = strconv.ParseBool(c.Query("hybrid"))

	out, err := h.graph.Run(ctx, &types.State{Question: question, UserID: "anonymous:" + uuid.NewString()})
	if err != nil {
		if types.KindOf(err) == types.ErrInvalidRequest {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Errorf(ctx, "ask failed for query %q: %v", question, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не смог найти ответ."})
		return
	}

	answer := out.Answer
	if answer == "" {
		answer = "Не смог найти ответ."
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}
