package chatpipline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/faqrag/engine/internal/common"
	"github.com/faqrag/engine/internal/models/chat"
	"github.com/faqrag/engine/internal/pipeline"
	"github.com/faqrag/engine/internal/types"
)

// DefaultIntents and DefaultCategories are the fixed taxonomy the
// classifier chooses from, ported from original_source's
// app/nodes/classification/prompts.py (INTENTS, CATEGORIES).
var (
	DefaultIntents = []string{
		"reset_password", "view_history", "contact_support", "check_policy",
		"change_address", "check_shipping_availability", "track_order",
		"check_payment_methods", "cancel_subscription", "company_info",
	}
	DefaultCategories = []string{
		"Account Access", "Order Management", "Support", "Returns & Refunds",
		"Shipping", "Billing", "Account Management", "General Info",
	}
)

// ClassificationNode assigns the closest intent and category from a
// fixed taxonomy to the effective query, via an LLM prompted to choose
// among the allowed labels (the zero-shot-model strategy named by
// spec's Open Question (c); the FastText alternative is not
// reimplemented, per DESIGN.md's decision).
type ClassificationNode struct {
	model      chat.Chat
	intents    []string
	categories []string
}

// NewClassificationNode builds the node. A nil intents/categories slice
// falls back to DefaultIntents/DefaultCategories.
func NewClassificationNode(model chat.Chat, intents, categories []string) *ClassificationNode {
	if len(intents) == 0 {
		intents = DefaultIntents
	}
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	return &ClassificationNode{model: model, intents: intents, categories: categories}
}

func (n *ClassificationNode) Name() string { return NodeClassification }

func (n *ClassificationNode) Contract() pipeline.Contract {
	return pipeline.Contract{
		Required:   []string{"Question"},
		Optional:   []string{"TranslatedQuery", "AggregatedQuery"},
		Guaranteed: []string{"MatchedIntent", "MatchedCategory", "ClassificationConfidence"},
	}
}

type classificationResult struct {
	Intent             string  `json:"intent"`
	IntentConfidence   float64 `json:"intent_confidence"`
	Category           string  `json:"category"`
	CategoryConfidence float64 `json:"category_confidence"`
}

func (n *ClassificationNode) Execute(ctx context.Context, in *types.State) (*types.State, error) {
	if n.model == nil {
		return &types.State{}, nil
	}

	query := in.EffectiveQuery()
	prompt := fmt.Sprintf(
		"Classify the user message into exactly one intent from [%s] and one "+
			"category from [%s]. Respond with JSON only: "+
			`{"intent": "...", "intent_confidence": 0.0-1.0, "category": "...", "category_confidence": 0.0-1.0}`,
		strings.Join(n.intents, ", "), strings.Join(n.categories, ", "),
	)
	messages := []chat.Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: query},
	}

	resp, err := n.model.Chat(ctx, messages, &chat.Options{Temperature: 0, JSONMode: true})
	if err != nil {
		common.PipelineWarn(ctx, n.Name(), "classification_failed", map[string]interface{}{"error": err.Error()})
		return &types.State{}, nil
	}

	var result classificationResult
	if err := json.Unmarshal([]byte(resp.Content), &result); err != nil {
		common.PipelineWarn(ctx, n.Name(), "classification_parse_failed", map[string]interface{}{"error": err.Error()})
		return &types.State{}, nil
	}

	return &types.State{
		MatchedIntent:            result.Intent,
		MatchedCategory:          result.Category,
		ClassificationConfidence: result.CategoryConfidence,
	}, nil
}

var _ pipeline.Node = (*ClassificationNode)(nil)
