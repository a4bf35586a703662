package chatpipline

import (
	"context"

	"github.com/faqrag/engine/internal/common"
	"github.com/faqrag/engine/internal/models/translate"
	"github.com/faqrag/engine/internal/pipeline"
	"github.com/faqrag/engine/internal/types"
)

// DocumentLanguage is the canonical language the document corpus is
// written in; queries are normalized to it before retrieval (spec §3
// Data Model: "translated_query: query in the canonical document
// language").
const DocumentLanguage = "en"

// TranslationNode normalizes the query to DocumentLanguage, applying the
// Slavic-family routing rule from LanguageDetectionNode (spec §4.4:
// "translated_query or aggregated_query or question" precedence is
// consumed downstream via types.State.EffectiveQuery).
type TranslationNode struct {
	translator translate.Translator
}

// NewTranslationNode builds the node.
func NewTranslationNode(translator translate.Translator) *TranslationNode {
	return &TranslationNode{translator: translator}
}

func (n *TranslationNode) Name() string { return NodeTranslation }

func (n *TranslationNode) Contract() pipeline.Contract {
	return pipeline.Contract{
		Required:   []string{"DetectedLanguage"},
		Optional:   []string{"AggregatedQuery", "Question"},
		Guaranteed: []string{"TranslatedQuery"},
	}
}

func (n *TranslationNode) Execute(ctx context.Context, in *types.State) (*types.State, error) {
	source := in.AggregatedQuery
	if source == "" {
		source = in.Question
	}

	lang := EffectiveLanguage(in.DetectedLanguage)
	if lang == DocumentLanguage || lang == "" {
		return &types.State{TranslatedQuery: source}, nil
	}

	if n.translator == nil {
		return &types.State{TranslatedQuery: source}, nil
	}

	translated, err := n.translator.Translate(ctx, source, DocumentLanguage)
	if err != nil {
		// BackendUnavailable policy (spec §7): "translation falls back
		// to the input text".
		common.PipelineWarn(ctx, n.Name(), "translate_failed", map[string]interface{}{"error": err.Error()})
		return &types.State{TranslatedQuery: source}, nil
	}
	return &types.State{TranslatedQuery: translated}, nil
}

var _ pipeline.Node = (*TranslationNode)(nil)
