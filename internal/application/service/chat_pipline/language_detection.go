package chatpipline

import (
	"context"

	"github.com/faqrag/engine/internal/models/translate"
	"github.com/faqrag/engine/internal/pipeline"
	"github.com/faqrag/engine/internal/types"
)

// LanguageDetectionNode produces detected_language from the raw question
// and applies the Slavic-family routing rule (spec §6: "other Cyrillic
// Slavic codes bg, uk, be, mk, sr treated as Russian for the ru<->en
// pair") before any translation call runs. Named explicitly by
// SPEC_FULL's SUPPLEMENTED FEATURES since the distilled spec names the
// routing rule under the Translator contract without naming the node
// that applies it ahead of translation.
//
// Detection itself is a coarse script heuristic (Cyrillic vs. Latin
// rune ratio) rather than a statistical language-id model, since
// dedicated language/translation models are an external collaborator
// per spec §1 ("the pipeline consumes their interfaces") — this node
// only needs a code to route the Translator and guardrail allow-list
// checks, not research-grade language identification.
type LanguageDetectionNode struct{}

// NewLanguageDetectionNode builds the node.
func NewLanguageDetectionNode() *LanguageDetectionNode {
	return &LanguageDetectionNode{}
}

func (n *LanguageDetectionNode) Name() string { return NodeLanguageDetection }

func (n *LanguageDetectionNode) Contract() pipeline.Contract {
	return pipeline.Contract{
		Required:   []string{"Question"},
		Guaranteed: []string{"DetectedLanguage"},
	}
}

func (n *LanguageDetectionNode) Execute(ctx context.Context, in *types.State) (*types.State, error) {
	return &types.State{DetectedLanguage: detectLanguage(in.Question)}, nil
}

// detectLanguage returns "ru" when Cyrillic runes dominate the text,
// "en" otherwise. translate.NormalizeLanguage is applied downstream by
// any node that needs Slavic-family routing onto the ru<->en pair.
func detectLanguage(text string) string {
	var cyrillic, latin int
	for _, r := range text {
		switch {
		case r >= 0x0400 && r <= 0x04FF:
			cyrillic++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin++
		}
	}
	if cyrillic > latin {
		return "ru"
	}
	return "en"
}

// EffectiveLanguage applies the Slavic-family routing rule to a detected
// code before it drives translation-pair selection.
func EffectiveLanguage(detected string) string {
	return translate.NormalizeLanguage(detected)
}

var _ pipeline.Node = (*LanguageDetectionNode)(nil)
