// Package translate provides the LLM-backed translation client, including
// the Slavic-family routing rule named in spec §6.
package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/faqrag/engine/internal/models/chat"
)

// Translator is the external contract from spec §6: translate(text,
// target) -> string, treating other Cyrillic Slavic codes as Russian for
// the ru<->en pair.
type Translator interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

// slavicToRussian is the set of additional Cyrillic Slavic language
// codes that must be routed through the ru<->en translation pair
// (Bulgarian, Ukrainian, Belarusian, Macedonian, Serbian).
var slavicToRussian = map[string]bool{
	"bg": true,
	"uk": true,
	"be": true,
	"mk": true,
	"sr": true,
}

// NormalizeLanguage maps a detected language code onto the code that
// should actually drive translation-pair selection.
func NormalizeLanguage(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if slavicToRussian[code] {
		return "ru"
	}
	return code
}

// LLMTranslator implements Translator via a chat model with a
// translation instruction prompt, rather than a dedicated MT model.
type LLMTranslator struct {
	model chat.Chat
}

// NewLLMTranslator builds a Translator backed by the given chat model.
func NewLLMTranslator(model chat.Chat) *LLMTranslator {
	return &LLMTranslator{model: model}
}

// Translate asks the underlying chat model to translate text into the
// target language. A target of "en"/"english" when the text is already
// untranslatable plain ASCII is not special-cased here; callers (e.g. the
// clarification node) are responsible for passthrough shortcuts.
func (t *LLMTranslator) Translate(ctx context.Context, text, target string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	target = NormalizeLanguage(target)

	messages := []chat.Message{
		{Role: "system", Content: fmt.Sprintf(
			"Translate the user's message into %s. Return only the translation, no commentary.", target)},
		{Role: "user", Content: text},
	}
	resp, err := t.model.Chat(ctx, messages, &chat.Options{Temperature: 0})
	if err != nil {
		// BackendUnavailable policy (spec §7): translation falls back to
		// the original text rather than failing the request.
		return text, fmt.Errorf("translate: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}
