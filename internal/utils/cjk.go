package utils

import (
	"strings"
	"sync"

	"github.com/yanyiwu/gojieba"
)

// EnableCJKTokenization is a config-gated extension point: the bilingual
// EN/RU normalizer has no CJK branch by default, but a deployment that
// indexes CJK-language documents can flip this on so NormalizeQuery and
// SignificantTokens route through gojieba's word segmenter instead of
// whitespace splitting.
var EnableCJKTokenization = false

var (
	jiebaOnce sync.Once
	jieba     *gojieba.Jieba
)

func cjkTokenizer() *gojieba.Jieba {
	jiebaOnce.Do(func() {
		jieba = gojieba.NewJieba()
	})
	return jieba
}

// isCJK reports whether text contains any CJK ideograph, hiragana,
// katakana, or hangul rune — the trigger for the CJK tokenization
// branch.
func isCJK(text string) bool {
	for _, r := range text {
		switch {
		case r >= 0x4E00 && r <= 0x9FFF, // CJK unified ideographs
			r >= 0x3040 && r <= 0x30FF, // hiragana + katakana
			r >= 0xAC00 && r <= 0xD7A3: // hangul syllables
			return true
		}
	}
	return false
}

// cjkTokens segments text with gojieba's search-mode cut, tuned for
// short query strings rather than the more expensive full-mode cut
// meant for indexing documents.
func cjkTokens(text string) []string {
	words := cjkTokenizer().CutForSearch(text, true)
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}
