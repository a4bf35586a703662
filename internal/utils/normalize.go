package utils

import (
	"regexp"
	"sort"
	"strings"
)

// englishStopWords are the English words dropped before cache-key sorting.
var englishStopWords = map[string]bool{
	"how": true, "what": true, "where": true, "when": true, "who": true, "why": true,
	"do": true, "does": true, "did": true, "can": true, "could": true, "should": true, "would": true,
	"is": true, "are": true, "am": true, "be": true, "been": true,
	"please": true, "thanks": true, "thank": true, "help": true, "me": true, "my": true, "i": true,
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true, "in": true, "on": true, "at": true,
	"to": true, "for": true, "of": true, "with": true, "by": true, "about": true, "from": true,
}

// russianStopWords mirrors original_source's QueryNormalizer.RUSSIAN_STOP_WORDS.
var russianStopWords = map[string]bool{
	"как": true, "что": true, "где": true, "когда": true, "кто": true, "почему": true,
	"какой": true, "какая": true, "какие": true,

	"могу": true, "можешь": true, "может": true, "можем": true, "можете": true, "могут": true,
	"должен": true, "должна": true, "должны": true, "нужно": true, "надо": true,

	"есть": true, "был": true, "была": true, "было": true, "были": true,
	"буду": true, "будет": true, "будем": true, "будете": true, "будут": true,

	"в": true, "на": true, "по": true, "к": true, "с": true, "от": true, "о": true, "об": true,
	"у": true, "за": true, "под": true, "над": true, "между": true,
	"через": true, "для": true, "из": true, "до": true, "без": true, "со": true, "ко": true, "во": true,

	"я": true, "ты": true, "он": true, "она": true, "оно": true, "мы": true, "вы": true, "они": true,
	"меня": true, "тебя": true, "его": true, "её": true, "нас": true, "вас": true, "их": true,
	"мой": true, "твой": true, "наш": true, "ваш": true,

	"и": true, "или": true, "но": true, "же": true, "если": true, "то": true,

	"ли": true, "ни": true, "не": true,

	"пожалуйста": true, "спасибо": true, "привет": true, "пока": true, "здравствуйте": true,

	"это": true, "эта": true, "эти": true, "тот": true, "та": true, "те": true,
}

// punctuationPattern removes anything that is not a word character or
// whitespace, matching Python's re.sub(r'[^\w\s]', '', query) under
// Unicode semantics (\w includes Cyrillic letters and digits).
var punctuationPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// NormalizeQuery canonicalizes a query string for cache-key matching
// (spec §4.3 Tier A), grounded verbatim on original_source's
// QueryNormalizer.normalize: lowercase, strip punctuation, tokenize,
// drop EN+RU stopwords, sort tokens, rejoin.
func NormalizeQuery(query string) string {
	lowered := strings.ToLower(query)
	stripped := punctuationPattern.ReplaceAllString(lowered, "")

	var tokens []string
	if EnableCJKTokenization && isCJK(query) {
		tokens = cjkTokens(stripped)
	} else {
		tokens = strings.Fields(stripped)
	}

	filtered := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len(tok) == 0 {
			continue
		}
		if englishStopWords[tok] || russianStopWords[tok] {
			continue
		}
		filtered = append(filtered, tok)
	}

	sort.Strings(filtered)
	return strings.TrimSpace(strings.Join(filtered, " "))
}

// SignificantTokens extracts tokens of length > 3 from text, lower-cased
// and with EN/RU stop-words removed, for the semantic-cache
// document-relevance check (spec §4.3 Tier B).
func SignificantTokens(text string) []string {
	lowered := strings.ToLower(text)
	stripped := punctuationPattern.ReplaceAllString(lowered, "")

	var tokens []string
	if EnableCJKTokenization && isCJK(text) {
		tokens = cjkTokens(stripped)
	} else {
		tokens = strings.Fields(stripped)
	}

	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len([]rune(tok)) <= 3 {
			continue
		}
		if englishStopWords[tok] || russianStopWords[tok] {
			continue
		}
		out = append(out, tok)
	}
	return out
}
