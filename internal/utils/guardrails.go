package utils

import (
	"regexp"
	"strings"

	"github.com/faqrag/engine/internal/types"
)

// GuardrailVerdict is one scanner's contribution to the aggregate
// guardrails decision (spec §4.11).
type GuardrailVerdict struct {
	Triggered bool
	Reason    string
	Risk      float64
}

// secretPatterns flags API keys, tokens, and credential-shaped strings
// riding inside a chat message, grounded on the same pattern-table idiom
// as xssPatterns in this package.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)sk-[a-zA-Z0-9]{20,}`),
	regexp.MustCompile(`(?i)(api[_-]?key|secret|token|password)\s*[:=]\s*\S{8,}`),
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`),
	regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`),
}

// promptInjectionPatterns flags explicit overrides, role manipulation,
// and delimiter injection attempts (spec §4.11).
var promptInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore (all |any )?(previous|prior|above) instructions`),
	regexp.MustCompile(`(?i)disregard (the|your|all) (system|previous) prompt`),
	regexp.MustCompile(`(?i)you are now\b`),
	regexp.MustCompile(`(?i)act as (if you are|a|an)\b`),
	regexp.MustCompile(`(?i)pretend (you are|to be)\b`),
	regexp.MustCompile(`(?i)\bsystem\s*:\s*`),
	regexp.MustCompile(`(?i)<\|im_start\|>|<\|im_end\|>`),
	regexp.MustCompile("```(system|assistant)"),
}

// toxicityPatterns is a coarse keyword-based toxicity scanner; it
// intentionally errs conservative (spec §4.11 names "toxicity" as one of
// several scanners contributing risk, not a precision classifier).
var toxicityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(kill yourself|kys)\b`),
	regexp.MustCompile(`(?i)\b(hate speech|slur)\b`),
}

// ScanRegexPatterns reports whether text matches any dangerous
// shell-metacharacter pattern, reusing DangerousArgPatterns.
func ScanRegexPatterns(text string) GuardrailVerdict {
	for _, p := range DangerousArgPatterns {
		if p.MatchString(text) {
			return GuardrailVerdict{Triggered: true, Reason: "dangerous_pattern", Risk: 0.6}
		}
	}
	return GuardrailVerdict{}
}

// ScanXSS flags script/iframe/event-handler injection attempts, reusing
// the same xssPatterns table SanitizeHTML sanitizes against. This is the
// output-stage counterpart to ValidateInput's input-stage rejection: an
// answer that echoes retrieved document content back to the caller must
// not carry an executable payload through untouched.
func ScanXSS(text string) GuardrailVerdict {
	for _, p := range xssPatterns {
		if p.MatchString(text) {
			return GuardrailVerdict{Triggered: true, Reason: "xss_pattern", Risk: 0.75}
		}
	}
	return GuardrailVerdict{}
}

// ScanInputValidity flags control characters and invalid UTF-8 via
// ValidateInput, catching malformed payloads before they reach the
// embedding/LLM calls downstream.
func ScanInputValidity(text string) GuardrailVerdict {
	if _, ok := ValidateInput(text); !ok {
		return GuardrailVerdict{Triggered: true, Reason: "invalid_input", Risk: 0.5}
	}
	return GuardrailVerdict{}
}

// ScanUnsafeDocumentURLs flags a retrieved document's url/image_url
// metadata fields when they fail IsValidURL/IsValidImageURL, so a
// poisoned document can't smuggle a javascript: or malformed link into
// the answer's sources.
func ScanUnsafeDocumentURLs(metadata map[string]interface{}) GuardrailVerdict {
	if url, ok := metadata["url"].(string); ok && url != "" && !IsValidURL(url) {
		return GuardrailVerdict{Triggered: true, Reason: "unsafe_document_url", Risk: 0.6}
	}
	if url, ok := metadata["image_url"].(string); ok && url != "" && !IsValidImageURL(url) {
		return GuardrailVerdict{Triggered: true, Reason: "unsafe_document_url", Risk: 0.6}
	}
	return GuardrailVerdict{}
}

// ScanTokenLimit estimates token count as len(text)/4 (the same rough
// heuristic the multi-hop context merger uses for its char budget) and
// flags text over maxTokens.
func ScanTokenLimit(text string, maxTokens int) GuardrailVerdict {
	estimated := len(text) / 4
	if estimated > maxTokens {
		return GuardrailVerdict{Triggered: true, Reason: "token_limit_exceeded", Risk: 0.3}
	}
	return GuardrailVerdict{}
}

// ScanLanguageAllowList flags a detected language not present in allowed.
// An empty allowed list disables the check.
func ScanLanguageAllowList(detectedLanguage string, allowed []string) GuardrailVerdict {
	if len(allowed) == 0 || detectedLanguage == "" {
		return GuardrailVerdict{}
	}
	for _, lang := range allowed {
		if strings.EqualFold(lang, detectedLanguage) {
			return GuardrailVerdict{}
		}
	}
	return GuardrailVerdict{Triggered: true, Reason: "language_not_allowed", Risk: 0.2}
}

// ScanSecrets flags API-key/credential-shaped substrings.
func ScanSecrets(text string) GuardrailVerdict {
	for _, p := range secretPatterns {
		if p.MatchString(text) {
			return GuardrailVerdict{Triggered: true, Reason: "secret_detected", Risk: 0.9}
		}
	}
	return GuardrailVerdict{}
}

// ScanPromptInjection flags explicit-override, role-manipulation, and
// delimiter-injection attempts (spec §4.11).
func ScanPromptInjection(text string) GuardrailVerdict {
	for _, p := range promptInjectionPatterns {
		if p.MatchString(text) {
			return GuardrailVerdict{Triggered: true, Reason: "prompt_injection", Risk: 0.8}
		}
	}
	return GuardrailVerdict{}
}

// ScanToxicity flags coarse toxic-keyword matches.
func ScanToxicity(text string) GuardrailVerdict {
	for _, p := range toxicityPatterns {
		if p.MatchString(text) {
			return GuardrailVerdict{Triggered: true, Reason: "toxicity", Risk: 0.7}
		}
	}
	return GuardrailVerdict{}
}

// ScanBannedTopics flags any configured banned-topic keyword appearing in
// text (case-insensitive substring match).
func ScanBannedTopics(text string, bannedTopics []string) GuardrailVerdict {
	lower := strings.ToLower(text)
	for _, topic := range bannedTopics {
		if topic == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(topic)) {
			return GuardrailVerdict{Triggered: true, Reason: "banned_topic:" + topic, Risk: 0.5}
		}
	}
	return GuardrailVerdict{}
}

// ScanDataLeakage is the output-side scanner: it flags any of the given
// retrieved-document field values (e.g. internal IDs, emails) appearing
// verbatim in the generated answer text.
func ScanDataLeakage(answer string, sensitiveValues []string) GuardrailVerdict {
	for _, v := range sensitiveValues {
		if v == "" {
			continue
		}
		if strings.Contains(answer, v) {
			return GuardrailVerdict{Triggered: true, Reason: "data_leakage", Risk: 0.85}
		}
	}
	return GuardrailVerdict{}
}

// GuardrailReport is the aggregate of every scanner's verdict for one
// text, feeding the allow/sanitize/block decision (spec §4.11).
type GuardrailReport struct {
	Triggered []string
	RiskScore float64
	Decision  types.GuardrailDecision
	Blocked   bool
}

// AggregateGuardrails combines scanner verdicts into the single report
// the node records onto the state bag: riskScore is the max contribution
// (not summed, to avoid stacking unrelated low-risk scanners into a
// false block). Risk below sanitizeThreshold allows the text through
// unchanged; risk in [sanitizeThreshold, blockThreshold) asks the caller
// to sanitize rather than discard it; risk at or above blockThreshold
// blocks the request outright.
func AggregateGuardrails(verdicts []GuardrailVerdict, sanitizeThreshold, blockThreshold float64) GuardrailReport {
	report := GuardrailReport{}
	for _, v := range verdicts {
		if !v.Triggered {
			continue
		}
		report.Triggered = append(report.Triggered, v.Reason)
		if v.Risk > report.RiskScore {
			report.RiskScore = v.Risk
		}
	}
	switch {
	case report.RiskScore >= blockThreshold:
		report.Decision = types.GuardrailBlock
		report.Blocked = true
	case report.RiskScore >= sanitizeThreshold:
		report.Decision = types.GuardrailSanitize
	default:
		report.Decision = types.GuardrailAllow
	}
	return report
}
