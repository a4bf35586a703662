package chatpipline

import (
	"context"
	"regexp"

	"github.com/faqrag/engine/internal/pipeline"
	"github.com/faqrag/engine/internal/types"
	"github.com/faqrag/engine/internal/utils"
)

// gratitudePatterns flags thanks/closing signals in either language,
// grounded on original_source's dialog_analysis/rules set (re-authored
// directly per DESIGN.md's note on corrupted Cyrillic literals in the
// retrieved slice, rather than copied byte-for-byte).
var gratitudePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(thanks|thank you|thx|appreciate it)\b`),
	regexp.MustCompile(`(?i)(спасибо|благодарю)`),
}

// escalationRequestPatterns flags an explicit ask for a human/agent.
var escalationRequestPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(talk to|speak to|connect me (with|to))\s+(a\s+)?(human|agent|person|support)\b`),
	regexp.MustCompile(`(?i)\b(real person|live agent|human support)\b`),
	regexp.MustCompile(`(?i)(соедините|позовите)\s+(меня\s+)?с?\s*(человек|оператор|поддержк)`),
}

// frustrationPatterns flags explicit frustration/anger.
var frustrationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(this (is|isn't|is not) (working|helping)|useless|frustrat\w*|annoyed|ridiculous)\b`),
	regexp.MustCompile(`(?i)(не помогает|бесполезн|раздража)`),
}

// questionWordPatterns flags an interrogative utterance (English +
// Russian question words, or a trailing question mark).
var questionWordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(how|what|where|when|who|why|can|could|would|is|are|do|does)\b`),
	regexp.MustCompile(`(?i)(?:^|[^\p{L}])(как|что|где|когда|кто|почему|какой|можно|можешь|можете)(?:[^\p{L}]|$)`),
	regexp.MustCompile(`\?\s*$`),
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// DialogAnalysisNode computes the boolean signal set the state machine
// transitions on (spec §4.6).
type DialogAnalysisNode struct{}

// NewDialogAnalysisNode builds the node.
func NewDialogAnalysisNode() *DialogAnalysisNode {
	return &DialogAnalysisNode{}
}

func (n *DialogAnalysisNode) Name() string { return NodeDialogAnalysis }

func (n *DialogAnalysisNode) Contract() pipeline.Contract {
	return pipeline.Contract{
		Required:   []string{"Question"},
		Optional:   []string{"ConversationHistory"},
		Guaranteed: []string{"DialogAnalysis"},
	}
}

func (n *DialogAnalysisNode) Execute(ctx context.Context, in *types.State) (*types.State, error) {
	analysis := types.DialogAnalysis{
		EscalationRequested: matchesAny(escalationRequestPatterns, in.Question),
		IsGratitude:         matchesAny(gratitudePatterns, in.Question),
		FrustrationDetected: matchesAny(frustrationPatterns, in.Question),
		IsQuestion:          matchesAny(questionWordPatterns, in.Question),
		RepeatedQuestion:    isRepeatedQuestion(in.Question, in.ConversationHistory),
	}
	return &types.State{DialogAnalysis: analysis}, nil
}

// isRepeatedQuestion compares the current question's normalized form
// against the most recent user turn in history.
func isRepeatedQuestion(question string, history []types.HistoryTurn) bool {
	normalized := utils.NormalizeQuery(question)
	if normalized == "" {
		return false
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != "user" {
			continue
		}
		return utils.NormalizeQuery(history[i].Content) == normalized
	}
	return false
}

var _ pipeline.Node = (*DialogAnalysisNode)(nil)
