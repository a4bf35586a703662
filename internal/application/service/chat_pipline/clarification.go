package chatpipline

import (
	"context"

	"github.com/faqrag/engine/internal/common"
	"github.com/faqrag/engine/internal/models/translate"
	"github.com/faqrag/engine/internal/pipeline"
	"github.com/faqrag/engine/internal/types"
)

// ClarificationNode drives the multi-turn clarification sub-dialogue of
// spec §4.8, ported from original_source's ClarificationQuestionsNode
// (app/nodes/clarification_questions/node.py): it either initializes a
// new loop (when the top document carries clarifying_questions) or
// advances an already-active one.
type ClarificationNode struct {
	translator translate.Translator
}

// NewClarificationNode builds the node.
func NewClarificationNode(translator translate.Translator) *ClarificationNode {
	return &ClarificationNode{translator: translator}
}

func (n *ClarificationNode) Name() string { return NodeClarification }

func (n *ClarificationNode) Contract() pipeline.Contract {
	return pipeline.Contract{
		Required: []string{"Question"},
		Optional: []string{
			"BestDocMetadata", "ClarificationContext", "DetectedLanguage",
			"DialogState", "ConversationHistory",
		},
		Guaranteed: []string{"Answer", "ClarificationContext"},
		Conditional: []string{"DialogState"},
	}
}

func (n *ClarificationNode) Execute(ctx context.Context, in *types.State) (*types.State, error) {
	if in.ClarificationContext != nil && in.ClarificationContext.Active {
		return n.handleLoop(ctx, in)
	}
	return n.handleInitialization(ctx, in)
}

func (n *ClarificationNode) handleInitialization(ctx context.Context, in *types.State) (*types.State, error) {
	questionsRaw, _ := in.BestDocMetadata["clarifying_questions"].([]interface{})
	if len(questionsRaw) == 0 {
		common.PipelineWarn(ctx, n.Name(), "no_questions_found", nil)
		return &types.State{
			DialogState:          types.StateAnswerProvided,
			ClarificationContext: &types.ClarificationContext{Active: false},
			Answer:               "",
		}, nil
	}

	if in.DialogState != "" && in.DialogState != types.StateNeedsClarification && in.DialogState != types.StateInitial &&
		in.DialogState != types.StateAnswerProvided {
		return &types.State{
			DialogState:          in.DialogState,
			Answer:               "",
			ClarificationContext: &types.ClarificationContext{Active: false},
		}, nil
	}

	questions := make([]string, 0, len(questionsRaw))
	for _, q := range questionsRaw {
		if s, ok := q.(string); ok {
			questions = append(questions, s)
		}
	}

	docID, _ := in.BestDocMetadata["id"].(string)
	targetLang := in.DetectedLanguage
	if targetLang == "" {
		targetLang = "en"
	}

	context := &types.ClarificationContext{
		Active:        true,
		Questions:     questions,
		CurrentIndex:  0,
		Answers:       map[string]string{},
		OriginalDocID: docID,
		TargetLanguage: targetLang,
	}

	final, err := n.translateQuestion(ctx, questions[0], targetLang)
	if err != nil {
		final = questions[0]
	}

	return &types.State{
		Answer:               final,
		ClarificationContext: context,
		DialogState:          types.StateNeedsClarification,
	}, nil
}

func (n *ClarificationNode) handleLoop(ctx context.Context, in *types.State) (*types.State, error) {
	context := *in.ClarificationContext
	context.Answers = copyAnswers(in.ClarificationContext.Answers)

	userMessage := lastUserMessage(in)

	if context.CurrentIndex < len(context.Questions) {
		current := context.Questions[context.CurrentIndex]
		context.Answers[current] = userMessage
	}
	context.CurrentIndex++

	if context.CurrentIndex >= len(context.Questions) {
		context.Active = false
		return &types.State{
			Answer:               "",
			ClarificationContext: &context,
			DialogState:          types.StateAnswerProvided,
		}, nil
	}

	next := context.Questions[context.CurrentIndex]
	final, err := n.translateQuestion(ctx, next, context.TargetLanguage)
	if err != nil {
		final = next
	}

	return &types.State{
		Answer:               final,
		ClarificationContext: &context,
		DialogState:          types.StateNeedsClarification,
	}, nil
}

func (n *ClarificationNode) translateQuestion(ctx context.Context, question, targetLang string) (string, error) {
	lang := targetLang
	if lang == "" || lang == "en" || lang == "english" || lang == "unknown" {
		return question, nil
	}
	if n.translator == nil {
		return question, nil
	}
	translated, err := n.translator.Translate(ctx, question, lang)
	if err != nil {
		common.PipelineWarn(ctx, n.Name(), "question_translate_failed", map[string]interface{}{"error": err.Error()})
		return question, nil
	}
	return translated, nil
}

func lastUserMessage(in *types.State) string {
	if in.Question != "" {
		return in.Question
	}
	for i := len(in.ConversationHistory) - 1; i >= 0; i-- {
		if in.ConversationHistory[i].Role == "user" {
			return in.ConversationHistory[i].Content
		}
	}
	return ""
}

func copyAnswers(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

var _ pipeline.Node = (*ClarificationNode)(nil)
