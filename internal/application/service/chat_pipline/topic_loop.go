package chatpipline

import (
	"context"

	"github.com/faqrag/engine/internal/common"
	"github.com/faqrag/engine/internal/models/embedding"
	"github.com/faqrag/engine/internal/models/translate"
	"github.com/faqrag/engine/internal/pipeline"
	"github.com/faqrag/engine/internal/types"
	"github.com/faqrag/engine/internal/utils"
)

// TopicLoopWindow is W from spec §4.7: the last W user turns considered.
const TopicLoopWindow = 4

// TopicLoopDetectorNode flags a user repeating the same intent across
// recent turns despite having received answers (spec §4.7). It must fail
// open: any internal error yields topic_loop_detected = false rather than
// blocking the pipeline.
type TopicLoopDetectorNode struct {
	embedder            embedding.Embedder
	translator           translate.Translator
	threshold            float64
	minMessagesForLoop   int
}

// NewTopicLoopDetectorNode builds the node. threshold defaults to 0.85,
// minMessagesForLoop to 2, per spec §4.7.
func NewTopicLoopDetectorNode(embedder embedding.Embedder, translator translate.Translator, threshold float64, minMessagesForLoop int) *TopicLoopDetectorNode {
	if threshold <= 0 {
		threshold = 0.85
	}
	if minMessagesForLoop <= 0 {
		minMessagesForLoop = 2
	}
	return &TopicLoopDetectorNode{
		embedder:           embedder,
		translator:         translator,
		threshold:          threshold,
		minMessagesForLoop: minMessagesForLoop,
	}
}

func (n *TopicLoopDetectorNode) Name() string { return NodeTopicLoopDetector }

func (n *TopicLoopDetectorNode) Contract() pipeline.Contract {
	return pipeline.Contract{
		Required: []string{"Question"},
		Optional: []string{"ConversationHistory", "DetectedLanguage"},
		Guaranteed: []string{
			"TopicLoopDetected", "SimilarMessagesCount",
		},
	}
}

func (n *TopicLoopDetectorNode) Execute(ctx context.Context, in *types.State) (*types.State, error) {
	out, err := n.detect(ctx, in)
	if err != nil {
		common.PipelineWarn(ctx, n.Name(), "loop_detect_failed", map[string]interface{}{"error": err.Error()})
		return &types.State{TopicLoopDetected: false}, nil
	}
	return out, nil
}

func (n *TopicLoopDetectorNode) detect(ctx context.Context, in *types.State) (*types.State, error) {
	if n.embedder == nil {
		return &types.State{TopicLoopDetected: false}, nil
	}

	recentUser := recentUserTurns(in.ConversationHistory, TopicLoopWindow)
	if len(recentUser) == 0 {
		return &types.State{TopicLoopDetected: false}, nil
	}

	currentEN := in.Question
	if n.translator != nil && EffectiveLanguage(in.DetectedLanguage) != DocumentLanguage {
		translated, err := n.translator.Translate(ctx, in.Question, DocumentLanguage)
		if err == nil && translated != "" {
			currentEN = translated
		}
	}

	historyEN := make([]string, 0, len(recentUser))
	for _, turn := range recentUser {
		text := turn.Content
		if n.translator != nil && EffectiveLanguage(in.DetectedLanguage) != DocumentLanguage {
			translated, err := n.translator.Translate(ctx, turn.Content, DocumentLanguage)
			if err == nil && translated != "" {
				text = translated
			}
		}
		historyEN = append(historyEN, text)
	}

	batch := append([]string{currentEN}, historyEN...)
	vectors, err := n.embedder.BatchEmbed(ctx, batch, true)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(batch) {
		return &types.State{TopicLoopDetected: false}, nil
	}

	currentVec := vectors[0]
	historyVecs := vectors[1:]

	count := 0
	var simSum float64
	for _, hv := range historyVecs {
		sim := utils.CosineSimilarity(currentVec, hv)
		if sim >= n.threshold {
			count++
			simSum += sim
		}
	}

	detected := count >= n.minMessagesForLoop-1

	if detected {
		countFactor := clamp01(float64(count) / float64(n.minMessagesForLoop))
		similarityFactor := clamp01(simSum / float64(len(historyVecs)))
		confidence := (countFactor + similarityFactor) / 2
		common.PipelineInfo(ctx, n.Name(), "loop_detected", map[string]interface{}{
			"similar_messages_count": count,
			"confidence":             confidence,
		})
	}

	return &types.State{
		TopicLoopDetected:    detected,
		SimilarMessagesCount: count,
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// recentUserTurns returns up to w of the most recent user-role turns,
// newest first, per spec §4.7 step 1.
func recentUserTurns(history []types.HistoryTurn, w int) []types.HistoryTurn {
	out := make([]types.HistoryTurn, 0, w)
	for i := len(history) - 1; i >= 0 && len(out) < w; i-- {
		if history[i].Role == "user" {
			out = append(out, history[i])
		}
	}
	return out
}

var _ pipeline.Node = (*TopicLoopDetectorNode)(nil)
