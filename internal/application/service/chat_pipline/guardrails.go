package chatpipline

import (
	"context"

	"github.com/faqrag/engine/internal/common"
	"github.com/faqrag/engine/internal/pipeline"
	"github.com/faqrag/engine/internal/types"
	"github.com/faqrag/engine/internal/utils"
)

// GuardrailsConfig carries the configurable scanner thresholds shared by
// both guardrail stages (spec §4.11).
type GuardrailsConfig struct {
	MaxInputTokens    int
	AllowedLanguages  []string
	BannedTopics      []string
	SanitizeThreshold float64
	BlockThreshold    float64
}

// BlockedMessage is the fixed user-visible refusal text a blocked request
// returns (spec §4.11: "A blocked request produces a fixed user-visible
// message and skips downstream stages").
const BlockedMessage = "I can't help with that request."

// GuardrailsInputNode is the input-stage scanner (spec §4.11), run before
// retrieval.
type GuardrailsInputNode struct {
	cfg GuardrailsConfig
}

// NewGuardrailsInputNode builds the input guardrails node.
func NewGuardrailsInputNode(cfg GuardrailsConfig) *GuardrailsInputNode {
	return &GuardrailsInputNode{cfg: cfg}
}

func (n *GuardrailsInputNode) Name() string { return NodeGuardrailsInput }

func (n *GuardrailsInputNode) Contract() pipeline.Contract {
	return pipeline.Contract{
		Required:    []string{"Question"},
		Optional:    []string{"DetectedLanguage"},
		Guaranteed:  []string{"GuardrailsBlocked", "GuardrailsDecision"},
		Conditional: []string{"GuardrailsRiskScore", "GuardrailsTriggered", "Answer", "DialogState"},
	}
}

func (n *GuardrailsInputNode) Execute(ctx context.Context, in *types.State) (*types.State, error) {
	verdicts := []utils.GuardrailVerdict{
		utils.ScanRegexPatterns(in.Question),
		utils.ScanTokenLimit(in.Question, n.cfg.MaxInputTokens),
		utils.ScanLanguageAllowList(in.DetectedLanguage, n.cfg.AllowedLanguages),
		utils.ScanInputValidity(in.Question),
		utils.ScanSecrets(in.Question),
		utils.ScanPromptInjection(in.Question),
		utils.ScanToxicity(in.Question),
		utils.ScanBannedTopics(in.Question, n.cfg.BannedTopics),
	}
	report := utils.AggregateGuardrails(verdicts, n.cfg.SanitizeThreshold, n.cfg.BlockThreshold)

	out := &types.State{
		GuardrailsBlocked:   report.Blocked,
		GuardrailsDecision:  report.Decision,
		GuardrailsRiskScore: report.RiskScore,
		GuardrailsTriggered: report.Triggered,
	}
	if report.Blocked {
		common.PipelineWarn(ctx, n.Name(), "input_blocked", map[string]interface{}{
			"triggered": report.Triggered,
			"risk":      report.RiskScore,
			"question":  utils.SanitizeForLog(in.Question),
		})
		out.Answer = BlockedMessage
		out.DialogState = types.StateBlocked
	}
	return out, nil
}

// GuardrailsOutputNode is the output-stage scanner (spec §4.11), run
// before the answer is returned. In addition to the shared scanners it
// runs a data-leakage check against the retrieved documents' metadata
// values.
type GuardrailsOutputNode struct {
	cfg GuardrailsConfig
}

// NewGuardrailsOutputNode builds the output guardrails node.
func NewGuardrailsOutputNode(cfg GuardrailsConfig) *GuardrailsOutputNode {
	return &GuardrailsOutputNode{cfg: cfg}
}

func (n *GuardrailsOutputNode) Name() string { return NodeGuardrailsOutput }

func (n *GuardrailsOutputNode) Contract() pipeline.Contract {
	return pipeline.Contract{
		Required:    []string{"Answer"},
		Optional:    []string{"BestDocMetadata"},
		Guaranteed:  []string{"GuardrailsBlocked", "GuardrailsDecision", "Answer"},
		Conditional: []string{"GuardrailsRiskScore", "GuardrailsTriggered", "DialogState"},
	}
}

func (n *GuardrailsOutputNode) Execute(ctx context.Context, in *types.State) (*types.State, error) {
	sensitive := sensitiveMetadataValues(in.BestDocMetadata)
	verdicts := []utils.GuardrailVerdict{
		utils.ScanRegexPatterns(in.Answer),
		utils.ScanXSS(in.Answer),
		utils.ScanSecrets(in.Answer),
		utils.ScanToxicity(in.Answer),
		utils.ScanBannedTopics(in.Answer, n.cfg.BannedTopics),
		utils.ScanDataLeakage(in.Answer, sensitive),
		utils.ScanUnsafeDocumentURLs(in.BestDocMetadata),
	}
	report := utils.AggregateGuardrails(verdicts, n.cfg.SanitizeThreshold, n.cfg.BlockThreshold)

	out := &types.State{
		GuardrailsBlocked:   report.Blocked,
		GuardrailsDecision:  report.Decision,
		GuardrailsRiskScore: report.RiskScore,
		GuardrailsTriggered: report.Triggered,
		Answer:              in.Answer,
	}
	switch {
	case report.Blocked:
		common.PipelineWarn(ctx, n.Name(), "output_blocked", map[string]interface{}{
			"triggered": utils.SanitizeForLogArray(report.Triggered),
			"risk":      report.RiskScore,
		})
		out.Answer = BlockedMessage
		out.DialogState = types.StateSafetyViolation
	case report.Decision == types.GuardrailSanitize:
		common.PipelineInfo(ctx, n.Name(), "output_sanitized", map[string]interface{}{
			"triggered": utils.SanitizeForLogArray(report.Triggered),
			"risk":      report.RiskScore,
		})
		out.Answer = utils.SanitizeForDisplay(in.Answer)
	}
	return out, nil
}

// sensitiveMetadataValues flattens string-valued metadata fields that
// should never appear verbatim in a generated answer (internal ids,
// emails, etc.) for the output-side data-leakage scanner.
func sensitiveMetadataValues(metadata map[string]interface{}) []string {
	var out []string
	for k, v := range metadata {
		if k == "id" || k == "internal_id" || k == "email" {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

var (
	_ pipeline.Node = (*GuardrailsInputNode)(nil)
	_ pipeline.Node = (*GuardrailsOutputNode)(nil)
)
