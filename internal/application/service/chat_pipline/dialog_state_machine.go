package chatpipline

import (
	"context"

	"github.com/faqrag/engine/internal/pipeline"
	"github.com/faqrag/engine/internal/types"
)

// DialogStateMachineNode applies the priority-ordered transition rules
// of spec §4.6 to the signals DialogAnalysisNode computed.
type DialogStateMachineNode struct {
	maxAttempts         int
	escalateOnMaxAttempts bool
}

// NewDialogStateMachineNode builds the node. maxAttempts defaults to 3
// per spec §4.6.
func NewDialogStateMachineNode(maxAttempts int, escalateOnMaxAttempts bool) *DialogStateMachineNode {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &DialogStateMachineNode{maxAttempts: maxAttempts, escalateOnMaxAttempts: escalateOnMaxAttempts}
}

func (n *DialogStateMachineNode) Name() string { return NodeDialogStateMachine }

func (n *DialogStateMachineNode) Contract() pipeline.Contract {
	return pipeline.Contract{
		Required:    []string{"DialogAnalysis"},
		Optional:    []string{"DialogState", "AttemptCount"},
		Guaranteed:  []string{"DialogState", "AttemptCount"},
		Conditional: []string{"EscalationMessage"},
	}
}

// EscalationHandoffMessage is the fixed text returned verbatim as the
// answer when the state machine routes to a human handoff (spec §4.2's
// post-route branch: "jump to generation with escalation_message
// pre-set").
const EscalationHandoffMessage = "I'm connecting you with a human agent who can help further."

func (n *DialogStateMachineNode) Execute(ctx context.Context, in *types.State) (*types.State, error) {
	a := in.DialogAnalysis
	from := in.DialogState
	attempts := in.AttemptCount

	var target types.DialogState
	switch {
	case a.EscalationRequested:
		target = types.StateEscalationRequested
	case a.IsGratitude:
		target = types.StateResolved
	case a.FrustrationDetected:
		target = types.StateEscalationNeeded
	case a.RepeatedQuestion:
		target = types.StateAnswerProvided
		attempts++
	case a.IsQuestion:
		target = types.StateAnswerProvided
		if from == types.StateInitial || from == types.StateResolved || from == "" {
			attempts = 1
		} else if from == types.StateAnswerProvided {
			attempts++
		}
	default:
		target = from
		if target == "" {
			target = types.StateInitial
		}
	}

	if n.escalateOnMaxAttempts && attempts > n.maxAttempts {
		target = types.StateEscalationNeeded
	}

	out := &types.State{DialogState: target, AttemptCount: attempts}
	if target == types.StateEscalationNeeded || target == types.StateEscalationRequested {
		out.EscalationMessage = EscalationHandoffMessage
	}
	return out, nil
}

var _ pipeline.Node = (*DialogStateMachineNode)(nil)
