package chatpipline

import (
	"context"
	"time"

	"github.com/faqrag/engine/internal/application/repository/session"
	"github.com/faqrag/engine/internal/common"
	"github.com/faqrag/engine/internal/pipeline"
	"github.com/faqrag/engine/internal/types"
)

// SessionUpdateNode persists the turn's dialog state, attempt counter,
// and clarification context back into the Session Store, and appends
// the user/assistant turn to recent_messages (spec §4.6: "The state and
// attempt counter are persisted into the session store"; supplemented
// per SPEC_FULL since the distilled spec names the requirement but not
// the node, grounded on original_source's app/nodes/session_update/
// node.py).
type SessionUpdateNode struct {
	store *session.Store
}

// NewSessionUpdateNode builds the node over store.
func NewSessionUpdateNode(store *session.Store) *SessionUpdateNode {
	return &SessionUpdateNode{store: store}
}

func (n *SessionUpdateNode) Name() string { return NodeSessionUpdate }

func (n *SessionUpdateNode) Contract() pipeline.Contract {
	return pipeline.Contract{
		Required: []string{"UserID", "SessionID", "Question", "DialogState", "AttemptCount"},
		Optional: []string{"ClarificationContext", "Answer", "Confidence"},
	}
}

func (n *SessionUpdateNode) Execute(ctx context.Context, in *types.State) (*types.State, error) {
	sess, err := n.store.Load(ctx, in.UserID, in.SessionID)
	if err != nil {
		common.PipelineWarn(ctx, n.Name(), "session_load_failed", map[string]interface{}{"error": err.Error()})
		return &types.State{}, nil
	}

	sess.DialogState = in.DialogState
	sess.AttemptCount = in.AttemptCount
	sess.ClarificationContext = in.ClarificationContext
	if in.Confidence > 0 {
		confidence := in.Confidence
		sess.LastAnswerConfidence = &confidence
	}

	sess.AppendRecentMessage(types.HistoryTurn{Role: "user", Content: in.Question, Timestamp: time.Now()})
	if in.Answer != "" {
		sess.AppendRecentMessage(types.HistoryTurn{Role: "assistant", Content: in.Answer, Timestamp: time.Now()})
	}

	if err := n.store.Save(ctx, sess); err != nil {
		common.PipelineWarn(ctx, n.Name(), "session_save_failed", map[string]interface{}{"error": err.Error()})
	}
	return &types.State{}, nil
}

var _ pipeline.Node = (*SessionUpdateNode)(nil)
