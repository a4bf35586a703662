package chatpipline

import (
	"context"

	"github.com/faqrag/engine/internal/application/repository/session"
	"github.com/faqrag/engine/internal/pipeline"
	"github.com/faqrag/engine/internal/types"
)

// SessionLoadNode loads (or lazily creates) the caller's UserSession and
// seeds the state bag's conversation history and dialog state from it
// (spec §3 Entities, §4.2 leaves-first dependency order: Session Store
// feeds everything downstream).
type SessionLoadNode struct {
	store *session.Store
}

// NewSessionLoadNode builds the node over store.
func NewSessionLoadNode(store *session.Store) *SessionLoadNode {
	return &SessionLoadNode{store: store}
}

func (n *SessionLoadNode) Name() string { return NodeSessionLoad }

func (n *SessionLoadNode) Contract() pipeline.Contract {
	return pipeline.Contract{
		Required:   []string{"UserID"},
		Optional:   []string{"SessionID"},
		Guaranteed: []string{"SessionID", "ConversationHistory", "DialogState", "AttemptCount"},
		Conditional: []string{"ClarificationContext"},
	}
}

func (n *SessionLoadNode) Execute(ctx context.Context, in *types.State) (*types.State, error) {
	sess, err := n.store.Load(ctx, in.UserID, in.SessionID)
	if err != nil {
		// BackendUnavailable policy (spec §7): session load is best-
		// effort — fall back to a fresh, unpersisted session rather
		// than failing the request.
		return &types.State{
			SessionID:           in.SessionID,
			ConversationHistory: nil,
			DialogState:         types.StateInitial,
			AttemptCount:        0,
		}, nil
	}

	out := &types.State{
		SessionID:           sess.SessionID,
		ConversationHistory: sess.RecentMessages,
		DialogState:         sess.DialogState,
		AttemptCount:        sess.AttemptCount,
	}
	if sess.ClarificationContext != nil {
		out.ClarificationContext = sess.ClarificationContext
	}
	return out, nil
}

var _ pipeline.Node = (*SessionLoadNode)(nil)
