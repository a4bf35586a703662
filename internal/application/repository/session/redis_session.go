// Package session implements the per-user session store: load (creating
// a session lazily) and save, backed by Redis with a key-prefix,
// read-modify-write convention. The capped recent-messages window is kept
// by types.UserSession.AppendRecentMessage.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/faqrag/engine/internal/logger"
	"github.com/faqrag/engine/internal/types"
	"github.com/faqrag/engine/internal/types/interfaces"
)

// SessionKeyPrefix and ActiveSessionPrefix are the key/value store key
// prefixes named in spec §6.
const (
	SessionKeyPrefix   = "session:"
	ActiveSessionPrefix = "user:active_session:"
)

// Store persists UserSession records in a KVStore, TTL-refreshed on
// every save (sliding window, spec §3 Entities).
type Store struct {
	kv  interfaces.KVStore
	ttl time.Duration
}

// NewStore builds a session Store over kv with the given sliding-window
// TTL (default 24h per spec §3).
func NewStore(kv interfaces.KVStore, ttl time.Duration) *Store {
	return &Store{kv: kv, ttl: ttl}
}

// Load fetches the active session for userID, creating a new one lazily
// if none exists (spec §3 Entities: "Created lazily on first request").
// sessionID, when non-empty, is used verbatim instead of looking up the
// active-session pointer (a client resuming an explicit session id).
func (s *Store) Load(ctx context.Context, userID, sessionID string) (*types.UserSession, error) {
	if sessionID == "" {
		ptr, err := s.kv.Get(ctx, ActiveSessionPrefix+userID)
		if err != nil {
			logger.GetLogger(ctx).Warnf("active session pointer lookup failed for %s: %v", userID, err)
		}
		if len(ptr) > 0 {
			sessionID = string(ptr)
		}
	}

	if sessionID != "" {
		raw, err := s.kv.Get(ctx, SessionKeyPrefix+sessionID)
		if err != nil {
			logger.GetLogger(ctx).Warnf("session load failed for %s: %v", sessionID, err)
		}
		if len(raw) > 0 {
			var sess types.UserSession
			if err := json.Unmarshal(raw, &sess); err == nil {
				return &sess, nil
			}
			logger.GetLogger(ctx).Warnf("session record for %s corrupted, starting fresh", sessionID)
		}
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	now := time.Now().Unix()
	return &types.UserSession{
		UserID:           userID,
		SessionID:        sessionID,
		StartTime:        now,
		LastActivityTime: now,
		DialogState:      types.StateInitial,
	}, nil
}

// Save persists sess with a TTL-refreshed sliding window, then writes the
// user:active_session:{user_id} pointer. The two writes are separate SETEX
// calls, not one atomic update: a failed pointer write is logged and not
// returned, leaving the previous pointer in place.
func (s *Store) Save(ctx context.Context, sess *types.UserSession) error {
	sess.LastActivityTime = time.Now().Unix()
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sess.SessionID, err)
	}
	ttlSeconds := int64(s.ttl / time.Second)
	if err := s.kv.SetEX(ctx, SessionKeyPrefix+sess.SessionID, raw, ttlSeconds); err != nil {
		return fmt.Errorf("save session %s: %w", sess.SessionID, err)
	}
	if err := s.kv.SetEX(ctx, ActiveSessionPrefix+sess.UserID, []byte(sess.SessionID), ttlSeconds); err != nil {
		logger.GetLogger(ctx).Warnf("active session pointer update failed for %s: %v", sess.UserID, err)
	}
	return nil
}
