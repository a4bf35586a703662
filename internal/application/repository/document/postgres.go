// Package document implements the relational document store: a
// documents(id, content, embedding, metadata, search_vector) table
// indexed by GIN on search_vector and by a vector index on embedding,
// plus the companion sessions/messages/user_profiles/sessions_archive/
// escalations tables. Lexical search builds a tsquery (falling back to
// ILIKE when the full-text query fails) with a Latin-alphabet heuristic
// selecting the "english" text-search config, using gorm.io/gorm over a
// pgx connection pool.
package document

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/faqrag/engine/internal/logger"
	"github.com/faqrag/engine/internal/types/interfaces"
)

// Document is the gorm model backing the documents table (spec §6).
type Document struct {
	ID        string          `gorm:"primaryKey;type:varchar(64)"`
	Content   string          `gorm:"type:text"`
	Embedding pgvector.Vector `gorm:"type:vector(384)"`
	Metadata  json.RawMessage `gorm:"type:jsonb"`
	CreatedAt time.Time
}

// TableName pins the gorm model to the literal table name spec §6 names.
func (Document) TableName() string { return "documents" }

// Session, Message, UserProfile, SessionArchive, and Escalation mirror
// the companion tables spec §6 names alongside documents. They are not
// on the Store's read path of this module (the Session Store component
// owns runtime session state in Redis) but are persisted here for
// durable history/audit, the way WeKnora keeps a Postgres system of
// record behind its Redis working set.
type Session struct {
	ID           string `gorm:"primaryKey;type:varchar(64)"`
	UserID       string `gorm:"index"`
	StartedAt    time.Time
	LastActiveAt time.Time
}

func (Session) TableName() string { return "sessions" }

type Message struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"index"`
	Role      string
	Content   string `gorm:"type:text"`
	CreatedAt time.Time
}

func (Message) TableName() string { return "messages" }

type UserProfile struct {
	UserID            string `gorm:"primaryKey;type:varchar(64)"`
	ExtractedEntities json.RawMessage `gorm:"type:jsonb"`
}

func (UserProfile) TableName() string { return "user_profiles" }

type SessionArchive struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	SessionID   string `gorm:"index"`
	ArchivedAt  time.Time
	Snapshot    json.RawMessage `gorm:"type:jsonb"`
}

func (SessionArchive) TableName() string { return "sessions_archive" }

type Escalation struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"index"`
	Reason    string
	CreatedAt time.Time
}

func (Escalation) TableName() string { return "escalations" }

// Store implements interfaces.DocumentStore against Postgres.
type Store struct {
	db *gorm.DB
}

// NewStore opens a pooled connection: at most 20 open connections, up to
// 5 kept idle. database/sql keeps no minimum number of open connections.
func NewStore(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	return &Store{db: db}, nil
}

// Ping verifies the pooled connection is reachable, used by the health
// endpoint (spec §6: "GET /health -> {status, database, langfuse}").
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("unwrap sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) GetByID(ctx context.Context, id string) (*interfaces.DocumentRecord, error) {
	var doc Document
	if err := s.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return toRecord(&doc), nil
}

func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]*interfaces.DocumentRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var docs []Document
	if err := s.db.WithContext(ctx).Find(&docs, "id IN ?", ids).Error; err != nil {
		return nil, fmt.Errorf("get documents %v: %w", ids, err)
	}
	byID := make(map[string]*Document, len(docs))
	for i := range docs {
		byID[docs[i].ID] = &docs[i]
	}
	out := make([]*interfaces.DocumentRecord, 0, len(ids))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			out = append(out, toRecord(d))
		}
	}
	return out, nil
}

// ListAll returns every document's id and metadata, used once at
// startup to build the in-process relation graph (spec §4.9: "built
// once from document metadata"). Content is omitted since the graph
// only needs category/intent/clarifying-topic fields.
func (s *Store) ListAll(ctx context.Context) ([]*interfaces.DocumentRecord, error) {
	var docs []Document
	if err := s.db.WithContext(ctx).Select("id", "metadata").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	out := make([]*interfaces.DocumentRecord, 0, len(docs))
	for i := range docs {
		out = append(out, toRecord(&docs[i]))
	}
	return out, nil
}

// ftsConfigFor picks the Postgres text-search configuration: Latin-
// character queries force "english" (spec §4.4 step 2), otherwise the
// document language's own configuration is used.
func ftsConfigFor(query, language string) string {
	isLatin := true
	for _, r := range query {
		if r > 0x024F { // beyond extended Latin
			isLatin = false
			break
		}
	}
	if isLatin || language == "" {
		return "english"
	}
	switch language {
	case "ru":
		return "russian"
	default:
		return "english"
	}
}

// cleanToWordTokensOR builds "word1 | word2 | ..." for to_tsquery from a
// raw query string (spec §4.4: "cleaned to word tokens joined by OR").
func cleanToWordTokensOR(query string) string {
	fields := strings.Fields(query)
	cleaned := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:()\"'")
		if f != "" {
			cleaned = append(cleaned, f)
		}
	}
	return strings.Join(cleaned, " | ")
}

// FullTextSearch runs the tsvector/GIN query, falling back to a
// substring ILIKE scan on any failure (spec §4.4/§7: "A full-text
// failure falls back to a substring ILIKE scan").
func (s *Store) FullTextSearch(ctx context.Context, query, language, categoryFilter string, limit int) ([]*interfaces.DocumentRecord, error) {
	config := ftsConfigFor(query, language)
	tsQuery := cleanToWordTokensOR(query)
	if tsQuery == "" {
		return nil, nil
	}

	sql := `SELECT id, content, metadata,
		ts_rank(search_vector, to_tsquery(?, ?)) AS rank
		FROM documents
		WHERE search_vector @@ to_tsquery(?, ?)`
	args := []interface{}{config, tsQuery, config, tsQuery}
	if categoryFilter != "" {
		sql += " AND metadata->>'category' = ?"
		args = append(args, categoryFilter)
	}
	sql += " ORDER BY rank DESC LIMIT ?"
	args = append(args, limit)

	var rows []struct {
		ID       string
		Content  string
		Metadata json.RawMessage
		Rank     float64
	}
	if err := s.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		logger.GetLogger(ctx).Warnf("full-text search failed, falling back to substring scan: %v", err)
		return s.SubstringSearch(ctx, query, categoryFilter, limit)
	}

	out := make([]*interfaces.DocumentRecord, 0, len(rows))
	for _, r := range rows {
		meta := map[string]interface{}{}
		_ = json.Unmarshal(r.Metadata, &meta)
		out = append(out, &interfaces.DocumentRecord{ID: r.ID, Content: r.Content, Metadata: meta, Rank: r.Rank})
	}
	return out, nil
}

// SubstringSearch is the ILIKE fallback path (spec §4.4/§7).
func (s *Store) SubstringSearch(ctx context.Context, query, categoryFilter string, limit int) ([]*interfaces.DocumentRecord, error) {
	tx := s.db.WithContext(ctx).Where("content ILIKE ?", "%"+query+"%")
	if categoryFilter != "" {
		tx = tx.Where("metadata->>'category' = ?", categoryFilter)
	}
	var docs []Document
	if err := tx.Limit(limit).Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("substring search: %w", err)
	}
	out := make([]*interfaces.DocumentRecord, 0, len(docs))
	for i := range docs {
		out = append(out, toRecord(&docs[i]))
	}
	return out, nil
}

func toRecord(d *Document) *interfaces.DocumentRecord {
	meta := map[string]interface{}{}
	_ = json.Unmarshal(d.Metadata, &meta)
	return &interfaces.DocumentRecord{ID: d.ID, Content: d.Content, Metadata: meta}
}

var _ interfaces.DocumentStore = (*Store)(nil)
