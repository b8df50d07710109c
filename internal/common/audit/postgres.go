// Package audit keeps an append-only log of conversation turns in Postgres.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	apperrors "climate-risk-advisor/internal/common/errors"
	"climate-risk-advisor/internal/common/logger"
	"climate-risk-advisor/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversation_turns (
	id          BIGSERIAL PRIMARY KEY,
	session_id  TEXT NOT NULL,
	role        TEXT NOT NULL,
	content     TEXT NOT NULL,
	agent_tag   TEXT,
	location    TEXT,
	confidence  DOUBLE PRECISION,
	outcome     TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_conversation_turns_session
	ON conversation_turns (session_id, created_at);`

const insertTurn = `
INSERT INTO conversation_turns
	(session_id, role, content, agent_tag, location, confidence, outcome, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const selectRecent = `
SELECT id, session_id, role, content, agent_tag, location, confidence, outcome, created_at
FROM conversation_turns
WHERE session_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`

// DefaultLimit bounds RecentTurns when the caller passes no limit.
const DefaultLimit = 50

// PostgresRecorder implements models.TurnRepository.
type PostgresRecorder struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

var _ models.TurnRepository = (*PostgresRecorder)(nil)

func NewPostgresRecorder(db *sql.DB, log logger.Logger) *PostgresRecorder {
	return &PostgresRecorder{
		db:     db,
		logger: log.With(map[string]interface{}{"component": "audit"}),
		now:    time.Now,
	}
}

// EnsureSchema creates the turns table if it does not exist.
func (r *PostgresRecorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

// Record appends one turn.
func (r *PostgresRecorder) Record(ctx context.Context, rec models.TurnRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now().UTC()
	}

	var confidence sql.NullFloat64
	if rec.Location != "" {
		confidence = sql.NullFloat64{Float64: rec.Confidence, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, insertTurn,
		rec.SessionID,
		string(rec.Role),
		rec.Content,
		nullString(rec.AgentTag),
		nullString(rec.Location),
		confidence,
		nullString(rec.Outcome),
		rec.CreatedAt,
	)
	if err != nil {
		r.logger.Warn("failed to record turn", map[string]interface{}{
			"sessionId": rec.SessionID,
			"error":     err.Error(),
		})
		return apperrors.NewAuditWriteError(err)
	}
	return nil
}

// RecentTurns returns up to limit turns of a session, oldest first.
func (r *PostgresRecorder) RecentTurns(ctx context.Context, sessionID string, limit int) ([]models.TurnRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := r.db.QueryContext(ctx, selectRecent, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var out []models.TurnRecord
	for rows.Next() {
		var (
			rec        models.TurnRecord
			role       string
			agentTag   sql.NullString
			location   sql.NullString
			confidence sql.NullFloat64
			outcome    sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &role, &rec.Content,
			&agentTag, &location, &confidence, &outcome, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		rec.Role = models.Role(role)
		rec.AgentTag = agentTag.String
		rec.Location = location.String
		rec.Confidence = confidence.Float64
		rec.Outcome = outcome.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
