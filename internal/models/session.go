package models

import (
	"context"
	"time"
)

// TurnRecord is an audited conversation turn as stored in Postgres.
type TurnRecord struct {
	ID         int64     `json:"id" db:"id"`
	SessionID  string    `json:"sessionId" db:"session_id"`
	Role       Role      `json:"role" db:"role"`
	Content    string    `json:"content" db:"content"`
	AgentTag   string    `json:"agentTag,omitempty" db:"agent_tag"`
	Location   string    `json:"location,omitempty" db:"location"`
	Confidence float64   `json:"confidence,omitempty" db:"confidence"`
	Outcome    string    `json:"outcome,omitempty" db:"outcome"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// TurnRepository defines audit log access.
type TurnRepository interface {
	Record(ctx context.Context, rec TurnRecord) error
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]TurnRecord, error)
}
