// internal/models/conversation.go
package models

import "time"

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Agent tags recorded on assistant turns.
const (
	AgentTagClimate   = "climate"
	AgentTagRisk      = "risk"
	AgentTagSynthesis = "synthesis"
	AgentTagCanned    = "canned"
)

// Turn is one entry of a conversation. Turns are values and are never
// modified after they are appended.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	AgentTag  string    `json:"agentTag,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
