// Package session holds per-conversation state: the ordered turns and
// the last concrete location a turn resolved to.
package session

import (
	"strings"
	"time"

	"climate-risk-advisor/internal/models"
)

// State is one conversation. It is not safe for concurrent use; the
// Manager guarantees a single turn touches it at a time.
type State struct {
	id           string
	turns        []models.Turn
	lastLocation string
	hasLocation  bool
	window       int
	updatedAt    time.Time
	now          func() time.Time
}

// NewState creates an empty conversation. window bounds the number of
// exchanges (user turns and their replies) replayed by
// HistoryAsPromptContext; window <= 0 replays all.
func NewState(id string, window int) *State {
	return &State{id: id, window: window, now: time.Now}
}

func (s *State) ID() string { return s.id }

// Turns returns a copy of the turns in arrival order.
func (s *State) Turns() []models.Turn {
	out := make([]models.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *State) Len() int { return len(s.turns) }

func (s *State) AppendUserTurn(text string) {
	s.append(models.Turn{Role: models.RoleUser, Content: text})
}

func (s *State) AppendAssistantTurn(text, tag string) {
	s.append(models.Turn{Role: models.RoleAssistant, Content: text, AgentTag: tag})
}

func (s *State) append(t models.Turn) {
	t.CreatedAt = s.now().UTC()
	s.turns = append(s.turns, t)
	s.updatedAt = t.CreatedAt
}

// HistoryAsPromptContext renders the most recent exchanges as "User:"
// and "Bot:" lines in arrival order. The intermediate climate and risk
// analyses are stored but not replayed; the user only saw the final reply.
func (s *State) HistoryAsPromptContext() string {
	turns := make([]models.Turn, 0, len(s.turns))
	for _, t := range s.turns {
		if t.Role == models.RoleAssistant && (t.AgentTag == models.AgentTagClimate || t.AgentTag == models.AgentTagRisk) {
			continue
		}
		turns = append(turns, t)
	}
	turns = lastExchanges(turns, s.window)

	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		speaker := "User"
		if t.Role == models.RoleAssistant {
			speaker = "Bot"
		}
		lines = append(lines, speaker+": "+strings.TrimSpace(t.Content))
	}
	return strings.Join(lines, "\n")
}

// lastExchanges keeps the turns from the window-th most recent user turn
// onwards.
func lastExchanges(turns []models.Turn, window int) []models.Turn {
	if window <= 0 {
		return turns
	}
	users := 0
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role != models.RoleUser {
			continue
		}
		users++
		if users == window {
			return turns[i:]
		}
	}
	return turns
}

// LastLocation returns the most recent concrete location, if any.
func (s *State) LastLocation() (string, bool) {
	return s.lastLocation, s.hasLocation
}

// SetLastLocation records loc unless it is the sentinel. It reports
// whether the value was stored.
func (s *State) SetLastLocation(loc string) bool {
	loc = strings.TrimSpace(loc)
	if models.IsSentinelLocation(loc) {
		return false
	}
	s.lastLocation = loc
	s.hasLocation = true
	return true
}

// Reset forgets all turns and the last location.
func (s *State) Reset() {
	s.turns = nil
	s.lastLocation = ""
	s.hasLocation = false
}

// snapshot is the persisted form of a State.
type snapshot struct {
	ID           string        `json:"id"`
	Turns        []models.Turn `json:"turns"`
	LastLocation *string       `json:"lastLocation,omitempty"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

func (s *State) snapshot() snapshot {
	snap := snapshot{ID: s.id, Turns: s.Turns(), UpdatedAt: s.updatedAt}
	if s.hasLocation {
		loc := s.lastLocation
		snap.LastLocation = &loc
	}
	return snap
}

func fromSnapshot(snap snapshot, window int) *State {
	s := NewState(snap.ID, window)
	s.turns = append([]models.Turn(nil), snap.Turns...)
	s.updatedAt = snap.UpdatedAt
	if snap.LastLocation != nil {
		s.lastLocation = *snap.LastLocation
		s.hasLocation = true
	}
	return s
}
