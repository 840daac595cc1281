// Package docther is the orchestration core of the DoctHER assistant: it
// aggregates tools from connected MCP servers into a registry and drives the
// two-phase tool-use conversation loop against a chat model.
package docther

import (
	"sync"

	"github.com/docther/docther/pkg/models"
)

// Conversation is an append-only turn history owned by the caller. It is safe
// for concurrent use.
type Conversation struct {
	mu    sync.Mutex
	turns []models.Turn
}

// NewConversation returns an empty history.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Append adds a turn to the history.
func (c *Conversation) Append(turn models.Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, turn)
}

// Turns returns a copy of the full history.
func (c *Conversation) Turns() []models.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Turn(nil), c.turns...)
}

// Window returns a copy of the most recent k turns. k <= 0 means the whole
// history.
func (c *Conversation) Window(k int) []models.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if k <= 0 || k >= len(c.turns) {
		return append([]models.Turn(nil), c.turns...)
	}
	return append([]models.Turn(nil), c.turns[len(c.turns)-k:]...)
}

// Len reports the number of turns recorded.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// Clear discards the history.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
}
