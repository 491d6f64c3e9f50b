package chat

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"

	DefaultMaxEntries = 100
)

var ErrInvalidEntry = errors.New("chat: invalid entry")

// Entry is one turn of the conversation.
type Entry struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"-"`
}

func NewEntry(role Role, content string) Entry {
	return Entry{Role: role, Content: content, CreatedAt: time.Now().UTC()}
}

func (e Entry) validate() error {
	if e.Role != RoleUser && e.Role != RoleAssistant {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidEntry, e.Role)
	}
	return nil
}

// History is a bounded conversation log safe for concurrent use. Appends
// beyond the bound evict the oldest entries.
type History interface {
	Append(ctx context.Context, entries ...Entry) error
	List(ctx context.Context) ([]Entry, error)
	Clear(ctx context.Context) error
}

func validateAll(entries []Entry) error {
	for _, e := range entries {
		if err := e.validate(); err != nil {
			return err
		}
	}
	return nil
}

func stamp(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	now := time.Now().UTC()
	for i, e := range entries {
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		out[i] = e
	}
	return out
}
