package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// InboxMessage is a passive in-app alert, shown in the UI the next time the
// user opens the app. It is the lowest rung of the delivery ladder.
type InboxMessage struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// Inbox is a bounded in-memory ring of passive messages.
type Inbox struct {
	mu       sync.Mutex
	messages []InboxMessage
	limit    int
}

func NewInbox(limit int) *Inbox {
	if limit <= 0 {
		limit = 50
	}
	return &Inbox{limit: limit}
}

func (i *Inbox) Add(title, body string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.messages = append(i.messages, InboxMessage{
		ID:        uuid.NewString(),
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	})
	if len(i.messages) > i.limit {
		i.messages = i.messages[len(i.messages)-i.limit:]
	}
}

// Messages returns a copy of the current messages, newest last.
func (i *Inbox) Messages() []InboxMessage {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := make([]InboxMessage, len(i.messages))
	copy(out, i.messages)
	return out
}
