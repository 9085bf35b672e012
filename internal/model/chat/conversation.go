package chat

import "time"

// DefaultTitle is assigned to conversations created without a title.
const DefaultTitle = "New Research"

// Conversation groups the turns of a single research thread.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
