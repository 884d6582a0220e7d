package store

type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Snapshot is a point-in-time copy of a conversation, safe to render.
type Snapshot struct {
	Messages []Message `json:"messages"`
	Pending  bool      `json:"pending"`
	Draft    string    `json:"draft"`
}
