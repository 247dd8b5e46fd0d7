package chat

import "time"

// Role marks who produced a transcript entry.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Label is the visible prefix rendered before the message text.
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleBot:
		return "Bot"
	default:
		return string(r)
	}
}

// Class is the CSS class marker carried by rendered entries of this role.
func (r Role) Class() string {
	return string(r) + "-message"
}

// Message is one turn of the conversation. It is never mutated after creation.
type Message struct {
	ID        string    `json:"id,omitempty"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Display renders the message the way the transcript shows it.
func (m Message) Display() string {
	return m.Role.Label() + ": " + m.Text
}
