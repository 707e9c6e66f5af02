package history

// Role identifies the speaker of a message. The generative backend only
// accepts these two values and rejects histories that do not start with
// RoleUser.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// IsValid reports whether r is one of the two known roles.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleModel
}

// Message is a single conversational message. The backend wire format wraps
// the text in a one-element parts list; internally a message is always
// single-part.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// History is an ordered, chronological sequence of messages for one
// conversation.
type History []Message
