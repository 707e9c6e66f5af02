package chat

// Inbound event and outbound message shapes of the chat platform. The
// transport itself is opaque: it delivers one Event per invocation and
// accepts one OutgoingMessage back.

// Event is the platform's webhook payload. Only MESSAGE events are acted on.
type Event struct {
	Type    string   `json:"type"`
	Space   Space    `json:"space"`
	User    User     `json:"user"`
	Message *Message `json:"message,omitempty"`
}

// Space identifies the conversation (a DM or a multi-party room). Its Name is
// the conversation key.
type Space struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// User is a chat participant.
type User struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Type        string `json:"type,omitempty"`
}

// Message is the message body of a MESSAGE event.
type Message struct {
	Text         string        `json:"text"`
	ArgumentText string        `json:"argumentText"`
	SlashCommand *SlashCommand `json:"slashCommand,omitempty"`
	Annotations  []Annotation  `json:"annotations,omitempty"`
}

// SlashCommand carries the numeric id of an invoked slash command.
type SlashCommand struct {
	CommandID int64 `json:"commandId,string"`
}

// Annotation marks a structured span inside the message text. Mentions are
// located via StartIndex/Length, never by searching for the display name.
type Annotation struct {
	Type        string       `json:"type"`
	StartIndex  int          `json:"startIndex"`
	Length      int          `json:"length"`
	UserMention *UserMention `json:"userMention,omitempty"`
}

// UserMention identifies the participant an annotation refers to.
type UserMention struct {
	User User `json:"user"`
}

// Reply is the bot's answer to one event. Private replies are shown only to
// the triggering user (usage errors, source link).
type Reply struct {
	Text    string
	Private bool
}

// OutgoingMessage is the platform's reply message shape.
type OutgoingMessage struct {
	Text                 string `json:"text,omitempty"`
	PrivateMessageViewer *User  `json:"privateMessageViewer,omitempty"`
}

// Outgoing converts the reply into the platform message addressed to viewer
// when private.
func (r *Reply) Outgoing(viewer User) OutgoingMessage {
	out := OutgoingMessage{Text: r.Text}
	if r.Private && viewer.Name != "" {
		out.PrivateMessageViewer = &User{Name: viewer.Name}
	}
	return out
}
