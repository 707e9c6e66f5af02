package chat

import (
	"strings"

	"github.com/comigor/relaybot/internal/gemini"
)

// IntentKind discriminates what an inbound event asks for.
type IntentKind int

const (
	IntentIgnore IntentKind = iota
	IntentChatTurn
	IntentClearHistory
	IntentNewChat
	IntentUnknownCommand
	IntentUsageError
	IntentGetSource
)

// Intent is the classified outcome of one event. It is transient and never
// persisted. Reply carries the terminal reply text for the kinds that answer
// without running a turn.
type Intent struct {
	Kind    IntentKind
	Key     string
	Prompt  string
	Variant gemini.ModelVariant
	Reply   string
}

const (
	eventTypeMessage = "MESSAGE"
	spaceTypeDM      = "DM"
	userTypeBot      = "BOT"

	annotationUserMention = "USER_MENTION"
)

// Slash command ids as registered with the platform.
const (
	commandChat         = 1
	commandChatPro      = 2
	commandClearHistory = 3
	commandNewChat      = 4
	commandGetSource    = 5
)

const (
	proPrefix         = "use pro."
	clearAlias        = "clear history"
	unknownCmdReply   = "Unknown command. Available commands: /chat, /pro, /newchat, /clearhistory, /source."
	usageChatReply    = "Please provide a prompt, e.g. `/chat What is the capital of France?`"
	usageChatProReply = "Please provide a prompt, e.g. `/pro What is the capital of France?`"
	usageNewChatReply = "Please provide a prompt to start the new conversation, e.g. `/newchat Let's talk about history.`"
)

// Classifier turns platform events into intents. BotUser is the bot's own
// resource name (users/...), needed to recognize mentions of itself.
type Classifier struct {
	BotUser   string
	SourceURL string
}

// Classify inspects an inbound event and produces its Intent. It is pure:
// the same event always yields the same intent.
func (c *Classifier) Classify(ev Event) Intent {
	if ev.Type != eventTypeMessage || ev.Message == nil {
		return Intent{Kind: IntentIgnore}
	}
	// Automated participants never produce turns, loops included.
	if ev.User.Type == userTypeBot {
		return Intent{Kind: IntentIgnore}
	}

	key := ev.Space.Name
	if ev.Message.SlashCommand != nil {
		return c.classifyCommand(ev, key, ev.Message.SlashCommand.CommandID)
	}

	prompt := c.candidatePrompt(ev)
	if isClearHistoryPhrase(prompt) {
		return Intent{Kind: IntentClearHistory, Key: key}
	}

	variant := gemini.VariantStandard
	if rest, ok := stripProPrefix(prompt); ok {
		prompt = rest
		variant = gemini.VariantPro
	}
	if prompt == "" {
		return Intent{Kind: IntentIgnore}
	}

	return Intent{
		Kind:    IntentChatTurn,
		Key:     key,
		Prompt:  c.withAuthorPreamble(ev, prompt),
		Variant: variant,
	}
}

func (c *Classifier) classifyCommand(ev Event, key string, id int64) Intent {
	arg := strings.TrimSpace(ev.Message.ArgumentText)
	switch id {
	case commandClearHistory:
		return Intent{Kind: IntentClearHistory, Key: key}
	case commandChat:
		if arg == "" {
			return Intent{Kind: IntentUsageError, Key: key, Reply: usageChatReply}
		}
		return Intent{Kind: IntentChatTurn, Key: key, Prompt: c.withAuthorPreamble(ev, arg), Variant: gemini.VariantStandard}
	case commandChatPro:
		if arg == "" {
			return Intent{Kind: IntentUsageError, Key: key, Reply: usageChatProReply}
		}
		return Intent{Kind: IntentChatTurn, Key: key, Prompt: c.withAuthorPreamble(ev, arg), Variant: gemini.VariantPro}
	case commandNewChat:
		if arg == "" {
			return Intent{Kind: IntentUsageError, Key: key, Reply: usageNewChatReply}
		}
		return Intent{Kind: IntentNewChat, Key: key, Prompt: c.withAuthorPreamble(ev, arg), Variant: gemini.VariantStandard}
	case commandGetSource:
		return Intent{Kind: IntentGetSource, Key: key, Reply: "Source code: " + c.SourceURL}
	default:
		return Intent{Kind: IntentUnknownCommand, Key: key, Reply: unknownCmdReply}
	}
}

// candidatePrompt extracts the raw prompt text. In a DM the whole message is
// eligible. In a room the bot must be mentioned; the prompt is the text
// strictly after the first mention annotation referencing the bot, located by
// offset and length (the display name may legitimately appear elsewhere in
// the text).
func (c *Classifier) candidatePrompt(ev Event) string {
	text := ev.Message.Text
	if ev.Space.Type == spaceTypeDM {
		return strings.TrimSpace(text)
	}

	for _, a := range ev.Message.Annotations {
		if a.Type != annotationUserMention || a.UserMention == nil {
			continue
		}
		if a.UserMention.User.Name != c.BotUser {
			continue
		}
		end := a.StartIndex + a.Length
		if a.StartIndex < 0 || a.Length < 0 || end > len(text) {
			return ""
		}
		return strings.TrimSpace(text[end:])
	}
	return ""
}

// withAuthorPreamble prepends the sender's display name in multi-party
// spaces, so the model can follow who is speaking. This is prompt shaping
// only and is never stored as structured metadata.
func (c *Classifier) withAuthorPreamble(ev Event, prompt string) string {
	if ev.Space.Type == spaceTypeDM || ev.User.DisplayName == "" {
		return prompt
	}
	return ev.User.DisplayName + ": " + prompt
}

// isClearHistoryPhrase matches the plain-text alias for clearing history: the
// whole candidate prompt, case-insensitively, allowing one trailing
// punctuation mark.
func isClearHistoryPhrase(s string) bool {
	s = strings.TrimSpace(s)
	if n := len(s); n > 0 && strings.ContainsRune(".!?", rune(s[n-1])) {
		s = strings.TrimSpace(s[:n-1])
	}
	return strings.EqualFold(s, clearAlias)
}

// stripProPrefix detects the "use pro." prompt prefix selecting the
// higher-capability model and strips it, delimiter included.
func stripProPrefix(s string) (string, bool) {
	if len(s) < len(proPrefix) || !strings.EqualFold(s[:len(proPrefix)], proPrefix) {
		return s, false
	}
	return strings.TrimSpace(s[len(proPrefix):]), true
}
