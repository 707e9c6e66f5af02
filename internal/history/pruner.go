package history

import "github.com/comigor/relaybot/internal/logger"

// PlaceholderText seeds a submission whose history does not start with a user
// message. Prepending it satisfies the backend's role requirement without
// discarding real model turns.
const PlaceholderText = "(Context starts)"

// DefaultMaxTurns caps how many history entries are kept per conversation.
const DefaultMaxTurns = 20

// PrepareForSubmission normalizes a history for the backend: adjacent entries
// with the same role are merged (texts joined with a newline, in order) and
// malformed entries are skipped with a warning. The input is never mutated.
//
// The returned flag is true when the caller must prepend a synthetic
// user-role placeholder entry: the normalized sequence is empty, or its first
// entry is a model turn.
func PrepareForSubmission(h History) (History, bool) {
	normalized := make(History, 0, len(h))
	for _, m := range h {
		if !m.Role.IsValid() || m.Text == "" {
			logger.L.Warn("skipping malformed history entry", "role", string(m.Role))
			continue
		}
		if n := len(normalized); n > 0 && normalized[n-1].Role == m.Role {
			normalized[n-1].Text += "\n" + m.Text
			continue
		}
		normalized = append(normalized, m)
	}

	needsPlaceholder := len(normalized) == 0 || normalized[0].Role != RoleUser
	return normalized, needsPlaceholder
}

// EnforceCap drops the oldest entries until at most maxTurns remain. If the
// surviving first entry is a model turn it is dropped too, accepting a
// shorter-than-cap result, so that stored histories keep starting with a user
// message.
func EnforceCap(h History, maxTurns int) History {
	if maxTurns <= 0 || len(h) <= maxTurns {
		return h
	}
	h = h[len(h)-maxTurns:]
	if len(h) > 0 && h[0].Role == RoleModel {
		h = h[1:]
	}
	return h
}
