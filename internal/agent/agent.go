package agent

import (
	"context"

	"github.com/qmuntal/stateless"

	"github.com/comigor/relaybot/internal/chat"
	"github.com/comigor/relaybot/internal/gemini"
	"github.com/comigor/relaybot/internal/history"
	"github.com/comigor/relaybot/internal/logger"
)

// FSM states of one conversation turn
type FSMState stateless.State

var (
	StateIdle           FSMState = "Idle"
	StateLoadingHistory FSMState = "LoadingHistory"
	StateCallingModel   FSMState = "CallingModel"
	StatePersisting     FSMState = "Persisting"
	StateDone           FSMState = "Done"
)

// FSM triggers
type FSMTrigger stateless.Trigger

var (
	TriggerTurnStarted   FSMTrigger = "TurnStarted"
	TriggerHistoryLoaded FSMTrigger = "HistoryLoaded"
	TriggerModelReplied  FSMTrigger = "ModelReplied"
	TriggerModelFailed   FSMTrigger = "ModelFailed"
	TriggerPersisted     FSMTrigger = "Persisted"
)

// Generator is the minimal backend surface the agent needs; easy to mock in
// tests.
type Generator interface {
	Generate(ctx context.Context, h history.History, variant gemini.ModelVariant) (string, error)
}

const (
	clearedReply   = "Conversation history cleared."
	nothingToClear = "No conversation history found for this chat to clear."
	clearFailed    = "Failed to clear conversation history. Please try again."
)

// Agent drives full conversation turns: load history, append the user
// message, call the backend, persist, reply. It holds no per-conversation
// state between invocations; everything lives in the store.
type Agent struct {
	store      *history.Store
	backend    Generator
	classifier *chat.Classifier
	maxTurns   int
}

// New creates a new agent.
func New(store *history.Store, backend Generator, classifier *chat.Classifier, maxTurns int) *Agent {
	if maxTurns <= 0 {
		maxTurns = history.DefaultMaxTurns
	}
	return &Agent{
		store:      store,
		backend:    backend,
		classifier: classifier,
		maxTurns:   maxTurns,
	}
}

// HandleEvent classifies one inbound event and produces its reply, or nil
// when the event is to be ignored. Every classified intent yields a reply;
// failures become reply text, never transport errors.
func (a *Agent) HandleEvent(ctx context.Context, ev chat.Event) *chat.Reply {
	intent := a.classifier.Classify(ev)
	switch intent.Kind {
	case chat.IntentClearHistory:
		return &chat.Reply{Text: a.clearHistory(ctx, intent.Key)}
	case chat.IntentNewChat:
		// Reset, then run the fresh prompt from an empty history.
		if _, err := a.store.Delete(ctx, intent.Key); err != nil {
			logger.L.Error("failed to reset history", "key", intent.Key, "error", err)
		}
		return &chat.Reply{Text: a.RunTurn(ctx, intent.Key, intent.Prompt, intent.Variant)}
	case chat.IntentChatTurn:
		return &chat.Reply{Text: a.RunTurn(ctx, intent.Key, intent.Prompt, intent.Variant)}
	case chat.IntentUsageError, chat.IntentUnknownCommand, chat.IntentGetSource:
		return &chat.Reply{Text: intent.Reply, Private: true}
	default:
		return nil
	}
}

// RunTurn executes one conversation turn as a state machine:
// Idle -> LoadingHistory -> CallingModel -> Persisting -> Done.
// The history is persisted for success and failure alike: a failed turn
// keeps the user message but gains no model entry.
func (a *Agent) RunTurn(ctx context.Context, key, prompt string, variant gemini.ModelVariant) string {
	if key == "" || prompt == "" {
		return ""
	}

	type turnContext struct {
		h     history.History
		reply string
	}
	turn := &turnContext{}

	fsm := stateless.NewStateMachine(StateIdle)

	fsm.Configure(StateIdle).
		Permit(TriggerTurnStarted, StateLoadingHistory)

	fsm.Configure(StateLoadingHistory).
		OnEntry(func(ctx context.Context, _ ...any) error {
			turn.h = a.store.Load(ctx, key)
			turn.h = append(turn.h, history.Message{Role: history.RoleUser, Text: prompt})
			turn.h = history.EnforceCap(turn.h, a.maxTurns)
			return fsm.FireCtx(ctx, TriggerHistoryLoaded)
		}).
		Permit(TriggerHistoryLoaded, StateCallingModel)

	fsm.Configure(StateCallingModel).
		OnEntry(func(ctx context.Context, _ ...any) error {
			text, err := a.backend.Generate(ctx, turn.h, variant)
			if err != nil {
				logger.L.Warn("model call failed", "key", key, "error", err)
				turn.reply = err.Error()
				return fsm.FireCtx(ctx, TriggerModelFailed)
			}
			turn.reply = text
			turn.h = append(turn.h, history.Message{Role: history.RoleModel, Text: text})
			turn.h = history.EnforceCap(turn.h, a.maxTurns)
			return fsm.FireCtx(ctx, TriggerModelReplied)
		}).
		Permit(TriggerModelReplied, StatePersisting).
		Permit(TriggerModelFailed, StatePersisting)

	fsm.Configure(StatePersisting).
		OnEntry(func(ctx context.Context, _ ...any) error {
			// A lost save still returns the reply; last-write-wins races on
			// one key are accepted.
			if err := a.store.Save(ctx, key, turn.h); err != nil {
				logger.L.Error("failed to persist history", "key", key, "error", err)
			}
			return fsm.FireCtx(ctx, TriggerPersisted)
		}).
		Permit(TriggerPersisted, StateDone)

	fsm.Configure(StateDone)

	if err := fsm.FireCtx(ctx, TriggerTurnStarted); err != nil {
		logger.L.Error("turn state machine error", "key", key, "error", err)
	}
	return turn.reply
}

func (a *Agent) clearHistory(ctx context.Context, key string) string {
	existed, err := a.store.Delete(ctx, key)
	if err != nil {
		logger.L.Error("failed to clear history", "key", key, "error", err)
		return clearFailed
	}
	if !existed {
		return nothingToClear
	}
	return clearedReply
}
