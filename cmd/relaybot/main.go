package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/comigor/relaybot/internal/agent"
	"github.com/comigor/relaybot/internal/chat"
	"github.com/comigor/relaybot/internal/config"
	"github.com/comigor/relaybot/internal/gemini"
	"github.com/comigor/relaybot/internal/history"
	"github.com/comigor/relaybot/internal/logger"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Log.Level)

	// Initialize history store
	store, err := history.NewStore(cfg.History.DBPath)
	if err != nil {
		logger.L.Error("failed to open history store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Initialize Gemini client and agent
	backend := gemini.NewClient(cfg.Gemini)
	classifier := &chat.Classifier{BotUser: cfg.Bot.User, SourceURL: cfg.Bot.SourceURL}
	bot := agent.New(store, backend, classifier, cfg.History.MaxTurns)

	// Initialize router
	mux := http.NewServeMux()

	// chat event webhook
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		eventID := uuid.NewString()

		var ev chat.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			logger.L.Error("malformed event payload", "event_id", eventID, "error", err)
			http.Error(w, "failed to decode event", http.StatusBadRequest)
			return
		}
		logger.L.Info("event received",
			"event_id", eventID, "type", ev.Type, "space", ev.Space.Name)

		reply := bot.HandleEvent(r.Context(), ev)

		w.Header().Set("Content-Type", "application/json")
		if reply == nil {
			// Ignored events still get a well-formed empty message.
			w.Write([]byte("{}"))
			return
		}
		if err := json.NewEncoder(w).Encode(reply.Outgoing(ev.User)); err != nil {
			logger.L.Error("failed to encode reply", "event_id", eventID, "error", err)
		}
	})

	// Start server
	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.L.Info("starting server", "address", serverAddr)
	if err := http.ListenAndServe(serverAddr, mux); err != nil {
		logger.L.Error("failed to start server", "error", err)
	}
}
