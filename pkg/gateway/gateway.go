// Package gateway is the council's client-facing surface: a websocket
// endpoint for streaming consultations plus the JSON HTTP API for sessions,
// history, credit purchases, and the synchronous chat fallback.
package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sagecouncil/council/pkg/council"
	"github.com/sagecouncil/council/pkg/ledger"
	"github.com/sagecouncil/council/pkg/sage"
	"github.com/sagecouncil/council/pkg/store"
)

// DefaultInitialCredits is granted to every new session.
const DefaultInitialCredits = 10

// Gateway serves the council over HTTP and websocket.
type Gateway struct {
	Orchestrator *council.Orchestrator
	Registry     *sage.Registry
	Store        *store.Store
	Ledger       *ledger.Ledger
	Logger       *slog.Logger

	// InitialCredits is the grant for new sessions. Zero means
	// DefaultInitialCredits.
	InitialCredits int

	sessions registry
}

// New builds a gateway over the orchestrator and its stores.
func New(o *council.Orchestrator, st *store.Store, l *ledger.Ledger) *Gateway {
	return &Gateway{
		Orchestrator: o,
		Registry:     o.Registry,
		Store:        st,
		Ledger:       l,
		Logger:       slog.Default(),
	}
}

func (g *Gateway) initialCredits() int {
	if g.InitialCredits > 0 {
		return g.InitialCredits
	}
	return DefaultInitialCredits
}

// Handler returns the gateway's route table.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", g.handleWS)
	mux.HandleFunc("/api/session", g.handleSession)
	mux.HandleFunc("/api/sages", g.handleSages)
	mux.HandleFunc("/api/messages/", g.handleMessages)
	mux.HandleFunc("/api/chat", g.handleChat)
	mux.HandleFunc("/api/credits/purchase", g.handlePurchase)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleSession creates (or revisits) a session and its credit grant.
// The client may bring its own session id; otherwise one is issued.
func (g *Gateway) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	u, err := g.Store.CreateUser(r.Context(), req.SessionID, g.initialCredits())
	if err != nil {
		g.Logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": u.SessionID,
		"credits":   u.Credits,
	})
}

// handleSages lists the catalogue, prompts omitted.
func (g *Gateway) handleSages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	type entry struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Title string `json:"title"`
	}
	all := g.Registry.All()
	out := make([]entry, len(all))
	for i, s := range all {
		out[i] = entry{ID: s.ID, Name: s.Name, Title: s.Title}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleMessages returns a session's history, oldest first.
func (g *Gateway) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sessionID := strings.TrimPrefix(r.URL.Path, "/api/messages/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		writeError(w, http.StatusBadRequest, "Session id is required")
		return
	}
	if _, err := g.Store.GetUser(r.Context(), sessionID); errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "Session not found")
		return
	} else if err != nil {
		g.Logger.Error("load session", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load messages")
		return
	}
	msgs, err := g.Store.Messages(r.Context(), sessionID)
	if err != nil {
		g.Logger.Error("load messages", "session", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load messages")
		return
	}
	if msgs == nil {
		msgs = []*store.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// handlePurchase grants purchased credits. Payment itself happens upstream;
// this endpoint only applies the grant.
func (g *Gateway) handlePurchase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		SessionID string `json:"sessionId"`
		Amount    int    `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "Amount must be positive")
		return
	}
	if err := g.Ledger.Grant(r.Context(), req.SessionID, req.Amount); err != nil {
		if errors.Is(err, ledger.ErrUnknownSession) {
			writeError(w, http.StatusUnauthorized, "Session not found")
			return
		}
		g.Logger.Error("purchase", "session", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to add credits")
		return
	}
	balance, err := g.Ledger.Balance(r.Context(), req.SessionID)
	if err != nil {
		g.Logger.Error("balance after purchase", "session", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to add credits")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"credits": balance})
}

// handleChat is the synchronous fallback for clients without a websocket:
// same validation and credit semantics as the streaming path, but the
// response carries only the final texts.
func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Content       string   `json:"content"`
		SelectedSages []string `json:"selectedSages"`
		SessionID     string   `json:"sessionId"`
		MessageID     int64    `json:"messageId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	creq := &council.Request{
		ID:        req.MessageID,
		SessionID: req.SessionID,
		Content:   req.Content,
		SageIDs:   req.SelectedSages,
	}
	if creq.ID == 0 {
		creq.ID = council.NewRequestID()
	}
	responses, err := g.Orchestrator.Ask(r.Context(), creq)
	if err != nil {
		status, msg := chatError(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"responses": responses,
		"messageId": creq.ID,
	})
}

// chatError maps request-level failures to HTTP status and seeker-facing
// copy.
func chatError(err error) (int, string) {
	switch {
	case errors.Is(err, council.ErrEmptyContent):
		return http.StatusBadRequest, "Question content is required"
	case errors.Is(err, council.ErrNoValidSages):
		return http.StatusBadRequest, "No valid sages selected"
	case errors.Is(err, ledger.ErrUnknownSession):
		return http.StatusUnauthorized, "Session not found"
	case errors.Is(err, ledger.ErrInsufficientCredit):
		return http.StatusForbidden, "Insufficient credits. Please purchase more to continue."
	case errors.Is(err, council.ErrAllFailed):
		return http.StatusInternalServerError, "The sages are unavailable right now. Please try again."
	default:
		return http.StatusInternalServerError, "Failed to process your request"
	}
}
