package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/calvinwijaya/blackjack-wallet/internal/auth"
	"github.com/calvinwijaya/blackjack-wallet/internal/game"
	"github.com/calvinwijaya/blackjack-wallet/internal/store"
	"github.com/gorilla/mux"
)

const (
	// loadTimeout bounds the score lookup when a session is created
	loadTimeout = 5 * time.Second

	// persistTimeout bounds the writes after a finished round. They run while
	// the identity's session is locked, so keep it short.
	persistTimeout = time.Second
)

// Handlers contains all the API handlers
type Handlers struct {
	sessions store.SessionStore
	scores   store.ScoreStore
	gate     *auth.Gate
	hub      *Hub

	writeTimeout time.Duration
}

// NewHandlers creates a new instance of Handlers
func NewHandlers(sessions store.SessionStore, scores store.ScoreStore, gate *auth.Gate, hub *Hub) *Handlers {
	return &Handlers{
		sessions: sessions,
		scores:   scores,
		gate:     gate,
		hub:      hub,

		writeTimeout: persistTimeout,
	}
}

// NewSessionLoader returns a session factory that seeds each new session
// with the identity's persisted score. A missing or unreadable score counts as 0.
func NewSessionLoader(scores store.ScoreStore, rules game.Rules) func(identity string) *game.Session {
	return func(identity string) *game.Session {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		score, err := scores.GetScore(ctx, identity)
		if err != nil {
			if !errors.Is(err, store.ErrScoreNotFound) {
				log.Printf("Warning: failed to load score for %s: %v", identity, err)
			}
			score = 0
		}
		return game.NewSession(identity, score, rules)
	}
}

// RegisterRoutes registers all API routes
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	// Game endpoints
	r.HandleFunc("/api/game", h.StartGame).Methods("GET")
	r.HandleFunc("/api/game", h.Act).Methods("POST")

	// Player endpoints
	r.HandleFunc("/api/player/{identity}/stats", h.GetPlayerStats).Methods("GET")

	// WebSocket endpoint
	r.HandleFunc("/ws", h.WebSocket)
}

// response helper function to send JSON responses
func response(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// error response helper function
func errorResponse(w http.ResponseWriter, status int, message string) {
	response(w, status, map[string]string{"error": message})
}

// authorize checks the bearer token against the claimed identity
func (h *Handlers) authorize(r *http.Request, identity string) (string, error) {
	return h.gate.Authorize(auth.BearerToken(r.Header.Get("Authorization")), identity)
}

// StartGame deals a new round for the caller
func (h *Handlers) StartGame(w http.ResponseWriter, r *http.Request) {
	identity := r.URL.Query().Get("identity")
	if identity == "" {
		errorResponse(w, http.StatusBadRequest, "identity is required")
		return
	}

	identity, err := h.authorize(r, identity)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var view game.View
	err = h.sessions.Open(identity, func(s *game.Session) error {
		v, err := s.Start()
		if err != nil {
			return err
		}
		view = v

		// A natural can settle the round on the deal
		h.settle(s)
		return nil
	})
	if err != nil {
		h.actionError(w, err)
		return
	}

	h.publish(identity, view)
	response(w, http.StatusOK, view)
}

type actRequest struct {
	Action        string `json:"action"`
	Identity      string `json:"identity"`
	PlayerAddress string `json:"playerAddress"`
	Signature     string `json:"signature"`
	Message       string `json:"message"`
}

// Act dispatches auth, hit and stand
func (h *Handlers) Act(w http.ResponseWriter, r *http.Request) {
	var req actRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	identity := req.Identity
	if identity == "" {
		identity = req.PlayerAddress
	}

	switch req.Action {
	case "auth":
		h.authenticate(w, identity, req.Message, req.Signature)
	case "hit":
		h.play(w, r, identity, (*game.Session).Hit)
	case "stand":
		h.play(w, r, identity, (*game.Session).Stand)
	case "":
		errorResponse(w, http.StatusBadRequest, "action is required")
	default:
		errorResponse(w, http.StatusBadRequest, "Invalid action")
	}
}

func (h *Handlers) authenticate(w http.ResponseWriter, identity, message, signature string) {
	token, err := h.gate.IssueChallengeResponse(identity, message, signature)
	if err != nil {
		var verr *auth.ValidationError
		if errors.As(err, &verr) {
			errorResponse(w, http.StatusBadRequest, verr.Error())
			return
		}
		response(w, http.StatusUnauthorized, map[string]bool{"success": false})
		return
	}

	response(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
	})
}

func (h *Handlers) play(w http.ResponseWriter, r *http.Request, identity string, action func(*game.Session) (game.View, error)) {
	if identity == "" {
		errorResponse(w, http.StatusBadRequest, "identity is required")
		return
	}

	identity, err := h.authorize(r, identity)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var view game.View
	err = h.sessions.Update(identity, func(s *game.Session) error {
		v, err := action(s)
		if err != nil {
			return err
		}
		view = v

		h.settle(s)
		return nil
	})
	if err != nil {
		h.actionError(w, err)
		return
	}

	h.publish(identity, view)
	response(w, http.StatusOK, view)
}

// settle persists the outcome once the round is over. It runs inside the
// identity's critical section so score writes stay ordered.
func (h *Handlers) settle(s *game.Session) {
	if result, finished := s.Result(); finished {
		h.persist(result)
	}
}

// persist writes the round outcome. Failures are logged and never undo the
// round. Both writes share one deadline.
func (h *Handlers) persist(result game.RoundResult) {
	ctx, cancel := context.WithTimeout(context.Background(), h.writeTimeout)
	defer cancel()

	if err := h.scores.PutScore(ctx, result.Identity, result.Score); err != nil {
		log.Printf("Warning: failed to save score for %s: %v", result.Identity, err)
	}
	if err := h.scores.RecordRound(ctx, result); err != nil {
		log.Printf("Warning: failed to record round %s: %v", result.RoundID, err)
	}
}

func (h *Handlers) publish(identity string, view game.View) {
	if h.hub == nil {
		return
	}

	h.hub.SendToPlayer(identity, Message{
		Type:     "gameUpdate",
		RoundID:  view.RoundID,
		Identity: identity,
		Data:     view,
	})
}

func (h *Handlers) actionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrIllegalAction), errors.Is(err, store.ErrSessionNotFound):
		errorResponse(w, http.StatusConflict, "No round in progress")
	case errors.Is(err, game.ErrDeckExhausted):
		log.Printf("Round aborted: %v", err)
		errorResponse(w, http.StatusInternalServerError, "Deck exhausted")
	default:
		log.Printf("Action failed: %v", err)
		errorResponse(w, http.StatusInternalServerError, "Internal server error")
	}
}

// GetPlayerStats returns the round history summary of an identity
func (h *Handlers) GetPlayerStats(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	identity, err := auth.CanonicalIdentity(vars["identity"])
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := h.scores.PlayerStats(r.Context(), identity)
	if err != nil {
		log.Printf("Error retrieving stats for %s: %v", identity, err)
		errorResponse(w, http.StatusInternalServerError, "Error retrieving player statistics")
		return
	}

	response(w, http.StatusOK, stats)
}

// WebSocket authenticates the caller and subscribes them to their round updates
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		errorResponse(w, http.StatusServiceUnavailable, "Live updates disabled")
		return
	}

	query := r.URL.Query()
	identity, err := h.gate.Authorize(query.Get("token"), query.Get("identity"))
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	h.hub.ServeClient(w, r, identity)
}
