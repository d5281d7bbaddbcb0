package operator

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"holdem-table/holdem"
	"holdem-table/internal/session"
)

// HTTPHandler exposes operator commands to callers holding the operator
// token. The token is checked against a bcrypt hash; an empty hash turns the
// endpoints off.
type HTTPHandler struct {
	ctl       Controller
	tokenHash []byte
}

type errorResponse struct {
	Error string `json:"error"`
}

type nextHandResponse struct {
	HandNumber uint64 `json:"hand_number"`
	Dealer     string `json:"dealer"`
}

type seatState struct {
	Name       string   `json:"name"`
	Stack      int64    `json:"stack"`
	Bet        int64    `json:"bet"`
	Folded     bool     `json:"folded"`
	AllIn      bool     `json:"all_in"`
	Online     bool     `json:"online"`
	SittingOut bool     `json:"sitting_out"`
	HoleCards  []string `json:"hole_cards,omitempty"`
}

type stateResponse struct {
	HandNumber     uint64      `json:"hand_number"`
	HandInProgress bool        `json:"hand_in_progress"`
	Board          []string    `json:"board"`
	Pot            int64       `json:"pot"`
	ActorIndex     int         `json:"actor_index"`
	DealerIndex    int         `json:"dealer_index"`
	Winners        []string    `json:"winners"`
	Seats          []seatState `json:"seats"`
}

func NewHTTPHandler(ctl Controller, tokenHash string) *HTTPHandler {
	return &HTTPHandler{ctl: ctl, tokenHash: []byte(strings.TrimSpace(tokenHash))}
}

// Enabled reports whether an operator token hash is configured.
func (h *HTTPHandler) Enabled() bool {
	return len(h.tokenHash) > 0
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	if !h.Enabled() {
		log.Printf("[Operator] HTTP admin disabled: no operator token hash configured")
		return
	}
	mux.HandleFunc("/api/admin/next-hand", h.handleNextHand)
	mux.HandleFunc("/api/admin/state", h.handleState)
}

func (h *HTTPHandler) handleNextHand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !h.authorize(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := h.ctl.StartNextHand(ctx); err != nil {
		switch {
		case errors.Is(err, holdem.ErrNotEnoughPlayers), errors.Is(err, holdem.ErrHandInProgress):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, session.ErrCoordinatorClosed):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "start hand failed")
		}
		return
	}

	snap := h.ctl.Snapshot()
	resp := nextHandResponse{HandNumber: snap.HandNumber}
	if snap.DealerIndex >= 0 && snap.DealerIndex < len(snap.Seats) {
		resp.Dealer = snap.Seats[snap.DealerIndex].Name
	}
	log.Printf("[Operator] Hand #%d started via HTTP", snap.HandNumber)
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !h.authorize(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, toStateResponse(h.ctl.Snapshot()))
}

func (h *HTTPHandler) authorize(w http.ResponseWriter, r *http.Request) bool {
	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing operator token")
		return false
	}
	if bcrypt.CompareHashAndPassword(h.tokenHash, []byte(token)) != nil {
		log.Printf("[Operator] Rejected operator token from %s", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "invalid operator token")
		return false
	}
	return true
}

func toStateResponse(snap holdem.Snapshot) stateResponse {
	resp := stateResponse{
		HandNumber:     snap.HandNumber,
		HandInProgress: snap.HandInProgress,
		Board:          make([]string, 0, len(snap.CommunityCards)),
		Pot:            snap.Pot,
		ActorIndex:     snap.ActorIndex,
		DealerIndex:    snap.DealerIndex,
		Winners:        snap.Winners,
		Seats:          make([]seatState, 0, len(snap.Seats)),
	}
	for _, c := range snap.CommunityCards {
		resp.Board = append(resp.Board, c.String())
	}
	for _, s := range snap.Seats {
		seat := seatState{
			Name:       s.Name,
			Stack:      s.Stack,
			Bet:        s.Bet,
			Folded:     s.Folded,
			AllIn:      s.AllIn,
			Online:     s.Online,
			SittingOut: s.SittingOut,
		}
		for _, c := range s.HoleCards {
			seat.HoleCards = append(seat.HoleCards, c.String())
		}
		resp.Seats = append(resp.Seats, seat)
	}
	return resp
}

func bearerToken(raw string) string {
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
