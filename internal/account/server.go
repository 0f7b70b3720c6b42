package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/veilstead/realmd/internal/db"
)

// Server is the account service's HTTP API: it authenticates a player's
// credentials and issues a login ticket for a chosen character, and lets
// the game server redeem that ticket for the character id it names.
//
// /sessions plays the role of the external game-login-ticket exchange —
// credential check plus ticket mint in one round trip — and /redeem is
// the game server's own internal call, never exposed past the account
// service's own network boundary. /accounts and /characters round out
// account self-service (registration, character listing) that a
// complete deployment needs alongside the login path.
type Server struct {
	accounts   *db.DB
	characters *db.CharacterRepository
	tickets    Store
	ticketTTL  time.Duration
	mux        *http.ServeMux
}

// NewServer wires an account database, a character repository, and a
// ticket store into an HTTP handler.
func NewServer(accounts *db.DB, characters *db.CharacterRepository, tickets Store, ticketTTL time.Duration) *Server {
	s := &Server{accounts: accounts, characters: characters, tickets: tickets, ticketTTL: ticketTTL}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("POST /sessions", s.handleLogin)
	s.mux.HandleFunc("POST /redeem", s.handleRedeem)
	s.mux.HandleFunc("POST /accounts", s.handleCreateAccount)
	s.mux.HandleFunc("POST /characters", s.handleListCharacters)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type loginRequest struct {
	Login       string `json:"login"`
	Password    string `json:"password"`
	CharacterID uint64 `json:"character_id"`
}

type loginResponse struct {
	Ticket uint64 `json:"ticket"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}

	acc, err := s.accounts.GetAccount(r.Context(), req.Login)
	if err != nil {
		slog.Error("account lookup failed", "login", req.Login, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if acc == nil || acc.PasswordHash != db.HashPassword(req.Password) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	ticket, err := s.tickets.Issue(r.Context(), req.CharacterID, s.ticketTTL)
	if err != nil {
		slog.Error("issuing ticket failed", "login", req.Login, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Ticket: ticket.ID})
}

type redeemRequest struct {
	Ticket uint64 `json:"ticket"`
}

type redeemResponse struct {
	CharacterID uint64 `json:"character_id"`
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}

	characterID, err := s.tickets.Redeem(r.Context(), req.Ticket)
	if err != nil {
		if errors.Is(err, ErrTicketNotFound) {
			http.Error(w, "ticket not found", http.StatusNotFound)
			return
		}
		slog.Error("redeeming ticket failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, redeemResponse{CharacterID: characterID})
}

type createAccountRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}
	if req.Login == "" || req.Password == "" {
		http.Error(w, "login and password are required", http.StatusBadRequest)
		return
	}

	existing, err := s.accounts.GetAccount(r.Context(), req.Login)
	if err != nil {
		slog.Error("account lookup failed", "login", req.Login, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if existing != nil {
		http.Error(w, "account already exists", http.StatusConflict)
		return
	}

	if err := s.accounts.CreateAccount(r.Context(), req.Login, db.HashPassword(req.Password), r.RemoteAddr); err != nil {
		slog.Error("creating account failed", "login", req.Login, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

type listCharactersRequest struct {
	Login string `json:"login"`
}

type characterSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Level int32  `json:"level"`
}

type listCharactersResponse struct {
	Characters []characterSummary `json:"characters"`
}

func (s *Server) handleListCharacters(w http.ResponseWriter, r *http.Request) {
	var req listCharactersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}

	players, err := s.characters.LoadByAccountName(r.Context(), req.Login)
	if err != nil {
		slog.Error("listing characters failed", "login", req.Login, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := listCharactersResponse{Characters: make([]characterSummary, 0, len(players))}
	for _, p := range players {
		out.Characters = append(out.Characters, characterSummary{
			ID:    p.CharacterID(),
			Name:  p.Name(),
			Level: p.Level(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response failed", "error", err)
	}
}

// ListenAndServeTLS is a convenience wrapper matching the rest of this
// repo's Run(ctx)-shaped entrypoints.
func ListenAndServeTLS(ctx context.Context, addr, certPath, keyPath string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServeTLS(certPath, keyPath); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("account service: %w", err)
	}
	return nil
}
