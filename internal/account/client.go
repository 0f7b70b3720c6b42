package account

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client is an HTTPS client of the account service. The game server uses
// its Consume method to redeem login tickets (Consume implements
// internal/handshake.TicketConsumer); game clients use Login and the
// account and character calls.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client that verifies the account service's
// certificate with verifyConnection (normally the callback returned by an
// internal/tofu.Store's Verifier method), per the handshake's
// trust-on-first-use model.
func NewClient(baseURL string, verifyConnection func(tls.ConnectionState) error) *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, // identity is checked by VerifyConnection below
			VerifyConnection:   verifyConnection,
		},
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Transport: transport, Timeout: 5 * time.Second},
	}
}

// Login authenticates against the account service and returns a login
// ticket for characterID.
func (c *Client) Login(ctx context.Context, login, password string, characterID uint64) (uint64, error) {
	body, err := json.Marshal(loginRequest{Login: login, Password: password, CharacterID: characterID})
	if err != nil {
		return 0, fmt.Errorf("account client: encoding login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sessions", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("account client: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("account client: login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("account client: login rejected: status %d", resp.StatusCode)
	}

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("account client: decoding login response: %w", err)
	}
	return out.Ticket, nil
}

// CreateAccount registers a new account with the account service.
func (c *Client) CreateAccount(ctx context.Context, login, password string) error {
	body, err := json.Marshal(createAccountRequest{Login: login, Password: password})
	if err != nil {
		return fmt.Errorf("account client: encoding create-account request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/accounts", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("account client: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("account client: create-account request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("account client: create-account rejected: status %d", resp.StatusCode)
	}
	return nil
}

// CharacterSummary is one character belonging to an account, as listed
// by ListCharacters.
type CharacterSummary struct {
	ID    int64
	Name  string
	Level int32
}

// ListCharacters returns the characters belonging to login.
func (c *Client) ListCharacters(ctx context.Context, login string) ([]CharacterSummary, error) {
	body, err := json.Marshal(listCharactersRequest{Login: login})
	if err != nil {
		return nil, fmt.Errorf("account client: encoding list-characters request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/characters", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("account client: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("account client: list-characters request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("account client: list-characters rejected: status %d", resp.StatusCode)
	}

	var out listCharactersResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("account client: decoding list-characters response: %w", err)
	}

	summaries := make([]CharacterSummary, len(out.Characters))
	for i, c := range out.Characters {
		summaries[i] = CharacterSummary{ID: c.ID, Name: c.Name, Level: c.Level}
	}
	return summaries, nil
}

// Consume redeems ticket against the account service, implementing
// internal/handshake.TicketConsumer. ok is false for any transport error
// as well as an explicit not-found, since either way the ticket must not
// be treated as valid.
func (c *Client) Consume(ticket uint64) (characterID uint64, ok bool) {
	body, err := json.Marshal(redeemRequest{Ticket: ticket})
	if err != nil {
		return 0, false
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/redeem", bytes.NewReader(body))
	if err != nil {
		return 0, false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, false
	}

	var out redeemResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, false
	}
	return out.CharacterID, true
}
