// Package handshake drives a per-connection session through the
// login-ticket → challenge → unique → login-ok sequence that hands a
// connection off into the steady-state tick stream. It owns no socket I/O
// itself — callers feed it decoded packet fields and act on the nonce,
// errors, and state transitions it returns.
package handshake

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/veilstead/realmd/internal/xcrypt"
)

// State is one of the five states a connection's handshake session can be
// in, matching the per-connection session model.
type State int

const (
	Connected State = iota
	ChallengeSent
	UniqueReceived
	Normal
	Exiting
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case ChallengeSent:
		return "challenge-sent"
	case UniqueReceived:
		return "unique-received"
	case Normal:
		return "normal"
	case Exiting:
		return "exiting"
	default:
		return "unknown"
	}
}

// ErrInvalidTicket is returned when the account service does not recognise
// (or has expired) the login ticket presented in API_LOGIN.
var ErrInvalidTicket = errors.New("handshake: invalid or expired login ticket")

// ErrUnexpectedOpcode is returned when a handshake packet arrives in a
// state that does not expect it.
var ErrUnexpectedOpcode = errors.New("handshake: unexpected opcode for current state")

// ErrBadChallenge is returned when the client's transformed nonce does not
// match xcrypt.Transform of the nonce the server sent.
var ErrBadChallenge = errors.New("handshake: challenge response mismatch")

// Session is the server-side handshake state machine for one connection.
// It is not safe for concurrent use; a connection's own goroutine (or tick
// slot) owns it exclusively, consistent with the rest of the connection's
// per-connection state.
type Session struct {
	state           State
	nonce           uint32
	clientVersion   uint32
	raceSelector    int32
	characterID     uint64
	uniqueA, uniqueB int32
}

// NewSession returns a session in the initial connected state.
func NewSession() *Session {
	return &Session{state: Connected}
}

// State reports the session's current state.
func (s *Session) State() State { return s.state }

// CharacterID returns the character id resolved from the ticket exchange.
// Only meaningful once HandleAPILogin has succeeded.
func (s *Session) CharacterID() uint64 { return s.characterID }

// ClientVersion and RaceSelector return the values carried in the client's
// challenge reply, once past ChallengeSent.
func (s *Session) ClientVersion() uint32 { return s.clientVersion }
func (s *Session) RaceSelector() int32   { return s.raceSelector }

// TicketConsumer atomically exchanges a login ticket for the character id
// it was issued for. It must be single-use: a ticket already consumed (or
// never issued, or expired) reports ok == false.
type TicketConsumer func(ticket uint64) (characterID uint64, ok bool)

// HandleAPILogin consumes ticket against consume. On success it generates
// a fresh 32-bit nonce, advances to ChallengeSent, and returns the nonce to
// send in the CHALLENGE packet. On failure the session moves to Exiting
// and the caller must send EXIT(invalid-ticket) and close.
func (s *Session) HandleAPILogin(ticket uint64, consume TicketConsumer) (nonce uint32, err error) {
	if s.state != Connected {
		return 0, fmt.Errorf("%w: API_LOGIN in state %s", ErrUnexpectedOpcode, s.state)
	}

	characterID, ok := consume(ticket)
	if !ok {
		s.state = Exiting
		return 0, ErrInvalidTicket
	}

	nonce, err = randomNonce()
	if err != nil {
		s.state = Exiting
		return 0, err
	}

	s.characterID = characterID
	s.nonce = nonce
	s.state = ChallengeSent
	return nonce, nil
}

// HandleChallengeReply verifies the client's transformed nonce. On
// mismatch the session moves to Exiting and the caller must send
// EXIT(bad-challenge) and close. On success the session stays in
// ChallengeSent — it only advances once the UNIQUE packet also arrives.
func (s *Session) HandleChallengeReply(transformedNonce, clientVersion uint32, race int32) error {
	if s.state != ChallengeSent {
		return fmt.Errorf("%w: CHALLENGE reply in state %s", ErrUnexpectedOpcode, s.state)
	}
	if xcrypt.Transform(s.nonce) != transformedNonce {
		s.state = Exiting
		return ErrBadChallenge
	}
	s.clientVersion = clientVersion
	s.raceSelector = race
	return nil
}

// HandleUnique records the client's fingerprint fields (opaque to this
// package; the caller may log them) and advances to UniqueReceived.
func (s *Session) HandleUnique(a, b int32) error {
	if s.state != ChallengeSent {
		return fmt.Errorf("%w: UNIQUE in state %s", ErrUnexpectedOpcode, s.state)
	}
	s.uniqueA, s.uniqueB = a, b
	s.state = UniqueReceived
	return nil
}

// Unique returns the fingerprint fields recorded by HandleUnique.
func (s *Session) Unique() (a, b int32) { return s.uniqueA, s.uniqueB }

// CompleteLogin advances the session to Normal once the caller has sent
// any pending mod-table commands and the LOGIN_OK packet. The persistent
// zlib compressor for this connection must be started only after this
// call succeeds.
func (s *Session) CompleteLogin() error {
	if s.state != UniqueReceived {
		return fmt.Errorf("%w: LOGIN_OK in state %s", ErrUnexpectedOpcode, s.state)
	}
	s.state = Normal
	return nil
}

// Abort forces the session into Exiting, for callers that detect a
// transport-level failure (read error, timeout) outside the packet
// sequence above.
func (s *Session) Abort() {
	s.state = Exiting
}

func randomNonce() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("handshake: generating nonce: %w", err)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// RespondToChallenge is the client-side counterpart: given the nonce
// carried in a CHALLENGE packet, it computes the transformed_nonce value
// to send back in the client's CHALLENGE reply.
func RespondToChallenge(nonce uint32) uint32 {
	return xcrypt.Transform(nonce)
}
