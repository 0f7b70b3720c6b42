// Package client is the client side of the network core: it owns the
// connection once a game-login ticket has been redeemed, drives the
// fixed 16-byte handshake, and then runs a read pump that decodes C1
// frames, feeds them through the persistent C2 inflater, splits the
// result into C3 opcode packets, and posts them as ClientEvents for the
// game loop (out of scope here) to consume. A dedicated write goroutine
// owns outbound writes, the same sendCh/writePump split the teacher's
// own connection-handling code uses on its side of the wire.
package client

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/veilstead/realmd/internal/frame"
	"github.com/veilstead/realmd/internal/handshake"
	"github.com/veilstead/realmd/internal/opcode"
	"github.com/veilstead/realmd/internal/zstream"
)

// ErrHandshakeRejected is returned when the server closes the connection
// with an EXIT during the handshake, before LOGIN_OK.
var ErrHandshakeRejected = errors.New("client: handshake rejected")

// ClientEvent is one decoded server->client unit posted to Events: either
// an opcode packet from the steady-state tick stream, or the terminal
// Err/Closed signal when the read pump stops.
type ClientEvent struct {
	Packet opcode.Packet
	Err    error
	Closed bool
}

// Conn is one connection to the game server, from a redeemed ticket
// through to disconnect.
type Conn struct {
	conn net.Conn
	inf  *zstream.Inflater

	sendCh chan []byte
	events chan ClientEvent
	done   chan struct{}
}

// Dial connects to addr, plays the fixed-packet handshake using ticket,
// and starts the write pump and read pump on success. clientVersion and
// race are carried in the CHALLENGE reply per spec.md §6; they are
// otherwise opaque to this package.
func Dial(addr string, ticket uint64, clientVersion uint32, race int32) (*Conn, error) {
	nc, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("client: dialing %s: %w", addr, err)
	}

	if err := playHandshake(nc, ticket, clientVersion, race); err != nil {
		nc.Close()
		return nil, err
	}

	c := &Conn{
		conn:   nc,
		inf:    zstream.NewInflater(),
		sendCh: make(chan []byte, 64),
		events: make(chan ClientEvent, 256),
		done:   make(chan struct{}),
	}
	go c.writePump()
	go c.readPump()
	return c, nil
}

func playHandshake(nc net.Conn, ticket uint64, clientVersion uint32, race int32) error {
	nc.SetDeadline(time.Now().Add(10 * time.Second))
	defer nc.SetDeadline(time.Time{})

	var login [handshake.ClientPacketLen]byte
	login[0] = handshake.OpAPILogin
	binary.LittleEndian.PutUint64(login[1:9], ticket)
	if _, err := nc.Write(login[:]); err != nil {
		return fmt.Errorf("client: sending API_LOGIN: %w", err)
	}

	challenge, err := readFixed(nc)
	if err != nil {
		return fmt.Errorf("client: reading CHALLENGE: %w", err)
	}
	if challenge[0] == handshake.OpExit {
		return fmt.Errorf("%w: reason %d", ErrHandshakeRejected, challenge[1])
	}
	if challenge[0] != handshake.OpChallenge {
		return fmt.Errorf("client: expected CHALLENGE opcode 0x%02x, got 0x%02x", handshake.OpChallenge, challenge[0])
	}
	nonce := binary.LittleEndian.Uint32(challenge[1:5])
	transformed := handshake.RespondToChallenge(nonce)

	var reply [handshake.ClientPacketLen]byte
	reply[0] = handshake.OpChallengeReply
	binary.LittleEndian.PutUint32(reply[1:5], transformed)
	binary.LittleEndian.PutUint32(reply[5:9], clientVersion)
	binary.LittleEndian.PutUint32(reply[9:13], uint32(race))
	if _, err := nc.Write(reply[:]); err != nil {
		return fmt.Errorf("client: sending CHALLENGE reply: %w", err)
	}

	var unique [handshake.ClientPacketLen]byte
	unique[0] = handshake.OpUnique
	if _, err := nc.Write(unique[:]); err != nil {
		return fmt.Errorf("client: sending UNIQUE: %w", err)
	}

	loginOK, err := readFixed(nc)
	if err != nil {
		return fmt.Errorf("client: reading LOGIN_OK: %w", err)
	}
	if loginOK[0] == handshake.OpExit {
		return fmt.Errorf("%w: reason %d", ErrHandshakeRejected, loginOK[1])
	}
	if loginOK[0] != handshake.OpLoginOK {
		return fmt.Errorf("client: expected LOGIN_OK opcode 0x%02x, got 0x%02x", handshake.OpLoginOK, loginOK[0])
	}
	return nil
}

// readFixed reads one handshake-phase server reply: 2 bytes when it is an
// EXIT, otherwise the full 16 bytes.
func readFixed(nc net.Conn) ([handshake.ClientPacketLen]byte, error) {
	var buf [handshake.ClientPacketLen]byte
	if _, err := io.ReadFull(nc, buf[:2]); err != nil {
		return buf, err
	}
	if buf[0] == handshake.OpExit {
		return buf, nil
	}
	_, err := io.ReadFull(nc, buf[2:])
	return buf, err
}

// Events returns the channel ClientEvents are posted to. The game loop
// owns draining it; a Closed event marks the end of the stream.
func (c *Conn) Events() <-chan ClientEvent { return c.events }

// SendCommand writes one fixed 16-byte client command (opcode plus a
// little-endian target id) — commands are never framed or compressed,
// for the whole connection lifetime.
func (c *Conn) SendCommand(op byte, target uint32) {
	var pkt [handshake.ClientPacketLen]byte
	pkt[0] = op
	binary.LittleEndian.PutUint32(pkt[1:5], target)
	select {
	case c.sendCh <- pkt[:]:
	case <-c.done:
	}
}

// SendCTick sends the per-tick liveness packet the server's liveness
// sweep expects; the caller is responsible for calling this once per
// server tick while the connection is in the normal state.
func (c *Conn) SendCTick(tickCounter uint32) {
	var pkt [handshake.ClientPacketLen]byte
	pkt[0] = handshake.OpCTick
	binary.LittleEndian.PutUint32(pkt[1:5], tickCounter)
	select {
	case c.sendCh <- pkt[:]:
	case <-c.done:
	}
}

// Close tears down the connection and stops both pumps.
func (c *Conn) Close() error {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	return c.conn.Close()
}

func (c *Conn) writePump() {
	for {
		select {
		case pkt := <-c.sendCh:
			if _, err := c.conn.Write(pkt); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Conn) readPump() {
	defer func() {
		c.events <- ClientEvent{Closed: true}
		close(c.events)
	}()

	for {
		fr, err := frame.ReadFrame(c.conn)
		if err != nil {
			select {
			case <-c.done:
			default:
				c.events <- ClientEvent{Err: fmt.Errorf("client: reading frame: %w", err)}
			}
			return
		}

		var raw []byte
		if fr.Compressed {
			raw, err = c.inf.Feed(fr.Payload)
			if err != nil {
				c.events <- ClientEvent{Err: fmt.Errorf("client: inflating frame: %w", err)}
				return
			}
		} else {
			raw = fr.Payload
		}

		packets, err := opcode.Split(raw)
		if err != nil {
			c.events <- ClientEvent{Err: fmt.Errorf("client: splitting tick stream: %w", err)}
			return
		}
		for _, pkt := range packets {
			select {
			case c.events <- ClientEvent{Packet: pkt}:
			case <-c.done:
				return
			}
		}
	}
}
