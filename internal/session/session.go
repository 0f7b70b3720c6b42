// Package session holds one connection's state for the game server's
// tick scheduler: its handshake progress, its tile-grid view, its
// outbound per-tick buffer, and the bookkeeping the liveness sweep
// needs. Generalizes the teacher's per-connection GameClient to the
// tick-scheduled, single-threaded-cooperative connection model — only
// the scheduler's own goroutine ever touches a Session, so unlike
// GameClient it carries no locks of its own.
package session

import (
	"bytes"
	"net"
	"time"

	"github.com/veilstead/realmd/internal/handshake"
	"github.com/veilstead/realmd/internal/worldview"
	"github.com/veilstead/realmd/internal/zstream"
)

// Session is one client connection's state, from accept through
// disconnect.
type Session struct {
	Conn       net.Conn
	RemoteAddr string

	Handshake *handshake.Session
	View      *worldview.Connection
	Deflater  *zstream.Deflater

	// Outbound accumulates this tick's opcode bytes (mod-table, character,
	// map, scroll, TICK marker — in that order) before the compress &
	// flush phase drains it.
	Outbound bytes.Buffer

	// inbound buffers client bytes read this tick until a full fixed-size
	// packet is available; client packets are never length-framed.
	inbound []byte

	LastCTick    time.Time
	connectedAt  time.Time
	pendingClose bool

	// PendingOriginX/Y are set by the simulation phase before the write
	// phase calls View.BuildDelta — the viewer's world origin for this
	// tick, opaque to this package.
	PendingOriginX int32
	PendingOriginY int32
}

// New returns a freshly accepted session in the initial handshake state.
func New(conn net.Conn) *Session {
	now := time.Now()
	return &Session{
		Conn:        conn,
		RemoteAddr:  conn.RemoteAddr().String(),
		Handshake:   handshake.NewSession(),
		View:        worldview.NewConnection(),
		Deflater:    zstream.NewDeflater(),
		LastCTick:   now,
		connectedAt: now,
	}
}

// FeedInbound appends freshly read bytes and pops off every complete
// fixed-size client packet now available, leaving any trailing partial
// packet buffered for the next read.
func (s *Session) FeedInbound(chunk []byte) [][handshake.ClientPacketLen]byte {
	s.inbound = append(s.inbound, chunk...)

	var packets [][handshake.ClientPacketLen]byte
	for len(s.inbound) >= handshake.ClientPacketLen {
		var pkt [handshake.ClientPacketLen]byte
		copy(pkt[:], s.inbound[:handshake.ClientPacketLen])
		packets = append(packets, pkt)
		s.inbound = s.inbound[handshake.ClientPacketLen:]
	}
	return packets
}

// MarkClose flags the session to be dropped at the next opportunity the
// scheduler checks, without forcing an immediate close mid-phase.
func (s *Session) MarkClose() { s.pendingClose = true }

// PendingClose reports whether MarkClose has been called.
func (s *Session) PendingClose() bool { return s.pendingClose }

// ConnectedAt returns when the session was accepted.
func (s *Session) ConnectedAt() time.Time { return s.connectedAt }

// Close tears down the connection's resources. Safe to call once a
// session is being removed from its registry.
func (s *Session) Close() error {
	return s.Conn.Close()
}
