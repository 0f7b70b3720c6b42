// Package tickserver runs the server's fixed-rate tick scheduler (C5): a
// single-threaded cooperative loop that accepts connections, drives each
// one through the handshake, dispatches client commands, lets a pluggable
// simulator run one tick of world state, and then builds, compresses, and
// flushes each connection's per-tick delta.
package tickserver

import (
	"context"
	"encoding/binary"
	"log/slog"
	"net"
	"time"

	"github.com/veilstead/realmd/internal/frame"
	"github.com/veilstead/realmd/internal/handshake"
	"github.com/veilstead/realmd/internal/opcode"
	"github.com/veilstead/realmd/internal/session"
)

// Config tunes the scheduler's timing and resource limits.
type Config struct {
	TickInterval   time.Duration
	WriteTimeout   time.Duration
	LivenessGrace  time.Duration
	MaxConnections int
	ServerVersion  uint32
}

// DefaultConfig returns reasonable scheduler tuning; TPS=36 (the canonical
// setting) corresponds to roughly a 28ms TickInterval, but the scheduler
// itself never assumes a specific value.
func DefaultConfig() Config {
	return Config{
		TickInterval:   100 * time.Millisecond,
		WriteTimeout:   5 * time.Second,
		LivenessGrace:  10 * time.Second,
		MaxConnections: 2000,
		ServerVersion:  1,
	}
}

// Command is one post-handshake client packet handed to the Simulator,
// stripped of its fixed-packet padding. Beyond Opcode and Target its
// meaning is specific to the world driver and opaque here.
type Command struct {
	Opcode byte
	Target uint32
}

// Simulator runs one tick of world state. It writes new tile content
// through each session's View and sets PendingOriginX/Y before returning;
// the write phase calls BuildDelta immediately afterward.
type Simulator func(reg *session.Registry, tick uint64, commands map[*session.Session][]Command)

// Scheduler drives the accept/read/simulate/write/flush/sweep loop.
type Scheduler struct {
	listener      net.Listener
	cfg           Config
	registry      *session.Registry
	consumeTicket handshake.TicketConsumer
	simulate      Simulator

	tick uint64
}

// NewScheduler wires a listener, a ticket consumer (for API_LOGIN), and a
// world simulator into a scheduler ready to Run.
func NewScheduler(listener net.Listener, cfg Config, consumeTicket handshake.TicketConsumer, simulate Simulator) *Scheduler {
	return &Scheduler{
		listener:      listener,
		cfg:           cfg,
		registry:      session.NewRegistry(),
		consumeTicket: consumeTicket,
		simulate:      simulate,
	}
}

// Registry exposes the live session set, e.g. for an admin or metrics hook.
func (s *Scheduler) Registry() *session.Registry { return s.registry }

// Run blocks, driving the tick loop until ctx is cancelled, at which point
// every connection is kicked with an EXIT(shutdown) and the listener is
// closed before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	accepted := make(chan net.Conn, 64)
	acceptDone := make(chan struct{})
	go s.acceptLoop(ctx, accepted, acceptDone)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			s.listener.Close() // unblocks acceptLoop's pending Accept
			<-acceptDone
			return nil
		case <-ticker.C:
			s.tick++
			s.runTick(accepted)
		}
	}
}

func (s *Scheduler) acceptLoop(ctx context.Context, out chan<- net.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			slog.Error("tickserver: accept failed", "error", err)
			return
		}
		select {
		case out <- conn:
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}

func (s *Scheduler) runTick(accepted <-chan net.Conn) {
	s.acceptPhase(accepted)
	commands := s.readPhase()
	if s.simulate != nil {
		s.simulate(s.registry, s.tick, commands)
	}
	s.writePhase()
	s.compressFlushPhase()
	s.livenessSweepPhase()
}

// acceptPhase drains whatever connections the background accept goroutine
// has queued, without blocking.
func (s *Scheduler) acceptPhase(accepted <-chan net.Conn) {
	for {
		select {
		case conn := <-accepted:
			if s.registry.Count() >= s.cfg.MaxConnections {
				conn.Close()
				continue
			}
			s.registry.Add(session.New(conn))
		default:
			return
		}
	}
}

// readPhase drains every socket non-blockingly and dispatches each
// complete client packet either into the handshake state machine or, for
// sessions already in the normal state, into the returned command set.
func (s *Scheduler) readPhase() map[*session.Session][]Command {
	commands := make(map[*session.Session][]Command)
	buf := make([]byte, 4096)

	s.registry.ForEach(func(sess *session.Session) {
		if sess.PendingClose() {
			return
		}
		if err := sess.Conn.SetReadDeadline(time.Now()); err != nil {
			sess.MarkClose()
			return
		}
		for {
			n, err := sess.Conn.Read(buf)
			if n > 0 {
				for _, pkt := range sess.FeedInbound(buf[:n]) {
					if s.dispatchPacket(sess, pkt, commands) {
						sess.MarkClose()
						return
					}
				}
			}
			if err != nil {
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					return
				}
				sess.MarkClose()
				return
			}
		}
	})

	return commands
}

// dispatchPacket routes one fixed-size client packet according to the
// session's handshake state. It returns true when the session must be
// dropped (an EXIT has already been sent where applicable).
func (s *Scheduler) dispatchPacket(sess *session.Session, pkt [handshake.ClientPacketLen]byte, commands map[*session.Session][]Command) bool {
	switch sess.Handshake.State() {
	case handshake.Connected:
		ticket, err := handshake.ParseAPILogin(pkt)
		if err != nil {
			s.sendHandshakeExit(sess, handshake.ExitInvalidTicket)
			return true
		}
		nonce, err := sess.Handshake.HandleAPILogin(ticket, s.consumeTicket)
		if err != nil {
			s.sendHandshakeExit(sess, handshake.ExitInvalidTicket)
			return true
		}
		s.sendHandshakeFixed(sess, handshake.EncodeChallenge(nonce))
		return false

	case handshake.ChallengeSent:
		switch pkt[0] {
		case handshake.OpChallengeReply:
			transformed, version, race, err := handshake.ParseChallengeReply(pkt)
			if err != nil {
				s.sendHandshakeExit(sess, handshake.ExitBadChallenge)
				return true
			}
			if err := sess.Handshake.HandleChallengeReply(transformed, version, race); err != nil {
				s.sendHandshakeExit(sess, handshake.ExitBadChallenge)
				return true
			}
			return false

		case handshake.OpUnique:
			a, b, err := handshake.ParseUnique(pkt)
			if err != nil {
				s.sendHandshakeExit(sess, handshake.ExitBadChallenge)
				return true
			}
			if err := sess.Handshake.HandleUnique(a, b); err != nil {
				s.sendHandshakeExit(sess, handshake.ExitBadChallenge)
				return true
			}
			// The mod-table commands that would precede LOGIN_OK here are
			// opaque to this spec; none are sent.
			if err := sess.Handshake.CompleteLogin(); err != nil {
				s.sendHandshakeExit(sess, handshake.ExitBadChallenge)
				return true
			}
			s.sendHandshakeFixed(sess, handshake.EncodeLoginOK(s.cfg.ServerVersion))
			sess.LastCTick = time.Now()
			return false

		default:
			s.sendHandshakeExit(sess, handshake.ExitBadChallenge)
			return true
		}

	case handshake.Normal:
		if pkt[0] == handshake.OpCTick {
			if _, err := handshake.ParseCTick(pkt); err == nil {
				sess.LastCTick = time.Now()
			}
			return false
		}
		commands[sess] = append(commands[sess], Command{
			Opcode: pkt[0],
			Target: binary.LittleEndian.Uint32(pkt[1:5]),
		})
		return false

	default:
		return true
	}
}

func (s *Scheduler) sendHandshakeFixed(sess *session.Session, pkt [handshake.ClientPacketLen]byte) {
	if err := sess.Conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
		sess.MarkClose()
		return
	}
	if _, err := sess.Conn.Write(pkt[:]); err != nil {
		sess.MarkClose()
	}
}

func (s *Scheduler) sendHandshakeExit(sess *session.Session, reason byte) {
	pkt := handshake.EncodeExit(reason)
	_ = sess.Conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	_, _ = sess.Conn.Write(pkt[:])
}

// writePhase lets C6 append this tick's delta (plus the TICK marker) into
// every normal-state session's outbound buffer. A session whose buffer
// has grown past what a frame can express is marked for drop rather than
// flushed — a runaway delta storm, per spec §4.5 step 6.
func (s *Scheduler) writePhase() {
	s.registry.ForEach(func(sess *session.Session) {
		if sess.PendingClose() || sess.Handshake.State() != handshake.Normal {
			return
		}

		delta := sess.View.BuildDelta(sess.PendingOriginX, sess.PendingOriginY)
		sess.Outbound.Write(delta)
		sess.Outbound.WriteByte(byte(opcode.Tick))
		sess.Outbound.WriteByte(byte(s.tick))

		if sess.Outbound.Len() > frame.MaxFrameLen-2 {
			slog.Warn("tickserver: outbound tick buffer exceeds frame limit, disconnecting", "remote", sess.RemoteAddr)
			sess.MarkClose()
		}
	})
}

// compressFlushPhase feeds each normal-state session's outbound buffer
// through its persistent deflate session, frames the result, and writes
// it.
//
// The uncompressed-fallback optimization spec §4.5 step 5 allows for
// small payloads is deliberately not implemented: Deflater.Compress has
// no peekable/reversible mode, so it always advances the persistent
// zlib window as a side effect of being called. Sending the raw bytes
// instead of the compressed ones after that call would desync the
// client's inflater, which never observes the deflate-stream bytes the
// call just produced. Every tick is sent compressed.
func (s *Scheduler) compressFlushPhase() {
	s.registry.ForEach(func(sess *session.Session) {
		if sess.PendingClose() || sess.Handshake.State() != handshake.Normal {
			return
		}
		defer sess.Outbound.Reset()

		tick := sess.Outbound.Bytes()
		compressed, err := sess.Deflater.Compress(tick)
		if err != nil {
			sess.MarkClose()
			return
		}

		framed, err := frame.Encode(compressed, true)
		if err != nil {
			sess.MarkClose()
			return
		}

		if err := sess.Conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			sess.MarkClose()
			return
		}
		if _, err := sess.Conn.Write(framed); err != nil {
			sess.MarkClose()
		}
	})
}

// livenessSweepPhase drops every session marked for close during this
// tick, plus any normal-state session whose last CTICK is older than the
// configured grace.
func (s *Scheduler) livenessSweepPhase() {
	now := time.Now()
	var toDrop []*session.Session

	s.registry.ForEach(func(sess *session.Session) {
		if sess.PendingClose() {
			toDrop = append(toDrop, sess)
			return
		}
		if sess.Handshake.State() == handshake.Normal && now.Sub(sess.LastCTick) > s.cfg.LivenessGrace {
			s.kickNormal(sess, handshake.ExitIdle)
			toDrop = append(toDrop, sess)
		}
	})

	for _, sess := range toDrop {
		s.drop(sess)
	}
}

// kickNormal sends a one-off EXIT through a normal-state session's
// persistent deflate stream — it must go through that stream since the
// connection has already moved past the unframed handshake phase.
func (s *Scheduler) kickNormal(sess *session.Session, reason byte) {
	payload := []byte{byte(opcode.Exit), reason}
	compressed, err := sess.Deflater.Compress(payload)
	if err != nil {
		return
	}
	framed, err := frame.Encode(compressed, true)
	if err != nil {
		return
	}
	_ = sess.Conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	_, _ = sess.Conn.Write(framed)
}

func (s *Scheduler) drop(sess *session.Session) {
	s.registry.Remove(sess)
	sess.Close()
}

// shutdown kicks every connection with an EXIT(shutdown) appropriate to
// its current phase and closes its socket. The registry itself is left
// alone: Run returns immediately afterward.
func (s *Scheduler) shutdown() {
	s.registry.ForEach(func(sess *session.Session) {
		if sess.Handshake.State() == handshake.Normal {
			s.kickNormal(sess, handshake.ExitShutdown)
		} else {
			s.sendHandshakeExit(sess, handshake.ExitShutdown)
		}
		sess.Close()
	})
}
