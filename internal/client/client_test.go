package client

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/veilstead/realmd/internal/frame"
	"github.com/veilstead/realmd/internal/handshake"
	"github.com/veilstead/realmd/internal/opcode"
	"github.com/veilstead/realmd/internal/zstream"
)

// serverSide plays the server half of the fixed-packet handshake on nc,
// then returns nc ready for the caller to push tick frames through.
func serverSide(t *testing.T, nc net.Conn) {
	t.Helper()
	nc.SetDeadline(time.Now().Add(5 * time.Second))

	login := readFull(t, nc)
	if login[0] != handshake.OpAPILogin {
		t.Fatalf("expected API_LOGIN, got 0x%02x", login[0])
	}

	var challenge [handshake.ClientPacketLen]byte
	challenge[0] = handshake.OpChallenge
	binary.LittleEndian.PutUint32(challenge[1:5], 0xCAFEBABE)
	if _, err := nc.Write(challenge[:]); err != nil {
		t.Fatalf("writing CHALLENGE: %v", err)
	}

	reply := readFull(t, nc)
	if reply[0] != handshake.OpChallengeReply {
		t.Fatalf("expected CHALLENGE reply, got 0x%02x", reply[0])
	}
	transformed := binary.LittleEndian.Uint32(reply[1:5])
	if transformed != handshake.RespondToChallenge(0xCAFEBABE) {
		t.Fatal("challenge transform mismatch")
	}

	unique := readFull(t, nc)
	if unique[0] != handshake.OpUnique {
		t.Fatalf("expected UNIQUE, got 0x%02x", unique[0])
	}

	var loginOK [handshake.ClientPacketLen]byte
	loginOK[0] = handshake.OpLoginOK
	if _, err := nc.Write(loginOK[:]); err != nil {
		t.Fatalf("writing LOGIN_OK: %v", err)
	}
}

func readFull(t *testing.T, nc net.Conn) [handshake.ClientPacketLen]byte {
	t.Helper()
	var buf [handshake.ClientPacketLen]byte
	n := 0
	for n < len(buf) {
		m, err := nc.Read(buf[n:])
		if err != nil {
			t.Fatalf("reading fixed packet: %v", err)
		}
		n += m
	}
	return buf
}

func TestDialCompletesHandshake(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer listener.Close()

	acceptedCh := make(chan net.Conn, 1)
	go func() {
		nc, err := listener.Accept()
		if err != nil {
			return
		}
		serverSide(t, nc)
		acceptedCh <- nc
	}()

	conn, err := Dial(listener.Addr().String(), 7, 1, 0)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	nc := <-acceptedCh
	defer nc.Close()
}

func TestDialSurfacesHandshakeRejection(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer listener.Close()

	go func() {
		nc, err := listener.Accept()
		if err != nil {
			return
		}
		defer nc.Close()
		nc.SetDeadline(time.Now().Add(5 * time.Second))
		readFull(t, nc)

		exit := handshake.EncodeExit(handshake.ExitInvalidTicket)
		nc.Write(exit[:])
	}()

	_, err = Dial(listener.Addr().String(), 7, 1, 0)
	if err == nil {
		t.Fatal("expected Dial to fail when the server rejects the ticket")
	}
}

func TestReadPumpDeliversDecodedPackets(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer listener.Close()

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		nc, err := listener.Accept()
		if err != nil {
			return
		}
		defer nc.Close()
		serverSide(t, nc)

		def := zstream.NewDeflater()
		defer def.Close()

		tick := []byte{byte(opcode.Tick), 5}
		compressed, err := def.Compress(tick)
		if err != nil {
			t.Errorf("compressing tick: %v", err)
			return
		}
		framed, err := frame.Encode(compressed, true)
		if err != nil {
			t.Errorf("framing tick: %v", err)
			return
		}
		if _, err := nc.Write(framed); err != nil {
			t.Errorf("writing tick frame: %v", err)
		}
	}()

	conn, err := Dial(listener.Addr().String(), 7, 1, 0)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	select {
	case ev := <-conn.Events():
		if ev.Err != nil {
			t.Fatalf("unexpected event error: %v", ev.Err)
		}
		if ev.Packet.Opcode != opcode.Tick {
			t.Fatalf("expected a TICK packet, got opcode 0x%02x", ev.Packet.Opcode)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the decoded tick event")
	}

	<-serverDone
}
