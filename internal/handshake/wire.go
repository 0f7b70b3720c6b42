package handshake

import (
	"encoding/binary"
	"fmt"
)

// ClientPacketLen is the fixed size of every client-to-server packet: the
// opcode occupies byte 0 and the remaining bytes are opcode-specific
// payload, zero-padded out to this length. Client-to-server traffic is
// never length-framed or compressed — only the server's outbound stream
// uses the frame codec and the persistent deflate session.
const ClientPacketLen = 16

// Client wire opcodes, as carried in byte 0 of a fixed 16-byte packet.
// These occupy their own numbering space, distinct from the post-login
// per-tick opcode stream's table (internal/opcode): the handshake runs
// before that stream exists.
const (
	OpAPILogin       = 0x01
	OpChallengeReply = 3
	OpUnique         = 32
	OpCTick          = 255
	OpPing           = 34
)

// Server wire opcodes sent during the handshake, before the persistent
// deflate session starts. CHALLENGE shares its opcode with the client's
// CHALLENGE reply (request and reply are the same logical packet type,
// distinguished by direction); LOGIN_OK and EXIT are server-only.
const (
	OpChallenge = OpChallengeReply
	OpLoginOK   = 4
	OpExit      = 2
)

// ParseAPILogin extracts the login ticket from a fixed API_LOGIN packet.
func ParseAPILogin(pkt [ClientPacketLen]byte) (ticket uint64, err error) {
	if pkt[0] != OpAPILogin {
		return 0, fmt.Errorf("%w: expected API_LOGIN (0x%02x), got 0x%02x", ErrUnexpectedOpcode, OpAPILogin, pkt[0])
	}
	return binary.LittleEndian.Uint64(pkt[1:9]), nil
}

// ParseChallengeReply extracts the transformed nonce, client version, and
// race selector from a fixed CHALLENGE reply packet.
func ParseChallengeReply(pkt [ClientPacketLen]byte) (transformedNonce, clientVersion uint32, race int32, err error) {
	if pkt[0] != OpChallengeReply {
		return 0, 0, 0, fmt.Errorf("%w: expected CHALLENGE reply (0x%02x), got 0x%02x", ErrUnexpectedOpcode, OpChallengeReply, pkt[0])
	}
	transformedNonce = binary.LittleEndian.Uint32(pkt[1:5])
	clientVersion = binary.LittleEndian.Uint32(pkt[5:9])
	race = int32(binary.LittleEndian.Uint32(pkt[9:13]))
	return transformedNonce, clientVersion, race, nil
}

// ParseUnique extracts the opaque fingerprint fields from a fixed UNIQUE
// packet.
func ParseUnique(pkt [ClientPacketLen]byte) (a, b int32, err error) {
	if pkt[0] != OpUnique {
		return 0, 0, fmt.Errorf("%w: expected UNIQUE (0x%02x), got 0x%02x", ErrUnexpectedOpcode, OpUnique, pkt[0])
	}
	a = int32(binary.LittleEndian.Uint32(pkt[1:5]))
	b = int32(binary.LittleEndian.Uint32(pkt[5:9]))
	return a, b, nil
}

// ParseCTick extracts the tick counter a client has last fully processed,
// from a fixed CTICK packet. CTICK is sent every tick once a connection is
// in the normal state, for the server's liveness sweep to key off.
func ParseCTick(pkt [ClientPacketLen]byte) (tickCounter uint32, err error) {
	if pkt[0] != OpCTick {
		return 0, fmt.Errorf("%w: expected CTICK (0x%02x), got 0x%02x", ErrUnexpectedOpcode, OpCTick, pkt[0])
	}
	return binary.LittleEndian.Uint32(pkt[1:5]), nil
}

// EncodeChallenge builds the server's fixed CHALLENGE packet carrying the
// freshly generated nonce.
func EncodeChallenge(nonce uint32) [ClientPacketLen]byte {
	var pkt [ClientPacketLen]byte
	pkt[0] = OpChallenge
	binary.LittleEndian.PutUint32(pkt[1:5], nonce)
	return pkt
}

// EncodeLoginOK builds the server's fixed LOGIN_OK packet carrying the
// server's protocol version.
func EncodeLoginOK(serverVersion uint32) [ClientPacketLen]byte {
	var pkt [ClientPacketLen]byte
	pkt[0] = OpLoginOK
	binary.LittleEndian.PutUint32(pkt[1:5], serverVersion)
	return pkt
}

// EncodeExit builds the compact 2-byte EXIT packet the server sends
// during the handshake (before the normal per-tick opcode stream exists),
// carrying an implementation-defined reason code.
func EncodeExit(reason byte) [2]byte {
	return [2]byte{OpExit, reason}
}

// Exit reason codes, carried in EncodeExit's second byte.
const (
	ExitInvalidTicket byte = iota
	ExitBadChallenge
	ExitIdle
	ExitShutdown
	ExitUserQuit
)
