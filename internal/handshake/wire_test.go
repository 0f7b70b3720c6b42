package handshake

import "testing"

func TestParseAPILogin(t *testing.T) {
	var pkt [ClientPacketLen]byte
	pkt[0] = OpAPILogin
	pkt[1] = 0xEF
	pkt[2] = 0xBE
	pkt[3] = 0xAD
	pkt[4] = 0xDE

	ticket, err := ParseAPILogin(pkt)
	if err != nil {
		t.Fatalf("ParseAPILogin failed: %v", err)
	}
	if ticket != 0xDEADBEEF {
		t.Fatalf("expected ticket 0xDEADBEEF, got 0x%X", ticket)
	}
}

func TestParseAPILoginRejectsWrongOpcode(t *testing.T) {
	var pkt [ClientPacketLen]byte
	pkt[0] = OpUnique
	if _, err := ParseAPILogin(pkt); err == nil {
		t.Fatal("expected an error for a mismatched opcode")
	}
}

func TestChallengeRoundTrip(t *testing.T) {
	server := EncodeChallenge(0x12345678)

	var reply [ClientPacketLen]byte
	reply[0] = OpChallengeReply
	transformed := RespondToChallenge(0x12345678)
	reply[1] = byte(transformed)
	reply[2] = byte(transformed >> 8)
	reply[3] = byte(transformed >> 16)
	reply[4] = byte(transformed >> 24)
	reply[5] = 7 // client version low byte
	reply[9] = 1 // race selector low byte

	gotTransformed, version, race, err := ParseChallengeReply(reply)
	if err != nil {
		t.Fatalf("ParseChallengeReply failed: %v", err)
	}
	if gotTransformed != transformed {
		t.Fatalf("expected transformed nonce 0x%X, got 0x%X", transformed, gotTransformed)
	}
	if version != 7 {
		t.Fatalf("expected client version 7, got %d", version)
	}
	if race != 1 {
		t.Fatalf("expected race 1, got %d", race)
	}

	var sess Session
	sess.state = ChallengeSent
	sess.nonce = binLE32(server[1:5])
	if err := sess.HandleChallengeReply(gotTransformed, version, race); err != nil {
		t.Fatalf("server rejected a correctly transformed reply: %v", err)
	}
}

func binLE32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func TestParseUnique(t *testing.T) {
	var pkt [ClientPacketLen]byte
	pkt[0] = OpUnique
	pkt[1] = 0x01
	pkt[5] = 0x02

	a, b, err := ParseUnique(pkt)
	if err != nil {
		t.Fatalf("ParseUnique failed: %v", err)
	}
	if a != 1 || b != 2 {
		t.Fatalf("expected (1, 2), got (%d, %d)", a, b)
	}
}

func TestParseCTick(t *testing.T) {
	var pkt [ClientPacketLen]byte
	pkt[0] = OpCTick
	pkt[1] = 42

	tick, err := ParseCTick(pkt)
	if err != nil {
		t.Fatalf("ParseCTick failed: %v", err)
	}
	if tick != 42 {
		t.Fatalf("expected tick 42, got %d", tick)
	}
}

func TestEncodeExit(t *testing.T) {
	pkt := EncodeExit(ExitBadChallenge)
	if pkt[0] != OpExit {
		t.Fatalf("expected opcode 0x%X, got 0x%X", OpExit, pkt[0])
	}
	if pkt[1] != ExitBadChallenge {
		t.Fatalf("expected reason %d, got %d", ExitBadChallenge, pkt[1])
	}
}
