package clientview

import (
	"testing"
	"time"

	"github.com/veilstead/realmd/internal/opcode"
	"github.com/veilstead/realmd/internal/wiretile"
	"github.com/veilstead/realmd/internal/worldview"
)

// TestReplaysWorldviewOutput runs worldview.BuildDelta's output straight
// through clientview.Apply across a few ticks, proving C6 and C7 agree
// bit-for-bit without either side's test reaching into the other's
// internals.
func TestReplaysWorldviewOutput(t *testing.T) {
	server := worldview.NewConnection()
	client := NewGrid()

	apply := func(out []byte) {
		t.Helper()
		packets, err := opcode.Split(out)
		if err != nil {
			t.Fatalf("Split failed: %v", err)
		}
		if _, err := client.Apply(packets); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
	}

	server.Tile(0, 0).BaseSprite = 100
	server.Tile(1, 1).CharacterNumber = 7
	apply(server.BuildDelta(0, 0))

	if got := client.Tile(0, 0).BaseSprite; got != 100 {
		t.Fatalf("expected BaseSprite 100 at (0,0), got %d", got)
	}
	if got := client.Tile(1, 1).CharacterNumber; got != 7 {
		t.Fatalf("expected CharacterNumber 7 at (1,1), got %d", got)
	}

	server.Tile(0, 0).Light = 9
	apply(server.BuildDelta(0, 0))
	if got := client.Tile(0, 0).Light; got != 9 {
		t.Fatalf("expected Light 9 at (0,0) after light-run packet, got %d", got)
	}

	for x := 0; x < 16; x++ {
		server.Tile(x, 0).BaseSprite = uint16(x + 1)
	}
	apply(server.BuildDelta(1, 0))

	wantX, wantY := int32(1), int32(0)
	gotX, gotY := client.Origin()
	if gotX != wantX || gotY != wantY {
		t.Fatalf("expected origin (%d,%d) after scroll, got (%d,%d)", wantX, wantY, gotX, gotY)
	}
}

func TestUnhandledOpcodesAreReturnedForOtherDispatch(t *testing.T) {
	g := NewGrid()
	pkt := opcode.Packet{Opcode: opcode.SetCharDir, Data: []byte{byte(opcode.SetCharDir), 3}}

	unhandled, err := g.Apply([]opcode.Packet{pkt})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(unhandled) != 1 || unhandled[0].Opcode != opcode.SetCharDir {
		t.Fatalf("expected SetCharDir to come back unhandled, got %+v", unhandled)
	}
}

func TestMalformedSetMapIndexIsRejected(t *testing.T) {
	g := NewGrid()
	// A SETMAP packet in absolute form pointing past the grid's tile count.
	data := []byte{0x80, 0x01, 0xFF, 0xFF}
	data = append(data, make([]byte, wiretile.FieldMask(0x01).PayloadLen())...)

	_, err := g.Apply([]opcode.Packet{{Opcode: int(data[0]), IsSetMap: true, Data: data}})
	if err == nil {
		t.Fatal("expected an out-of-range SETMAP index to be rejected")
	}
}

func TestTickOpcodeRecordsCounter(t *testing.T) {
	g := NewGrid()
	pkt := opcode.Packet{Opcode: opcode.Tick, Data: []byte{byte(opcode.Tick), 42}}
	if _, err := g.Apply([]opcode.Packet{pkt}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if g.Tick() != 42 {
		t.Fatalf("expected tick counter 42, got %d", g.Tick())
	}
}

func TestNameCacheThrottlesAutolook(t *testing.T) {
	nc := NewNameCache(time.Minute)
	now := time.Unix(0, 0)

	if !nc.ShouldAutolook(7, now) {
		t.Fatal("expected first autolook for an unknown name to be allowed")
	}
	nc.Set(7, "Alice")

	if nc.ShouldAutolook(7, now.Add(time.Second)) {
		t.Fatal("expected a repeat autolook within the throttle window to be denied")
	}
	if !nc.ShouldAutolook(7, now.Add(2*time.Minute)) {
		t.Fatal("expected autolook to be allowed again once the throttle window elapses")
	}
}
