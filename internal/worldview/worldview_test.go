package worldview

import (
	"encoding/binary"
	"testing"

	"github.com/veilstead/realmd/internal/opcode"
	"github.com/veilstead/realmd/internal/wiretile"
)

func TestFirstDeltaForcesOriginAndFullResend(t *testing.T) {
	c := NewConnection()
	c.Tile(0, 0).BaseSprite = 7

	out := c.BuildDelta(10, 20)
	if len(out) == 0 {
		t.Fatal("expected non-empty first delta")
	}
	if out[0] != byte(opcode.SetOrigin) {
		t.Fatalf("expected first opcode to be SETORIGIN, got 0x%02x", out[0])
	}
	gotX := int16(binary.LittleEndian.Uint16(out[1:3]))
	gotY := int16(binary.LittleEndian.Uint16(out[3:5]))
	if gotX != 10 || gotY != 20 {
		t.Fatalf("expected origin (10,20), got (%d,%d)", gotX, gotY)
	}

	packets, err := opcode.Split(out[5:])
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(packets) != 1 {
		t.Fatalf("expected exactly one SETMAP for the single non-zero tile, got %d", len(packets))
	}
}

func TestSecondUnchangedTickProducesNoBytes(t *testing.T) {
	c := NewConnection()
	c.Tile(0, 0).BaseSprite = 7
	c.BuildDelta(0, 0)

	out := c.BuildDelta(0, 0)
	if len(out) != 0 {
		t.Fatalf("expected no bytes for an unchanged tick, got %d bytes", len(out))
	}
}

func TestSingleTileChangeUsesDeltaOffsetOnSecondEmission(t *testing.T) {
	c := NewConnection()
	c.Tile(0, 0).BaseSprite = 1
	c.Tile(0, 1).BaseSprite = 1
	c.BuildDelta(0, 0)

	c.Tile(0, 0).BaseSprite = 2
	c.Tile(0, 1).BaseSprite = 3
	out := c.BuildDelta(0, 0)

	packets, err := opcode.Split(out)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(packets) != 2 {
		t.Fatalf("expected 2 SETMAP packets, got %d", len(packets))
	}
	if packets[0].Offset != 0 {
		t.Fatalf("expected first packet to be absolute form (fresh cursor), got offset %d", packets[0].Offset)
	}
	if packets[1].Offset == 0 {
		t.Fatal("expected second packet to use the delta-offset form")
	}
}

func TestLightOnlySingleTileUsesSetMap4(t *testing.T) {
	c := NewConnection()
	c.BuildDelta(0, 0) // establish a zero baseline

	c.Tile(3, 3).Light = 5
	out := c.BuildDelta(0, 0)

	if len(out) != 3 {
		t.Fatalf("expected a 3-byte SETMAP4 packet, got %d bytes: %x", len(out), out)
	}
	if out[0] != byte(opcode.SetMap4) {
		t.Fatalf("expected SETMAP4 opcode, got 0x%02x", out[0])
	}
	wantIdx := 3*wiretile.TileX + 3
	if int(out[1]) != wantIdx {
		t.Fatalf("expected start index %d, got %d", wantIdx, out[1])
	}
	if out[2]&0x0F != 5 {
		t.Fatalf("expected base light 5, got %d", out[2]&0x0F)
	}
}

func TestLightOnlyRunOfThreeUsesSetMap5(t *testing.T) {
	c := NewConnection()
	c.BuildDelta(0, 0)

	c.Tile(0, 0).Light = 1
	c.Tile(1, 0).Light = 2
	c.Tile(2, 0).Light = 3
	out := c.BuildDelta(0, 0)

	if out[0] != byte(opcode.SetMap5) {
		t.Fatalf("expected SETMAP5 for a 3-tile light run, got 0x%02x", out[0])
	}
	if len(out) != 4 {
		t.Fatalf("expected SETMAP5's fixed 4-byte length, got %d", len(out))
	}
}

func TestLightOnlyRunOfSevenUsesSetMap6(t *testing.T) {
	c := NewConnection()
	c.BuildDelta(0, 0)

	for x := 0; x < 7; x++ {
		c.Tile(x, 0).Light = uint8(x + 1)
	}
	out := c.BuildDelta(0, 0)

	if out[0] != byte(opcode.SetMap6) {
		t.Fatalf("expected SETMAP6 for a 7-tile light run, got 0x%02x", out[0])
	}
	if len(out) != 6 {
		t.Fatalf("expected SETMAP6's fixed 6-byte length, got %d", len(out))
	}
}

func TestLightOnlyLongRunUsesSetMap3(t *testing.T) {
	c := NewConnection()
	c.BuildDelta(0, 0)

	for x := 0; x < 16; x++ {
		c.Tile(x, 0).Light = uint8((x % 15) + 1)
	}
	out := c.BuildDelta(0, 0)

	if out[0] != byte(opcode.SetMap3) {
		t.Fatalf("expected SETMAP3 for a 16-tile light run, got 0x%02x", out[0])
	}
	if len(out) != 16 {
		t.Fatalf("expected SETMAP3's fixed 16-byte length, got %d", len(out))
	}
}

func TestScrollOneStepEmitsScrollOpcodeNotFullResend(t *testing.T) {
	c := NewConnection()
	for i := range c.current {
		c.current[i].BaseSprite = uint16(i + 1)
	}
	c.BuildDelta(100, 100)

	// Shift the live grid content the same way the world would: tiles
	// slide so the overlap still matches what scrolling should produce.
	wiretile.Shift(c.current[:], wiretile.TileX, wiretile.TileY, 1, 0)
	out := c.BuildDelta(101, 100)

	if len(out) == 0 || out[0] != byte(opcode.ScrollRight) {
		t.Fatalf("expected a lone SCROLL_RIGHT opcode, got %x", out)
	}
	if len(out) != 1 {
		t.Fatalf("expected the shifted overlap to need no further bytes, got %d bytes: %x", len(out), out)
	}
}

func TestTeleportForcesSetOriginAndFullResend(t *testing.T) {
	c := NewConnection()
	c.Tile(0, 0).BaseSprite = 9
	c.BuildDelta(0, 0)

	c.Tile(0, 0).BaseSprite = 9 // unchanged content, but origin jumps far
	out := c.BuildDelta(500, 500)

	if out[0] != byte(opcode.SetOrigin) {
		t.Fatalf("expected SETORIGIN on a large jump, got 0x%02x", out[0])
	}
	packets, err := opcode.Split(out[5:])
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(packets) != 1 {
		t.Fatalf("expected the one non-zero tile to be resent after teleport, got %d packets", len(packets))
	}
}
