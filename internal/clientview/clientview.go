// Package clientview is the client-side half of C6/C7: a mirror tile grid
// that replays the opcode stream the server's worldview package built, so
// both ends agree on what the viewer currently sees without the client
// ever having its own world simulation.
package clientview

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/veilstead/realmd/internal/opcode"
	"github.com/veilstead/realmd/internal/wiretile"
)

// ErrMalformedCommand is returned when a decoded opcode packet fails to
// apply to the grid (a SETMAP or light-run index outside the grid, a
// truncated field). The connection that produced it is not trustworthy
// and must be dropped.
var ErrMalformedCommand = errors.New("clientview: malformed map command")

// Grid is the client's mirror of one viewer's tile grid, plus the world
// origin SETORIGIN last established.
type Grid struct {
	tiles            [wiretile.TileCount]wiretile.Tile
	originX, originY int32
	tick             byte
}

// NewGrid returns an empty grid with no established origin.
func NewGrid() *Grid {
	return &Grid{}
}

// Tile returns the tile currently held at (x, y).
func (g *Grid) Tile(x, y int) wiretile.Tile {
	return g.tiles[y*wiretile.TileX+x]
}

// Origin returns the world coordinates of the grid's (0,0) tile.
func (g *Grid) Origin() (x, y int32) { return g.originX, g.originY }

// Tick returns the low byte of the last TICK opcode applied.
func (g *Grid) Tick() byte { return g.tick }

// Apply decodes and replays one tick's worth of opcode packets (as
// produced by opcode.Split on the freshly inflated tick buffer) onto the
// grid. Packets outside this package's concern — character state,
// inventory, sound, and the rest of the non-map opcodes — are returned
// unconsumed for the caller to dispatch elsewhere. The SETMAP delta
// cursor is local to this call, matching the reset-per-tick contract
// both ends of the protocol share.
func (g *Grid) Apply(packets []opcode.Packet) (unhandled []opcode.Packet, err error) {
	cursor := wiretile.NoCursor()

	for _, pkt := range packets {
		switch {
		case pkt.IsSetMap:
			if err := g.applySetMap(&cursor, pkt); err != nil {
				return unhandled, err
			}

		case pkt.Opcode == opcode.SetMap3 || pkt.Opcode == opcode.SetMap4 ||
			pkt.Opcode == opcode.SetMap5 || pkt.Opcode == opcode.SetMap6:
			if err := wiretile.DecodeLightRun(g.tiles[:], pkt.Data); err != nil {
				return unhandled, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
			}

		case pkt.Opcode == opcode.SetOrigin:
			if len(pkt.Data) != 5 {
				return unhandled, fmt.Errorf("%w: SETORIGIN wrong length", ErrMalformedCommand)
			}
			g.originX = int32(int16(binary.LittleEndian.Uint16(pkt.Data[1:3])))
			g.originY = int32(int16(binary.LittleEndian.Uint16(pkt.Data[3:5])))
			g.tiles = [wiretile.TileCount]wiretile.Tile{}

		case isScroll(pkt.Opcode):
			d := opcode.ScrollDelta[pkt.Opcode]
			wiretile.Shift(g.tiles[:], wiretile.TileX, wiretile.TileY, d[0], d[1])
			g.originX += int32(d[0])
			g.originY += int32(d[1])

		case pkt.Opcode == opcode.Tick:
			if len(pkt.Data) != 2 {
				return unhandled, fmt.Errorf("%w: TICK wrong length", ErrMalformedCommand)
			}
			g.tick = pkt.Data[1]

		default:
			unhandled = append(unhandled, pkt)
		}
	}
	return unhandled, nil
}

func (g *Grid) applySetMap(cursor *wiretile.Cursor, pkt opcode.Packet) error {
	// DecodeSetMap needs a destination tile to decode into, but the target
	// index is only known once the offset/absolute form in the packet is
	// resolved — resolve first against a scratch cursor copy, then decode
	// into the real slot.
	probe := *cursor
	idx, err := wiretile.DecodeSetMap(&probe, &wiretile.Tile{}, pkt.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	if idx < 0 || idx >= wiretile.TileCount {
		return fmt.Errorf("%w: SETMAP index %d out of range", ErrMalformedCommand, idx)
	}
	if _, err := wiretile.DecodeSetMap(cursor, &g.tiles[idx], pkt.Data); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	return nil
}

func isScroll(op int) bool {
	_, ok := opcode.ScrollDelta[op]
	return ok
}
