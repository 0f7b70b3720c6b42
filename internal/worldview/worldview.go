// Package worldview is the server-side half of C6: it holds one viewer's
// current tile grid against the last grid actually sent to that viewer,
// and on each tick emits the minimal opcode stream (scroll, packed
// light-run, and SETMAP) needed to bring the client's mirror grid in line.
package worldview

import (
	"encoding/binary"

	"github.com/veilstead/realmd/internal/opcode"
	"github.com/veilstead/realmd/internal/wiretile"
)

// Connection is the per-connection server-side view state. The simulation
// phase writes this tick's world content into Tile/SetTile before the
// write phase calls BuildDelta; it is not safe for concurrent use, in
// keeping with the rest of a connection's per-connection state.
type Connection struct {
	current  [wiretile.TileCount]wiretile.Tile
	snapshot [wiretile.TileCount]wiretile.Tile
	originX  int32
	originY  int32
	started  bool
}

// NewConnection returns a fresh connection view with no tiles and no
// established origin; the first BuildDelta call always does a full resend.
func NewConnection() *Connection {
	return &Connection{}
}

// Tile returns a pointer to the current (not-yet-sent) tile at (x, y) for
// the simulation phase to populate before BuildDelta runs.
func (c *Connection) Tile(x, y int) *wiretile.Tile {
	return &c.current[y*wiretile.TileX+x]
}

// BuildDelta compares the current grid against the last grid sent to this
// viewer, given the viewer's new world origin, and returns the opcode
// bytes to append to this tick's outbound buffer. Scroll opcodes are
// preferred over a full resend when the origin moved by exactly one step
// in a compass direction; any larger jump (including the very first call)
// forces a SETORIGIN and treats every tile as new.
func (c *Connection) BuildDelta(originX, originY int32) []byte {
	var out []byte

	dx := int(originX - c.originX)
	dy := int(originY - c.originY)

	switch {
	case !c.started:
		out = append(out, encodeSetOrigin(originX, originY)...)
		c.snapshot = [wiretile.TileCount]wiretile.Tile{}
		c.started = true
	case dx == 0 && dy == 0:
		// no origin movement this tick
	case iabs(dx) <= 1 && iabs(dy) <= 1:
		if op, ok := scrollOpcodeFor(dx, dy); ok {
			out = append(out, byte(op))
			wiretile.Shift(c.snapshot[:], wiretile.TileX, wiretile.TileY, dx, dy)
		}
	default:
		out = append(out, encodeSetOrigin(originX, originY)...)
		c.snapshot = [wiretile.TileCount]wiretile.Tile{}
	}
	c.originX, c.originY = originX, originY

	cursor := wiretile.NoCursor()
	i := 0
	for i < wiretile.TileCount {
		cur := c.current[i]
		snap := c.snapshot[i]
		if cur == snap {
			i++
			continue
		}

		if wiretile.LightOnlyDiff(cur, snap) {
			remaining := wiretile.TileCount - 1 - i
			extra := collectLightRun(c.current[:], c.snapshot[:], i)
			op, capacity := chooseLightRun(extra, remaining)

			nibbles := make([]uint8, capacity)
			for k := 0; k < capacity; k++ {
				nibbles[k] = c.current[i+1+k].Light
			}
			out = append(out, wiretile.EncodeLightRun(byte(op), i, cur.Light, nibbles)...)

			c.snapshot[i].Light = cur.Light
			for k := 0; k < capacity; k++ {
				c.snapshot[i+1+k].Light = c.current[i+1+k].Light
			}
			i += capacity + 1
			continue
		}

		mask := wiretile.DiffMask(cur, snap)
		out = append(out, wiretile.EncodeSetMap(&cursor, i, mask, cur)...)
		c.snapshot[i] = cur
		i++
	}
	return out
}

// collectLightRun returns how many tiles past start (not counting start
// itself) also differ from their snapshot in Light alone, contiguously,
// capped at the largest packed light-run variant's capacity.
func collectLightRun(current, snapshot []wiretile.Tile, start int) int {
	extra := 0
	for start+extra+1 < len(current) && extra < 26 &&
		wiretile.LightOnlyDiff(current[start+extra+1], snapshot[start+extra+1]) {
		extra++
	}
	return extra
}

// chooseLightRun picks the smallest packed light-run opcode whose fixed
// nibble capacity both covers extra and fits within remaining grid tiles.
// remaining is always >= extra by construction (collectLightRun never
// looks past the grid edge), so SetMap4's zero-capacity form is always a
// valid fallback.
func chooseLightRun(extra, remaining int) (op int, capacity int) {
	variants := [4]struct {
		op  int
		cap int
	}{
		{opcode.SetMap4, 0},
		{opcode.SetMap5, 2},
		{opcode.SetMap6, 6},
		{opcode.SetMap3, 26},
	}
	for _, v := range variants {
		if v.cap >= extra && v.cap <= remaining {
			return v.op, v.cap
		}
	}
	return opcode.SetMap4, 0
}

func scrollOpcodeFor(dx, dy int) (int, bool) {
	for op, d := range opcode.ScrollDelta {
		if d[0] == dx && d[1] == dy {
			return op, true
		}
	}
	return 0, false
}

func encodeSetOrigin(x, y int32) []byte {
	out := make([]byte, 5)
	out[0] = byte(opcode.SetOrigin)
	binary.LittleEndian.PutUint16(out[1:3], uint16(int16(x)))
	binary.LittleEndian.PutUint16(out[3:5], uint16(int16(y)))
	return out
}

func iabs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
