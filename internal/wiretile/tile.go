// Package wiretile defines the shared tile data model used by both the
// server's delta builder (worldview) and the client's command applier
// (clientview). Keeping the field order and widths in one place is what
// lets both sides agree bit-for-bit on SETMAP's packed layout (spec §9:
// "Keep the widths and field order in a single source of truth used by
// both encoder and decoder").
package wiretile

// Tile is the unit of world state carried over the wire. Every field is
// optional in any given SETMAP update — FieldMask says which ones are
// present.
type Tile struct {
	BaseSprite      uint16
	ItemSprite      uint16
	CharacterSprite uint16
	Flags1          uint32
	Flags2          uint32
	Light           uint8 // low nibble used
	ItemStatus      uint8
	CharacterStatus uint8
	// CharacterStatusOffset is a transient sub-state offset from
	// CharacterStatus (e.g. mid-action progress). Packed into the same
	// wire byte as Light (see FieldLightStatusOffset).
	CharacterStatusOffset uint8
	CharacterSpeed        uint8
	CharacterPercentage   uint8
	CharacterNumber       uint16
	CharacterID           uint16

	// WorldX/WorldY are set by SETORIGIN and are not part of the SETMAP
	// field mask — they index the persistent minimap buffer, not the
	// per-connection delta stream.
	WorldX int32
	WorldY int32
}

// Field identifies one of the eight optional SETMAP fields, in mask-bit
// order (bit 0 is Field 0). Grouping of Tile members into fields below
// is fixed so FieldWidths sums correctly: two standalone 16-bit sprite
// fields (base, item — each exercised alone by the S3 test vector),
// two 32-bit flag words, a 5-byte "character identity" group, a 4-byte
// "character appearance" group, a 1-byte percentage, and a 1-byte
// light/status-offset nibble pair.
type Field int

const (
	FieldBaseSprite Field = iota
	FieldCharacterAppearance
	FieldFlags1
	FieldItemSprite
	FieldLightStatusOffset
	FieldFlags2
	FieldCharacterIdentity
	FieldCharacterPercentage
	fieldCount
)

// FieldWidths gives the wire width in bytes of each optional field, in
// mask-bit order: {2,4,4,2,1,4,5,1} per spec §4.3.
var FieldWidths = [8]int{2, 4, 4, 2, 1, 4, 5, 1}

// FieldMask is the 8-bit present-fields bitmask from SETMAP byte 1.
type FieldMask uint8

// Has reports whether f is set in the mask.
func (m FieldMask) Has(f Field) bool {
	return m&(1<<uint(f)) != 0
}

// Set returns a mask with f added.
func (m FieldMask) Set(f Field) FieldMask {
	return m | (1 << uint(f))
}

// PayloadLen returns the total byte length of the fields selected by m.
func (m FieldMask) PayloadLen() int {
	n := 0
	for f := Field(0); f < fieldCount; f++ {
		if m.Has(f) {
			n += FieldWidths[f]
		}
	}
	return n
}

// AllFields enumerates the eight fields in mask-bit order, for callers
// that need to walk them (encoder/decoder).
func AllFields() [8]Field {
	return [8]Field{
		FieldBaseSprite, FieldCharacterAppearance, FieldFlags1, FieldItemSprite,
		FieldLightStatusOffset, FieldFlags2, FieldCharacterIdentity, FieldCharacterPercentage,
	}
}

// Cursor is the per-flow-direction "last emitted/applied tile index".
// Per spec §3 and §9 it is reset exactly at tick boundaries and passed
// explicitly rather than hidden as package state, so splitting/encoding
// stay pure functions of their inputs.
type Cursor struct {
	value   int
	hasLast bool
}

// NoCursor returns a cursor in the "none" state, as required at the
// start of every tick payload.
func NoCursor() Cursor { return Cursor{} }

// Resolve applies a SETMAP offset against the cursor. offset == 0 means
// absolute (abs is the 16-bit index read from the payload); otherwise
// the target is cursor.value + offset. Resolve also advances the
// cursor to the resolved index, matching "update the cursor" in §4.7.
func (c *Cursor) Resolve(offset int, abs int) int {
	var idx int
	if offset == 0 {
		idx = abs
	} else {
		idx = c.value + offset
	}
	c.value = idx
	c.hasLast = true
	return idx
}

// Offset computes the SETMAP opcode form for moving from the cursor to
// target: returns (offset, ok) where ok is true if a positive 7-bit
// delta-offset form applies (spec §4.6: "choose the delta-offset opcode
// form if the current tile index minus the last emitted index fits in
// 7 bits and is positive"). ok is false when the cursor is unset or the
// delta doesn't fit, in which case the caller must emit the absolute
// form.
func (c Cursor) Offset(target int) (offset int, ok bool) {
	if !c.hasLast {
		return 0, false
	}
	d := target - c.value
	if d > 0 && d <= 0x7F {
		return d, true
	}
	return 0, false
}

// Advance records that target was just emitted/applied via the absolute
// form (offset == 0), establishing the cursor for subsequent deltas.
func (c *Cursor) Advance(target int) {
	c.value = target
	c.hasLast = true
}
