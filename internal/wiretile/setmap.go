package wiretile

import "encoding/binary"

// setMapBit marks a server-stream opcode byte as a SETMAP packet; its low
// 7 bits are then a delta offset rather than a distinct opcode. Declared
// here (not in internal/opcode) because encoding/decoding a SETMAP packet
// is inseparable from the field layout this file owns.
const setMapBit = 0x80

// EncodeSetMap builds one SETMAP packet moving from cursor's current tile
// to tileIndex, carrying the fields set in mask read off tile. It chooses
// the 7-bit delta-offset form when the cursor allows it, otherwise the
// absolute form, and always advances cursor to tileIndex afterward.
func EncodeSetMap(cursor *Cursor, tileIndex int, mask FieldMask, tile Tile) []byte {
	offset, ok := cursor.Offset(tileIndex)

	var out []byte
	if ok {
		out = append(out, byte(setMapBit|offset), byte(mask))
	} else {
		out = append(out, byte(setMapBit), byte(mask))
		var idx [2]byte
		binary.LittleEndian.PutUint16(idx[:], uint16(tileIndex))
		out = append(out, idx[:]...)
	}
	cursor.Advance(tileIndex)

	for _, f := range AllFields() {
		if mask.Has(f) {
			out = append(out, encodeField(tile, f)...)
		}
	}
	return out
}

// DecodeSetMap resolves the target tile index of a SETMAP packet against
// cursor (advancing it), then applies the packet's fields onto tile,
// leaving fields absent from the mask untouched. data is the full packet
// including its opcode byte.
func DecodeSetMap(cursor *Cursor, tile *Tile, data []byte) (tileIndex int, err error) {
	if len(data) < 2 {
		return 0, ErrTruncatedSetMap
	}
	op := int(data[0])
	offset := op &^ setMapBit
	mask := FieldMask(data[1])

	pos := 2
	abs := 0
	if offset == 0 {
		if len(data) < 4 {
			return 0, ErrTruncatedSetMap
		}
		abs = int(binary.LittleEndian.Uint16(data[2:4]))
		pos = 4
	}
	idx := cursor.Resolve(offset, abs)

	for _, f := range AllFields() {
		if !mask.Has(f) {
			continue
		}
		w := FieldWidths[f]
		if pos+w > len(data) {
			return 0, ErrTruncatedSetMap
		}
		decodeField(tile, f, data[pos:pos+w])
		pos += w
	}
	return idx, nil
}

// DiffMask compares a and b field-group by field-group and returns the mask
// of groups that differ. A group counts as differing if any one of its
// constituent members differs, matching the byte layout encodeField/
// decodeField use to pack and unpack that group.
func DiffMask(a, b Tile) FieldMask {
	var m FieldMask
	if a.BaseSprite != b.BaseSprite {
		m = m.Set(FieldBaseSprite)
	}
	if a.CharacterSprite != b.CharacterSprite || a.ItemStatus != b.ItemStatus || a.CharacterStatus != b.CharacterStatus {
		m = m.Set(FieldCharacterAppearance)
	}
	if a.Flags1 != b.Flags1 {
		m = m.Set(FieldFlags1)
	}
	if a.ItemSprite != b.ItemSprite {
		m = m.Set(FieldItemSprite)
	}
	if a.Light != b.Light || a.CharacterStatusOffset != b.CharacterStatusOffset {
		m = m.Set(FieldLightStatusOffset)
	}
	if a.Flags2 != b.Flags2 {
		m = m.Set(FieldFlags2)
	}
	if a.CharacterNumber != b.CharacterNumber || a.CharacterID != b.CharacterID || a.CharacterSpeed != b.CharacterSpeed {
		m = m.Set(FieldCharacterIdentity)
	}
	if a.CharacterPercentage != b.CharacterPercentage {
		m = m.Set(FieldCharacterPercentage)
	}
	return m
}

// LightOnlyDiff reports whether a and b differ only in Light (not in
// CharacterStatusOffset or any other field) — the condition under which the
// delta builder may prefer a packed light-run opcode over a full SETMAP.
func LightOnlyDiff(a, b Tile) bool {
	return DiffMask(a, b) == FieldMask(0).Set(FieldLightStatusOffset) &&
		a.CharacterStatusOffset == b.CharacterStatusOffset
}

func encodeField(t Tile, f Field) []byte {
	switch f {
	case FieldBaseSprite:
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], t.BaseSprite)
		return b[:]
	case FieldCharacterAppearance:
		var b [4]byte
		binary.LittleEndian.PutUint16(b[0:2], t.CharacterSprite)
		b[2] = t.ItemStatus
		b[3] = t.CharacterStatus
		return b[:]
	case FieldFlags1:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], t.Flags1)
		return b[:]
	case FieldItemSprite:
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], t.ItemSprite)
		return b[:]
	case FieldLightStatusOffset:
		return []byte{(t.Light << 4 & 0xF0) | (t.CharacterStatusOffset & 0x0F)}
	case FieldFlags2:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], t.Flags2)
		return b[:]
	case FieldCharacterIdentity:
		var b [5]byte
		binary.LittleEndian.PutUint16(b[0:2], t.CharacterNumber)
		binary.LittleEndian.PutUint16(b[2:4], t.CharacterID)
		b[4] = t.CharacterSpeed
		return b[:]
	case FieldCharacterPercentage:
		return []byte{t.CharacterPercentage}
	default:
		return nil
	}
}

func decodeField(t *Tile, f Field, b []byte) {
	switch f {
	case FieldBaseSprite:
		t.BaseSprite = binary.LittleEndian.Uint16(b)
	case FieldCharacterAppearance:
		t.CharacterSprite = binary.LittleEndian.Uint16(b[0:2])
		t.ItemStatus = b[2]
		t.CharacterStatus = b[3]
	case FieldFlags1:
		t.Flags1 = binary.LittleEndian.Uint32(b)
	case FieldItemSprite:
		t.ItemSprite = binary.LittleEndian.Uint16(b)
	case FieldLightStatusOffset:
		t.Light = (b[0] >> 4) & 0x0F
		t.CharacterStatusOffset = b[0] & 0x0F
	case FieldFlags2:
		t.Flags2 = binary.LittleEndian.Uint32(b)
	case FieldCharacterIdentity:
		t.CharacterNumber = binary.LittleEndian.Uint16(b[0:2])
		t.CharacterID = binary.LittleEndian.Uint16(b[2:4])
		t.CharacterSpeed = b[4]
	case FieldCharacterPercentage:
		t.CharacterPercentage = b[0]
	}
}
