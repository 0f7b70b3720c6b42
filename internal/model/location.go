package model

// Location представляет координаты в игровом мире.
// Value type, передаётся по значению (immutable).
type Location struct {
	X       int32
	Y       int32
	Z       int32
	Heading uint16 // 0-65535
}

// NewLocation создаёт Location с указанными координатами.
func NewLocation(x, y, z int32, heading uint16) Location {
	// Heading already 0-65535 по типу uint16, no need to clamp
	return Location{X: x, Y: y, Z: z, Heading: heading}
}
