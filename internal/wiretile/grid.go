package wiretile

// TileX and TileY are the fixed dimensions of a viewer's tile grid. 16x16
// keeps every flat tile index in a single byte (0-255), which the packed
// light-run opcodes (SETMAP3/4/5/6) require for their start-index byte.
const (
	TileX     = 16
	TileY     = 16
	TileCount = TileX * TileY
)

// Shift moves the contents of a row-major width×height tile grid by
// (dx, dy): the tile that ends up at (x, y) is whatever was at
// (x+dx, y+dy) before the shift. Positions that would read outside the
// grid are left untouched — the tiles uncovered by the shift keep their
// old values until a subsequent SETMAP overwrites them. Both the server's
// delta builder and the client's command applier call this so a scroll
// opcode means exactly the same thing on both ends.
func Shift(tiles []Tile, width, height, dx, dy int) {
	src := make([]Tile, len(tiles))
	copy(src, tiles)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sx, sy := x+dx, y+dy
			if sx < 0 || sx >= width || sy < 0 || sy >= height {
				continue
			}
			tiles[y*width+x] = src[sy*width+sx]
		}
	}
}
