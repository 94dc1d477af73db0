package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPixelToTile(t *testing.T) {
	assert.Equal(t, TilePos{X: 0, Y: 0}, PixelPos{X: 0, Y: 0}.Tile())
	assert.Equal(t, TilePos{X: 0, Y: 0}, PixelPos{X: 31, Y: 31}.Tile())
	assert.Equal(t, TilePos{X: 1, Y: 3}, PixelPos{X: 32, Y: 100}.Tile())
}

func TestTileSplitRoundTrip(t *testing.T) {
	// Проверяем границы осей и точки вокруг границ чанков и регионов
	axis := []uint32{
		0, 1, ChunkExtent - 1, ChunkExtent, ChunkExtent + 1,
		ChunkExtent*RegionExtent - 1, ChunkExtent * RegionExtent,
		12345, TileMax / 2, TileMax - ChunkExtent, TileMax - 1,
	}

	for _, x := range axis {
		for _, y := range axis {
			pos := TilePos{X: x, Y: y}
			chunk, local := pos.Split()

			assert.True(t, chunk.Valid(), "чанк вне границ для %v", pos)
			assert.Less(t, int(local.X), ChunkExtent)
			assert.Less(t, int(local.Y), ChunkExtent)
			assert.Equal(t, pos, TileFromParts(chunk, local), "позиция должна восстанавливаться")
		}
	}
}

func TestTileSplitExhaustiveAxis(t *testing.T) {
	// Ось X проверяется полностью, Y фиксирован
	for x := uint32(0); x < TileMax; x += 7 {
		pos := TilePos{X: x, Y: 77}
		chunk, local := pos.Split()
		if got := TileFromParts(chunk, local); got != pos {
			t.Fatalf("round trip %v -> %v", pos, got)
		}
	}
}

func TestChunkRegionAndSlot(t *testing.T) {
	c := ChunkPos{X: 19, Y: 10}
	assert.Equal(t, RegionPos{X: 2, Y: 1}, c.Region())

	lx, ly := c.LocalInRegion()
	assert.Equal(t, uint8(3), lx)
	assert.Equal(t, uint8(2), ly)
	assert.Equal(t, 2*RegionExtent+3, c.Slot())

	assert.Equal(t, c, c.Region().ChunkAt(c.Slot()))

	last := ChunkPos{X: ChunkMax - 1, Y: ChunkMax - 1}
	assert.Equal(t, RegionPos{X: 254, Y: 254}, last.Region())
	assert.Equal(t, RegionChunks-1, last.Slot())
}

func TestLocalIndex(t *testing.T) {
	assert.Equal(t, 0, LocalPos{}.Index())
	assert.Equal(t, ChunkTiles-1, LocalPos{X: ChunkExtent - 1, Y: ChunkExtent - 1}.Index())

	for _, idx := range []int{0, 1, 127, 128, 5000, ChunkTiles - 1} {
		assert.Equal(t, idx, LocalFromIndex(idx).Index())
	}
}

func TestRegionFileName(t *testing.T) {
	assert.Equal(t, "0.0.rgn", RegionPos{}.FileName())
	assert.Equal(t, "3.254.rgn", RegionPos{X: 3, Y: 254}.FileName())
}
