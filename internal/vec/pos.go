package vec

import "fmt"

// Размеры пространств координат.
const (
	TileSizePx   = 32  // Пикселей на сторону тайла
	ChunkExtent  = 128 // Тайлов на сторону чанка
	RegionExtent = 8   // Чанков на сторону региона

	ChunkTiles   = ChunkExtent * ChunkExtent   // 16384
	RegionChunks = RegionExtent * RegionExtent // 64

	// ChunkMax ограничивает координату чанка так, чтобы индекс региона
	// всегда помещался в один байт.
	ChunkMax = 255 * RegionExtent
	// TileMax: верхняя (исключённая) граница координаты тайла.
	TileMax = ChunkMax * ChunkExtent
)

// PixelPos: координаты в пикселях мира.
type PixelPos struct {
	X, Y uint32
}

// TilePos: абсолютные координаты тайла, [0, TileMax).
type TilePos struct {
	X, Y uint32
}

// ChunkPos: координаты чанка, [0, ChunkMax).
type ChunkPos struct {
	X, Y uint16
}

// LocalPos: координаты тайла внутри чанка, [0, ChunkExtent).
type LocalPos struct {
	X, Y uint8
}

// RegionPos: координаты региона (файла на диске).
type RegionPos struct {
	X, Y uint8
}

// Tile переводит пиксельные координаты в координаты тайла
func (p PixelPos) Tile() TilePos {
	return TilePos{X: p.X / TileSizePx, Y: p.Y / TileSizePx}
}

// Split разбивает координату тайла на чанк и локальную позицию, по каждой оси независимо
func (t TilePos) Split() (ChunkPos, LocalPos) {
	chunk := ChunkPos{X: uint16(t.X / ChunkExtent), Y: uint16(t.Y / ChunkExtent)}
	local := LocalPos{X: uint8(t.X % ChunkExtent), Y: uint8(t.Y % ChunkExtent)}
	return chunk, local
}

// Valid сообщает, лежит ли позиция в границах мира.
// Только для тестов и отладочных проверок.
func (t TilePos) Valid() bool {
	return t.X < TileMax && t.Y < TileMax
}

// TileFromParts собирает абсолютную позицию тайла из чанка и локальной позиции
func TileFromParts(chunk ChunkPos, local LocalPos) TilePos {
	origin := chunk.Origin()
	return TilePos{X: origin.X + uint32(local.X), Y: origin.Y + uint32(local.Y)}
}

// Origin возвращает позицию левого верхнего тайла чанка
func (c ChunkPos) Origin() TilePos {
	return TilePos{X: uint32(c.X) * ChunkExtent, Y: uint32(c.Y) * ChunkExtent}
}

// Region возвращает регион, в котором лежит чанк
func (c ChunkPos) Region() RegionPos {
	return RegionPos{X: uint8(c.X / RegionExtent), Y: uint8(c.Y / RegionExtent)}
}

// LocalInRegion возвращает позицию чанка внутри его региона
func (c ChunkPos) LocalInRegion() (x, y uint8) {
	return uint8(c.X % RegionExtent), uint8(c.Y % RegionExtent)
}

// Slot возвращает индекс слота чанка в регионе: local_y*RegionExtent + local_x
func (c ChunkPos) Slot() int {
	x, y := c.LocalInRegion()
	return int(y)*RegionExtent + int(x)
}

// Valid сообщает, лежит ли чанк в границах мира
func (c ChunkPos) Valid() bool {
	return c.X < ChunkMax && c.Y < ChunkMax
}

func (c ChunkPos) String() string {
	return fmt.Sprintf("chunk(%d,%d)", c.X, c.Y)
}

// Index возвращает индекс тайла в плоском массиве чанка
func (l LocalPos) Index() int {
	return int(l.Y)*ChunkExtent + int(l.X)
}

// LocalFromIndex: обратное преобразование к Index
func LocalFromIndex(idx int) LocalPos {
	return LocalPos{X: uint8(idx % ChunkExtent), Y: uint8(idx / ChunkExtent)}
}

// ChunkAt возвращает координаты чанка по слоту внутри региона
func (r RegionPos) ChunkAt(slot int) ChunkPos {
	return ChunkPos{
		X: uint16(r.X)*RegionExtent + uint16(slot%RegionExtent),
		Y: uint16(r.Y)*RegionExtent + uint16(slot/RegionExtent),
	}
}

// FileName возвращает имя файла региона: "{rx}.{ry}.rgn"
func (r RegionPos) FileName() string {
	return fmt.Sprintf("%d.%d.rgn", r.X, r.Y)
}

func (r RegionPos) String() string {
	return fmt.Sprintf("region(%d,%d)", r.X, r.Y)
}
