package world

import (
	"encoding/binary"

	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world/tile"
)

// Размеры сериализованных данных
const (
	TileBytes  = 4                            // bg u16 LE + mid u16 LE
	ChunkBytes = vec.ChunkTiles * TileBytes   // 65536
	RegionSize = vec.RegionChunks * ChunkBytes // 4194304, распакованный регион
)

// Tile: клетка мира. Хранится по значению.
type Tile struct {
	Bg  tile.ID // Фоновая стена
	Mid tile.ID // Твёрдый слой
}

// Layer возвращает ID тайла на указанном слое
func (t Tile) Layer(layer tile.Layer) tile.ID {
	if layer == tile.Background {
		return t.Bg
	}
	return t.Mid
}

// SetLayer устанавливает ID тайла на указанном слое
func (t *Tile) SetLayer(layer tile.Layer, id tile.ID) {
	if layer == tile.Background {
		t.Bg = id
		return
	}
	t.Mid = id
}

// IsEmpty сообщает, что оба слоя пусты
func (t Tile) IsEmpty() bool {
	return t.Bg == tile.Empty && t.Mid == tile.Empty
}

// Chunk: квадрат 128x128 тайлов в плоском массиве, индекс y*128+x.
// Своей идентичности у чанка нет, только позиция у владельца.
type Chunk struct {
	Tiles [vec.ChunkTiles]Tile
}

// NewChunk создаёт пустой чанк
func NewChunk() *Chunk {
	return &Chunk{}
}

// At возвращает изменяемую ссылку на тайл по локальным координатам
func (c *Chunk) At(local vec.LocalPos) *Tile {
	return &c.Tiles[local.Index()]
}

// Get возвращает тайл по локальным координатам
func (c *Chunk) Get(local vec.LocalPos) Tile {
	return c.Tiles[local.Index()]
}

// Set устанавливает тайл по локальным координатам
func (c *Chunk) Set(local vec.LocalPos, t Tile) {
	c.Tiles[local.Index()] = t
}

// IsEmpty сообщает, что все тайлы чанка пусты
func (c *Chunk) IsEmpty() bool {
	for i := range c.Tiles {
		if !c.Tiles[i].IsEmpty() {
			return false
		}
	}
	return true
}

// Encode записывает тайлы чанка в dst построчно, по 4 байта на тайл.
// len(dst) должен быть не меньше ChunkBytes.
func (c *Chunk) Encode(dst []byte) {
	_ = dst[ChunkBytes-1]
	for i, t := range c.Tiles {
		off := i * TileBytes
		binary.LittleEndian.PutUint16(dst[off:], uint16(t.Bg))
		binary.LittleEndian.PutUint16(dst[off+2:], uint16(t.Mid))
	}
}

// Bytes возвращает сериализованный чанк
func (c *Chunk) Bytes() []byte {
	out := make([]byte, ChunkBytes)
	c.Encode(out)
	return out
}

// DecodeChunk восстанавливает чанк из ChunkBytes байт
func DecodeChunk(src []byte) *Chunk {
	_ = src[ChunkBytes-1]
	c := NewChunk()
	for i := range c.Tiles {
		off := i * TileBytes
		c.Tiles[i] = Tile{
			Bg:  tile.ID(binary.LittleEndian.Uint16(src[off:])),
			Mid: tile.ID(binary.LittleEndian.Uint16(src[off+2:])),
		}
	}
	return c
}
