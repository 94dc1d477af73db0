package world

import (
	"math"

	"github.com/annel0/tileworld/internal/util"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world/tile"
)

// Константы рельефа. Ось Y направлена вниз, меньший Y выше.
const (
	SurfaceLevel     = 600 // Базовая линия поверхности, в тайлах
	SurfaceAmplitude = 48  // Максимальное отклонение поверхности от базовой линии
	DirtDepth        = 48  // Средняя толщина слоя земли под поверхностью
	DirtDepthVar     = 8   // Отклонение толщины земли
	FloorChunkY      = 24  // Чанки с Y >= FloorChunkY целиком из бедрока

	terrainScale = 0.05  // Масштаб 2D-шума (пещеры, руды)
	surfaceScale = 0.01  // Масштаб 1D-шума поверхности
	stoneScale   = 0.043 // Масштаб 1D-шума границы камня
	stoneOffset  = 517.3 // Сдвиг, чтобы граница камня не повторяла поверхность
)

// Пороги 2D-шума
const (
	clayCutoff = 0.55 // Выше: глина в слое земли
	caveCutoff = 0.45 // Выше: пещера в камне

	coalCutoff = -0.40 // Ниже: уголь
	ironCutoff = -0.50 // Ниже: железо
	goldCutoff = -0.60 // Ниже: золото

	goldMinDepth = 200 // Золото только глубже этого числа тайлов под границей камня
)

// Модули выбора декоративных объектов на поверхности
const (
	treeModulus  = 23
	rockModulus  = 31
	stickModulus = 37
)

// ChunkSource создаёт чанки, которых ещё нет на диске
type ChunkSource interface {
	Generate(pos vec.ChunkPos) *Chunk
}

// Generator детерминированно генерирует рельеф. Результат зависит
// только от позиции чанка и сида мира.
type Generator struct {
	seed  int64
	noise *util.Noise
}

// NewGenerator создаёт генератор мира
func NewGenerator(seed int64) *Generator {
	return &Generator{
		seed:  seed,
		noise: util.NewNoise(seed),
	}
}

// Seed возвращает сид мира
func (g *Generator) Seed() int64 {
	return g.seed
}

// SurfaceAt возвращает Y первого твёрдого тайла колонки x
func (g *Generator) SurfaceAt(x uint32) int {
	n := g.noise.At1D(float64(x) * surfaceScale)
	return SurfaceLevel + int(n*SurfaceAmplitude)
}

// StoneAt возвращает Y, с которого в колонке x начинается камень
func (g *Generator) StoneAt(x uint32, surface int) int {
	n := g.noise.At1D(float64(x)*stoneScale + stoneOffset)
	return surface + DirtDepth + int(n*DirtDepthVar)
}

// Generate генерирует чанк по его координатам
func (g *Generator) Generate(pos vec.ChunkPos) *Chunk {
	chunk := NewChunk()

	if pos.Y >= FloorChunkY {
		for i := range chunk.Tiles {
			chunk.Tiles[i] = Tile{Bg: tile.BgStone, Mid: tile.MidBedrock}
		}
		return chunk
	}

	origin := pos.Origin()
	for lx := 0; lx < vec.ChunkExtent; lx++ {
		x := origin.X + uint32(lx)
		surface := g.SurfaceAt(x)
		stone := g.StoneAt(x, surface)

		// Колонка целиком в воздухе: шум по тайлам не нужен
		if int(origin.Y)+vec.ChunkExtent < surface-1 {
			continue
		}

		for ly := 0; ly < vec.ChunkExtent; ly++ {
			y := int(origin.Y) + ly
			if y < surface-1 {
				continue
			}

			v := g.noise.At2D(float64(x)*terrainScale, float64(y)*terrainScale)
			chunk.Tiles[ly*vec.ChunkExtent+lx] = g.tileFor(y, surface, stone, v)
		}
	}

	return chunk
}

// tileFor выбирает содержимое тайла по глубине и значению шума
func (g *Generator) tileFor(y, surface, stone int, v float64) Tile {
	switch {
	case y < surface-1:
		return Tile{}

	case y == surface-1:
		return Tile{Mid: decoration(v)}

	case y == surface:
		return Tile{Bg: tile.BgDirt, Mid: tile.MidGrass}

	case y < stone:
		if v > clayCutoff {
			return Tile{Bg: tile.BgDirt, Mid: tile.MidClay}
		}
		return Tile{Bg: tile.BgDirt, Mid: tile.MidDirt}
	}

	t := Tile{Bg: tile.BgStone, Mid: tile.MidStone}
	switch {
	case v > caveCutoff:
		t.Mid = tile.Empty
	case v < goldCutoff && y-stone >= goldMinDepth:
		t.Mid = tile.MidGold
	case v < ironCutoff:
		t.Mid = tile.MidIron
	case v < coalCutoff:
		t.Mid = tile.MidCoal
	}
	return t
}

// decoration выбирает объект над поверхностью по модулю от значения шума
func decoration(v float64) tile.ID {
	h := int(math.Round(math.Abs(v) * 1e6))
	switch {
	case h == 0: // узлы решётки шума
		return tile.Empty
	case h%treeModulus == 0:
		return tile.MidTree
	case h%rockModulus == 0:
		return tile.MidRock
	case h%stickModulus == 0:
		return tile.MidStick
	}
	return tile.Empty
}
