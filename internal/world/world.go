package world

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/storage"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world/tile"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// Игровое время
const (
	TicksPerSecond = 60
	TicksPerMinute = 60 // Игровая минута: одна реальная секунда
	TicksPerHour   = 60 * TicksPerMinute
	TicksPerDay    = 24 * TicksPerHour

	// StartTicks: новый мир начинается в 8 утра первого дня
	StartTicks = 8 * TicksPerHour
)

// DefaultCapacity: размер рабочего набора чанков по умолчанию
const DefaultCapacity = 16

// Options настраивает рабочий набор и хранилище мира
type Options struct {
	Capacity        int               // Сколько чанков держать в памяти
	EvictEveryTicks uint64            // Как часто Tick запускает RemoveOldChunks, 0: никогда
	Compression     zstd.EncoderLevel // Уровень сжатия регионов
}

// DefaultOptions возвращает настройки по умолчанию
func DefaultOptions() Options {
	return Options{
		Capacity:        DefaultCapacity,
		EvictEveryTicks: TicksPerSecond,
		Compression:     zstd.SpeedDefault,
	}
}

type loadedChunk struct {
	pos   vec.ChunkPos
	chunk *Chunk
}

// World: рабочий набор загруженных чанков и метаданные мира.
// Не потокобезопасен: все вызовы идут из игрового цикла.
type World struct {
	id    uuid.UUID
	name  string
	path  string
	seed  int64
	ticks uint64

	opts      Options
	generator *Generator
	regions   *RegionStore

	// В порядке загрузки: первый элемент выгружается первым
	loaded []loadedChunk

	log *logging.Logger
	ctx context.Context
}

// NewWorld создаёт новый мир в директории path с настройками по умолчанию
func NewWorld(name, path string, seed int64) (*World, error) {
	return NewWorldWithOptions(name, path, seed, DefaultOptions())
}

// NewWorldWithOptions создаёт директорию мира и записывает его метаданные
func NewWorldWithOptions(name, path string, seed int64, opts Options) (*World, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию мира %s: %w", path, err)
	}

	meta := storage.NewWorldMeta(name, seed, StartTicks)
	if err := storage.SaveMeta(path, meta); err != nil {
		return nil, err
	}

	w, err := newWorld(meta, path, opts)
	if err != nil {
		return nil, err
	}

	w.log.Info("Создан мир %q (%s), seed=%d, путь %s", w.name, w.id, w.seed, w.path)
	return w, nil
}

// OpenWorld открывает сохранённый мир с настройками по умолчанию
func OpenWorld(path string) (*World, error) {
	return OpenWorldWithOptions(path, DefaultOptions())
}

// OpenWorldWithOptions загружает метаданные мира из path
func OpenWorldWithOptions(path string, opts Options) (*World, error) {
	meta, err := storage.LoadMeta(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть мир %s: %w", path, err)
	}

	w, err := newWorld(meta, path, opts)
	if err != nil {
		return nil, err
	}

	w.log.Info("Открыт мир %q (%s), тик %d", w.name, w.id, w.ticks)
	return w, nil
}

func newWorld(meta storage.WorldMeta, path string, opts Options) (*World, error) {
	id, err := meta.UUID()
	if err != nil {
		return nil, err
	}
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Compression < zstd.SpeedFastest {
		opts.Compression = zstd.SpeedDefault
	}

	regions, err := NewRegionStore(path, opts.Compression)
	if err != nil {
		return nil, err
	}

	return &World{
		id:        id,
		name:      meta.Name,
		path:      path,
		seed:      meta.Seed,
		ticks:     meta.Ticks,
		opts:      opts,
		generator: NewGenerator(meta.Seed),
		regions:   regions,
		loaded:    make([]loadedChunk, 0, opts.Capacity+1),
		log:       logging.GetWorldLogger(),
		ctx:       context.Background(),
	}, nil
}

// SetContext задаёт контекст для спанов операций с регионами
func (w *World) SetContext(ctx context.Context) {
	w.ctx = ctx
}

// TileAt возвращает изменяемую ссылку на тайл. При промахе чанк загружается
// с диска или генерируется. Ссылка действительна до следующей выгрузки.
func (w *World) TileAt(pos vec.TilePos) *Tile {
	chunkPos, local := pos.Split()
	return w.Chunk(chunkPos).At(local)
}

// TileAtPixel возвращает тайл под пиксельной координатой
func (w *World) TileAtPixel(pos vec.PixelPos) *Tile {
	return w.TileAt(pos.Tile())
}

// Chunk возвращает чанк из рабочего набора, загружая его при необходимости
func (w *World) Chunk(pos vec.ChunkPos) *Chunk {
	for i := range w.loaded {
		if w.loaded[i].pos == pos {
			return w.loaded[i].chunk
		}
	}

	chunk := w.regions.LoadOrGenerate(w.ctx, pos, w.generator)
	w.loaded = append(w.loaded, loadedChunk{pos: pos, chunk: chunk})
	chunksResident.Set(float64(len(w.loaded)))
	return chunk
}

// SolidAt сообщает, участвует ли тайл среднего слоя в коллизиях
func (w *World) SolidAt(pos vec.TilePos) bool {
	def, ok := tile.Get(tile.Mid, w.TileAt(pos).Mid)
	return ok && def.Solid
}

// IsLoaded сообщает, находится ли чанк в рабочем наборе
func (w *World) IsLoaded(pos vec.ChunkPos) bool {
	for i := range w.loaded {
		if w.loaded[i].pos == pos {
			return true
		}
	}
	return false
}

// LoadedChunks возвращает позиции загруженных чанков в порядке загрузки
func (w *World) LoadedChunks() []vec.ChunkPos {
	out := make([]vec.ChunkPos, len(w.loaded))
	for i, lc := range w.loaded {
		out[i] = lc.pos
	}
	return out
}

// RemoveOldChunks выгружает самые старые чанки, пока рабочий набор больше
// ёмкости. Чанк сохраняется перед выгрузкой и удаляется даже при ошибке записи.
// Возвращает число выгруженных чанков.
func (w *World) RemoveOldChunks() int {
	excess := len(w.loaded) - w.opts.Capacity
	if excess <= 0 {
		return 0
	}

	for _, lc := range w.loaded[:excess] {
		if err := w.regions.SaveChunk(w.ctx, lc.pos, lc.chunk); err != nil {
			w.log.Warn("%v выгружен без сохранения: %v", lc.pos, err)
		}
		chunksEvicted.Inc()
	}

	n := copy(w.loaded, w.loaded[excess:])
	clear(w.loaded[n:])
	w.loaded = w.loaded[:n]
	chunksResident.Set(float64(len(w.loaded)))

	w.log.Debug("Выгружено чанков: %d, в памяти: %d", excess, n)
	return excess
}

// Tick продвигает игровое время на один тик и периодически выгружает старые чанки
func (w *World) Tick() {
	w.ticks++
	if w.opts.EvictEveryTicks > 0 && w.ticks%w.opts.EvictEveryTicks == 0 {
		w.RemoveOldChunks()
	}
}

// Save сохраняет все загруженные чанки и метаданные мира. Пытается записать
// каждый чанк и возвращает первую ошибку.
func (w *World) Save() error {
	var firstErr error
	for _, lc := range w.loaded {
		if err := w.regions.SaveChunk(w.ctx, lc.pos, lc.chunk); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	meta := storage.WorldMeta{ID: w.id.String(), Name: w.name, Seed: w.seed, Ticks: w.ticks}
	if err := storage.SaveMeta(w.path, meta); err != nil {
		w.log.Error("Ошибка сохранения метаданных мира: %v", err)
		firstErr = errors.Join(firstErr, err)
	}

	if firstErr != nil {
		return firstErr
	}
	w.log.Info("Мир %q сохранён: %d чанков, тик %d", w.name, len(w.loaded), w.ticks)
	return nil
}

// Close сохраняет мир и освобождает кодек регионов
func (w *World) Close() error {
	err := w.Save()
	w.regions.Close()
	return err
}

// GameTime возвращает день, час и минуту по текущему тику
func (w *World) GameTime() (day, hour, minute int) {
	t := w.ticks
	day = int(t / TicksPerDay)
	hour = int(t % TicksPerDay / TicksPerHour)
	minute = int(t % TicksPerHour / TicksPerMinute)
	return day, hour, minute
}

// ID возвращает идентификатор мира
func (w *World) ID() uuid.UUID { return w.id }

// Name возвращает имя мира
func (w *World) Name() string { return w.name }

// Path возвращает директорию мира
func (w *World) Path() string { return w.path }

// Seed возвращает сид мира
func (w *World) Seed() int64 { return w.seed }

// Ticks возвращает текущий тик
func (w *World) Ticks() uint64 { return w.ticks }

// Capacity возвращает ёмкость рабочего набора
func (w *World) Capacity() int { return w.opts.Capacity }

// Regions возвращает хранилище регионов мира
func (w *World) Regions() *RegionStore { return w.regions }
