package world

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/storage"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/klauspost/compress/zstd"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/annel0/tileworld/internal/world")

// RegionStore сохраняет и загружает чанки в файлах регионов директории мира.
// Ошибки чтения не поднимаются наверх: вместо данных возвращается пустой чанк.
type RegionStore struct {
	dir   string
	codec *storage.RegionCodec
	log   *logging.Logger
}

// NewRegionStore создаёт хранилище регионов в директории dir
func NewRegionStore(dir string, level zstd.EncoderLevel) (*RegionStore, error) {
	codec, err := storage.NewRegionCodec(ChunkBytes, level)
	if err != nil {
		return nil, err
	}

	return &RegionStore{
		dir:   dir,
		codec: codec,
		log:   logging.GetStorageLogger(),
	}, nil
}

// Close освобождает кодек
func (rs *RegionStore) Close() {
	rs.codec.Close()
}

// Dir возвращает директорию мира
func (rs *RegionStore) Dir() string {
	return rs.dir
}

// RegionPath возвращает путь к файлу региона
func (rs *RegionStore) RegionPath(region vec.RegionPos) string {
	return filepath.Join(rs.dir, region.FileName())
}

// Bits возвращает битсет существования региона. Отсутствующий файл даёт пустой битсет.
func (rs *RegionStore) Bits(region vec.RegionPos) (storage.Bitset, error) {
	rf, err := rs.codec.Read(rs.RegionPath(region))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rf.Bits, nil
}

// SaveChunk записывает чанк в его слот и выставляет бит существования.
// Повреждённый регион не перезаписывается: сохранение прерывается с ошибкой.
func (rs *RegionStore) SaveChunk(ctx context.Context, pos vec.ChunkPos, chunk *Chunk) error {
	_, span := tracer.Start(ctx, "region.SaveChunk", trace.WithAttributes(chunkAttrs(pos)...))
	defer span.End()

	path := rs.RegionPath(pos.Region())

	start := time.Now()
	_, err := rs.codec.WriteSlot(path, pos.Slot(), chunk.Bytes())
	regionWriteSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		chunkSaveErrors.Inc()
		if errors.Is(err, storage.ErrPayloadSize) || errors.Is(err, storage.ErrTruncated) {
			regionCorrupt.Inc()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		rs.log.Error("Ошибка сохранения %v в %s: %v", pos, path, err)
		return fmt.Errorf("сохранение %v: %w", pos, err)
	}

	chunksSaved.Inc()
	rs.log.Debug("%v сохранён в %s (слот %d)", pos, path, pos.Slot())
	return nil
}

// LoadOrGenerate загружает чанк из региона. Если файла нет или бит слота
// не выставлен, чанк генерируется. Повреждённые данные дают пустой чанк.
func (rs *RegionStore) LoadOrGenerate(ctx context.Context, pos vec.ChunkPos, src ChunkSource) *Chunk {
	_, span := tracer.Start(ctx, "region.LoadOrGenerate", trace.WithAttributes(chunkAttrs(pos)...))
	defer span.End()

	path := rs.RegionPath(pos.Region())
	slot := pos.Slot()

	rf, err := rs.codec.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		span.SetAttributes(attribute.String("chunk.source", "generated"))
		return rs.generate(pos, src)
	}
	if err != nil {
		return rs.blank(span, pos, err)
	}

	if !rf.Bits.Get(slot) {
		span.SetAttributes(attribute.String("chunk.source", "generated"))
		return rs.generate(pos, src)
	}

	payload, err := rs.codec.Payload(rf)
	if err != nil {
		return rs.blank(span, pos, err)
	}

	chunksLoaded.Inc()
	span.SetAttributes(attribute.String("chunk.source", "region"))
	return DecodeChunk(rs.codec.Slot(payload, slot))
}

func (rs *RegionStore) generate(pos vec.ChunkPos, src ChunkSource) *Chunk {
	chunksGenerated.Inc()
	rs.log.Debug("Генерация %v", pos)
	return src.Generate(pos)
}

// blank логирует повреждение региона и возвращает пустой чанк
func (rs *RegionStore) blank(span trace.Span, pos vec.ChunkPos, err error) *Chunk {
	regionCorrupt.Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, "region unreadable")
	span.SetAttributes(attribute.String("chunk.source", "blank"))
	rs.log.Error("Регион для %v не читается, используется пустой чанк: %v", pos, err)
	return NewChunk()
}

func chunkAttrs(pos vec.ChunkPos) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int("chunk.x", int(pos.X)),
		attribute.Int("chunk.y", int(pos.Y)),
		attribute.Int("region.slot", pos.Slot()),
	}
}

// RegionInfo: сводка по файлу региона для инструментов
type RegionInfo struct {
	Region         vec.RegionPos
	Path           string
	Bits           storage.Bitset
	FileSize       int64
	CompressedSize int
	Chunks         map[int]*Chunk // Только слоты с выставленным битом
}

// Inspect читает регион целиком без генерации и без подмены пустыми чанками
func (rs *RegionStore) Inspect(region vec.RegionPos) (*RegionInfo, error) {
	rf, err := rs.codec.Read(rs.RegionPath(region))
	if err != nil {
		return nil, err
	}

	info := &RegionInfo{
		Region:         region,
		Path:           rf.Path,
		Bits:           rf.Bits,
		FileSize:       rf.Size,
		CompressedSize: rf.CompressedSize(),
		Chunks:         make(map[int]*Chunk, rf.Bits.Count()),
	}
	if rf.Bits == 0 {
		return info, nil
	}

	payload, err := rs.codec.Payload(rf)
	if err != nil {
		return nil, err
	}
	for _, slot := range rf.Bits.Slots() {
		info.Chunks[slot] = DecodeChunk(rs.codec.Slot(payload, slot))
	}
	return info, nil
}
