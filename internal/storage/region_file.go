package storage

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

var (
	// ErrTruncated: файл региона короче битсета существования
	ErrTruncated = errors.New("region file shorter than existence bitset")
	// ErrPayloadSize: распакованные данные региона не совпадают с фиксированным размером
	ErrPayloadSize = errors.New("unexpected region payload size")
	// ErrSlotSize: данные слота не совпадают с размером слота
	ErrSlotSize = errors.New("slot data size mismatch")
)

// RegionFile содержит прочитанный с диска файл региона: битсет и ещё не распакованный блоб
type RegionFile struct {
	Path string
	Bits Bitset
	Size int64
	blob []byte
}

// Empty сообщает, что файл существует, но пуст
func (rf *RegionFile) Empty() bool {
	return rf.Size == 0
}

// CompressedSize возвращает размер сжатых данных
func (rf *RegionFile) CompressedSize() int {
	return len(rf.blob)
}

// RegionCodec читает и переписывает файлы регионов:
// [0..8) битсет существования, [8..EOF) zstd-блоб всех SlotCount слотов.
type RegionCodec struct {
	slotSize int
	enc      *zstd.Encoder
	dec      *zstd.Decoder
}

// NewRegionCodec создаёт кодек для слотов размером slotSize байт
func NewRegionCodec(slotSize int, level zstd.EncoderLevel) (*RegionCodec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, fmt.Errorf("не удалось создать zstd encoder: %w", err)
	}

	payload := uint64(slotSize * SlotCount)
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(payload+(1<<20)),
	)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("не удалось создать zstd decoder: %w", err)
	}

	return &RegionCodec{slotSize: slotSize, enc: enc, dec: dec}, nil
}

// ParseLevel переводит имя уровня сжатия ("fastest", "default", "better", "best")
// в zstd.EncoderLevel. Неизвестное имя даёт SpeedDefault.
func ParseLevel(name string) zstd.EncoderLevel {
	if ok, level := zstd.EncoderLevelFromString(name); ok {
		return level
	}
	return zstd.SpeedDefault
}

// Close освобождает ресурсы zstd
func (c *RegionCodec) Close() {
	c.enc.Close()
	c.dec.Close()
}

// SlotSize возвращает размер одного слота в байтах
func (c *RegionCodec) SlotSize() int {
	return c.slotSize
}

// PayloadSize возвращает ожидаемый размер распакованных данных региона
func (c *RegionCodec) PayloadSize() int {
	return c.slotSize * SlotCount
}

// Read читает файл региона целиком. Отсутствующий файл даёт ошибку,
// для которой errors.Is(err, fs.ErrNotExist) истинно.
func (c *RegionCodec) Read(path string) (*RegionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseRegion(path, data)
}

func parseRegion(path string, data []byte) (*RegionFile, error) {
	rf := &RegionFile{Path: path, Size: int64(len(data))}
	if len(data) == 0 {
		return rf, nil
	}
	if len(data) < BitsetSize {
		return nil, fmt.Errorf("%s: %w (%d bytes)", path, ErrTruncated, len(data))
	}

	rf.Bits = ReadBitset(data)
	rf.blob = data[BitsetSize:]
	return rf, nil
}

// Payload распаковывает данные региона и проверяет их размер
func (c *RegionCodec) Payload(rf *RegionFile) ([]byte, error) {
	if rf.Empty() {
		return make([]byte, c.PayloadSize()), nil
	}

	out, err := c.dec.DecodeAll(rf.blob, make([]byte, 0, c.PayloadSize()))
	if err != nil {
		return nil, fmt.Errorf("%s: ошибка распаковки: %w", rf.Path, err)
	}
	if len(out) != c.PayloadSize() {
		return nil, fmt.Errorf("%s: %w: got %d, want %d", rf.Path, ErrPayloadSize, len(out), c.PayloadSize())
	}
	return out, nil
}

// Slot возвращает срез данных слота внутри распакованного региона
func (c *RegionCodec) Slot(payload []byte, slot int) []byte {
	off := slot * c.slotSize
	return payload[off : off+c.slotSize]
}

// Encode собирает содержимое файла региона: битсет и сжатые данные
func (c *RegionCodec) Encode(bits Bitset, payload []byte) []byte {
	header := bits.Bytes()
	out := make([]byte, 0, BitsetSize+len(payload)/4)
	out = append(out, header[:]...)
	return c.enc.EncodeAll(payload, out)
}

// WriteSlot записывает данные одного слота в файл региона, создавая его при
// необходимости. Файл читается целиком, слот и его бит обновляются в памяти,
// затем файл переписывается с начала и обрезается до записанной длины.
// Если существующие данные повреждены, файл не изменяется.
func (c *RegionCodec) WriteSlot(path string, slot int, data []byte) (bits Bitset, err error) {
	if len(data) != c.slotSize {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrSlotSize, len(data), c.slotSize)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return 0, fmt.Errorf("не удалось открыть регион %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("ошибка закрытия региона %s: %w", path, cerr)
		}
	}()

	raw, err := io.ReadAll(f)
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения региона %s: %w", path, err)
	}

	rf, err := parseRegion(path, raw)
	if err != nil {
		return 0, err
	}
	payload, err := c.Payload(rf)
	if err != nil {
		return 0, err
	}

	bits = rf.Bits
	bits.Set(slot, true)
	copy(c.Slot(payload, slot), data)

	encoded := c.Encode(bits, payload)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("ошибка перемотки региона %s: %w", path, err)
	}
	n, err := f.Write(encoded)
	if err != nil {
		return 0, fmt.Errorf("ошибка записи региона %s: %w", path, err)
	}
	if err := f.Truncate(int64(n)); err != nil {
		return 0, fmt.Errorf("ошибка обрезки региона %s: %w", path, err)
	}

	return bits, nil
}
