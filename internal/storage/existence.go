package storage

import (
	"encoding/binary"
	"math/bits"
)

// BitsetSize: размер битсета существования в начале файла региона
const BitsetSize = 8

// SlotCount: количество слотов чанков в регионе (по биту на слот)
const SlotCount = 64

// Bitset отмечает слоты региона, в которые хоть раз записывались настоящие
// данные чанка. Бит i соответствует слоту i = local_y*8 + local_x.
type Bitset uint64

// ReadBitset декодирует битсет из первых 8 байт (little-endian).
// Более короткий срез: нарушение контракта вызывающей стороны.
func ReadBitset(b []byte) Bitset {
	return Bitset(binary.LittleEndian.Uint64(b[:BitsetSize]))
}

// Bytes кодирует битсет в ровно 8 байт little-endian
func (b Bitset) Bytes() [BitsetSize]byte {
	var out [BitsetSize]byte
	binary.LittleEndian.PutUint64(out[:], uint64(b))
	return out
}

// Get сообщает, установлен ли бит слота
func (b Bitset) Get(slot int) bool {
	return b&(1<<uint(slot)) != 0
}

// Set устанавливает или сбрасывает бит слота
func (b *Bitset) Set(slot int, value bool) {
	if value {
		*b |= 1 << uint(slot)
	} else {
		*b &^= 1 << uint(slot)
	}
}

// Count возвращает число установленных слотов
func (b Bitset) Count() int {
	return bits.OnesCount64(uint64(b))
}

// Slots возвращает индексы установленных слотов по возрастанию
func (b Bitset) Slots() []int {
	slots := make([]int, 0, b.Count())
	for rest := uint64(b); rest != 0; rest &= rest - 1 {
		slots = append(slots, bits.TrailingZeros64(rest))
	}
	return slots
}
