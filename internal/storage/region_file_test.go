package storage

import (
	"bytes"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSlotSize = 64

func newTestCodec(t *testing.T) *RegionCodec {
	t.Helper()
	codec, err := NewRegionCodec(testSlotSize, zstd.SpeedDefault)
	require.NoError(t, err)
	t.Cleanup(codec.Close)
	return codec
}

func filled(b byte) []byte {
	return bytes.Repeat([]byte{b}, testSlotSize)
}

func TestWriteSlotCreatesRegion(t *testing.T) {
	codec := newTestCodec(t)
	path := filepath.Join(t.TempDir(), "0.0.rgn")

	bits, err := codec.WriteSlot(path, 19, filled(7))
	require.NoError(t, err)
	assert.Equal(t, []int{19}, bits.Slots())

	rf, err := codec.Read(path)
	require.NoError(t, err)
	assert.Equal(t, bits, rf.Bits)

	payload, err := codec.Payload(rf)
	require.NoError(t, err)
	require.Len(t, payload, codec.PayloadSize())

	assert.Equal(t, filled(7), codec.Slot(payload, 19))
	for slot := 0; slot < SlotCount; slot++ {
		if slot == 19 {
			continue
		}
		assert.Equal(t, filled(0), codec.Slot(payload, slot), "слот %d должен быть пустым", slot)
	}
}

func TestWriteSlotKeepsOtherSlots(t *testing.T) {
	codec := newTestCodec(t)
	path := filepath.Join(t.TempDir(), "1.1.rgn")

	_, err := codec.WriteSlot(path, 0, filled(1))
	require.NoError(t, err)
	bits, err := codec.WriteSlot(path, 63, filled(2))
	require.NoError(t, err)
	bits, err = codec.WriteSlot(path, 0, filled(3))
	require.NoError(t, err)

	assert.Equal(t, []int{0, 63}, bits.Slots())

	rf, err := codec.Read(path)
	require.NoError(t, err)
	payload, err := codec.Payload(rf)
	require.NoError(t, err)
	assert.Equal(t, filled(3), codec.Slot(payload, 0))
	assert.Equal(t, filled(2), codec.Slot(payload, 63))
}

func TestWriteSlotTruncatesShrinkingFile(t *testing.T) {
	codec := newTestCodec(t)
	path := filepath.Join(t.TempDir(), "2.2.rgn")

	// Несжимаемые данные раздувают файл
	rng := rand.New(rand.NewSource(1))
	for slot := 0; slot < SlotCount; slot++ {
		noise := make([]byte, testSlotSize)
		rng.Read(noise)
		_, err := codec.WriteSlot(path, slot, noise)
		require.NoError(t, err)
	}
	big, err := os.Stat(path)
	require.NoError(t, err)

	// Затираем все слоты нулями: файл должен уменьшиться и остаться читаемым
	for slot := 0; slot < SlotCount; slot++ {
		_, err := codec.WriteSlot(path, slot, filled(0))
		require.NoError(t, err)
	}
	small, err := os.Stat(path)
	require.NoError(t, err)
	assert.Less(t, small.Size(), big.Size())

	rf, err := codec.Read(path)
	require.NoError(t, err)
	payload, err := codec.Payload(rf)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, codec.PayloadSize()), payload)
	assert.Equal(t, SlotCount, rf.Bits.Count())
}

func TestWriteSlotAbortsOnWrongPayloadSize(t *testing.T) {
	codec := newTestCodec(t)
	path := filepath.Join(t.TempDir(), "3.3.rgn")

	var bits Bitset
	bits.Set(5, true)
	corrupt := codec.Encode(bits, make([]byte, codec.PayloadSize()-1))
	require.NoError(t, os.WriteFile(path, corrupt, 0644))

	_, err := codec.WriteSlot(path, 6, filled(9))
	assert.ErrorIs(t, err, ErrPayloadSize)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, corrupt, after, "повреждённый файл не должен перезаписываться")

	rf, err := codec.Read(path)
	require.NoError(t, err)
	_, err = codec.Payload(rf)
	assert.ErrorIs(t, err, ErrPayloadSize)
}

func TestReadMissingAndTruncated(t *testing.T) {
	codec := newTestCodec(t)
	dir := t.TempDir()

	_, err := codec.Read(filepath.Join(dir, "missing.rgn"))
	assert.ErrorIs(t, err, fs.ErrNotExist)

	short := filepath.Join(dir, "short.rgn")
	require.NoError(t, os.WriteFile(short, []byte{1, 2, 3}, 0644))
	_, err = codec.Read(short)
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = codec.WriteSlot(short, 0, filled(1))
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestEmptyFileIsFreshRegion(t *testing.T) {
	codec := newTestCodec(t)
	path := filepath.Join(t.TempDir(), "4.4.rgn")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	rf, err := codec.Read(path)
	require.NoError(t, err)
	assert.True(t, rf.Empty())
	assert.Zero(t, rf.Bits)

	bits, err := codec.WriteSlot(path, 2, filled(4))
	require.NoError(t, err)
	assert.Equal(t, []int{2}, bits.Slots())
}

func TestWriteSlotRejectsWrongSize(t *testing.T) {
	codec := newTestCodec(t)
	path := filepath.Join(t.TempDir(), "5.5.rgn")

	_, err := codec.WriteSlot(path, 0, make([]byte, testSlotSize+1))
	assert.ErrorIs(t, err, ErrSlotSize)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zstd.SpeedFastest, ParseLevel("fastest"))
	assert.Equal(t, zstd.SpeedBestCompression, ParseLevel("best"))
	assert.Equal(t, zstd.SpeedDefault, ParseLevel(""))
}
