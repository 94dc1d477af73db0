package world

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/annel0/tileworld/internal/storage"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world/tile"
	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fillSource: источник чанков, заполняющий все тайлы одним значением
type fillSource struct {
	fill  Tile
	calls int
}

func (s *fillSource) Generate(vec.ChunkPos) *Chunk {
	s.calls++
	chunk := NewChunk()
	for i := range chunk.Tiles {
		chunk.Tiles[i] = s.fill
	}
	return chunk
}

func newTestStore(t *testing.T) *RegionStore {
	t.Helper()
	rs, err := NewRegionStore(t.TempDir(), zstd.SpeedFastest)
	require.NoError(t, err)
	t.Cleanup(rs.Close)
	return rs
}

func patternChunk() *Chunk {
	chunk := NewChunk()
	for i := range chunk.Tiles {
		chunk.Tiles[i] = Tile{Bg: tile.ID(i % 2), Mid: tile.ID(i % 11)}
	}
	return chunk
}

func TestRegionSaveLoadRoundTrip(t *testing.T) {
	rs := newTestStore(t)
	ctx := context.Background()
	pos := vec.ChunkPos{X: 3, Y: 2}

	chunk := patternChunk()
	require.NoError(t, rs.SaveChunk(ctx, pos, chunk))

	src := &fillSource{fill: Tile{Mid: tile.MidStone}}
	loaded := rs.LoadOrGenerate(ctx, pos, src)
	assert.Equal(t, chunk.Tiles, loaded.Tiles, "загруженный чанк должен совпадать с сохранённым")
	assert.Zero(t, src.calls, "сохранённый чанк не должен генерироваться")
}

func TestRegionExistenceBit(t *testing.T) {
	rs := newTestStore(t)
	pos := vec.ChunkPos{X: 3, Y: 2}
	require.Equal(t, 19, pos.Slot())

	require.NoError(t, rs.SaveChunk(context.Background(), pos, NewChunk()))

	bits, err := rs.Bits(pos.Region())
	require.NoError(t, err)
	assert.Equal(t, storage.Bitset(1<<19), bits, "выставлен только бит слота 19")

	raw, err := os.ReadFile(filepath.Join(rs.Dir(), "0.0.rgn"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00}, raw[:8])
}

func TestRegionEmptySavedChunkIsNotRegenerated(t *testing.T) {
	rs := newTestStore(t)
	ctx := context.Background()
	pos := vec.ChunkPos{X: 9, Y: 9}

	require.NoError(t, rs.SaveChunk(ctx, pos, NewChunk()))

	src := &fillSource{fill: Tile{Bg: tile.BgStone, Mid: tile.MidStone}}
	loaded := rs.LoadOrGenerate(ctx, pos, src)
	assert.True(t, loaded.IsEmpty(), "сгенерированный и пустой чанк остаётся пустым")
	assert.Zero(t, src.calls)
}

func TestRegionUnsetBitFallsThroughToGenerator(t *testing.T) {
	rs := newTestStore(t)
	ctx := context.Background()

	saved := vec.ChunkPos{X: 0, Y: 0}
	neighbour := vec.ChunkPos{X: 1, Y: 0}
	require.Equal(t, saved.Region(), neighbour.Region())
	require.NoError(t, rs.SaveChunk(ctx, saved, patternChunk()))

	before := testutil.ToFloat64(chunksGenerated)
	src := &fillSource{fill: Tile{Mid: tile.MidDirt}}
	chunk := rs.LoadOrGenerate(ctx, neighbour, src)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, tile.MidDirt, chunk.Get(vec.LocalPos{X: 5, Y: 5}).Mid)
	assert.Equal(t, before+1, testutil.ToFloat64(chunksGenerated))
}

func TestRegionMissingFileGenerates(t *testing.T) {
	rs := newTestStore(t)
	src := &fillSource{fill: Tile{Mid: tile.MidClay}}

	chunk := rs.LoadOrGenerate(context.Background(), vec.ChunkPos{X: 100, Y: 50}, src)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, tile.MidClay, chunk.Tiles[0].Mid)

	_, err := os.Stat(rs.RegionPath(vec.RegionPos{X: 12, Y: 6}))
	assert.True(t, os.IsNotExist(err), "загрузка не создаёт файлы")
}

func TestRegionCorruptPayloadGivesBlankChunk(t *testing.T) {
	rs := newTestStore(t)
	pos := vec.ChunkPos{X: 2, Y: 1}

	// Битсет с выставленным битом, но блоб неправильной длины
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()

	var bits storage.Bitset
	bits.Set(pos.Slot(), true)
	header := bits.Bytes()
	data := enc.EncodeAll(make([]byte, 1000), header[:])
	require.NoError(t, os.WriteFile(rs.RegionPath(pos.Region()), data, 0644))

	before := testutil.ToFloat64(regionCorrupt)
	src := &fillSource{fill: Tile{Mid: tile.MidStone}}
	chunk := rs.LoadOrGenerate(context.Background(), pos, src)

	assert.True(t, chunk.IsEmpty(), "повреждённый регион даёт пустой чанк")
	assert.Zero(t, src.calls, "повреждённый регион не перегенерируется")
	assert.Equal(t, before+1, testutil.ToFloat64(regionCorrupt))
}

func TestRegionGarbageBlobGivesBlankChunk(t *testing.T) {
	rs := newTestStore(t)
	pos := vec.ChunkPos{X: 0, Y: 0}

	data := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 'n', 'o', 't', 'z', 's', 't', 'd'}
	require.NoError(t, os.WriteFile(rs.RegionPath(pos.Region()), data, 0644))

	chunk := rs.LoadOrGenerate(context.Background(), pos, &fillSource{fill: Tile{Mid: tile.MidStone}})
	assert.True(t, chunk.IsEmpty())
}

func TestRegionTruncatedHeaderGivesBlankChunk(t *testing.T) {
	rs := newTestStore(t)
	pos := vec.ChunkPos{X: 0, Y: 0}
	require.NoError(t, os.WriteFile(rs.RegionPath(pos.Region()), []byte{1, 2, 3}, 0644))

	before := testutil.ToFloat64(regionCorrupt)
	chunk := rs.LoadOrGenerate(context.Background(), pos, &fillSource{fill: Tile{Mid: tile.MidStone}})
	assert.True(t, chunk.IsEmpty())
	assert.Equal(t, before+1, testutil.ToFloat64(regionCorrupt))
}

func TestRegionZeroLengthFileIsAbsent(t *testing.T) {
	rs := newTestStore(t)
	ctx := context.Background()
	pos := vec.ChunkPos{X: 4, Y: 4}
	require.NoError(t, os.WriteFile(rs.RegionPath(pos.Region()), nil, 0644))

	src := &fillSource{fill: Tile{Mid: tile.MidGrass}}
	chunk := rs.LoadOrGenerate(ctx, pos, src)
	assert.Equal(t, 1, src.calls, "пустой файл не содержит чанков")
	assert.Equal(t, tile.MidGrass, chunk.Tiles[0].Mid)

	saved := patternChunk()
	require.NoError(t, rs.SaveChunk(ctx, pos, saved))
	assert.Equal(t, saved.Tiles, rs.LoadOrGenerate(ctx, pos, src).Tiles)
}

func TestRegionSaveIntoCorruptFileAborts(t *testing.T) {
	rs := newTestStore(t)
	pos := vec.ChunkPos{X: 1, Y: 1}
	path := rs.RegionPath(pos.Region())

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	data := enc.EncodeAll(make([]byte, 10), make([]byte, storage.BitsetSize))
	require.NoError(t, os.WriteFile(path, data, 0644))

	before := testutil.ToFloat64(chunkSaveErrors)
	err = rs.SaveChunk(context.Background(), pos, patternChunk())
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrPayloadSize)
	assert.Equal(t, before+1, testutil.ToFloat64(chunkSaveErrors))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, after, "повреждённый файл не должен перезаписываться")
}

func TestRegionSlotsAreIndependent(t *testing.T) {
	rs := newTestStore(t)
	ctx := context.Background()
	region := vec.RegionPos{X: 1, Y: 2}

	chunks := make(map[int]*Chunk)
	for _, slot := range []int{0, 7, 19, 63} {
		chunk := NewChunk()
		chunk.Tiles[slot] = Tile{Bg: tile.BgDirt, Mid: tile.ID(slot + 1)}
		chunks[slot] = chunk
		require.NoError(t, rs.SaveChunk(ctx, region.ChunkAt(slot), chunk))
	}

	bits, err := rs.Bits(region)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 7, 19, 63}, bits.Slots())

	for slot, want := range chunks {
		got := rs.LoadOrGenerate(ctx, region.ChunkAt(slot), &fillSource{})
		assert.Equal(t, want.Tiles, got.Tiles, "слот %d", slot)
	}
}

func TestRegionInspect(t *testing.T) {
	rs := newTestStore(t)
	ctx := context.Background()
	region := vec.RegionPos{X: 0, Y: 1}

	chunk := NewChunk()
	chunk.Tiles[10] = Tile{Bg: tile.BgDirt, Mid: tile.MidCoal}
	require.NoError(t, rs.SaveChunk(ctx, region.ChunkAt(5), chunk))
	require.NoError(t, rs.SaveChunk(ctx, region.ChunkAt(40), NewChunk()))

	info, err := rs.Inspect(region)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Bits.Count())
	assert.Len(t, info.Chunks, 2)
	assert.Equal(t, chunk.Tiles, info.Chunks[5].Tiles)
	assert.True(t, info.Chunks[40].IsEmpty())
	assert.Equal(t, int64(storage.BitsetSize+info.CompressedSize), info.FileSize)

	_, err = rs.Inspect(vec.RegionPos{X: 9, Y: 9})
	assert.True(t, os.IsNotExist(err))
}
