package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/observability"
	"github.com/annel0/tileworld/internal/storage"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
	"github.com/annel0/tileworld/internal/world/tile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config (or TILEWORLD_CONFIG)")
		command    = flag.String("cmd", "tile", "Command: pregen, inspect, tile")
		worldName  = flag.String("world", "", "World name (directory under data_dir)")
		x          = flag.Uint("x", 0, "X: chunk for pregen, region for inspect, tile/pixel for tile")
		y          = flag.Uint("y", 0, "Y: chunk for pregen, region for inspect, tile/pixel for tile")
		radius     = flag.Uint("radius", 2, "pregen: square radius in chunks around (x,y)")
		pixel      = flag.Bool("pixel", false, "tile: treat x,y as pixel coordinates")
		metrics    = flag.Bool("metrics", false, "Serve Prometheus metrics until interrupted")
	)
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	logging.Configure(logging.Options{
		Dir:        cfg.Logging.Dir,
		Level:      logging.ParseLevel(cfg.Logging.GetLevel()),
		MaxSizeMB:  cfg.Logging.GetMaxSizeMB(),
		MaxBackups: cfg.Logging.GetMaxBackups(),
		Console:    cfg.Logging.GetConsole(),
	})
	if err := logging.InitDefaultLogger("worldtool"); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, observability.Options{
			ServiceName: cfg.Telemetry.GetServiceName(),
			Endpoint:    cfg.Telemetry.GetEndpoint(),
			Insecure:    true,
			SampleRatio: cfg.Telemetry.GetSampleRatio(),
		})
		if err != nil {
			logging.Warn("⚠️ OpenTelemetry не инициализирован: %v", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	var srv *http.Server
	if *metrics || cfg.Metrics.Enabled {
		srv = serveMetrics(cfg.Metrics.GetAddr())
	}

	name := *worldName
	if name == "" {
		name = cfg.World.GetName()
	}
	dir := filepath.Join(cfg.Storage.GetDataDir(), name)

	opts := world.Options{
		Capacity:        cfg.World.GetCapacity(),
		EvictEveryTicks: cfg.World.GetEvictEveryTicks(),
		Compression:     storage.ParseLevel(cfg.Storage.GetCompression()),
	}

	switch *command {
	case "pregen":
		err = pregen(ctx, dir, name, cfg.World.GetSeed(), opts, vec.ChunkPos{X: uint16(*x), Y: uint16(*y)}, int(*radius))
	case "inspect":
		err = inspect(dir, opts, vec.RegionPos{X: uint8(*x), Y: uint8(*y)})
	case "tile":
		pos := vec.TilePos{X: uint32(*x), Y: uint32(*y)}
		if *pixel {
			pos = vec.PixelPos{X: uint32(*x), Y: uint32(*y)}.Tile()
		}
		err = probeTile(dir, opts, pos)
	default:
		err = fmt.Errorf("неизвестная команда %q", *command)
	}
	if err != nil {
		logging.Error("❌ %s: %v", *command, err)
		os.Exit(1)
	}

	if srv != nil {
		logging.Info("📈 Метрики доступны на %s, Ctrl+C для выхода", srv.Addr)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}
}

func serveMetrics(addr string) *http.Server {
	world.RegisterMetrics(prometheus.DefaultRegisterer)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("❌ Сервер метрик остановлен: %v", err)
		}
	}()
	logging.Info("📊 Prometheus метрики на %s/metrics", addr)
	return srv
}

// openOrCreate открывает мир из dir или создаёт новый, если метаданных нет
func openOrCreate(dir, name string, seed int64, opts world.Options) (*world.World, error) {
	_, err := os.Stat(filepath.Join(dir, storage.MetaFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return world.NewWorldWithOptions(name, dir, seed, opts)
	}
	if err != nil {
		return nil, err
	}
	return world.OpenWorldWithOptions(dir, opts)
}

func pregen(ctx context.Context, dir, name string, seed int64, opts world.Options, center vec.ChunkPos, radius int) error {
	w, err := openOrCreate(dir, name, seed, opts)
	if err != nil {
		return err
	}
	w.SetContext(ctx)

	lo := func(c uint16) int { return max(int(c)-radius, 0) }
	hi := func(c uint16) int { return min(int(c)+radius, vec.ChunkMax-1) }

	start := time.Now()
	count := 0
	for cy := lo(center.Y); cy <= hi(center.Y); cy++ {
		for cx := lo(center.X); cx <= hi(center.X); cx++ {
			if ctx.Err() != nil {
				logging.Warn("⏹️ Прервано после %d чанков", count)
				return w.Close()
			}
			w.Chunk(vec.ChunkPos{X: uint16(cx), Y: uint16(cy)})
			w.RemoveOldChunks()
			count++
		}
	}

	if err := w.Close(); err != nil {
		return err
	}
	logging.Info("✅ Мир %q (seed=%d): подготовлено %d чанков за %v", w.Name(), w.Seed(), count, time.Since(start).Round(time.Millisecond))
	return nil
}

func inspect(dir string, opts world.Options, region vec.RegionPos) error {
	rs, err := world.NewRegionStore(dir, opts.Compression)
	if err != nil {
		return err
	}
	defer rs.Close()

	info, err := rs.Inspect(region)
	if err != nil {
		return err
	}

	fmt.Printf("%v %s\n", info.Region, info.Path)
	fmt.Printf("  file size:       %d bytes\n", info.FileSize)
	fmt.Printf("  compressed blob: %d bytes\n", info.CompressedSize)
	fmt.Printf("  existence bits:  %064b (%d/%d)\n", uint64(info.Bits), info.Bits.Count(), storage.SlotCount)

	for _, slot := range info.Bits.Slots() {
		chunk := info.Chunks[slot]
		hist := make(map[tile.ID]int)
		for i := range chunk.Tiles {
			if id := chunk.Tiles[i].Mid; id != tile.Empty {
				hist[id]++
			}
		}

		ids := make([]tile.ID, 0, len(hist))
		for id := range hist {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return hist[ids[i]] > hist[ids[j]] })

		fmt.Printf("  slot %2d %v:", slot, region.ChunkAt(slot))
		if len(ids) == 0 {
			fmt.Print(" empty")
		}
		for _, id := range ids {
			fmt.Printf(" %s=%d", tile.Name(tile.Mid, id), hist[id])
		}
		fmt.Println()
	}
	return nil
}

func probeTile(dir string, opts world.Options, pos vec.TilePos) error {
	if !pos.Valid() {
		return fmt.Errorf("тайл (%d,%d) за границами мира", pos.X, pos.Y)
	}

	w, err := world.OpenWorldWithOptions(dir, opts)
	if err != nil {
		return err
	}

	chunkPos, local := pos.Split()
	t := w.TileAt(pos)
	day, hour, minute := w.GameTime()

	fmt.Printf("world %q (%s) seed=%d day %d %02d:%02d\n", w.Name(), w.ID(), w.Seed(), day, hour, minute)
	fmt.Printf("tile (%d,%d) in %v local (%d,%d) slot %d of %v\n",
		pos.X, pos.Y, chunkPos, local.X, local.Y, chunkPos.Slot(), chunkPos.Region())
	fmt.Printf("  bg:  %d %s\n", t.Bg, tile.Name(tile.Background, t.Bg))
	fmt.Printf("  mid: %d %s solid=%v\n", t.Mid, tile.Name(tile.Mid, t.Mid), w.SolidAt(pos))

	return w.Close()
}
