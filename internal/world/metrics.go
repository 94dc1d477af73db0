package world

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus-метрики рабочего набора чанков и файлов регионов.
// Обновляются всегда; в регистр попадают только после RegisterMetrics.
var (
	chunksGenerated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tileworld",
		Name:      "chunks_generated_total",
		Help:      "Чанков, созданных генератором.",
	})
	chunksLoaded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tileworld",
		Name:      "chunks_loaded_total",
		Help:      "Чанков, прочитанных из файлов регионов.",
	})
	chunksSaved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tileworld",
		Name:      "chunks_saved_total",
		Help:      "Чанков, успешно записанных в файлы регионов.",
	})
	chunkSaveErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tileworld",
		Name:      "chunk_save_errors_total",
		Help:      "Неудачных записей чанков.",
	})
	chunksEvicted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tileworld",
		Name:      "chunks_evicted_total",
		Help:      "Чанков, выгруженных из рабочего набора.",
	})
	regionCorrupt = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tileworld",
		Name:      "region_corrupt_total",
		Help:      "Повреждённых или нечитаемых файлов регионов (чанк заменён пустым).",
	})
	chunksResident = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tileworld",
		Name:      "chunks_resident",
		Help:      "Чанков в рабочем наборе.",
	})
	regionWriteSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tileworld",
		Name:      "region_write_seconds",
		Help:      "Время перезаписи файла региона.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	registerOnce sync.Once
)

// RegisterMetrics регистрирует метрики мира. Повторные вызовы ничего не делают.
func RegisterMetrics(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(
			chunksGenerated,
			chunksLoaded,
			chunksSaved,
			chunkSaveErrors,
			chunksEvicted,
			regionCorrupt,
			chunksResident,
			regionWriteSeconds,
		)
	})
}
