package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Переменные окружения
const (
	EnvConfig      = "TILEWORLD_CONFIG"
	EnvDataDir     = "TILEWORLD_DATA_DIR"
	EnvSeed        = "TILEWORLD_SEED"
	EnvMetricsAddr = "TILEWORLD_METRICS_ADDR"
	EnvOTLP        = "TILEWORLD_OTLP_ENDPOINT"
)

// Значения по умолчанию
const (
	DefaultDataDir        = "worlds"
	DefaultWorldName      = "world"
	DefaultCapacity       = 16
	DefaultEvictEvery     = 60
	DefaultCompression    = "default"
	DefaultLogLevel       = "INFO"
	DefaultLogMaxSizeMB   = 50
	DefaultLogMaxBackups  = 3
	DefaultMetricsAddr    = ":2112"
	DefaultTelemetryName  = "tileworld"
	DefaultSampleFraction = 1.0
)

// Config корневая структура конфигурации
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type WorldConfig struct {
	Name            string `yaml:"name"`
	Seed            *int64 `yaml:"seed"` // nil: взять из окружения или 0
	Capacity        int    `yaml:"capacity"`
	EvictEveryTicks uint64 `yaml:"evict_every_ticks"`
}

type StorageConfig struct {
	DataDir     string `yaml:"data_dir"`
	Compression string `yaml:"compression"` // fastest, default, better, best
}

type LoggingConfig struct {
	Dir        string `yaml:"dir"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	Console    *bool  `yaml:"console"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"` // host:port OTLP HTTP
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Default возвращает пустую конфигурацию: все значения берутся из окружения и умолчаний
func Default() *Config {
	return &Config{}
}

// GetName возвращает имя мира
func (w *WorldConfig) GetName() string {
	if w.Name != "" {
		return w.Name
	}
	return DefaultWorldName
}

// GetSeed возвращает сид с приоритетом: config -> env -> 0
func (w *WorldConfig) GetSeed() int64 {
	if w.Seed != nil {
		return *w.Seed
	}
	if envVal := os.Getenv(EnvSeed); envVal != "" {
		if seed, err := strconv.ParseInt(envVal, 10, 64); err == nil {
			return seed
		}
	}
	return 0
}

// GetCapacity возвращает ёмкость рабочего набора чанков
func (w *WorldConfig) GetCapacity() int {
	if w.Capacity > 0 {
		return w.Capacity
	}
	return DefaultCapacity
}

// GetEvictEveryTicks возвращает период выгрузки чанков в тиках
func (w *WorldConfig) GetEvictEveryTicks() uint64 {
	if w.EvictEveryTicks > 0 {
		return w.EvictEveryTicks
	}
	return DefaultEvictEvery
}

// GetDataDir возвращает корневую директорию миров: config -> env -> default
func (s *StorageConfig) GetDataDir() string {
	return getStringWithEnvFallback(s.DataDir, EnvDataDir, DefaultDataDir)
}

// GetCompression возвращает имя уровня сжатия регионов
func (s *StorageConfig) GetCompression() string {
	if s.Compression != "" {
		return s.Compression
	}
	return DefaultCompression
}

// GetLevel возвращает уровень логирования
func (l *LoggingConfig) GetLevel() string {
	if l.Level != "" {
		return l.Level
	}
	return DefaultLogLevel
}

// GetMaxSizeMB возвращает размер файла лога до ротации
func (l *LoggingConfig) GetMaxSizeMB() int {
	if l.MaxSizeMB > 0 {
		return l.MaxSizeMB
	}
	return DefaultLogMaxSizeMB
}

// GetMaxBackups возвращает число хранимых старых файлов лога
func (l *LoggingConfig) GetMaxBackups() int {
	if l.MaxBackups > 0 {
		return l.MaxBackups
	}
	return DefaultLogMaxBackups
}

// GetConsole сообщает, дублировать ли лог в stderr (по умолчанию да)
func (l *LoggingConfig) GetConsole() bool {
	if l.Console != nil {
		return *l.Console
	}
	return true
}

// GetAddr возвращает адрес HTTP-эндпоинта метрик: config -> env -> default
func (m *MetricsConfig) GetAddr() string {
	return getStringWithEnvFallback(m.Addr, EnvMetricsAddr, DefaultMetricsAddr)
}

// GetEndpoint возвращает адрес OTLP-коллектора, пустая строка: значение по умолчанию SDK
func (t *TelemetryConfig) GetEndpoint() string {
	return getStringWithEnvFallback(t.Endpoint, EnvOTLP, "")
}

// GetServiceName возвращает имя сервиса в ресурсе трейсов
func (t *TelemetryConfig) GetServiceName() string {
	if t.ServiceName != "" {
		return t.ServiceName
	}
	return DefaultTelemetryName
}

// GetSampleRatio возвращает долю сэмплируемых трейсов
func (t *TelemetryConfig) GetSampleRatio() float64 {
	if t.SampleRatio > 0 && t.SampleRatio <= 1 {
		return t.SampleRatio
	}
	return DefaultSampleFraction
}

// getStringWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getStringWithEnvFallback(configVal, envVar, defaultVal string) string {
	if configVal != "" {
		return configVal
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal
	}
	return defaultVal
}

// LoadDotEnv подгружает переменные из файлов .env, не перетирая уже заданные.
// Отсутствие файла не ошибка.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("ошибка чтения %s: %w", f, err)
		}
	}
	return nil
}

// Load читает YAML файл конфигурации.
// Если path == "", берётся TILEWORLD_CONFIG; если и он пуст, возвращается Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора %s: %w", path, err)
	}

	return cfg, nil
}
