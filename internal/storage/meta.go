package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// MetaFileName: файл метаданных мира внутри его директории
const MetaFileName = "world.yaml"

// WorldMeta содержит данные мира, не зависящие от чанков
type WorldMeta struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Seed  int64  `yaml:"seed"`
	Ticks uint64 `yaml:"ticks"`
}

// NewWorldMeta создаёт метаданные нового мира со свежим идентификатором
func NewWorldMeta(name string, seed int64, ticks uint64) WorldMeta {
	return WorldMeta{
		ID:    uuid.NewString(),
		Name:  name,
		Seed:  seed,
		Ticks: ticks,
	}
}

// UUID разбирает идентификатор мира
func (m WorldMeta) UUID() (uuid.UUID, error) {
	return uuid.Parse(m.ID)
}

// SaveMeta атомарно записывает метаданные: сначала во временный файл, затем rename
func SaveMeta(dir string, meta WorldMeta) error {
	data, err := yaml.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("ошибка сериализации метаданных мира: %w", err)
	}

	path := filepath.Join(dir, MetaFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("ошибка записи %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("ошибка переименования %s: %w", tmp, err)
	}
	return nil
}

// LoadMeta читает метаданные мира из директории
func LoadMeta(dir string) (WorldMeta, error) {
	var meta WorldMeta

	data, err := os.ReadFile(filepath.Join(dir, MetaFileName))
	if err != nil {
		return meta, err
	}
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("ошибка разбора метаданных мира: %w", err)
	}
	if _, err := meta.UUID(); err != nil {
		return meta, fmt.Errorf("некорректный id мира %q: %w", meta.ID, err)
	}
	return meta, nil
}
