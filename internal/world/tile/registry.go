package tile

import "fmt"

// ID является индексом тайла в таблице определений своего слоя. 0 означает пусто.
type ID uint16

// Empty: зарезервированный идентификатор пустого тайла
const Empty ID = 0

// Layer задаёт слой тайла. Набор закрыт: фон и средний (твёрдый) слой.
type Layer uint8

const (
	Background Layer = iota // Стены позади игрока
	Mid                     // Твёрдые, коллизионные тайлы

	layerCount // всегда последний
)

func (l Layer) String() string {
	switch l {
	case Background:
		return "bg"
	case Mid:
		return "mid"
	default:
		return fmt.Sprintf("layer(%d)", uint8(l))
	}
}

// Def: общее для обоих слоёв описание тайла
type Def struct {
	Name           string
	Solid          bool // Участвует в коллизиях
	Indestructible bool // Не разрушается игроком
	Drop           ID   // Что выпадает при разрушении (в том же слое), Empty: ничего
}

var registry = [layerCount]map[ID]Def{
	Background: make(map[ID]Def),
	Mid:        make(map[ID]Def),
}

// Register добавляет определение тайла в таблицу слоя
func Register(layer Layer, id ID, def Def) {
	registry[layer][id] = def
}

// Get возвращает определение тайла слоя
func Get(layer Layer, id ID) (Def, bool) {
	def, ok := registry[layer][id]
	return def, ok
}

// Name возвращает имя тайла или "unknown(N)" для незарегистрированных
func Name(layer Layer, id ID) string {
	if def, ok := Get(layer, id); ok {
		return def.Name
	}
	return fmt.Sprintf("unknown(%d)", id)
}

// IsValid проверяет, зарегистрирован ли ID в слое
func IsValid(layer Layer, id ID) bool {
	_, ok := Get(layer, id)
	return ok
}
