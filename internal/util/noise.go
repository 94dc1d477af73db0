package util

import (
	"github.com/aquilax/go-perlin"
)

// Параметры шума Перлина, общие для всех генераторов мира
const (
	perlinAlpha   = 2.0 // Сглаживание шума
	perlinBeta    = 2.0 // Частота шума
	perlinOctaves = 3   // Количество октав
)

// Noise: детерминированный когерентный шум, привязанный к сиду.
// В отличие от глобального генератора, экземпляры с разными сидами
// не влияют друг на друга.
type Noise struct {
	seed int64
	p    *perlin.Perlin
}

// NewNoise создаёт генератор шума Перлина с указанным сидом
func NewNoise(seed int64) *Noise {
	return &Noise{
		seed: seed,
		p:    perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed),
	}
}

// Seed возвращает сид генератора
func (n *Noise) Seed() int64 {
	return n.seed
}

// At1D возвращает значение шума (примерно от -1 до 1) в точке x
func (n *Noise) At1D(x float64) float64 {
	return n.p.Noise1D(x)
}

// At2D возвращает значение шума (примерно от -1 до 1) в точке (x, y)
func (n *Noise) At2D(x, y float64) float64 {
	return n.p.Noise2D(x, y)
}
