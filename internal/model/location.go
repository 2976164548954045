package model

import "math"

// Location представляет координаты в игровом мире.
// Value type, передаётся по значению (immutable).
type Location struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// NewLocation создаёт Location с указанными координатами.
func NewLocation(x, y, z float64) Location {
	return Location{X: x, Y: y, Z: z}
}

// DistanceSquared возвращает квадрат расстояния до другой точки (без sqrt для производительности).
func (l Location) DistanceSquared(other Location) float64 {
	dx := l.X - other.X
	dy := l.Y - other.Y
	dz := l.Z - other.Z
	return dx*dx + dy*dy + dz*dz
}

// Distance returns the euclidean distance to other.
func (l Location) Distance(other Location) float64 {
	return math.Sqrt(l.DistanceSquared(other))
}

// Distance2D ignores the Z axis. Zone radii are measured on the ground plane.
func (l Location) Distance2D(other Location) float64 {
	dx := l.X - other.X
	dy := l.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// WithinRange reports whether other lies within r (inclusive) of l.
func (l Location) WithinRange(other Location, r float64) bool {
	return l.DistanceSquared(other) <= r*r
}
