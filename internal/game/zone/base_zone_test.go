package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/udisondev/hotzone/internal/data"
	"github.com/udisondev/hotzone/internal/model"
)

func loc(x, y, z float64) model.Location { return model.NewLocation(x, y, z) }

func TestNPolyContains(t *testing.T) {
	// Треугольник: (0,0), (100,0), (50,100), Z от -1000 до 1000.
	z := newZone(&data.ZoneDef{
		ID:    "triangle",
		Shape: data.ShapeNPoly,
		MinZ:  -1000,
		MaxZ:  1000,
		Nodes: []model.Location{loc(0, 0, 0), loc(100, 0, 0), loc(50, 100, 0)},
	})

	tests := []struct {
		name string
		at   model.Location
		want bool
	}{
		{"center inside", loc(50, 30, 0), true},
		{"near apex inside", loc(50, 90, 0), true},
		{"outside left", loc(-10, 50, 0), false},
		{"outside right", loc(110, 50, 0), false},
		{"outside above", loc(50, 110, 0), false},
		{"outside below", loc(50, -10, 0), false},
		{"on left edge", loc(25, 50, 0), true},
		{"fractional inside", loc(50.5, 0.25, 0), true},
		{"inside XY but below Z range", loc(50, 30, -1500), false},
		{"inside XY but above Z range", loc(50, 30, 1500), false},
		{"inside at minZ boundary", loc(50, 30, -1000), true},
		{"inside at maxZ boundary", loc(50, 30, 1000), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, z.Contains(tt.at), "Contains(%v)", tt.at)
		})
	}
}

func TestCuboidContains(t *testing.T) {
	z := newZone(&data.ZoneDef{
		ID:    "cuboid",
		Shape: data.ShapeCuboid,
		MinZ:  -500,
		MaxZ:  500,
		Nodes: []model.Location{loc(0, 0, 0), loc(100, 200, 0)},
	})

	tests := []struct {
		name string
		at   model.Location
		want bool
	}{
		{"center inside", loc(50, 100, 0), true},
		{"corner inside", loc(0, 0, 0), true},
		{"opposite corner", loc(100, 200, 0), true},
		{"outside X", loc(150, 100, 0), false},
		{"outside Y", loc(50, 250, 0), false},
		{"negative outside", loc(-1, 100, 0), false},
		{"outside Z range", loc(50, 100, 600), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, z.Contains(tt.at), "Contains(%v)", tt.at)
		})
	}
}

func TestCylinderContains(t *testing.T) {
	z := newZone(&data.ZoneDef{
		ID:     "corner",
		Shape:  data.ShapeCylinder,
		Nodes:  []model.Location{loc(-100, -100, 0)},
		Radius: 50,
	})

	tests := []struct {
		name string
		at   model.Location
		want bool
	}{
		{"center", loc(-100, -100, 0), true},
		{"on radius", loc(-50, -100, 0), true},
		{"just outside", loc(-49.9, -100, 0), false},
		{"diagonal inside", loc(-130, -130, 0), true},
		{"diagonal outside", loc(-140, -140, 0), false},
		{"no vertical bound", loc(-100, -100, 9000), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, z.Contains(tt.at), "Contains(%v)", tt.at)
		})
	}
}

func TestDegenerateZones(t *testing.T) {
	tests := []struct {
		name string
		def  data.ZoneDef
	}{
		{"cylinder without radius", data.ZoneDef{Shape: data.ShapeCylinder, Nodes: []model.Location{loc(0, 0, 0)}}},
		{"cuboid with one node", data.ZoneDef{Shape: data.ShapeCuboid, Nodes: []model.Location{loc(0, 0, 0)}}},
		{"polygon with two nodes", data.ZoneDef{Shape: data.ShapeNPoly, Nodes: []model.Location{loc(0, 0, 0), loc(10, 10, 0)}}},
		{"no nodes", data.ZoneDef{Shape: data.ShapeNPoly}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z := newZone(&tt.def)
			assert.False(t, z.Contains(loc(0, 0, 0)))
		})
	}
}

func TestZoneTracking(t *testing.T) {
	z := newZone(&data.ZoneDef{
		ID:     "corner",
		Shape:  data.ShapeCylinder,
		Nodes:  []model.Location{loc(0, 0, 0)},
		Radius: 10,
	})
	p := model.PlayerSnapshot{CitizenID: "c1", Location: loc(1, 1, 0)}

	entered, exited := z.revalidate(p)
	assert.True(t, entered)
	assert.False(t, exited)

	entered, _ = z.revalidate(p)
	assert.False(t, entered, "second revalidate inside is not a new entry")
	assert.True(t, z.Has("c1"))
	assert.Equal(t, 1, z.PlayerCount())

	p.Location = loc(50, 0, 0)
	_, exited = z.revalidate(p)
	assert.True(t, exited)
	assert.False(t, z.Has("c1"))
	assert.Empty(t, z.PlayersInside())
}
