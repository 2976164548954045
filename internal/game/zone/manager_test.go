package zone

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/hotzone/internal/data"
	"github.com/udisondev/hotzone/internal/model"
)

type recordingListener struct {
	mu     sync.Mutex
	enters []string
	exits  []string
}

func (l *recordingListener) OnEnter(z *Zone, p model.PlayerSnapshot) {
	l.mu.Lock()
	l.enters = append(l.enters, z.ID()+":"+string(p.CitizenID))
	l.mu.Unlock()
}

func (l *recordingListener) OnExit(z *Zone, citizen model.CitizenID) {
	l.mu.Lock()
	l.exits = append(l.exits, z.ID()+":"+string(citizen))
	l.mu.Unlock()
}

func testCatalog(t *testing.T, zones ...data.ZoneDef) *data.Catalog {
	t.Helper()
	c := &data.Catalog{Zones: zones}
	require.NoError(t, c.Build())
	return c
}

func square(id, kind string, x0, y0, size float64) data.ZoneDef {
	return data.ZoneDef{
		ID:    id,
		Kind:  kind,
		Shape: data.ShapeNPoly,
		Nodes: []model.Location{loc(x0, y0, 0), loc(x0+size, y0, 0), loc(x0+size, y0+size, 0), loc(x0, y0+size, 0)},
	}
}

func TestManager_ZonesAt(t *testing.T) {
	m := NewManager(testCatalog(t,
		square("market", data.KindBuyer, 0, 0, 1000),
		square("bank", data.KindSecurity, 400, 400, 200),
		square("far", data.KindBuyer, -5000, -5000, 100),
	))

	tests := []struct {
		name string
		at   model.Location
		want []string
	}{
		{"market only", loc(100, 100, 0), []string{"market"}},
		{"overlap", loc(500, 500, 0), []string{"market", "bank"}},
		{"negative coordinates", loc(-4950, -4950, 0), []string{"far"}},
		{"nowhere", loc(3000, 3000, 0), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, z := range m.ZonesAt(tt.at) {
				got = append(got, z.ID())
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}

	assert.Len(t, m.ZonesByKind(data.KindBuyer), 2)
	assert.NotNil(t, m.Zone("bank"))
	assert.Nil(t, m.Zone("missing"))
}

func TestManager_RevalidateFiresByKind(t *testing.T) {
	m := NewManager(testCatalog(t,
		square("market", data.KindBuyer, 0, 0, 1000),
		square("bank", data.KindSecurity, 400, 400, 200),
	))
	buyers := &recordingListener{}
	guards := &recordingListener{}
	m.Subscribe(data.KindBuyer, buyers)
	m.Subscribe(data.KindSecurity, guards)

	p := model.PlayerSnapshot{CitizenID: "c1", Location: loc(100, 100, 0)}
	m.Revalidate(p)
	assert.Equal(t, []string{"market:c1"}, buyers.enters)
	assert.Empty(t, guards.enters)

	p.Location = loc(500, 500, 0)
	m.Revalidate(p)
	assert.Equal(t, []string{"market:c1"}, buyers.enters, "no duplicate enter")
	assert.Equal(t, []string{"bank:c1"}, guards.enters)
	assert.Len(t, m.ZonesOf("c1"), 2)

	p.Location = loc(100, 100, 0)
	m.Revalidate(p)
	assert.Equal(t, []string{"bank:c1"}, guards.exits)
}

func TestManager_ExitAcrossGridCells(t *testing.T) {
	m := NewManager(testCatalog(t, square("small", data.KindBuyer, 0, 0, 100)))
	l := &recordingListener{}
	m.Subscribe(data.KindBuyer, l)

	m.Revalidate(model.PlayerSnapshot{CitizenID: "c1", Location: loc(50, 50, 0)})
	// Телепорт далеко: старая зона не попадает в кандидаты новой ячейки.
	m.Revalidate(model.PlayerSnapshot{CitizenID: "c1", Location: loc(90000, 90000, 0)})

	assert.Equal(t, []string{"small:c1"}, l.exits)
	assert.Empty(t, m.ZonesOf("c1"))
	assert.Zero(t, m.Zone("small").PlayerCount())
}

func TestManager_RemoveFromAll(t *testing.T) {
	m := NewManager(testCatalog(t,
		square("a", data.KindBuyer, 0, 0, 100),
		square("b", data.KindBuyer, 0, 0, 50),
	))
	l := &recordingListener{}
	m.Subscribe(data.KindBuyer, l)

	m.Revalidate(model.PlayerSnapshot{CitizenID: "c1", Location: loc(10, 10, 0)})
	require.Len(t, l.enters, 2)

	m.RemoveFromAll("c1")
	assert.ElementsMatch(t, []string{"a:c1", "b:c1"}, l.exits)

	m.RemoveFromAll("c1")
	assert.Len(t, l.exits, 2, "second removal is a no-op")
}

func TestManager_ReloadKeepsMembership(t *testing.T) {
	m := NewManager(testCatalog(t,
		square("keep", data.KindBuyer, 0, 0, 100),
		square("gone", data.KindBuyer, 0, 0, 100),
	))
	l := &recordingListener{}
	m.Subscribe(data.KindBuyer, l)
	m.Revalidate(model.PlayerSnapshot{CitizenID: "c1", Location: loc(10, 10, 0)})

	m.Load(testCatalog(t, square("keep", data.KindBuyer, 0, 0, 100)))

	assert.Equal(t, []string{"gone:c1"}, l.exits)
	assert.True(t, m.Zone("keep").Has("c1"))

	// Already inside the reloaded zone: no second enter.
	m.Revalidate(model.PlayerSnapshot{CitizenID: "c1", Location: loc(20, 20, 0)})
	assert.Len(t, l.enters, 2)
}

func TestCell(t *testing.T) {
	assert.Equal(t, int64(0), cell(0))
	assert.Equal(t, int64(0), cell(511.9))
	assert.Equal(t, int64(1), cell(512))
	assert.Equal(t, int64(-1), cell(-0.5))
	assert.Equal(t, int64(-2), cell(-513))
}
