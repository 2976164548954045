package observer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/hotzone/internal/config"
	"github.com/udisondev/hotzone/internal/data"
	"github.com/udisondev/hotzone/internal/events"
	"github.com/udisondev/hotzone/internal/game/zone"
	"github.com/udisondev/hotzone/internal/heat"
	"github.com/udisondev/hotzone/internal/model"
)

type staticSource []ZoneState

func (s staticSource) Zones() []ZoneState { return s }

func newTestServer(t *testing.T, src Source, queue int) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(config.ObserverConfig{SendQueueSize: queue}, src)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) events.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, b, err := conn.ReadMessage()
	require.NoError(t, err)
	var e events.Event
	require.NoError(t, json.Unmarshal(b, &e))
	return e
}

func TestServer_StreamsEvents(t *testing.T) {
	s, ts := newTestServer(t, staticSource(nil), 16)
	all := dial(t, ts, "")
	bankOnly := dial(t, ts, "?zone=bank")
	require.Eventually(t, func() bool { return s.Subscribers() == 2 }, time.Second, 10*time.Millisecond)

	s.Publish(events.Event{Kind: events.KindSale, ZoneID: "corner"})
	s.Publish(events.Event{Kind: events.KindAlert, ZoneID: "bank", Data: map[string]any{"to": "alert"}})

	assert.Equal(t, events.KindSale, readEvent(t, all).Kind)
	assert.Equal(t, events.KindAlert, readEvent(t, all).Kind)

	got := readEvent(t, bankOnly)
	assert.Equal(t, events.KindAlert, got.Kind)
	assert.Equal(t, "alert", got.Data["to"])
}

func TestServer_UnsubscribesOnClose(t *testing.T) {
	s, ts := newTestServer(t, staticSource(nil), 16)
	conn := dial(t, ts, "")
	require.Eventually(t, func() bool { return s.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return s.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_SlowSubscriberDrops(t *testing.T) {
	s := NewServer(config.ObserverConfig{SendQueueSize: 2}, staticSource(nil))
	s.add(nil)

	for range 5 {
		s.Publish(events.Event{Kind: events.KindSale})
	}
	assert.Equal(t, int64(3), s.Dropped())
}

func TestServer_ZonesHandler(t *testing.T) {
	src := staticSource{{ZoneID: "corner", Kind: data.KindBuyer, Players: 2, Active: true, Buyers: 3}}
	s := NewServer(config.ObserverConfig{}, src)

	rec := httptest.NewRecorder()
	s.ZonesHandler(rec, httptest.NewRequest(http.MethodGet, "/zones", nil))

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var got []ZoneState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "corner", got[0].ZoneID)
	assert.Equal(t, 3, got[0].Buyers)
}

func TestBoard_Zones(t *testing.T) {
	cat := &data.Catalog{Zones: []data.ZoneDef{
		{ID: "corner", Kind: data.KindBuyer, Shape: data.ShapeCylinder, Nodes: []model.Location{{}}, Radius: 50},
		{ID: "bank", Kind: data.KindSecurity, Shape: data.ShapeCylinder, Nodes: []model.Location{{X: 500}}, Radius: 50},
	}}
	require.NoError(t, cat.Build())
	zones := zone.NewManager(cat)
	hm := heat.NewManager(config.DefaultHeat(), config.DefaultReputation(), heat.NewMemoryStore(), nil)
	hm.AddHeat("corner", 40)
	zones.Revalidate(model.PlayerSnapshot{CitizenID: "c1", Location: model.Location{X: 1}})

	got := NewBoard(zones, hm, nil, nil).Zones()

	require.Len(t, got, 2)
	assert.Equal(t, "bank", got[0].ZoneID)
	assert.Equal(t, "corner", got[1].ZoneID)
	assert.Equal(t, 1, got[1].Players)
	assert.Equal(t, 40.0, got[1].Heat.Heat)
	assert.False(t, got[1].Active)
}
