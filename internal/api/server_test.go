package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nuvoserial/nuvo-core/internal/controls"
	"github.com/nuvoserial/nuvo-core/internal/eventbus"
	"github.com/nuvoserial/nuvo-core/internal/infrastructure/config"
	"github.com/nuvoserial/nuvo-core/internal/infrastructure/logging"
	"github.com/nuvoserial/nuvo-core/internal/nuvo"
	"github.com/nuvoserial/nuvo-core/internal/nuvo/nuvotest"
	"github.com/nuvoserial/nuvo-core/internal/zone"
)

// apiTestEnv wires a fake driver, real managers and a server. Zones are
// seeded powered on, source 1, device volume 40.
type apiTestEnv struct {
	t     *testing.T
	fake  *nuvotest.Fake
	bus   *eventbus.Bus
	zones *zone.Manager
	srv   *Server
}

// newAPITestEnv builds the test server. The history repository is optional.
func newAPITestEnv(t *testing.T, history zone.HistoryRepository) *apiTestEnv {
	t.Helper()

	cfg := &config.Config{
		Amplifier: config.AmplifierConfig{
			Model:      config.ModelGrandConcerto,
			VolumeStep: 0.02,
		},
		Zones: []config.ZoneConfig{
			{ID: 1, Name: "Kitchen"},
			{ID: 2, Name: "Lounge"},
		},
		Sources: []config.SourceConfig{
			{ID: 1, Name: "Radio"},
			{ID: 2, Name: "Turntable"},
		},
	}

	fake := nuvotest.New()
	fake.AutoEcho = true
	for _, s := range cfg.Sources {
		fake.SeedSource(nuvo.SourceConfiguration{Source: s.ID, Enabled: true, Name: s.Name})
	}
	for _, zc := range cfg.Zones {
		fake.SeedZone(nuvo.ZoneStatus{Zone: zc.ID, Power: true, Source: 1, Volume: 40})
	}

	bus := eventbus.New(nil)
	t.Cleanup(bus.Close)

	zones, err := zone.NewManager(cfg, fake, bus, nil)
	if err != nil {
		t.Fatalf("zone.NewManager() error = %v", err)
	}
	if err := zones.Start(context.Background()); err != nil {
		t.Fatalf("zones.Start() error = %v", err)
	}
	t.Cleanup(zones.Close)

	ctrls := controls.NewManager(cfg, fake, bus, nil)
	if err := ctrls.Start(context.Background()); err != nil {
		t.Fatalf("controls.Start() error = %v", err)
	}
	t.Cleanup(ctrls.Close)

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:   log,
		Zones:    zones,
		Controls: ctrls,
		History:  history,
		Bus:      bus,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return &apiTestEnv{t: t, fake: fake, bus: bus, zones: zones, srv: srv}
}

// newZoneRequest creates a request with the zone {id} chi URL param set.
func newZoneRequest(method, target string, zoneID int, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", strconv.Itoa(zoneID))
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// setupHistoryDB creates an in-memory SQLite database with the zone state
// history table.
func setupHistoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE zone_state_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			zone_id INTEGER NOT NULL,
			state TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT 'driver',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE INDEX idx_zone_state_history_zone ON zone_state_history(zone_id, created_at DESC);
		CREATE INDEX idx_zone_state_history_time ON zone_state_history(created_at DESC);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// TestNew_MissingDeps verifies dependency validation.
func TestNew_MissingDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Fatal("New() with empty deps expected error, got nil")
	}
}

// TestHandleHealth verifies the health endpoint response shape.
func TestHandleHealth(t *testing.T) {
	env := newAPITestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	env.srv.handleHealth(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want %q", resp.Status, "ok")
	}
	if resp.Version != "test" {
		t.Errorf("version = %q, want %q", resp.Version, "test")
	}
}

// TestHubBroadcast verifies channel-filtered delivery to subscribed clients.
func TestHubBroadcast(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	hub := NewHub(config.WebSocketConfig{}, log)

	subscribed := &WSClient{
		hub:           hub,
		send:          make(chan []byte, 1),
		subscriptions: map[string]struct{}{ChannelZones: {}},
	}
	unsubscribed := &WSClient{
		hub:           hub,
		send:          make(chan []byte, 1),
		subscriptions: make(map[string]struct{}),
	}
	hub.Register(subscribed)
	hub.Register(unsubscribed)

	hub.Broadcast(ChannelZones, map[string]any{"zone_id": 1})

	select {
	case data := <-subscribed.send:
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal broadcast: %v", err)
		}
		if msg.Type != WSTypeEvent {
			t.Errorf("type = %q, want %q", msg.Type, WSTypeEvent)
		}
		if msg.EventType != ChannelZones {
			t.Errorf("event_type = %q, want %q", msg.EventType, ChannelZones)
		}
	default:
		t.Fatal("subscribed client received no broadcast")
	}

	select {
	case <-unsubscribed.send:
		t.Fatal("unsubscribed client received broadcast")
	default:
	}
}
