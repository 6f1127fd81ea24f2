package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nuvoserial/nuvo-core/internal/zone"
)

// commandBody builds a zone command request body.
func commandBody(t *testing.T, command string, params map[string]any) *strings.Reader {
	t.Helper()
	payload, err := json.Marshal(zoneCommandRequest{Command: command, Params: params})
	if err != nil {
		t.Fatalf("marshal command: %v", err)
	}
	return strings.NewReader(string(payload))
}

// TestHandleListZones verifies the zone list response.
func TestHandleListZones(t *testing.T) {
	env := newAPITestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/zones", nil)
	rr := httptest.NewRecorder()

	env.srv.handleListZones(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp struct {
		Zones []zoneResponse `json:"zones"`
		Count int            `json:"count"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	if resp.Zones[0].Name != "Kitchen" || resp.Zones[1].Name != "Lounge" {
		t.Errorf("zone names = %q, %q", resp.Zones[0].Name, resp.Zones[1].Name)
	}
	if resp.Zones[0].State.Power != zone.PowerOn {
		t.Errorf("zone 1 power = %q, want %q", resp.Zones[0].State.Power, zone.PowerOn)
	}
}

// TestHandleGetZone verifies single zone retrieval and the 404 path.
func TestHandleGetZone(t *testing.T) {
	env := newAPITestEnv(t, nil)

	req := newZoneRequest(http.MethodGet, "/api/v1/zones/1", 1, nil)
	rr := httptest.NewRecorder()
	env.srv.handleGetZone(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var resp zoneResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if resp.ID != 1 || resp.EntityID != "zone.kitchen" {
		t.Errorf("zone = %d %q, want 1 %q", resp.ID, resp.EntityID, "zone.kitchen")
	}

	req = newZoneRequest(http.MethodGet, "/api/v1/zones/9", 9, nil)
	rr = httptest.NewRecorder()
	env.srv.handleGetZone(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown zone status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

// TestHandleZoneCommand_SetVolume verifies command dispatch reaches the driver.
func TestHandleZoneCommand_SetVolume(t *testing.T) {
	env := newAPITestEnv(t, nil)

	body := commandBody(t, "set_volume", map[string]any{"volume": 0.5})
	req := newZoneRequest(http.MethodPost, "/api/v1/zones/1/command", 1, body)
	rr := httptest.NewRecorder()

	env.srv.handleZoneCommand(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	found := false
	for _, call := range env.fake.Calls() {
		if call == "SetVolume(1,40)" {
			found = true
		}
	}
	if !found {
		t.Errorf("driver calls = %v, want SetVolume(1,40)", env.fake.Calls())
	}
}

// TestHandleZoneCommand_Errors verifies the error status mapping.
func TestHandleZoneCommand_Errors(t *testing.T) {
	env := newAPITestEnv(t, nil)

	tests := []struct {
		name       string
		command    string
		params     map[string]any
		wantStatus int
	}{
		{name: "unknown command", command: "explode", wantStatus: http.StatusBadRequest},
		{name: "missing volume", command: "set_volume", wantStatus: http.StatusBadRequest},
		{name: "volume wrong type", command: "set_volume", params: map[string]any{"volume": "loud"}, wantStatus: http.StatusBadRequest},
		{name: "volume out of range", command: "set_volume", params: map[string]any{"volume": 1.5}, wantStatus: http.StatusBadRequest},
		{name: "unknown source", command: "select_source", params: map[string]any{"source": "Gramophone"}, wantStatus: http.StatusBadRequest},
		{name: "restore without snapshot", command: "restore", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := commandBody(t, tt.command, tt.params)
			req := newZoneRequest(http.MethodPost, "/api/v1/zones/1/command", 1, body)
			rr := httptest.NewRecorder()

			env.srv.handleZoneCommand(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
		})
	}
}

// TestHandleZoneCommand_MalformedBody verifies JSON validation.
func TestHandleZoneCommand_MalformedBody(t *testing.T) {
	env := newAPITestEnv(t, nil)

	req := newZoneRequest(http.MethodPost, "/api/v1/zones/1/command", 1, strings.NewReader("{not json"))
	rr := httptest.NewRecorder()

	env.srv.handleZoneCommand(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// TestHandleZoneCommand_Join verifies group commands propagate to members.
func TestHandleZoneCommand_Join(t *testing.T) {
	env := newAPITestEnv(t, nil)

	body := commandBody(t, "join", map[string]any{"members": []any{"zone.lounge"}})
	req := newZoneRequest(http.MethodPost, "/api/v1/zones/1/command", 1, body)
	rr := httptest.NewRecorder()

	env.srv.handleZoneCommand(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	// Join propagates over the bus; the member's view converges async.
	deadline := time.Now().Add(2 * time.Second)
	for {
		member, err := env.zones.Zone(2)
		if err != nil {
			t.Fatalf("Zone(2) error = %v", err)
		}
		if member.Group().Status == zone.GroupMember {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("zone 2 group status = %q, want %q", member.Group().Status, zone.GroupMember)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// TestHandleZoneHistory verifies history retrieval and limit validation.
func TestHandleZoneHistory(t *testing.T) {
	db := setupHistoryDB(t)
	repo := zone.NewSQLiteHistoryRepository(db)
	env := newAPITestEnv(t, repo)

	on := true
	state := zone.State{Power: zone.PowerOn, Mute: &on}
	if err := repo.RecordStateChange(context.Background(), 1, state, "driver"); err != nil {
		t.Fatalf("RecordStateChange error = %v", err)
	}
	if err := repo.RecordStateChange(context.Background(), 1, state, "driver"); err != nil {
		t.Fatalf("RecordStateChange error = %v", err)
	}

	req := newZoneRequest(http.MethodGet, "/api/v1/zones/1/history?limit=1", 1, nil)
	rr := httptest.NewRecorder()
	env.srv.handleZoneHistory(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp struct {
		ZoneID  int                 `json:"zone_id"`
		History []zone.HistoryEntry `json:"history"`
		Count   int                 `json:"count"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if resp.ZoneID != 1 {
		t.Errorf("zone_id = %d, want 1", resp.ZoneID)
	}
	if resp.Count != 1 {
		t.Errorf("count = %d, want 1", resp.Count)
	}

	req = newZoneRequest(http.MethodGet, "/api/v1/zones/1/history?limit=201", 1, nil)
	rr = httptest.NewRecorder()
	env.srv.handleZoneHistory(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("oversized limit status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// TestHandleZoneHistory_Unavailable verifies the 503 path without a repository.
func TestHandleZoneHistory_Unavailable(t *testing.T) {
	env := newAPITestEnv(t, nil)

	req := newZoneRequest(http.MethodGet, "/api/v1/zones/1/history", 1, nil)
	rr := httptest.NewRecorder()
	env.srv.handleZoneHistory(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

// TestParseHistoryLimit verifies limit parsing bounds.
func TestParseHistoryLimit(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{name: "empty uses default", raw: "", want: defaultHistoryLimit},
		{name: "explicit", raw: "10", want: 10},
		{name: "max", raw: "200", want: 200},
		{name: "too high", raw: "201", wantErr: true},
		{name: "zero", raw: "0", wantErr: true},
		{name: "negative", raw: "-5", wantErr: true},
		{name: "not a number", raw: "ten", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseHistoryLimit(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseHistoryLimit(%q) expected error, got %d", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseHistoryLimit(%q) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("parseHistoryLimit(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}
