package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/nuvoserial/nuvo-core/internal/controls"
	"github.com/nuvoserial/nuvo-core/internal/nuvo"
)

// newControlRequest creates a request with {id} and {control} chi URL params.
func newControlRequest(method, target string, id int, control string, body string) *http.Request {
	var rd *strings.Reader
	if body != "" {
		rd = strings.NewReader(body)
	} else {
		rd = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, rd)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", strconv.Itoa(id))
	rctx.URLParams.Add("control", control)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// TestHandleListZoneControls verifies the per-zone control list.
func TestHandleListZoneControls(t *testing.T) {
	env := newAPITestEnv(t, nil)

	req := newZoneRequest(http.MethodGet, "/api/v1/zones/1/controls", 1, nil)
	rr := httptest.NewRecorder()

	env.srv.handleListZoneControls(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp struct {
		Entity   string              `json:"entity"`
		ID       int                 `json:"id"`
		Controls []controls.Snapshot `json:"controls"`
		Count    int                 `json:"count"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if resp.Entity != "zone" || resp.ID != 1 {
		t.Errorf("entity/id = %q/%d, want zone/1", resp.Entity, resp.ID)
	}
	if resp.Count == 0 {
		t.Fatal("expected zone controls, got none")
	}

	found := false
	for _, snap := range resp.Controls {
		if snap.Control == controls.ControlBass {
			found = true
		}
	}
	if !found {
		t.Errorf("controls = %v, want bass present", resp.Controls)
	}
}

// TestHandleGetZoneControl verifies single control retrieval and 404s.
func TestHandleGetZoneControl(t *testing.T) {
	env := newAPITestEnv(t, nil)

	req := newControlRequest(http.MethodGet, "/api/v1/zones/1/controls/bass", 1, "bass", "")
	rr := httptest.NewRecorder()
	env.srv.handleGetZoneControl(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var snap controls.Snapshot
	if err := json.NewDecoder(rr.Body).Decode(&snap); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if snap.Control != controls.ControlBass || snap.Kind != "number" {
		t.Errorf("snapshot = %+v, want bass number", snap)
	}

	req = newControlRequest(http.MethodGet, "/api/v1/zones/1/controls/reverb", 1, "reverb", "")
	rr = httptest.NewRecorder()
	env.srv.handleGetZoneControl(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown control status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

// TestHandleSetZoneControl verifies number and switch writes and validation.
func TestHandleSetZoneControl(t *testing.T) {
	tests := []struct {
		name       string
		control    string
		body       string
		wantStatus int
		wantCall   string
	}{
		{name: "bass", control: "bass", body: `{"value": 4}`, wantStatus: http.StatusOK, wantCall: "SetBass(1,4)"},
		{name: "loudness switch", control: "loudcmp", body: `{"on": true}`, wantStatus: http.StatusOK, wantCall: "SetLoudnessComp(1,true)"},
		{name: "bass out of range", control: "bass", body: `{"value": 40}`, wantStatus: http.StatusBadRequest},
		{name: "number without value", control: "bass", body: `{"on": true}`, wantStatus: http.StatusBadRequest},
		{name: "switch without on", control: "loudcmp", body: `{"value": 1}`, wantStatus: http.StatusBadRequest},
		{name: "unknown control", control: "reverb", body: `{"value": 1}`, wantStatus: http.StatusNotFound},
		{name: "malformed body", control: "bass", body: `{`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newAPITestEnv(t, nil)

			req := newControlRequest(http.MethodPut, "/api/v1/zones/1/controls/"+tt.control, 1, tt.control, tt.body)
			rr := httptest.NewRecorder()

			env.srv.handleSetZoneControl(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}

			if tt.wantCall == "" {
				return
			}
			found := false
			for _, call := range env.fake.Calls() {
				if call == tt.wantCall {
					found = true
				}
			}
			if !found {
				t.Errorf("driver calls = %v, want %s", env.fake.Calls(), tt.wantCall)
			}
		})
	}
}

// TestHandleSourceControls verifies source control listing and writes.
func TestHandleSourceControls(t *testing.T) {
	env := newAPITestEnv(t, nil)

	req := newZoneRequest(http.MethodGet, "/api/v1/sources/2/controls", 2, nil)
	rr := httptest.NewRecorder()
	env.srv.handleListSourceControls(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	req = newControlRequest(http.MethodPut, "/api/v1/sources/2/controls/gain", 2, "gain", `{"value": 7}`)
	rr = httptest.NewRecorder()
	env.srv.handleSetSourceControl(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("gain set status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	found := false
	for _, call := range env.fake.Calls() {
		if call == "SetSourceGain(2,7)" {
			found = true
		}
	}
	if !found {
		t.Errorf("driver calls = %v, want SetSourceGain(2,7)", env.fake.Calls())
	}

	// Unknown sources have no controls.
	req = newZoneRequest(http.MethodGet, "/api/v1/sources/9/controls", 9, nil)
	rr = httptest.NewRecorder()
	env.srv.handleListSourceControls(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown source status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

// TestHandleSystemControls verifies the system switches.
func TestHandleSystemControls(t *testing.T) {
	env := newAPITestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/system/controls", nil)
	rr := httptest.NewRecorder()
	env.srv.handleListSystemControls(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	req = newControlRequest(http.MethodPut, "/api/v1/system/controls/page", 0, "page", `{"on": true}`)
	rr = httptest.NewRecorder()
	env.srv.handleSetSystemControl(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("page set status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	found := false
	for _, call := range env.fake.Calls() {
		if call == "SetPage(true)" {
			found = true
		}
	}
	if !found {
		t.Errorf("driver calls = %v, want SetPage(true)", env.fake.Calls())
	}
}

// TestHandleAllOff verifies the amplifier rejection surfaces as a conflict.
func TestHandleAllOff(t *testing.T) {
	env := newAPITestEnv(t, nil)
	env.fake.AllOffErr = &nuvo.CommandError{Message: "paging active"}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/system/all_off", nil)
	rr := httptest.NewRecorder()
	env.srv.handleAllOff(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusConflict, rr.Body.String())
	}

	env.fake.AllOffErr = nil
	rr = httptest.NewRecorder()
	env.srv.handleAllOff(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
}
