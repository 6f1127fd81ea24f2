package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nuvoserial/nuvo-core/internal/controls"
	"github.com/nuvoserial/nuvo-core/internal/nuvo"
)

// controlSetRequest is the body of PUT control endpoints. Number controls
// take value, switch controls take on.
type controlSetRequest struct {
	Value *float64 `json:"value,omitempty"`
	On    *bool    `json:"on,omitempty"`
}

// handleListZoneControls returns all controls bound to a zone.
func (s *Server) handleListZoneControls(w http.ResponseWriter, r *http.Request) {
	z, ok := s.zoneFromURL(w, r)
	if !ok {
		return
	}
	s.writeControlList(w, controls.EntityZone, z.ID(), s.controls.ForZone(z.ID()))
}

// handleGetZoneControl returns a single zone control.
func (s *Server) handleGetZoneControl(w http.ResponseWriter, r *http.Request) {
	z, ok := s.zoneFromURL(w, r)
	if !ok {
		return
	}
	s.writeControl(w, r, s.controls.ForZone(z.ID()))
}

// handleSetZoneControl sets a zone control value.
func (s *Server) handleSetZoneControl(w http.ResponseWriter, r *http.Request) {
	z, ok := s.zoneFromURL(w, r)
	if !ok {
		return
	}
	s.setControl(w, r, controls.EntityZone, z.ID())
}

// handleListSourceControls returns all controls bound to a source.
func (s *Server) handleListSourceControls(w http.ResponseWriter, r *http.Request) {
	id, snaps, ok := s.sourceControlsFromURL(w, r)
	if !ok {
		return
	}
	s.writeControlList(w, controls.EntitySource, id, snaps)
}

// handleGetSourceControl returns a single source control.
func (s *Server) handleGetSourceControl(w http.ResponseWriter, r *http.Request) {
	_, snaps, ok := s.sourceControlsFromURL(w, r)
	if !ok {
		return
	}
	s.writeControl(w, r, snaps)
}

// handleSetSourceControl sets a source control value.
func (s *Server) handleSetSourceControl(w http.ResponseWriter, r *http.Request) {
	id, _, ok := s.sourceControlsFromURL(w, r)
	if !ok {
		return
	}
	s.setControl(w, r, controls.EntitySource, id)
}

// handleListSystemControls returns the system-level controls.
func (s *Server) handleListSystemControls(w http.ResponseWriter, _ *http.Request) {
	s.writeControlList(w, controls.EntitySystem, 0, s.controls.System())
}

// handleGetSystemControl returns a single system control.
func (s *Server) handleGetSystemControl(w http.ResponseWriter, r *http.Request) {
	s.writeControl(w, r, s.controls.System())
}

// handleSetSystemControl sets a system control value.
func (s *Server) handleSetSystemControl(w http.ResponseWriter, r *http.Request) {
	s.setControl(w, r, controls.EntitySystem, 0)
}

// handleAllOff turns off every zone via the amplifier's all-off command.
// The amplifier rejects all-off while paging is active; that rejection
// surfaces as a 409.
func (s *Server) handleAllOff(w http.ResponseWriter, r *http.Request) {
	if err := s.controls.AllOff().Press(r.Context()); err != nil {
		if errors.Is(err, nuvo.ErrCommandRejected) {
			writeConflict(w, err.Error())
			return
		}
		s.logger.Error("all off failed", "error", err)
		writeInternalError(w, "all off failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"command": "all_off",
		"status":  "accepted",
	})
}

// writeControlList writes a control snapshot list response.
func (s *Server) writeControlList(w http.ResponseWriter, entity controls.EntityType, id int, snaps []controls.Snapshot) {
	resp := map[string]any{
		"entity":   entity,
		"controls": snaps,
		"count":    len(snaps),
	}
	if id != 0 {
		resp["id"] = id
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeControl writes the snapshot matching the {control} URL parameter.
func (s *Server) writeControl(w http.ResponseWriter, r *http.Request, snaps []controls.Snapshot) {
	name := chi.URLParam(r, "control")
	for _, snap := range snaps {
		if snap.Control == name {
			writeJSON(w, http.StatusOK, snap)
			return
		}
	}
	writeNotFound(w, "control not found")
}

// setControl parses the request body and applies it to the named control,
// trying the number registry first and falling back to switches.
func (s *Server) setControl(w http.ResponseWriter, r *http.Request, entity controls.EntityType, id int) {
	name := chi.URLParam(r, "control")

	var req controlSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if number, err := s.controls.Number(entity, id, name); err == nil {
		if req.Value == nil {
			writeBadRequest(w, "value is required for number controls")
			return
		}
		s.applyControlError(w, entity, id, name, number.Set(r.Context(), *req.Value))
		return
	}

	sw, err := s.controls.Switch(entity, id, name)
	if err != nil {
		writeNotFound(w, "control not found")
		return
	}
	if req.On == nil {
		writeBadRequest(w, "on is required for switch controls")
		return
	}
	if *req.On {
		s.applyControlError(w, entity, id, name, sw.TurnOn(r.Context()))
		return
	}
	s.applyControlError(w, entity, id, name, sw.TurnOff(r.Context()))
}

// applyControlError writes the response for a control set attempt.
func (s *Server) applyControlError(w http.ResponseWriter, entity controls.EntityType, id int, name string, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"entity":  entity,
			"control": name,
			"status":  "accepted",
		})
	case errors.Is(err, controls.ErrOutOfRange):
		writeBadRequest(w, err.Error())
	case errors.Is(err, nuvo.ErrCommandRejected):
		writeConflict(w, err.Error())
	default:
		s.logger.Error("control set failed", "entity", entity, "id", id, "control", name, "error", err)
		writeInternalError(w, "control set failed")
	}
}

// sourceControlsFromURL resolves the {id} source parameter, returning the
// source's control snapshots. Unknown sources have no controls and 404.
func (s *Server) sourceControlsFromURL(w http.ResponseWriter, r *http.Request) (int, []controls.Snapshot, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid source ID")
		return 0, nil, false
	}
	snaps := s.controls.ForSource(id)
	if len(snaps) == 0 {
		writeNotFound(w, "source not found")
		return 0, nil, false
	}
	return id, snaps, true
}
