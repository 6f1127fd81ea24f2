package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nuvoserial/nuvo-core/internal/nuvo"
	"github.com/nuvoserial/nuvo-core/internal/zone"
)

// History query limits.
const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// zoneResponse is the external view of a zone.
type zoneResponse struct {
	ID       int            `json:"id"`
	Name     string         `json:"name"`
	EntityID string         `json:"entity_id"`
	State    zone.State     `json:"state"`
	Group    zone.GroupInfo `json:"group"`
	Sources  []string       `json:"sources"`
}

// zoneCommandRequest is the body of POST /zones/{id}/command.
type zoneCommandRequest struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params,omitempty"`
}

// newZoneResponse builds the external view of a zone.
func newZoneResponse(z *zone.Zone) zoneResponse {
	return zoneResponse{
		ID:       z.ID(),
		Name:     z.Name(),
		EntityID: z.EntityID(),
		State:    z.State(),
		Group:    z.Group(),
		Sources:  z.SourceList(),
	}
}

// handleListZones returns all configured zones.
func (s *Server) handleListZones(w http.ResponseWriter, _ *http.Request) {
	zones := s.zones.Zones()
	resp := make([]zoneResponse, 0, len(zones))
	for _, z := range zones {
		resp = append(resp, newZoneResponse(z))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"zones": resp,
		"count": len(resp),
	})
}

// handleGetZone returns a single zone.
func (s *Server) handleGetZone(w http.ResponseWriter, r *http.Request) {
	z, ok := s.zoneFromURL(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newZoneResponse(z))
}

// handleZoneCommand executes a command against a zone.
func (s *Server) handleZoneCommand(w http.ResponseWriter, r *http.Request) {
	z, ok := s.zoneFromURL(w, r)
	if !ok {
		return
	}

	var req zoneCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Command == "" {
		writeBadRequest(w, "command is required")
		return
	}

	if err := s.executeZoneCommand(r.Context(), z, req); err != nil {
		s.writeCommandError(w, req.Command, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"zone_id": z.ID(),
		"command": req.Command,
		"status":  "accepted",
	})
}

// executeZoneCommand dispatches a named command to the zone. The command
// vocabulary matches the MQTT bridge.
func (s *Server) executeZoneCommand(ctx context.Context, z *zone.Zone, req zoneCommandRequest) error {
	switch req.Command {
	case "on":
		return z.TurnOn(ctx)
	case "off":
		return z.TurnOff(ctx)
	case "mute":
		return z.SetMute(ctx, true)
	case "unmute":
		return z.SetMute(ctx, false)
	case "set_volume":
		level, err := floatParam(req.Params, "volume")
		if err != nil {
			return err
		}
		return z.SetVolumeLevel(ctx, level)
	case "volume_up":
		return z.VolumeUp(ctx)
	case "volume_down":
		return z.VolumeDown(ctx)
	case "select_source":
		source, err := stringParam(req.Params, "source")
		if err != nil {
			return err
		}
		return z.SelectSource(ctx, source)
	case "join":
		members, err := stringSliceParam(req.Params, "members")
		if err != nil {
			return err
		}
		return z.Join(ctx, members)
	case "unjoin":
		return z.Unjoin(ctx)
	case "snapshot":
		return z.Snapshot(ctx)
	case "restore":
		return z.Restore(ctx)
	case "party_on":
		return z.PartyOn(ctx)
	case "party_off":
		return z.PartyOff(ctx)
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, req.Command)
	}
}

// handleZoneHistory returns recent state changes for a zone, newest first.
func (s *Server) handleZoneHistory(w http.ResponseWriter, r *http.Request) {
	z, ok := s.zoneFromURL(w, r)
	if !ok {
		return
	}

	if s.history == nil {
		writeServiceUnavailable(w, "state history unavailable")
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	entries, err := s.history.GetHistory(r.Context(), z.ID(), limit)
	if err != nil {
		s.logger.Error("zone history query failed", "zone_id", z.ID(), "error", err)
		writeInternalError(w, "failed to load zone history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"zone_id": z.ID(),
		"history": entries,
		"count":   len(entries),
	})
}

// zoneFromURL resolves the {id} URL parameter to a zone, writing the
// error response itself when resolution fails.
func (s *Server) zoneFromURL(w http.ResponseWriter, r *http.Request) (*zone.Zone, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid zone ID")
		return nil, false
	}
	z, err := s.zones.Zone(id)
	if err != nil {
		writeNotFound(w, "zone not found")
		return nil, false
	}
	return z, true
}

// writeCommandError maps a command execution error to an HTTP response.
func (s *Server) writeCommandError(w http.ResponseWriter, command string, err error) {
	switch {
	case errors.Is(err, errUnknownCommand):
		writeBadRequest(w, err.Error())
	case errors.Is(err, errMissingParameter), errors.Is(err, zone.ErrInvalidVolume),
		errors.Is(err, zone.ErrUnknownSource), errors.Is(err, zone.ErrNoSnapshot),
		errors.Is(err, zone.ErrUnknownZone):
		writeBadRequest(w, err.Error())
	case errors.Is(err, nuvo.ErrCommandRejected):
		writeConflict(w, err.Error())
	default:
		s.logger.Error("zone command failed", "command", command, "error", err)
		writeInternalError(w, "command execution failed")
	}
}

// parseHistoryLimit parses the limit query parameter with bounds enforcement.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > maxHistoryLimit {
		return 0, fmt.Errorf("limit exceeds maximum")
	}

	return limit, nil
}

// Command parameter errors.
var (
	errUnknownCommand   = errors.New("unknown command")
	errMissingParameter = errors.New("missing or invalid parameter")
)

// floatParam extracts a required numeric parameter.
func floatParam(params map[string]any, name string) (float64, error) {
	v, ok := params[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", errMissingParameter, name)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a number", errMissingParameter, name)
	}
	return f, nil
}

// stringParam extracts a required string parameter.
func stringParam(params map[string]any, name string) (string, error) {
	v, ok := params[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", errMissingParameter, name)
	}
	str, ok := v.(string)
	if !ok || str == "" {
		return "", fmt.Errorf("%w: %s must be a non-empty string", errMissingParameter, name)
	}
	return str, nil
}

// stringSliceParam extracts a required string slice parameter.
func stringSliceParam(params map[string]any, name string) ([]string, error) {
	v, ok := params[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errMissingParameter, name)
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a list of strings", errMissingParameter, name)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		str, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a list of strings", errMissingParameter, name)
		}
		out = append(out, str)
	}
	return out, nil
}
