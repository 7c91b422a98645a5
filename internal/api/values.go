package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-zwave/internal/bridges/zwave"
	"github.com/nerrad567/gray-logic-zwave/internal/history"
	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
)

// History bounds for GET /zwave/values/{vid}/history.
const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// ValueView is a value with its metadata and current reading.
type ValueView struct {
	ValueID      string         `json:"value_id"`
	Address      string         `json:"address"`
	CommandClass string         `json:"command_class"`
	Instance     uint8          `json:"instance"`
	Index        uint8          `json:"index"`
	Type         ozw.ValueType  `json:"type"`
	Genre        ozw.ValueGenre `json:"genre"`
	Label        string         `json:"label"`
	Units        string         `json:"units,omitempty"`
	Help         string         `json:"help,omitempty"`
	Min          int32          `json:"min"`
	Max          int32          `json:"max"`
	ReadOnly     bool           `json:"read_only"`
	WriteOnly    bool           `json:"write_only"`
	Polled       bool           `json:"polled"`
	Value        any            `json:"value"`
}

func (s *Server) valueView(id ozw.ValueID) ValueView {
	meta, _ := s.manager.ValueMeta(id)
	view := ValueView{
		ValueID:      id.String(),
		Address:      zwave.NodeAddress(id.HomeID, id.NodeID),
		CommandClass: ozw.CommandClassName(id.CommandClassID),
		Instance:     id.Instance,
		Index:        id.Index,
		Type:         id.Type,
		Genre:        id.Genre,
		Label:        meta.Label,
		Units:        meta.Units,
		Help:         meta.Help,
		Min:          meta.Min,
		Max:          meta.Max,
		ReadOnly:     meta.ReadOnly,
		WriteOnly:    meta.WriteOnly,
		Polled:       meta.Polled,
	}
	if !meta.WriteOnly {
		if v, err := s.manager.Value(id); err == nil {
			view.Value = ozw.Native(v)
		}
	}
	return view
}

// handleListValues returns known values in ValueID order.
//
// Query parameters:
//   - home: only values of this home
//   - node: only values of this node id
//   - genre: only values of this genre (user, config, system, basic)
func (s *Server) handleListValues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		homeID uint32
		nodeID uint64
		genre  ozw.ValueGenre
		err    error
	)
	if raw := q.Get("home"); raw != "" {
		if homeID, err = zwave.ParseHomeID(raw); err != nil {
			writeBadRequest(w, err.Error())
			return
		}
	}
	if raw := q.Get("node"); raw != "" {
		if nodeID, err = strconv.ParseUint(raw, 10, 8); err != nil {
			writeBadRequest(w, "invalid node id")
			return
		}
	}
	filterGenre := q.Get("genre") != ""
	if filterGenre {
		if err := genre.UnmarshalText([]byte(q.Get("genre"))); err != nil {
			writeBadRequest(w, err.Error())
			return
		}
	}

	ids := s.inventory.Values()
	values := make([]ValueView, 0, len(ids))
	for _, id := range ids {
		if homeID != 0 && id.HomeID != homeID {
			continue
		}
		if nodeID != 0 && uint64(id.NodeID) != nodeID {
			continue
		}
		if filterGenre && id.Genre != genre {
			continue
		}
		values = append(values, s.valueView(id))
	}
	writeJSON(w, http.StatusOK, map[string]any{"values": values, "count": len(values)})
}

// handleGetValue returns one value with its metadata.
func (s *Server) handleGetValue(w http.ResponseWriter, r *http.Request) {
	id, ok := s.knownValue(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.valueView(id))
}

// handleSetValue writes a value. The body's value is interpreted according
// to the identity's type: bool, number, list item label, string, hex raw.
func (s *Server) handleSetValue(w http.ResponseWriter, r *http.Request) {
	id, ok := s.knownValue(w, r)
	if !ok {
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	raw, present := body["value"]
	if !present {
		writeBadRequest(w, "value is required")
		return
	}

	v, err := ozw.FromNative(id.Type, raw)
	if err != nil {
		writeValueError(w, err)
		return
	}
	if err := s.manager.SetValue(id, v); err != nil {
		s.logger.Warn("value write failed", "value_id", id.String(), "error", err)
		writeValueError(w, err)
		return
	}

	if s.history != nil {
		if err := s.history.RecordValue(r.Context(), id, v, history.SourceCommand); err != nil {
			s.logger.Warn("failed to record value write", "value_id", id.String(), "error", err)
		}
	}

	s.logger.Info("value written", "value_id", id.String(), "value", v.Text())
	writeJSON(w, http.StatusAccepted, map[string]any{
		"value_id": id.String(),
		"status":   "accepted",
		"value":    ozw.Native(v),
	})
}

// handleGetValueHistory returns recorded readings of a value, newest first.
//
// Query parameters:
//   - limit: maximum entries (default 50, max 200)
func (s *Server) handleGetValueHistory(w http.ResponseWriter, r *http.Request) {
	id, err := ozw.ParseValueID(chi.URLParam(r, "vid"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if s.history == nil {
		writeUnavailable(w, "value history unavailable")
		return
	}

	entries, err := s.history.History(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("failed to load value history", "value_id", id.String(), "error", err)
		writeInternalError(w, "failed to load value history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"value_id": id.String(),
		"history":  entries,
		"count":    len(entries),
	})
}

// knownValue parses the {vid} parameter and checks the value has been
// announced, writing the error response when it has not.
func (s *Server) knownValue(w http.ResponseWriter, r *http.Request) (ozw.ValueID, bool) {
	id, err := ozw.ParseValueID(chi.URLParam(r, "vid"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return ozw.ValueID{}, false
	}
	if !s.inventory.HasValue(id) {
		writeError(w, http.StatusNotFound, ErrCodeUnknownValue, "value not found")
		return ozw.ValueID{}, false
	}
	return id, true
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
