package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-zwave/internal/bridges/zwave"
	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
)

// NodeSummary is one row of the node listing.
type NodeSummary struct {
	Address      string `json:"address"`
	HomeID       string `json:"home_id"`
	NodeID       uint8  `json:"node_id"`
	Name         string `json:"name,omitempty"`
	Location     string `json:"location,omitempty"`
	Type         string `json:"type,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Product      string `json:"product,omitempty"`
	ZWavePlus    bool   `json:"zwave_plus"`
	Awake        bool   `json:"awake"`
	Failed       bool   `json:"failed"`
	Values       int    `json:"values"`
}

// HomeSummary is one row of the home listing.
type HomeSummary struct {
	HomeID     string              `json:"home_id"`
	Ready      bool                `json:"ready"`
	Queried    bool                `json:"queried"`
	SomeDead   bool                `json:"some_dead"`
	Controller *ozw.ControllerInfo `json:"controller,omitempty"`
}

// NodeDetail is the response of GET /zwave/homes/{home}/nodes/{node}.
type NodeDetail struct {
	Address   string              `json:"address"`
	Info      ozw.NodeInfo        `json:"info"`
	Neighbors []int               `json:"neighbors"`
	Values    []string            `json:"values"`
	State     *zwave.StateMessage `json:"state,omitempty"`
}

// handleListHomes returns every controller the engine has announced.
func (s *Server) handleListHomes(w http.ResponseWriter, _ *http.Request) {
	homes := s.inventory.Homes()
	out := make([]HomeSummary, 0, len(homes))
	for _, home := range homes {
		summary := HomeSummary{
			HomeID:   zwave.FormatHomeID(home.HomeID),
			Ready:    home.Ready,
			Queried:  home.Queried,
			SomeDead: home.SomeDead,
		}
		if info, ok := s.manager.Controller(home.HomeID); ok {
			summary.Controller = &info
		}
		out = append(out, summary)
	}
	writeJSON(w, http.StatusOK, map[string]any{"homes": out, "count": len(out)})
}

// handleGetController returns the controller of one home.
func (s *Server) handleGetController(w http.ResponseWriter, r *http.Request) {
	homeID, err := homeParam(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	info, ok := s.manager.Controller(homeID)
	if !ok {
		writeNotFound(w, "controller not found")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleNetworkOperation runs a controller or network action through the
// bridge. The optional JSON body carries the action's parameters.
func (s *Server) handleNetworkOperation(w http.ResponseWriter, r *http.Request) {
	if s.bridge == nil {
		writeUnavailable(w, "bridge not configured")
		return
	}
	homeID, err := homeParam(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	params := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	params["home_id"] = zwave.FormatHomeID(homeID)

	action := chi.URLParam(r, "operation")
	data, err := s.bridge.Execute(action, params)
	if err != nil {
		s.logger.Warn("network operation failed", "action", action, "home_id", params["home_id"], "error", err)
		writeBridgeError(w, err)
		return
	}

	s.logger.Info("network operation started", "action", action, "home_id", params["home_id"])
	writeJSON(w, http.StatusOK, data)
}

// handleListNodes returns known nodes, optionally filtered by home.
//
// Query parameters:
//   - home: only nodes of this home
func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	var filter uint32
	if raw := r.URL.Query().Get("home"); raw != "" {
		homeID, err := zwave.ParseHomeID(raw)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		filter = homeID
	}

	refs := s.inventory.Nodes()
	nodes := make([]NodeSummary, 0, len(refs))
	for _, ref := range refs {
		if filter != 0 && ref.HomeID != filter {
			continue
		}
		info, ok := s.manager.Node(ref.HomeID, ref.NodeID)
		if !ok {
			continue
		}
		nodes = append(nodes, NodeSummary{
			Address:      zwave.NodeAddress(ref.HomeID, ref.NodeID),
			HomeID:       zwave.FormatHomeID(ref.HomeID),
			NodeID:       ref.NodeID,
			Name:         info.Name,
			Location:     info.Location,
			Type:         info.Type,
			Manufacturer: info.ManufacturerName,
			Product:      info.ProductName,
			ZWavePlus:    info.ZWavePlus,
			Awake:        info.Awake,
			Failed:       info.Failed,
			Values:       len(s.inventory.NodeValues(ref.HomeID, ref.NodeID)),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes, "count": len(nodes)})
}

// handleGetNode returns a node's information, neighbors and value ids.
func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	homeID, nodeID, err := nodeParams(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	info, ok := s.manager.Node(homeID, nodeID)
	if !ok {
		writeNotFound(w, "node not found")
		return
	}
	neighbors, _ := s.manager.NodeNeighbors(homeID, nodeID)

	ids := s.inventory.NodeValues(homeID, nodeID)
	detail := NodeDetail{
		Address:   zwave.NodeAddress(homeID, nodeID),
		Info:      info,
		Neighbors: make([]int, 0, len(neighbors)),
		Values:    make([]string, 0, len(ids)),
	}
	// []uint8 would encode as base64.
	for _, n := range neighbors {
		detail.Neighbors = append(detail.Neighbors, int(n))
	}
	for _, id := range ids {
		detail.Values = append(detail.Values, id.String())
	}
	if s.bridge != nil {
		if state, ok := s.bridge.NodeState(ozw.NodeRef{HomeID: homeID, NodeID: nodeID}); ok {
			detail.State = &state
		}
	}
	writeJSON(w, http.StatusOK, detail)
}

// handleGetNodeClass reports whether a node supports a command class, and
// at which version.
func (s *Server) handleGetNodeClass(w http.ResponseWriter, r *http.Request) {
	homeID, nodeID, err := nodeParams(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	cc, err := strconv.ParseUint(chi.URLParam(r, "cc"), 0, 8)
	if err != nil {
		writeBadRequest(w, "invalid command class")
		return
	}

	name, version, ok := s.manager.NodeClassInformation(homeID, nodeID, uint8(cc))
	if !ok {
		writeNotFound(w, "command class not supported by node")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address":          zwave.NodeAddress(homeID, nodeID),
		"command_class_id": cc,
		"name":             name,
		"version":          version,
	})
}

func homeParam(r *http.Request) (uint32, error) {
	return zwave.ParseHomeID(chi.URLParam(r, "home"))
}

func nodeParams(r *http.Request) (uint32, uint8, error) {
	homeID, err := homeParam(r)
	if err != nil {
		return 0, 0, err
	}
	nodeID, err := strconv.ParseUint(chi.URLParam(r, "node"), 10, 8)
	if err != nil || nodeID == 0 {
		return 0, 0, fmt.Errorf("invalid node id %q", chi.URLParam(r, "node"))
	}
	return homeID, uint8(nodeID), nil
}
