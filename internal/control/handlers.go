package control

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shardmesh/shard-node/internal/reputation"
	"github.com/shardmesh/shard-node/internal/validate"
	"github.com/shardmesh/shard-node/internal/wire"
)

const maxRequestBodySize = 1 << 20 // 1 MB

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /topology", s.handleTopology)
	mux.HandleFunc("GET /peers", s.handlePeers)
	mux.HandleFunc("POST /broadcast-work", s.handleBroadcastWork)
	mux.HandleFunc("GET /pop-result", s.handlePopResult)
	mux.HandleFunc("POST /scout/penalty", s.handleScoutPenaltyPost)
	mux.HandleFunc("GET /scout/penalty", s.handleScoutPenaltyGet)
	mux.HandleFunc("GET /metrics/latency-profile", s.handleLatencyProfile)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, okResponse{OK: false, Detail: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	peers := s.loop.Peers()
	respondJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		LocalPeerID:    s.localPeerID,
		UptimeSeconds:  int64(time.Since(s.startedAt).Seconds()),
		ConnectedPeers: len(peers.List()),
		VerifiedPeers:  peers.VerifiedCount(),
	})
}

func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.topology.Current())
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	recs := s.loop.Peers().List()
	out := make([]peerView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, peerView{
			PeerID:            rec.PeerID,
			ConnectedAtMs:     rec.ConnectedAtMs,
			LastSeenAtMs:      rec.LastSeenAtMs,
			Addresses:         rec.Addresses,
			Verified:          rec.Verified,
			HandshakeFailures: rec.HandshakeFailures,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// handleBroadcastWork validates the body, then blocks on the work channel
// send — preserving the daemon's backpressure contract: a stuck dispatch
// loop blocks this handler rather than silently dropping the request.
func (s *Server) handleBroadcastWork(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	var req broadcastWorkRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed json")
		return
	}

	wreq := wire.WorkRequest{
		RequestID:     req.RequestID,
		PromptContext: req.PromptContext,
		MinTokens:     req.MinTokens,
		CreatedAtMs:   req.CreatedAtMs,
	}
	if err := validate.WorkRequest(wreq); err != nil {
		// spec.md §7: a malformed WorkRequest is a validation failure, not a
		// transport error — the caller always gets 200 with {ok:false}.
		respondError(w, http.StatusOK, err.Error())
		return
	}

	if err := s.loop.SubmitWork(r.Context(), wreq); err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handlePopResult(w http.ResponseWriter, r *http.Request) {
	result, ok := s.loop.Results().PopFront()
	if !ok {
		respondJSON(w, http.StatusOK, map[string]any{"result": nil})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (s *Server) handleScoutPenaltyPost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	var req scoutPenaltyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed json")
		return
	}
	if req.PeerID == "" {
		respondError(w, http.StatusBadRequest, "peer_id required")
		return
	}

	status := s.reputation.ApplyUpdate(req.PeerID, req.Accepted, req.Reason)
	respondJSON(w, http.StatusOK, statusViewFrom(status))
}

func (s *Server) handleScoutPenaltyGet(w http.ResponseWriter, r *http.Request) {
	statuses := s.reputation.Statuses()
	out := make([]statusView, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, statusViewFrom(st))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleLatencyProfile(w http.ResponseWriter, r *http.Request) {
	p50, p90, p99 := s.histogram.Percentiles()
	respondJSON(w, http.StatusOK, latencyProfileResponse{P50Ms: p50, P90Ms: p90, P99Ms: p99})
}

func statusViewFrom(st reputation.Status) statusView {
	return statusView{
		PeerID:      st.PeerID,
		Score:       st.Score,
		Accepted:    st.Accepted,
		Failures:    st.Failures,
		Blackholed:  st.Blackholed,
		SuccessRate: st.SuccessRate,
		LastReason:  st.LastReason,
	}
}
