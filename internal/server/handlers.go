package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ArnoKim89/arno-game-server/internal/apperr"
	"github.com/ArnoKim89/arno-game-server/internal/registry"
)

type roomResponse struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code"`
	HostIP  string `json:"hostIp"`
	Port    int    `json:"port"`
	HostKey string `json:"hostKey,omitempty"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Rooms         int `json:"rooms"`
	Clients       int `json:"clients"`
	HostlessRooms int `json:"hostlessRooms"`
	RegistryRooms int `json:"registryRooms"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.HTTPStatus(apperr.KindOf(err)), errorResponse{Error: apperr.CodeOf(err)})
}

func newRoomResponse(e registry.Entry, hostKey string) roomResponse {
	return roomResponse{OK: true, Code: e.Code, HostIP: e.HostIP, Port: e.Port, HostKey: hostKey}
}

// throttled consults the limiter before any registry state is touched.
func (s *Server) throttled(r *http.Request) bool {
	if s.limiter == nil {
		return false
	}
	return s.limiter.ShouldThrottle(r.Context(), clientIP(r), time.Now())
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	hs, err := s.hub.Stats(r.Context())
	if err != nil {
		s.logger.Error("failed to query hub", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Rooms:         hs.Rooms,
		Clients:       hs.Clients,
		HostlessRooms: hs.HostlessRooms,
		RegistryRooms: s.registry.Len(),
	})
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	port, err := strconv.Atoi(r.URL.Query().Get("port"))
	if err != nil {
		writeError(w, registry.ErrInvalidPort)
		return
	}
	if s.throttled(r) {
		writeError(w, registry.ErrRateLimited)
		return
	}

	e, key, err := s.registry.Create(clientIP(r), port)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRoomResponse(e, key))
}

func (s *Server) joinRoom(w http.ResponseWriter, r *http.Request) {
	if s.throttled(r) {
		writeError(w, registry.ErrRateLimited)
		return
	}

	e, err := s.registry.Lookup(r.URL.Query().Get("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRoomResponse(e, ""))
}

type claimRequest struct {
	RoomCode string `json:"roomCode"`
	Port     int    `json:"port"`
	HostKey  string `json:"hostKey"`
}

func (s *Server) claimRoom(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(registry.ErrBadRequest, err))
		return
	}
	if s.throttled(r) {
		writeError(w, registry.ErrRateLimited)
		return
	}

	e, key, err := s.registry.Claim(req.RoomCode, clientIP(r), req.Port, req.HostKey)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRoomResponse(e, key))
}

type signalRequest struct {
	Type    string          `json:"type"`
	From    string          `json:"from"`
	To      string          `json:"to"`
	Payload json.RawMessage `json:"payload"`
}

type postSignalResponse struct {
	OK  bool   `json:"ok"`
	Seq uint64 `json:"seq"`
}

type pollResponse struct {
	OK     bool             `json:"ok"`
	Events []registry.Event `json:"events"`
	Next   uint64           `json:"next"`
}

func (s *Server) postSignal(w http.ResponseWriter, r *http.Request) {
	var req signalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(registry.ErrBadRequest, err))
		return
	}

	seq, err := s.registry.Post(mux.Vars(r)["code"], registry.Event{
		Type:    req.Type,
		From:    req.From,
		To:      req.To,
		Payload: req.Payload,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, postSignalResponse{OK: true, Seq: seq})
}

func (s *Server) pollSignals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var since uint64
	if v := q.Get("since"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, apperr.Wrap(registry.ErrBadRequest, err))
			return
		}
		since = n
	}

	events, next, err := s.registry.Events(mux.Vars(r)["code"], since, q.Get("peer"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pollResponse{OK: true, Events: events, Next: next})
}
