package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/trytobebee/snake_engine/pkg/config"
	"github.com/trytobebee/snake_engine/pkg/proto"
	"github.com/trytobebee/snake_engine/pkg/store"
)

type initRequest struct {
	PlayerName string `json:"playerName"`
}

type directionRequest struct {
	Direction string `json:"direction"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// Handler returns the HTTP routes: the JSON game API, the leaderboard,
// the websocket endpoint and a health check.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/game/init", s.handleInit)
	mux.HandleFunc("POST /api/game/update", s.handleUpdate)
	mux.HandleFunc("POST /api/game/direction", s.handleDirection)
	mux.HandleFunc("GET /api/game/state", s.handleState)
	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	var req initRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Println("Error initializing game:", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to initialize game"})
		return
	}

	snap, err := s.Reset(req.PlayerName)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.broadcast(proto.StateMessage(s.SessionID(), snap))
	writeJSON(w, http.StatusOK, proto.ToWireState(snap))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	snap := s.Tick()
	writeJSON(w, http.StatusOK, proto.ToWireState(snap))
}

func (s *Server) handleDirection(w http.ResponseWriter, r *http.Request) {
	var req directionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Println("Error changing direction:", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to change direction"})
		return
	}
	dir, err := proto.ParseDirection(req.Direction)
	if err != nil {
		log.Println("Error changing direction:", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to change direction"})
		return
	}

	// A reversal is a silent no-op, so success is reported either way.
	s.SetDirection(dir)
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, proto.ToWireState(s.Snapshot()))
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := config.DefaultLeaderboard
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, config.MaxLeaderboard)
	}

	if s.store == nil {
		writeJSON(w, http.StatusOK, []store.Result{})
		return
	}
	results, err := s.store.TopScores(r.Context(), limit)
	if err != nil {
		log.Println("Error loading leaderboard:", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to load leaderboard"})
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("Write error:", err)
	}
}
