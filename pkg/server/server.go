package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trytobebee/snake_engine/pkg/config"
	"github.com/trytobebee/snake_engine/pkg/game"
	"github.com/trytobebee/snake_engine/pkg/proto"
	"github.com/trytobebee/snake_engine/pkg/store"
)

// Server adapts one game engine to HTTP and websocket clients and drives its ticks.
type Server struct {
	cfg   config.Server
	game  *game.Game
	store *store.Store // nil disables results

	mu        sync.Mutex
	sessionID string
	recorder  *game.GameRecorder
	reported  bool
	clients   map[*client]struct{}
}

// New wires a server around g. st may be nil.
func New(cfg config.Server, g *game.Game, st *store.Store) *Server {
	return &Server{
		cfg:     cfg,
		game:    g,
		store:   st,
		clients: make(map[*client]struct{}),
	}
}

// SessionID returns the id of the current session, empty before the first reset.
func (s *Server) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Reset starts a new session for playerName on the configured board.
func (s *Server) Reset(playerName string) (game.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.game.Reset(playerName, s.cfg.Rules.Width, s.cfg.Rules.Height)
	if err != nil {
		return snap, err
	}

	s.closeRecorderLocked()
	s.sessionID = uuid.NewString()
	s.reported = false
	if s.cfg.RecordDir != "" {
		rec, err := game.NewRecorder(s.cfg.RecordDir, s.sessionID)
		if err != nil {
			log.Printf("Recording disabled for session %s: %v", s.sessionID, err)
		} else {
			s.recorder = rec
		}
	}
	s.recordLocked(game.ActionReset, "", snap)

	log.Printf("New session %s for %q on %dx%d", s.sessionID, snap.PlayerName, snap.Width, snap.Height)
	return snap, nil
}

// SetDirection buffers a turn for the next tick and reports whether it was accepted.
func (s *Server) SetDirection(d game.Direction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok := s.game.TrySetDirection(d)
	if ok {
		s.recordLocked(game.ActionDirection, d.String(), s.game.Snapshot())
	}
	return ok
}

// Tick advances the game one step. The first tick that ends a session
// stores its result.
func (s *Server) Tick() game.Snapshot {
	s.mu.Lock()
	before := s.game.Snapshot()
	snap := s.game.Tick()
	if before.Phase == game.PhaseRunning {
		s.recordLocked(game.ActionTick, "", snap)
	}

	var finished *store.Result
	if snap.GameOver && !s.reported && s.sessionID != "" {
		s.reported = true
		finished = &store.Result{
			SessionID:  s.sessionID,
			Name:       snap.PlayerName,
			Score:      snap.Score,
			Length:     len(snap.Snake),
			Ticks:      snap.Ticks,
			Cause:      snap.DeathCause,
			FinishedAt: time.Now(),
		}
	}
	s.mu.Unlock()

	if finished != nil {
		log.Printf("Game over for %q: score %d, cause %s", finished.Name, finished.Score, finished.Cause)
		s.saveResult(*finished)
	}
	return snap
}

// Snapshot returns the current state without changing it.
func (s *Server) Snapshot() game.Snapshot {
	return s.game.Snapshot()
}

func (s *Server) saveResult(r store.Result) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.store.SaveResult(ctx, r); err != nil {
		log.Printf("Failed to save result: %v", err)
	}
}

// Run ticks the game at the configured interval while a websocket client is
// attached and a session is running, pushing every new state to clients.
// It returns when ctx is done.
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.step()
		}
	}
}

func (s *Server) step() {
	if s.clientCount() == 0 {
		return
	}
	if s.game.Snapshot().Phase != game.PhaseRunning {
		return
	}
	snap := s.Tick()
	s.broadcast(proto.StateMessage(s.SessionID(), snap))
}

// Close stops recording. Connected clients are closed by the HTTP server shutdown.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeRecorderLocked()
	return nil
}

func (s *Server) recordLocked(action, direction string, snap game.Snapshot) {
	if s.recorder != nil {
		s.recorder.Record(action, direction, snap)
	}
}

func (s *Server) closeRecorderLocked() {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Close(); err != nil {
		log.Printf("Failed to close recording: %v", err)
	}
	s.recorder = nil
}
