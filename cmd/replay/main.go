package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/trytobebee/snake_engine/pkg/game"
	"github.com/trytobebee/snake_engine/pkg/proto"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ReplayServer streams recordings from recordDir to websocket clients.
type ReplayServer struct {
	recordDir string
	delay     time.Duration
}

func main() {
	addr := flag.String("addr", "", "serve recordings over websocket on this address instead of printing")
	dir := flag.String("dir", "records", "directory holding recordings")
	delay := flag.Duration("delay", 0, "pause between frames")
	flag.Parse()

	if *addr != "" {
		s := &ReplayServer{recordDir: *dir, delay: *delay}
		http.HandleFunc("/ws/replay", s.handleReplayWS)
		fmt.Printf("📼 Snake replay server on %s (records in %s)\n", *addr, *dir)
		log.Fatal(http.ListenAndServe(*addr, nil))
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: replay [-delay 150ms] records/game_<session>_<ts>.jsonl")
		os.Exit(2)
	}
	steps, err := loadRecording(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	if err := printSteps(os.Stdout, steps, *delay); err != nil {
		log.Fatal(err)
	}
}

func loadRecording(path string) ([]game.StepRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()
	return game.ReadRecording(f)
}

// printSteps writes one line per step: sequence, action and the wire state,
// then a summary of how the session ended.
func printSteps(w io.Writer, steps []game.StepRecord, delay time.Duration) error {
	enc := json.NewEncoder(w)
	for _, step := range steps {
		line := struct {
			Seq       int             `json:"seq"`
			Action    string          `json:"action"`
			Direction string          `json:"direction,omitempty"`
			State     proto.WireState `json:"state"`
		}{step.Seq, step.Action, step.Direction, proto.ToWireState(step.State)}
		if err := enc.Encode(line); err != nil {
			return err
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}

	if len(steps) == 0 {
		_, err := fmt.Fprintln(w, "empty recording")
		return err
	}
	last := steps[len(steps)-1].State
	status := "still running"
	if last.GameOver {
		status = "game over (" + last.DeathCause + ")"
	}
	_, err := fmt.Fprintf(w, "%s: %d steps, score %d, length %d, %s\n",
		last.PlayerName, len(steps), last.Score, len(last.Snake), status)
	return err
}

func (s *ReplayServer) handleReplayWS(w http.ResponseWriter, r *http.Request) {
	filename := filepath.Base(r.URL.Query().Get("file"))
	if filename == "." || !strings.HasSuffix(filename, ".jsonl") {
		http.Error(w, "file must name a .jsonl recording", http.StatusBadRequest)
		return
	}
	steps, err := loadRecording(filepath.Join(s.recordDir, filename))
	if err != nil {
		log.Println("Failed to open record:", err)
		http.Error(w, "recording not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}
	defer conn.Close()

	for _, step := range steps {
		if err := conn.WriteJSON(proto.StateMessage(step.SessionID, step.State)); err != nil {
			log.Println("Write error:", err)
			return
		}
		if s.delay > 0 {
			time.Sleep(s.delay)
		}
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "end of recording"))
}
