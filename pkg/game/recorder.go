package game

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Actions written to a recording
const (
	ActionReset     = "reset"
	ActionDirection = "direction"
	ActionTick      = "tick"
)

// StepRecord is one line of a recording: what happened and the state after it.
type StepRecord struct {
	Seq       int       `json:"seq"`
	Time      time.Time `json:"time"`
	SessionID string    `json:"sessionId"`
	Action    string    `json:"action"`
	Direction string    `json:"direction,omitempty"`
	State     Snapshot  `json:"state"`
}

// GameRecorder handles asynchronous logging of game steps
type GameRecorder struct {
	sessionID  string
	path       string
	file       *os.File
	writer     *bufio.Writer
	recordChan chan StepRecord
	wg         sync.WaitGroup
	mu         sync.Mutex
	seq        int
	dropped    int
	closed     bool
}

// NewRecorder creates a recorder writing to dir.
// Filename format: game_{sessionID}_{timestamp}.jsonl
func NewRecorder(dir, sessionID string) (*GameRecorder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create records dir: %w", err)
	}

	filename := fmt.Sprintf("game_%s_%d.jsonl", sessionID, time.Now().Unix())
	path := filepath.Join(dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create record file: %w", err)
	}

	r := &GameRecorder{
		sessionID:  sessionID,
		path:       path,
		file:       f,
		writer:     bufio.NewWriter(f),
		recordChan: make(chan StepRecord, 1000), // Buffer up to 1000 frames
	}

	r.wg.Add(1)
	go r.writeLoop()

	return r, nil
}

// Path returns the file being written.
func (r *GameRecorder) Path() string {
	return r.path
}

// Record queues one step. Non-blocking: when the buffer is full the step is
// dropped so the game loop never waits on disk.
func (r *GameRecorder) Record(action, direction string, state Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	r.seq++
	rec := StepRecord{
		Seq:       r.seq,
		Time:      time.Now(),
		SessionID: r.sessionID,
		Action:    action,
		Direction: direction,
		State:     state,
	}

	select {
	case r.recordChan <- rec:
	default:
		r.dropped++
	}
}

// Close flushes the buffer and closes the file
func (r *GameRecorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.recordChan)
	dropped := r.dropped
	r.mu.Unlock()

	r.wg.Wait()
	if dropped > 0 {
		log.Printf("recorder %s: dropped %d steps", r.sessionID, dropped)
	}
	return r.file.Close()
}

func (r *GameRecorder) writeLoop() {
	defer r.wg.Done()

	encoder := json.NewEncoder(r.writer)
	for rec := range r.recordChan {
		if err := encoder.Encode(rec); err != nil {
			log.Printf("Error recording frame: %v", err)
			continue
		}
	}
	if err := r.writer.Flush(); err != nil {
		log.Printf("Error flushing recording: %v", err)
	}
}

// ReadRecording decodes every step of a JSONL recording.
func ReadRecording(rd io.Reader) ([]StepRecord, error) {
	var steps []StepRecord
	dec := json.NewDecoder(rd)
	for {
		var rec StepRecord
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return steps, nil
		}
		if err != nil {
			return steps, fmt.Errorf("decode step %d: %w", len(steps)+1, err)
		}
		steps = append(steps, rec)
	}
}
