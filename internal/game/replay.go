package game

import (
	"compress/gzip"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const replayVersion = 1

// ErrReplayDiverged is returned when re-applying a recorded move does not reproduce
// the recorded state.
var ErrReplayDiverged = errors.New("replay diverged from recording")

// ErrReplayEnd is returned when playback moves past either end of a replay.
var ErrReplayEnd = errors.New("no more frames")

// Frame is one recorded step. The first frame of a replay has no move and holds the
// state the game was created with. Payloads are JSON so optional seat indices
// survive encoding.
type Frame struct {
	Seq        int
	Move       []byte
	Snapshot   []byte
	RecordedAt time.Time
}

// Replay is the ordered list of states a game went through.
type Replay struct {
	GameID       string
	Frames       []Frame
	CurrentIndex int
	mu           sync.RWMutex
}

// NewReplay creates an empty replay.
func NewReplay(gameID string) *Replay {
	return &Replay{
		GameID: gameID,
		Frames: make([]Frame, 0, 64),
	}
}

// Record appends a frame. move is nil for the initial state.
func (r *Replay) Record(move *Move, s *State) error {
	snapshot, err := MarshalSnapshot(s)
	if err != nil {
		return err
	}
	var encodedMove []byte
	if move != nil {
		if encodedMove, err = json.Marshal(move); err != nil {
			return fmt.Errorf("failed to encode move: %w", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.Frames = append(r.Frames, Frame{
		Seq:        len(r.Frames),
		Move:       encodedMove,
		Snapshot:   snapshot,
		RecordedAt: time.Now(),
	})
	return nil
}

// Size returns the number of recorded frames.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.Frames)
}

// StateAt decodes the state recorded at index.
func (r *Replay) StateAt(index int) (*State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index < 0 || index >= len(r.Frames) {
		return nil, fmt.Errorf("frame %d out of range [0,%d)", index, len(r.Frames))
	}
	return UnmarshalSnapshot(r.Frames[index].Snapshot)
}

// MoveAt decodes the move that produced the frame at index. ok is false for the
// initial frame.
func (r *Replay) MoveAt(index int) (move Move, ok bool, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index < 0 || index >= len(r.Frames) {
		return Move{}, false, fmt.Errorf("frame %d out of range [0,%d)", index, len(r.Frames))
	}
	raw := r.Frames[index].Move
	if len(raw) == 0 {
		return Move{}, false, nil
	}
	if err := json.Unmarshal(raw, &move); err != nil {
		return Move{}, false, fmt.Errorf("failed to decode move %d: %w", index, err)
	}
	return move, true, nil
}

// Start rewinds playback to the first frame.
func (r *Replay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.CurrentIndex = 0
}

// Skip moves playback by count frames, clamped to the recording, and returns the new index.
func (r *Replay) Skip(count int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.CurrentIndex + count
	if idx >= len(r.Frames) {
		idx = len(r.Frames) - 1
	}
	if idx < 0 {
		idx = 0
	}
	r.CurrentIndex = idx
	return idx
}

// Next advances playback one frame and decodes it. At the last frame it returns
// ErrReplayEnd and leaves the cursor in place.
func (r *Replay) Next() (*State, error) {
	r.mu.Lock()
	if r.CurrentIndex+1 >= len(r.Frames) {
		r.mu.Unlock()
		return nil, ErrReplayEnd
	}
	r.CurrentIndex++
	idx := r.CurrentIndex
	r.mu.Unlock()

	return r.StateAt(idx)
}

// Previous steps playback back one frame. At the first frame it returns ErrReplayEnd.
func (r *Replay) Previous() (*State, error) {
	r.mu.Lock()
	if r.CurrentIndex == 0 {
		r.mu.Unlock()
		return nil, ErrReplayEnd
	}
	r.CurrentIndex--
	idx := r.CurrentIndex
	r.mu.Unlock()

	return r.StateAt(idx)
}

// Current decodes the state under the playback cursor.
func (r *Replay) Current() (*State, error) {
	r.mu.RLock()
	idx := r.CurrentIndex
	r.mu.RUnlock()

	return r.StateAt(idx)
}

// Verify re-applies every recorded move to the initial state and checks that each
// result matches the recorded snapshot.
func (r *Replay) Verify(engine *Engine) error {
	size := r.Size()
	if size == 0 {
		return nil
	}
	s, err := r.StateAt(0)
	if err != nil {
		return err
	}
	for i := 1; i < size; i++ {
		move, ok, err := r.MoveAt(i)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("frame %d has no move", i)
		}
		s = engine.Apply(s, move)

		want, err := r.StateAt(i)
		if err != nil {
			return err
		}
		got, err := Checksum(s)
		if err != nil {
			return err
		}
		wantSum, err := Checksum(want)
		if err != nil {
			return err
		}
		if got != wantSum {
			return fmt.Errorf("%w at frame %d (%s)", ErrReplayDiverged, i, move.Action)
		}
	}
	return nil
}

// replayMetadata heads a saved replay file.
type replayMetadata struct {
	GameID     string
	Timestamp  time.Time
	Version    int
	FrameCount int
}

func replayPath(directory, gameID string) string {
	return filepath.Join(directory, fmt.Sprintf("%s.replay", gameID))
}

// SaveToFile writes the replay as a gzipped gob stream.
func (r *Replay) SaveToFile(directory string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(replayPath(directory, r.GameID))
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	encoder := gob.NewEncoder(gzipWriter)

	metadata := replayMetadata{
		GameID:     r.GameID,
		Timestamp:  time.Now(),
		Version:    replayVersion,
		FrameCount: len(r.Frames),
	}
	if err := encoder.Encode(&metadata); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	for i := range r.Frames {
		if err := encoder.Encode(&r.Frames[i]); err != nil {
			return fmt.Errorf("failed to encode frame %d: %w", i, err)
		}
	}
	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to flush replay: %w", err)
	}
	return nil
}

// LoadReplayFromFile reads a replay written by SaveToFile.
func LoadReplayFromFile(directory, gameID string) (*Replay, error) {
	file, err := os.Open(replayPath(directory, gameID))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	decoder := gob.NewDecoder(gzipReader)

	var metadata replayMetadata
	if err := decoder.Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if metadata.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", metadata.Version)
	}

	replay := NewReplay(metadata.GameID)
	for i := 0; i < metadata.FrameCount; i++ {
		var frame Frame
		if err := decoder.Decode(&frame); err != nil {
			return nil, fmt.Errorf("failed to decode frame %d: %w", i, err)
		}
		replay.Frames = append(replay.Frames, frame)
	}
	return replay, nil
}

// ReplayRecorder keeps replays of running games and writes finished ones to disk.
type ReplayRecorder struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	replays map[string]*Replay // gameID -> Replay
	enabled map[string]bool    // gameID -> whether recording is enabled
	saveDir string
}

// NewReplayRecorder creates a recorder that saves into saveDir.
func NewReplayRecorder(logger *zap.Logger, saveDir string) *ReplayRecorder {
	return &ReplayRecorder{
		logger:  logger,
		replays: make(map[string]*Replay),
		enabled: make(map[string]bool),
		saveDir: saveDir,
	}
}

// StartRecording begins a replay whose first frame is initial.
func (rr *ReplayRecorder) StartRecording(gameID string, initial *State) error {
	replay := NewReplay(gameID)
	if err := replay.Record(nil, initial); err != nil {
		return err
	}

	rr.mu.Lock()
	rr.replays[gameID] = replay
	rr.enabled[gameID] = true
	rr.mu.Unlock()

	if rr.logger != nil {
		rr.logger.Info("started replay recording",
			zap.String("game_id", gameID),
		)
	}
	return nil
}

// StopRecording stops appending frames for a game. The replay stays in memory.
func (rr *ReplayRecorder) StopRecording(gameID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	rr.enabled[gameID] = false

	if rr.logger != nil {
		rr.logger.Info("stopped replay recording",
			zap.String("game_id", gameID),
		)
	}
}

// RecordMove appends the result of an applied move if recording is enabled.
func (rr *ReplayRecorder) RecordMove(gameID string, move Move, s *State) {
	rr.mu.RLock()
	enabled := rr.enabled[gameID]
	replay := rr.replays[gameID]
	rr.mu.RUnlock()

	if !enabled || replay == nil {
		return
	}

	if err := replay.Record(&move, s); err != nil {
		if rr.logger != nil {
			rr.logger.Warn("failed to record replay frame",
				zap.String("game_id", gameID),
				zap.Error(err),
			)
		}
		return
	}

	if rr.logger != nil {
		rr.logger.Debug("recorded replay frame",
			zap.String("game_id", gameID),
			zap.Int("frame_count", replay.Size()),
		)
	}
}

// SaveReplay writes a replay to disk and drops it from memory.
func (rr *ReplayRecorder) SaveReplay(gameID string) error {
	rr.mu.Lock()
	replay, exists := rr.replays[gameID]
	if !exists {
		rr.mu.Unlock()
		return fmt.Errorf("no replay found for game %s", gameID)
	}
	delete(rr.replays, gameID)
	delete(rr.enabled, gameID)
	rr.mu.Unlock()

	if err := replay.SaveToFile(rr.saveDir); err != nil {
		return fmt.Errorf("failed to save replay: %w", err)
	}

	if rr.logger != nil {
		rr.logger.Info("saved replay to disk",
			zap.String("game_id", gameID),
			zap.Int("frame_count", replay.Size()),
			zap.String("directory", rr.saveDir),
		)
	}
	return nil
}

// LoadReplay reads a saved replay from the recorder's directory.
func (rr *ReplayRecorder) LoadReplay(gameID string) (*Replay, error) {
	replay, err := LoadReplayFromFile(rr.saveDir, gameID)
	if err != nil {
		return nil, err
	}

	if rr.logger != nil {
		rr.logger.Info("loaded replay from disk",
			zap.String("game_id", gameID),
			zap.Int("frame_count", replay.Size()),
		)
	}
	return replay, nil
}

// IsRecording reports whether frames are being recorded for a game.
func (rr *ReplayRecorder) IsRecording(gameID string) bool {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	return rr.enabled[gameID]
}
