package game

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/propdeal/propdeal-server-go/internal/game/rules"
)

// SnapshotVersion is the envelope format written by MarshalSnapshot.
const SnapshotVersion = 1

var (
	// ErrChecksumMismatch is returned when a snapshot does not hash to its stored checksum.
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
	// ErrUnsupportedVersion is returned for envelopes written by an unknown format version.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
	// ErrEmptySnapshot is returned when an envelope carries no state.
	ErrEmptySnapshot = errors.New("snapshot has no state")
	// ErrInvalidState is returned when a decoded state could not have been produced by play.
	ErrInvalidState = errors.New("invalid snapshot state")
)

// Snapshot is the wire and storage form of a state. The checksum lets peers and
// replays detect divergent copies of the same game.
type Snapshot struct {
	Version  int    `json:"version"`
	State    *State `json:"state"`
	Checksum string `json:"checksum"`
}

// Checksum returns the SHA-256 of the state's canonical JSON encoding.
// Struct fields encode in declaration order, so equal states hash equally.
func Checksum(s *State) (string, error) {
	if s == nil {
		return "", ErrEmptySnapshot
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode state: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// NewSnapshot wraps a state with its checksum.
func NewSnapshot(s *State) (*Snapshot, error) {
	sum, err := Checksum(s)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Version: SnapshotVersion, State: s, Checksum: sum}, nil
}

// Verify recomputes the checksum and compares it to the stored one.
func (snap *Snapshot) Verify() error {
	if snap.Version != SnapshotVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}
	sum, err := Checksum(snap.State)
	if err != nil {
		return err
	}
	if sum != snap.Checksum {
		return fmt.Errorf("%w: stored=%s computed=%s", ErrChecksumMismatch, snap.Checksum, sum)
	}
	return nil
}

// MarshalSnapshot encodes a state as a checksummed JSON envelope.
func MarshalSnapshot(s *State) ([]byte, error) {
	snap, err := NewSnapshot(s)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot decodes an envelope, verifies its checksum and checks that
// the state is one the engine can step.
func UnmarshalSnapshot(data []byte) (*State, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.State == nil {
		return nil, ErrEmptySnapshot
	}
	if err := snap.Verify(); err != nil {
		return nil, err
	}
	if err := validateState(snap.State); err != nil {
		return nil, err
	}
	return snap.State, nil
}

// validateState rejects states whose seat indices or phase would send the
// engine out of bounds. The checksum is unkeyed, so it cannot vouch for this.
func validateState(s *State) error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
	}
	seat := func(i int) bool { return i >= 0 && i < rules.PlayerCount }

	if len(s.Players) != rules.PlayerCount {
		return invalid("%d players", len(s.Players))
	}
	for i, p := range s.Players {
		if p == nil {
			return invalid("player %d missing", i)
		}
	}
	if !s.Phase.Valid() {
		return invalid("unknown phase %s", s.Phase)
	}
	if !seat(s.ActivePlayer) {
		return invalid("active player %d", s.ActivePlayer)
	}
	if s.ActionsRemaining < 0 || s.ActionsRemaining > rules.ActionsPerTurn {
		return invalid("%d actions remaining", s.ActionsRemaining)
	}
	if s.Winner != nil && !seat(*s.Winner) {
		return invalid("winner %d", *s.Winner)
	}
	if pa := s.Pending; pa != nil {
		if s.Phase != rules.PhasePlay {
			return invalid("pending action during %s", s.Phase)
		}
		if !pa.Type.Contested() {
			return invalid("pending action of kind %s", pa.Type)
		}
		if pa.AttackerIndex != s.ActivePlayer || pa.TargetIndex != rules.Opponent(pa.AttackerIndex) {
			return invalid("pending action seats %d -> %d", pa.AttackerIndex, pa.TargetIndex)
		}
		if pa.JSNStack < 0 {
			return invalid("counter depth %d", pa.JSNStack)
		}
	}
	if in := s.Interaction; in != nil {
		if s.Phase != rules.PhasePlay || in.Seat != s.ActivePlayer {
			return invalid("interaction for seat %d during %s", in.Seat, s.Phase)
		}
	}
	return nil
}

// ValidateSerializationRoundtrip checks that a state survives encoding without
// changing its checksum.
func ValidateSerializationRoundtrip(s *State) error {
	original, err := Checksum(s)
	if err != nil {
		return err
	}
	data, err := MarshalSnapshot(s)
	if err != nil {
		return err
	}
	decoded, err := UnmarshalSnapshot(data)
	if err != nil {
		return err
	}
	roundtrip, err := Checksum(decoded)
	if err != nil {
		return err
	}
	if original != roundtrip {
		return fmt.Errorf("%w: original=%s roundtrip=%s", ErrChecksumMismatch, original, roundtrip)
	}
	return nil
}
