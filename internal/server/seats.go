package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/propdeal/propdeal-server-go/internal/game/rules"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrSeatTaken is returned when a seat already has a holder.
	ErrSeatTaken = errors.New("seat already taken")
	// ErrInvalidToken is returned when a seat token does not match.
	ErrInvalidToken = errors.New("invalid seat token")
)

// SeatRegistry hands out bearer tokens for game seats and keeps only their hashes.
type SeatRegistry struct {
	cost int

	mu     sync.RWMutex
	hashes map[string]*[rules.PlayerCount][]byte
}

// NewSeatRegistry creates a registry hashing with the given bcrypt cost.
func NewSeatRegistry(cost int) *SeatRegistry {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &SeatRegistry{
		cost:   cost,
		hashes: make(map[string]*[rules.PlayerCount][]byte),
	}
}

// Claim takes a free seat and returns its token. The token is not stored.
func (r *SeatRegistry) Claim(gameID string, seat int) (string, error) {
	if seat < 0 || seat >= rules.PlayerCount {
		return "", fmt.Errorf("seat %d out of range", seat)
	}
	token := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(token), r.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash seat token: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	seats, ok := r.hashes[gameID]
	if !ok {
		seats = new([rules.PlayerCount][]byte)
		r.hashes[gameID] = seats
	}
	if seats[seat] != nil {
		return "", ErrSeatTaken
	}
	seats[seat] = hash
	return token, nil
}

// Claimed reports whether a seat has a holder.
func (r *SeatRegistry) Claimed(gameID string, seat int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seats, ok := r.hashes[gameID]
	return ok && seat >= 0 && seat < rules.PlayerCount && seats[seat] != nil
}

// Verify checks a token against a claimed seat.
func (r *SeatRegistry) Verify(gameID string, seat int, token string) error {
	r.mu.RLock()
	var hash []byte
	if seats, ok := r.hashes[gameID]; ok && seat >= 0 && seat < rules.PlayerCount {
		hash = seats[seat]
	}
	r.mu.RUnlock()

	if hash == nil {
		return ErrInvalidToken
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(token)); err != nil {
		return ErrInvalidToken
	}
	return nil
}

// Forget drops every seat of a game.
func (r *SeatRegistry) Forget(gameID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.hashes, gameID)
}
