// Package session tracks per-call conversation state keyed by the telephony
// platform's call identifier. Stores are pluggable; the memory store suits a
// single instance, the redis store survives restarts and scales out.
package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates no session exists for the given call ID.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidID indicates an empty or malformed call ID.
	ErrInvalidID = errors.New("invalid call ID")
)

// Turn is one exchange within a call.
type Turn struct {
	Input     string    `json:"input"`
	Reply     string    `json:"reply"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the conversation state for a single call.
type Session struct {
	CallSID   string    `json:"call_sid"`
	Caller    string    `json:"caller"`
	Turns     []Turn    `json:"turns"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a session for a call.
func NewSession(callSID, caller string) *Session {
	now := time.Now()
	return &Session{
		CallSID:   callSID,
		Caller:    caller,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// AddTurn appends an exchange and bumps the update time.
func (s *Session) AddTurn(input, reply string) {
	now := time.Now()
	s.Turns = append(s.Turns, Turn{Input: input, Reply: reply, Timestamp: now})
	s.UpdatedAt = now
}

// LastInput returns the most recent caller utterance, or "" for a new call.
func (s *Session) LastInput() string {
	if len(s.Turns) == 0 {
		return ""
	}
	return s.Turns[len(s.Turns)-1].Input
}

// Store persists sessions across webhook requests.
type Store interface {
	// Load retrieves the session for callSID. Returns ErrNotFound if none
	// exists.
	Load(ctx context.Context, callSID string) (*Session, error)

	// Save persists the session, overwriting any previous state.
	Save(ctx context.Context, sess *Session) error

	// Delete removes the session. Deleting a missing session is not an
	// error.
	Delete(ctx context.Context, callSID string) error
}
