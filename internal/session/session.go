// Package session tracks per-chat conversation state.
package session

import (
	"context"
	"time"
)

// Conversation states. A chat with no stored session is treated as a fresh
// conversation: the next message starts PIN entry or, for a bound donor,
// jumps straight to the main menu.
const (
	StateAwaitingPin     = "awaiting_pin"
	StateAwaitingConfirm = "awaiting_confirm"
	StateAuthenticated   = "authenticated"
)

// Session holds the conversational position of a single chat.
type Session struct {
	ChatID           int64     `json:"chat_id"`
	State            string    `json:"state"`
	CandidateDonorID int64     `json:"candidate_donor_id,omitempty"`
	AwaitingProof    bool      `json:"awaiting_proof,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Store persists sessions keyed by chat id. Get returns (nil, nil) when no
// session exists for the chat.
type Store interface {
	Get(ctx context.Context, chatID int64) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, chatID int64) error
}
