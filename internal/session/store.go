// Package session remembers the current page of each client session between
// requests.
//
// A session whose state is missing (never created, expired, or deleted) has no
// current page; the navigator then recovers a page from the transport path.
// Entries expire after a TTL, which is what makes recovery reachable in
// practice.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/solatis/waypoint/internal/types"
)

// DefaultTTL is how long a session's page is remembered without activity.
const DefaultTTL = 30 * time.Minute

// ErrInvalidID indicates an empty session id.
var ErrInvalidID = errors.New("invalid session id")

// State is the remembered state of one session.
type State struct {
	ID        types.SessionID `json:"id"`
	PageID    string          `json:"page_id"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store persists session state. Implementations are safe for concurrent use.
// Load returns types.ErrSessionNotFound for unknown and expired sessions.
type Store interface {
	Load(ctx context.Context, id types.SessionID) (*State, error)
	Save(ctx context.Context, st *State) error
	Delete(ctx context.Context, id types.SessionID) error
}
