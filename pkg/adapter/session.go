package adapter

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// SessionState is the lifecycle state of one connection.
type SessionState int32

const (
	// StateAwaitingIdentity is the state between accept and a valid handshake.
	StateAwaitingIdentity SessionState = iota
	// StateActive means the identity is known and commands are being served.
	StateActive
	// StateClosed is terminal; the connection has been released.
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateAwaitingIdentity:
		return "awaiting_identity"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is the acceptor's handle on one running connection. It outlives
// nothing: once Done is closed the acceptor forgets it.
//
// Cancel closes the underlying connection, which is the only way to
// interrupt a session blocked on I/O.
type Session struct {
	id         string
	remoteAddr string
	startedAt  time.Time
	conn       net.Conn

	identity atomic.Value // string
	state    atomic.Int32
	commands atomic.Int64

	done       chan struct{}
	cancelOnce sync.Once
	doneOnce   sync.Once
}

func newSession(conn net.Conn) *Session {
	s := &Session{
		id:         uuid.NewString(),
		remoteAddr: conn.RemoteAddr().String(),
		startedAt:  time.Now(),
		conn:       conn,
		done:       make(chan struct{}),
	}
	s.identity.Store("")
	return s
}

// NewDetachedSession creates a session handle for a connection that is not
// owned by a BaseAdapter. Tests drive connection handlers with it.
func NewDetachedSession(conn net.Conn) *Session {
	return newSession(conn)
}

// ID returns the session UUID.
func (s *Session) ID() string { return s.id }

// RemoteAddr returns the peer address.
func (s *Session) RemoteAddr() string { return s.remoteAddr }

// Identity returns the client identity, empty before the handshake.
func (s *Session) Identity() string {
	v, _ := s.identity.Load().(string)
	return v
}

// SetIdentity records the identity and moves the session to StateActive.
func (s *Session) SetIdentity(identity string) {
	s.identity.Store(identity)
	s.state.CompareAndSwap(int32(StateAwaitingIdentity), int32(StateActive))
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// CommandServed counts one processed command.
func (s *Session) CommandServed() {
	s.commands.Add(1)
}

// Done is closed when the session's goroutine has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Cancel closes the connection. Safe to call more than once.
func (s *Session) Cancel() {
	s.cancelOnce.Do(func() {
		_ = s.conn.Close()
	})
}

// finish marks the session closed and releases waiters.
func (s *Session) finish() {
	s.doneOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		s.Cancel()
		close(s.done)
	})
}

// Finish is the exported form of finish for handlers run outside an acceptor.
func (s *Session) Finish() {
	s.finish()
}

// SessionInfo is a point-in-time view of a session for the admin API.
type SessionInfo struct {
	ID         string    `json:"id"`
	RemoteAddr string    `json:"remote_addr"`
	Identity   string    `json:"identity,omitempty"`
	State      string    `json:"state"`
	StartedAt  time.Time `json:"started_at"`
	Commands   int64     `json:"commands"`
}

// Info snapshots the session.
func (s *Session) Info() SessionInfo {
	return SessionInfo{
		ID:         s.id,
		RemoteAddr: s.remoteAddr,
		Identity:   s.Identity(),
		State:      s.State().String(),
		StartedAt:  s.startedAt,
		Commands:   s.commands.Load(),
	}
}
