package gateway

import (
	"sync"

	"github.com/danuputra/tokoku/internal/domain"
)

// EventKind enumerates auth-state changes pushed by the gateway.
type EventKind string

const (
	EventSignedIn           EventKind = "SIGNED_IN"
	EventSignedOut          EventKind = "SIGNED_OUT"
	EventTokenRefreshFailed EventKind = "TOKEN_REFRESH_FAILED"
	EventSessionExpired     EventKind = "SESSION_EXPIRED"
)

// AuthEvent is an asynchronous auth-state change. It can arrive at any time,
// independent of any in-flight operation (e.g. a sign-out from another
// device).
type AuthEvent struct {
	Kind    EventKind
	Account *domain.Account
	Session *domain.Session
}

// AuthEvents is a fan-out hub for auth-state changes. Subscribers get a
// buffered channel; a slow subscriber drops events rather than blocking the
// publisher.
type AuthEvents struct {
	mu   sync.Mutex
	subs []chan AuthEvent
}

func NewAuthEvents() *AuthEvents {
	return &AuthEvents{}
}

// Subscribe registers a new listener.
func (e *AuthEvents) Subscribe() <-chan AuthEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan AuthEvent, 16)
	e.subs = append(e.subs, ch)
	return ch
}

// Publish delivers the event to every subscriber without blocking.
func (e *AuthEvents) Publish(event AuthEvent) {
	e.mu.Lock()
	subs := append([]chan AuthEvent(nil), e.subs...)
	e.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}
