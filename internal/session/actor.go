// Package session owns the in-memory Account/Session/Profile of the current
// user. A single actor goroutine is the only writer: saga-driven writes and
// asynchronous auth-state push events are serialized through one command
// queue instead of racing on shared memory.
package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danuputra/tokoku/internal/domain"
	"github.com/danuputra/tokoku/internal/gateway"
)

// Snapshot is a point-in-time copy of the cached auth state.
type Snapshot struct {
	Account *domain.Account
	Session *domain.Session
	Profile *domain.Profile
}

// IsAuthenticated reports whether an account is signed in.
func (s Snapshot) IsAuthenticated() bool {
	return s.Account != nil
}

// Name returns the display name, or "Guest" when no profile is loaded.
func (s Snapshot) Name() string {
	if s.Profile == nil || s.Profile.Name == "" {
		return "Guest"
	}

	return s.Profile.Name
}

// Role returns the profile role, or guest when no profile is loaded.
func (s Snapshot) Role() domain.Role {
	if s.Profile == nil || s.Profile.Role == "" {
		return domain.RoleGuest
	}

	return s.Profile.Role
}

// CanAccess reports whether the current role is in requiredRoles. An empty
// requirement always passes.
func (s Snapshot) CanAccess(requiredRoles ...domain.Role) bool {
	if len(requiredRoles) == 0 {
		return true
	}

	role := s.Role()
	for _, required := range requiredRoles {
		if role == required {
			return true
		}
	}

	return false
}

// ProfileFetcher loads the profile row for an account id, tolerating
// replication lag. The auth service supplies the implementation.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, userID string) (*domain.Profile, error)
}

// Actor is the single-writer owner of the session state.
type Actor struct {
	log          *slog.Logger
	events       <-chan gateway.AuthEvent
	fetcher      ProfileFetcher
	refetchDelay time.Duration
	cmds         chan func(*Snapshot)
	done         chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
	currentToken atomic.Value // string
}

// New constructs an Actor. events may be nil when no push source exists
// (tests); fetcher is required for sign-in events to re-load the profile.
func New(events <-chan gateway.AuthEvent, fetcher ProfileFetcher, refetchDelay time.Duration, log *slog.Logger) *Actor {
	if log == nil {
		log = slog.Default()
	}
	if refetchDelay <= 0 {
		refetchDelay = time.Second
	}

	a := &Actor{
		log:          log,
		events:       events,
		fetcher:      fetcher,
		refetchDelay: refetchDelay,
		cmds:         make(chan func(*Snapshot), 32),
		done:         make(chan struct{}),
	}
	a.currentToken.Store("")

	return a
}

// SetFetcher installs the profile fetcher. Must be called before Start when
// the fetcher depends on components constructed after the actor.
func (a *Actor) SetFetcher(fetcher ProfileFetcher) {
	a.fetcher = fetcher
}

// SetEvents installs the auth-event source. Must be called before Start; the
// gateway client that publishes the events takes the actor as its token
// source, so the two are wired in this order.
func (a *Actor) SetEvents(events <-chan gateway.AuthEvent) {
	a.events = events
}

// Start launches the actor loop.
func (a *Actor) Start(ctx context.Context) {
	a.wg.Add(1)
	go a.run(ctx)
}

// Stop terminates the loop and waits for it to drain.
func (a *Actor) Stop() {
	a.stopOnce.Do(func() { close(a.done) })
	a.wg.Wait()
}

func (a *Actor) run(ctx context.Context) {
	defer a.wg.Done()

	var state Snapshot

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.done:
			return
		case cmd := <-a.cmds:
			cmd(&state)
			a.storeToken(state)
		case event, ok := <-a.events:
			if !ok {
				a.events = nil
				continue
			}
			a.handleEvent(ctx, event, &state)
			a.storeToken(state)
		}
	}
}

func (a *Actor) storeToken(state Snapshot) {
	token := ""
	if state.Session != nil {
		token = state.Session.AccessToken
	}
	a.currentToken.Store(token)
}

// handleEvent applies an asynchronous auth-state change. A sign-in from
// elsewhere re-fetches the profile after a fixed delay to tolerate
// replication lag; sign-out and expiry clear the cache.
func (a *Actor) handleEvent(ctx context.Context, event gateway.AuthEvent, state *Snapshot) {
	switch event.Kind {
	case gateway.EventSignedIn:
		state.Account = event.Account
		state.Session = event.Session
		if event.Account != nil && a.fetcher != nil {
			a.scheduleProfileRefetch(ctx, event.Account.ID)
		}
	case gateway.EventSignedOut, gateway.EventTokenRefreshFailed, gateway.EventSessionExpired:
		*state = Snapshot{}
	default:
		a.log.Warn("unknown auth event", slog.String("kind", string(event.Kind)))
	}
}

func (a *Actor) scheduleProfileRefetch(ctx context.Context, userID string) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		select {
		case <-ctx.Done():
			return
		case <-a.done:
			return
		case <-time.After(a.refetchDelay):
		}

		profile, err := a.fetcher.FetchProfile(ctx, userID)
		if err != nil {
			a.log.Error("profile re-fetch after auth event failed",
				slog.String("user_id", userID),
				slog.Any("error", err),
			)
			a.Clear()
			return
		}

		a.SetProfile(profile)
	}()
}

func (a *Actor) send(cmd func(*Snapshot)) {
	select {
	case a.cmds <- cmd:
	case <-a.done:
	}
}

// SetAuth stores the account and session, keeping any loaded profile.
func (a *Actor) SetAuth(account *domain.Account, sess *domain.Session) {
	a.send(func(state *Snapshot) {
		state.Account = account
		state.Session = sess
	})
}

// SetProfile stores the profile of the signed-in user.
func (a *Actor) SetProfile(profile *domain.Profile) {
	a.send(func(state *Snapshot) {
		state.Profile = profile
	})
}

// Clear resets the cache to the signed-out state. It is synchronous from the
// caller's point of view only in ordering: any snapshot taken after Clear
// returns may still briefly observe the old state, but the compensating
// rollback flow waits for the write to apply via Snapshot.
func (a *Actor) Clear() {
	a.send(func(state *Snapshot) {
		*state = Snapshot{}
	})
}

// Snapshot returns a copy of the current state. It round-trips through the
// actor loop, so it observes every write sent before it.
func (a *Actor) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)

	select {
	case a.cmds <- func(state *Snapshot) { reply <- *state }:
	case <-a.done:
		return Snapshot{}
	}

	select {
	case snapshot := <-reply:
		return snapshot
	case <-a.done:
		return Snapshot{}
	}
}

// AccessToken implements gateway.TokenSource without blocking on the actor
// loop.
func (a *Actor) AccessToken() string {
	token, _ := a.currentToken.Load().(string)
	return token
}
