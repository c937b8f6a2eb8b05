package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danuputra/tokoku/internal/domain"
	"github.com/danuputra/tokoku/internal/gateway"
)

type stubFetcher struct {
	profile *domain.Profile
	err     error
	calls   chan string
}

func (s *stubFetcher) FetchProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if s.calls != nil {
		s.calls <- userID
	}
	return s.profile, s.err
}

func startActor(t *testing.T, events <-chan gateway.AuthEvent, fetcher ProfileFetcher) *Actor {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	actor := New(events, fetcher, time.Millisecond, log)
	actor.Start(context.Background())
	t.Cleanup(actor.Stop)

	return actor
}

func TestSnapshotObservesPrecedingWrites(t *testing.T) {
	actor := startActor(t, nil, nil)

	actor.SetAuth(
		&domain.Account{ID: "acc-1", Email: "budi@example.com"},
		&domain.Session{AccessToken: "tok-1"},
	)
	actor.SetProfile(&domain.Profile{ID: "acc-1", Name: "Budi"})

	snapshot := actor.Snapshot()

	require.True(t, snapshot.IsAuthenticated())
	assert.Equal(t, "acc-1", snapshot.Account.ID)
	assert.Equal(t, "Budi", snapshot.Name())
	assert.Equal(t, "tok-1", actor.AccessToken())
}

func TestClearResetsEverything(t *testing.T) {
	actor := startActor(t, nil, nil)

	actor.SetAuth(&domain.Account{ID: "acc-1"}, &domain.Session{AccessToken: "tok-1"})
	actor.Clear()

	snapshot := actor.Snapshot()

	assert.False(t, snapshot.IsAuthenticated())
	assert.Equal(t, "Guest", snapshot.Name())
	assert.Empty(t, actor.AccessToken())
}

func TestSignedInEventRefetchesProfile(t *testing.T) {
	events := make(chan gateway.AuthEvent, 1)
	fetcher := &stubFetcher{
		profile: &domain.Profile{ID: "acc-1", Name: "Budi", Role: domain.RoleCustomer},
		calls:   make(chan string, 1),
	}
	actor := startActor(t, events, fetcher)

	events <- gateway.AuthEvent{
		Kind:    gateway.EventSignedIn,
		Account: &domain.Account{ID: "acc-1"},
		Session: &domain.Session{AccessToken: "tok-push"},
	}

	select {
	case userID := <-fetcher.calls:
		assert.Equal(t, "acc-1", userID)
	case <-time.After(time.Second):
		t.Fatal("profile fetch was never scheduled")
	}

	require.Eventually(t, func() bool {
		return actor.Snapshot().Profile != nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.RoleCustomer, actor.Snapshot().Role())
}

func TestFailedRefetchClearsSession(t *testing.T) {
	events := make(chan gateway.AuthEvent, 1)
	fetcher := &stubFetcher{err: errors.New("profile unavailable")}
	actor := startActor(t, events, fetcher)

	events <- gateway.AuthEvent{
		Kind:    gateway.EventSignedIn,
		Account: &domain.Account{ID: "acc-1"},
		Session: &domain.Session{AccessToken: "tok-push"},
	}

	require.Eventually(t, func() bool {
		return !actor.Snapshot().IsAuthenticated()
	}, time.Second, 5*time.Millisecond)
}

func TestSessionExpiryEventSignsOut(t *testing.T) {
	events := make(chan gateway.AuthEvent, 2)
	actor := startActor(t, events, nil)

	actor.SetAuth(&domain.Account{ID: "acc-1"}, &domain.Session{AccessToken: "tok-1"})
	require.True(t, actor.Snapshot().IsAuthenticated())

	events <- gateway.AuthEvent{Kind: gateway.EventSessionExpired}

	require.Eventually(t, func() bool {
		return !actor.Snapshot().IsAuthenticated()
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, actor.AccessToken())
}

func TestSnapshotAfterStopReturnsZeroValue(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	actor := New(nil, nil, time.Millisecond, log)
	actor.Start(context.Background())
	actor.Stop()

	assert.False(t, actor.Snapshot().IsAuthenticated())
}

func TestCanAccess(t *testing.T) {
	tests := []struct {
		name     string
		profile  *domain.Profile
		required []domain.Role
		want     bool
	}{
		{"no requirement always passes", nil, nil, true},
		{"guest denied admin", nil, []domain.Role{domain.RoleAdmin}, false},
		{"customer allowed customer", &domain.Profile{Role: domain.RoleCustomer}, []domain.Role{domain.RoleCustomer}, true},
		{"customer denied admin", &domain.Profile{Role: domain.RoleCustomer}, []domain.Role{domain.RoleAdmin}, false},
		{"admin in multi-role list", &domain.Profile{Role: domain.RoleAdmin}, []domain.Role{domain.RoleCustomer, domain.RoleAdmin}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := Snapshot{Profile: tt.profile}
			assert.Equal(t, tt.want, snapshot.CanAccess(tt.required...))
		})
	}
}
