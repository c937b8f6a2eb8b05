package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danuputra/tokoku/internal/consistency"
	"github.com/danuputra/tokoku/internal/domain"
	apperrors "github.com/danuputra/tokoku/internal/errors"
	"github.com/danuputra/tokoku/internal/functions"
	"github.com/danuputra/tokoku/internal/gateway"
	"github.com/danuputra/tokoku/internal/report"
	"github.com/danuputra/tokoku/internal/session"
)

// fillDest copies rows into a SelectRows/InsertRows destination through a
// JSON round-trip, the same way the real gateway decodes responses.
func fillDest(t *testing.T, dest, rows any) {
	t.Helper()

	raw, err := json.Marshal(rows)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dest))
}

type fakeAccounts struct {
	signUpCalls  int
	signUpErr    error
	signOutCalls int

	account *domain.Account
	session *domain.Session
}

func (f *fakeAccounts) SignUp(ctx context.Context, email, password string) (*domain.Account, *domain.Session, error) {
	f.signUpCalls++
	if f.signUpErr != nil {
		return nil, nil, f.signUpErr
	}

	return f.account, f.session, nil
}

func (f *fakeAccounts) SignInWithPassword(ctx context.Context, email, password string) (*domain.Account, *domain.Session, error) {
	return f.account, f.session, nil
}

func (f *fakeAccounts) SignOut(ctx context.Context, accessToken string) error {
	f.signOutCalls++
	return nil
}

func (f *fakeAccounts) UpdateCredentials(ctx context.Context, accessToken string, update domain.CredentialsUpdate) (*domain.Account, error) {
	return f.account, nil
}

func (f *fakeAccounts) CurrentAccount(ctx context.Context, accessToken string) (*domain.Account, error) {
	return f.account, nil
}

type fakeRows struct {
	selectCalls int
	insertCalls int

	selectFn     func(t *testing.T, calls int, q gateway.Query, dest any) error
	insertFn     func(t *testing.T, calls int, table string, payload, dest any) error
	updateResult any

	t *testing.T
}

func (f *fakeRows) SelectRows(ctx context.Context, q gateway.Query, dest any) error {
	f.selectCalls++
	if f.selectFn == nil {
		fillDest(f.t, dest, []any{})
		return nil
	}

	return f.selectFn(f.t, f.selectCalls, q, dest)
}

func (f *fakeRows) InsertRows(ctx context.Context, table string, payload, dest any) error {
	f.insertCalls++
	if f.insertFn == nil {
		fillDest(f.t, dest, []any{})
		return nil
	}

	return f.insertFn(f.t, f.insertCalls, table, payload, dest)
}

func (f *fakeRows) UpdateRows(ctx context.Context, table string, filter gateway.Filter, payload, dest any) error {
	if f.updateResult != nil {
		fillDest(f.t, dest, f.updateResult)
		return nil
	}

	fillDest(f.t, dest, []any{})
	return nil
}

type fakeFunctions struct {
	createWalletCalls int
	createWalletErr   error

	deleteUserCalls    int
	deleteUserRollback []bool
	deleteUserIDs      []string
	deleteUserErr      error
}

func (f *fakeFunctions) CreateWallet(ctx context.Context, accessToken string) error {
	f.createWalletCalls++
	return f.createWalletErr
}

func (f *fakeFunctions) DeleteUser(ctx context.Context, accessToken, userID string, isRollback bool) error {
	f.deleteUserCalls++
	f.deleteUserRollback = append(f.deleteUserRollback, isRollback)
	f.deleteUserIDs = append(f.deleteUserIDs, userID)
	return f.deleteUserErr
}

func (f *fakeFunctions) ListUsers(ctx context.Context, accessToken string) ([]functions.ListedUser, error) {
	return nil, nil
}

type fakeRewards struct {
	grantCalls   int
	lastReferrer string
	lastCode     string
}

func (f *fakeRewards) GrantReferralRewards(ctx context.Context, accessToken string, newUser *domain.Profile, referrerID, referralCode string) {
	f.grantCalls++
	f.lastReferrer = referrerID
	f.lastCode = referralCode
}

type registerFixture struct {
	svc      *Service
	accounts *fakeAccounts
	rows     *fakeRows
	fns      *fakeFunctions
	rewards  *fakeRewards
	sessions *session.Actor
	status   *report.Status
}

func newRegisterFixture(t *testing.T) *registerFixture {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	accounts := &fakeAccounts{
		account: &domain.Account{ID: "acc-1", Email: "budi@example.com"},
		session: &domain.Session{AccessToken: "tok-1", RefreshToken: "ref-1"},
	}
	rows := &fakeRows{t: t}
	fns := &fakeFunctions{}
	rewards := &fakeRewards{}

	sessions := session.New(nil, nil, time.Second, log)
	sessions.Start(context.Background())
	t.Cleanup(sessions.Stop)

	status := &report.Status{}
	reporter := report.New(status, nil, nil, log)

	policy := consistency.Policy{Interval: time.Millisecond, MaxWait: 10 * time.Millisecond}

	svc := NewService(accounts, rows, fns, rewards, nil, sessions, reporter, policy, log)

	return &registerFixture{
		svc:      svc,
		accounts: accounts,
		rows:     rows,
		fns:      fns,
		rewards:  rewards,
		sessions: sessions,
		status:   status,
	}
}

func validInput() RegisterInput {
	return RegisterInput{
		Email:    "budi@example.com",
		Password: "rahasia123",
		Name:     "Budi Santoso",
		Username: "budi",
	}
}

func insertedProfile() []map[string]any {
	return []map[string]any{{
		"id":       "acc-1",
		"name":     "Budi Santoso",
		"username": "budi",
		"role":     "customer",
	}}
}

func TestRegisterHappyPath(t *testing.T) {
	f := newRegisterFixture(t)
	f.rows.insertFn = func(t *testing.T, calls int, table string, payload, dest any) error {
		assert.Equal(t, "profiles", table)
		fillDest(t, dest, insertedProfile())
		return nil
	}

	profile, err := f.svc.Register(context.Background(), validInput())

	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "acc-1", profile.ID)

	assert.Equal(t, 1, f.accounts.signUpCalls)
	assert.Equal(t, 1, f.rows.insertCalls)
	assert.Equal(t, 1, f.fns.createWalletCalls)
	assert.Equal(t, 0, f.fns.deleteUserCalls)
	assert.Equal(t, 0, f.rewards.grantCalls, "no referral code, no reward pair")

	snap := f.sessions.Snapshot()
	assert.True(t, snap.IsAuthenticated())
	require.NotNil(t, snap.Profile)
	assert.Equal(t, "budi", snap.Profile.Username)

	message, errText := f.status.Snapshot()
	assert.NotEmpty(t, message)
	assert.Empty(t, errText)
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterInput)
	}{
		{"missing email", func(in *RegisterInput) { in.Email = "" }},
		{"missing password", func(in *RegisterInput) { in.Password = "" }},
		{"missing name", func(in *RegisterInput) { in.Name = "" }},
		{"missing username", func(in *RegisterInput) { in.Username = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRegisterFixture(t)

			in := validInput()
			tt.mutate(&in)

			_, err := f.svc.Register(context.Background(), in)

			require.Error(t, err)
			assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
			assert.Equal(t, 0, f.accounts.signUpCalls, "validation failures never reach the network")
			assert.Equal(t, 0, f.rows.selectCalls)
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	f := newRegisterFixture(t)
	f.rows.selectFn = func(t *testing.T, calls int, q gateway.Query, dest any) error {
		fillDest(t, dest, []map[string]any{{"id": "other-user"}})
		return nil
	}

	_, err := f.svc.Register(context.Background(), validInput())

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDuplicateUsername, apperrors.CodeOf(err))
	assert.Equal(t, 0, f.accounts.signUpCalls)
	assert.Equal(t, 0, f.fns.deleteUserCalls)
}

func TestRegisterSelfReferral(t *testing.T) {
	f := newRegisterFixture(t)

	in := validInput()
	in.ReferralCode = in.Username

	_, err := f.svc.Register(context.Background(), in)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSelfReferral, apperrors.CodeOf(err))
	assert.Equal(t, 0, f.accounts.signUpCalls)
}

func TestRegisterUnknownReferral(t *testing.T) {
	f := newRegisterFixture(t)
	f.rows.selectFn = func(t *testing.T, calls int, q gateway.Query, dest any) error {
		// First select is the username uniqueness check, second resolves
		// the referrer. Both answer empty.
		fillDest(t, dest, []any{})
		return nil
	}

	in := validInput()
	in.ReferralCode = "tidakada"

	_, err := f.svc.Register(context.Background(), in)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnknownReferral, apperrors.CodeOf(err))
	assert.Equal(t, 2, f.rows.selectCalls)
	assert.Equal(t, 0, f.accounts.signUpCalls)
}

func TestRegisterAccountCreationFails(t *testing.T) {
	f := newRegisterFixture(t)
	f.accounts.signUpErr = errors.New("email already registered")

	_, err := f.svc.Register(context.Background(), validInput())

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAccountCreation, apperrors.CodeOf(err))
	assert.Equal(t, 0, f.rows.insertCalls, "profile insert never attempted")
	assert.Equal(t, 0, f.fns.deleteUserCalls, "nothing committed, nothing to roll back")
	assert.False(t, f.sessions.Snapshot().IsAuthenticated())
}

func TestRegisterProfileInsertFailsRollsBackAccount(t *testing.T) {
	f := newRegisterFixture(t)
	f.rows.insertFn = func(t *testing.T, calls int, table string, payload, dest any) error {
		return errors.New("row level security violation")
	}

	_, err := f.svc.Register(context.Background(), validInput())

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeProfileCreation, apperrors.CodeOf(err))

	require.Equal(t, 1, f.fns.deleteUserCalls, "compensating delete runs exactly once")
	assert.Equal(t, []bool{true}, f.fns.deleteUserRollback)
	assert.Equal(t, []string{"acc-1"}, f.fns.deleteUserIDs)

	snap := f.sessions.Snapshot()
	assert.False(t, snap.IsAuthenticated(), "cache cleared before the rollback call")
	assert.Nil(t, snap.Profile)

	assert.Equal(t, 0, f.fns.createWalletCalls)
	assert.Equal(t, 0, f.rewards.grantCalls)
}

func TestRegisterProfileVisibilityPollExhausts(t *testing.T) {
	f := newRegisterFixture(t)

	// Insert succeeds but answers zero rows, and the row never becomes
	// visible to the poll afterwards.
	f.rows.insertFn = func(t *testing.T, calls int, table string, payload, dest any) error {
		fillDest(t, dest, []any{})
		return nil
	}

	pollReads := 0
	f.rows.selectFn = func(t *testing.T, calls int, q gateway.Query, dest any) error {
		if _, polling := q.Filter.Eq["id"]; polling {
			pollReads++
		}
		fillDest(t, dest, []any{})
		return nil
	}

	_, err := f.svc.Register(context.Background(), validInput())

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeProfileNotFound, apperrors.CodeOf(err))
	assert.Equal(t, f.svc.policy.Attempts(), pollReads, "one read per interval slot")

	require.Equal(t, 1, f.fns.deleteUserCalls)
	assert.Equal(t, []bool{true}, f.fns.deleteUserRollback)
	assert.False(t, f.sessions.Snapshot().IsAuthenticated())
}

func TestRegisterProfileVisibleAfterLag(t *testing.T) {
	f := newRegisterFixture(t)

	f.rows.insertFn = func(t *testing.T, calls int, table string, payload, dest any) error {
		fillDest(t, dest, []any{})
		return nil
	}
	f.rows.selectFn = func(t *testing.T, calls int, q gateway.Query, dest any) error {
		if _, polling := q.Filter.Eq["id"]; polling && calls >= 4 {
			fillDest(t, dest, insertedProfile())
			return nil
		}
		fillDest(t, dest, []any{})
		return nil
	}

	profile, err := f.svc.Register(context.Background(), validInput())

	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, 0, f.fns.deleteUserCalls)
	assert.Equal(t, 1, f.fns.createWalletCalls)
}

func TestRegisterWalletFailureDoesNotRollBack(t *testing.T) {
	f := newRegisterFixture(t)
	f.rows.insertFn = func(t *testing.T, calls int, table string, payload, dest any) error {
		fillDest(t, dest, insertedProfile())
		return nil
	}
	f.fns.createWalletErr = errors.New("edge function timeout")

	_, err := f.svc.Register(context.Background(), validInput())

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeWalletProvisioning, apperrors.CodeOf(err))

	assert.Equal(t, 0, f.fns.deleteUserCalls, "account and profile survive a wallet failure")

	snap := f.sessions.Snapshot()
	assert.True(t, snap.IsAuthenticated())
	require.NotNil(t, snap.Profile)
	assert.Equal(t, "budi", snap.Profile.Username)

	assert.Equal(t, 0, f.rewards.grantCalls)
}

func TestRegisterRollbackDeleteFailureKeepsOriginalError(t *testing.T) {
	f := newRegisterFixture(t)
	f.rows.insertFn = func(t *testing.T, calls int, table string, payload, dest any) error {
		return errors.New("insert rejected")
	}
	f.fns.deleteUserErr = errors.New("delete-user function unreachable")

	_, err := f.svc.Register(context.Background(), validInput())

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeProfileCreation, apperrors.CodeOf(err),
		"compensation failure never replaces the step error")
	assert.Equal(t, 1, f.fns.deleteUserCalls)
	assert.False(t, f.sessions.Snapshot().IsAuthenticated())
}

func TestRegisterWithReferralEmitsRewardPair(t *testing.T) {
	f := newRegisterFixture(t)

	f.rows.selectFn = func(t *testing.T, calls int, q gateway.Query, dest any) error {
		if q.Filter.Eq["username"] == "ani" {
			fillDest(t, dest, []map[string]any{{"id": "referrer-9"}})
			return nil
		}
		fillDest(t, dest, []any{})
		return nil
	}
	f.rows.insertFn = func(t *testing.T, calls int, table string, payload, dest any) error {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"referrer_id":"referrer-9"`)

		fillDest(t, dest, insertedProfile())
		return nil
	}

	in := validInput()
	in.ReferralCode = "ani"

	_, err := f.svc.Register(context.Background(), in)

	require.NoError(t, err)
	require.Equal(t, 1, f.rewards.grantCalls)
	assert.Equal(t, "referrer-9", f.rewards.lastReferrer)
	assert.Equal(t, "ani", f.rewards.lastCode)
}
