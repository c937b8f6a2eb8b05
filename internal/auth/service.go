// Package auth implements the account workflows of the storefront: the
// registration saga, login/logout, session restore and profile maintenance.
// All hard operations are delegated to the remote gateways; this package is
// orchestration, cache mutation and outcome reporting.
package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/danuputra/tokoku/internal/consistency"
	"github.com/danuputra/tokoku/internal/domain"
	apperrors "github.com/danuputra/tokoku/internal/errors"
	"github.com/danuputra/tokoku/internal/functions"
	"github.com/danuputra/tokoku/internal/gateway"
	"github.com/danuputra/tokoku/internal/report"
	"github.com/danuputra/tokoku/internal/saga"
	"github.com/danuputra/tokoku/internal/session"
)

const profilesTable = "profiles"

// Allowed avatar upload extensions.
var avatarExtensions = []string{"jpg", "jpeg", "png", "webp"}

// AccountGateway is the slice of the remote data gateway's auth surface used
// by this service.
type AccountGateway interface {
	SignUp(ctx context.Context, email, password string) (*domain.Account, *domain.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Account, *domain.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	UpdateCredentials(ctx context.Context, accessToken string, update domain.CredentialsUpdate) (*domain.Account, error)
	CurrentAccount(ctx context.Context, accessToken string) (*domain.Account, error)
}

// RowGateway is the slice of the row-level API used by this service.
type RowGateway interface {
	SelectRows(ctx context.Context, q gateway.Query, dest any) error
	InsertRows(ctx context.Context, table string, payload, dest any) error
	UpdateRows(ctx context.Context, table string, filter gateway.Filter, payload, dest any) error
}

// FunctionGateway is the slice of the serverless function gateway used by
// this service. DeleteUser exists solely as the registration-saga
// compensating action.
type FunctionGateway interface {
	CreateWallet(ctx context.Context, accessToken string) error
	DeleteUser(ctx context.Context, accessToken, userID string, isRollback bool) error
	ListUsers(ctx context.Context, accessToken string) ([]functions.ListedUser, error)
}

// RewardGranter emits the referral reward pair. Implementations must swallow
// their own failures: rewards are best-effort by contract.
type RewardGranter interface {
	GrantReferralRewards(ctx context.Context, accessToken string, newUser *domain.Profile, referrerID, referralCode string)
}

// AvatarStore uploads and deletes profile images in object storage.
type AvatarStore interface {
	Upload(ctx context.Context, folder, filename, contentType string, content io.Reader, allowedExts []string) (string, error)
	Delete(ctx context.Context, storagePath string) error
}

// Service wires the account workflows together.
type Service struct {
	accounts AccountGateway
	rows     RowGateway
	fns      FunctionGateway
	rewards  RewardGranter
	avatars  AvatarStore
	sessions *session.Actor
	reporter *report.Reporter
	runner   *saga.Runner
	policy   consistency.Policy
	log      *slog.Logger
}

// NewService constructs the auth service.
func NewService(
	accounts AccountGateway,
	rows RowGateway,
	fns FunctionGateway,
	rewards RewardGranter,
	avatars AvatarStore,
	sessions *session.Actor,
	reporter *report.Reporter,
	policy consistency.Policy,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		accounts: accounts,
		rows:     rows,
		fns:      fns,
		rewards:  rewards,
		avatars:  avatars,
		sessions: sessions,
		reporter: reporter,
		runner:   saga.NewRunner("registration", log),
		policy:   policy,
		log:      log,
	}
}

// Login exchanges credentials for a session and loads the profile. The
// profile fetch tolerates replication lag with the configured bounded poll.
func (s *Service) Login(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		err := apperrors.NewValidationError("email dan password diperlukan")
		s.reporter.Failure(ctx, "login", err)
		return err
	}

	account, sess, err := s.accounts.SignInWithPassword(ctx, email, password)
	if err != nil {
		s.reporter.Failure(ctx, "login", err)
		return fmt.Errorf("login: %w", err)
	}

	s.sessions.SetAuth(account, sess)

	profile, err := s.FetchProfile(ctx, account.ID)
	if err != nil {
		s.reporter.Failure(ctx, "login", err)
		return fmt.Errorf("login: %w", err)
	}
	s.sessions.SetProfile(profile)

	s.reporter.Success(ctx, "login")
	return nil
}

// Logout terminates the current session (local scope only, sessions on
// other devices stay alive) and resets the cache.
func (s *Service) Logout(ctx context.Context) error {
	snapshot := s.sessions.Snapshot()
	if snapshot.Session != nil {
		if err := s.accounts.SignOut(ctx, snapshot.Session.AccessToken); err != nil {
			s.reporter.Failure(ctx, "logout", err)
			return fmt.Errorf("logout: %w", err)
		}
	}

	s.sessions.Clear()
	s.reporter.Success(ctx, "logout", report.WithoutToast())
	return nil
}

// InitAuth restores a previously issued session on startup. A missing
// profile forces a logout: an account without a profile is an error state.
func (s *Service) InitAuth(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken == "" {
		s.sessions.Clear()
		return nil
	}

	account, err := s.accounts.CurrentAccount(ctx, accessToken)
	if err != nil {
		s.reporter.Failure(ctx, "init_auth", err, report.WithoutToast())
		s.sessions.Clear()
		return fmt.Errorf("init auth: %w", err)
	}

	s.sessions.SetAuth(account, &domain.Session{AccessToken: accessToken, RefreshToken: refreshToken})

	profile, err := s.FetchProfile(ctx, account.ID)
	if err != nil {
		if logoutErr := s.Logout(ctx); logoutErr != nil {
			s.log.Error("forced logout failed", slog.Any("error", logoutErr))
		}
		return fmt.Errorf("init auth: profile missing, signed out: %w", err)
	}
	s.sessions.SetProfile(profile)

	return nil
}

// FetchProfile loads the profile row for an account id using the bounded
// retry-poll: profile availability lag is a systemic trait of the backing
// store, not specific to registration. Implements session.ProfileFetcher.
func (s *Service) FetchProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if userID == "" {
		return nil, apperrors.NewUnauthenticatedError()
	}

	var found *domain.Profile
	err := s.policy.Poll(ctx, func(ctx context.Context) (bool, error) {
		var profiles []domain.Profile
		q := gateway.Query{
			Table:  profilesTable,
			Filter: gateway.Filter{Eq: map[string]string{"id": userID}},
			Limit:  1,
		}
		if err := s.rows.SelectRows(ctx, q, &profiles); err != nil {
			return false, err
		}

		if len(profiles) == 0 {
			return false, nil
		}

		found = &profiles[0]
		return true, nil
	})
	if err != nil {
		if err == consistency.ErrExhausted {
			return nil, apperrors.NewProfileNotFoundError()
		}
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	return found, nil
}

// UpdateProfile applies a typed partial update to the current profile,
// optionally replacing the avatar image first.
func (s *Service) UpdateProfile(ctx context.Context, update domain.ProfileUpdate, avatarFilename string, avatar io.Reader) (*domain.Profile, error) {
	snapshot := s.sessions.Snapshot()
	if !snapshot.IsAuthenticated() || snapshot.Profile == nil {
		err := apperrors.NewUnauthenticatedError()
		s.reporter.Failure(ctx, "update_profile", err)
		return nil, err
	}

	if avatar != nil && avatarFilename != "" {
		newPath, err := s.avatars.Upload(ctx, "avatars", avatarFilename, "", avatar, avatarExtensions)
		if err != nil {
			s.reporter.Failure(ctx, "upload_image", err)
			return nil, fmt.Errorf("update profile: %w", err)
		}
		s.reporter.Success(ctx, "upload_image")

		if oldPath := snapshot.Profile.AvatarImagePath; oldPath != "" {
			if err := s.avatars.Delete(ctx, oldPath); err != nil {
				s.log.Warn("old avatar cleanup failed", slog.String("path", oldPath), slog.Any("error", err))
			}
		}

		update.AvatarImagePath = &newPath
	}

	if update.IsEmpty() {
		err := apperrors.NewValidationError("tidak ada data yang diubah")
		s.reporter.Failure(ctx, "update_profile", err)
		return nil, err
	}

	var updated []domain.Profile
	filter := gateway.Filter{Eq: map[string]string{"id": snapshot.Profile.ID}}
	if err := s.rows.UpdateRows(ctx, profilesTable, filter, update, &updated); err != nil {
		s.reporter.Failure(ctx, "update_profile", err)
		return nil, fmt.Errorf("update profile: %w", err)
	}

	if len(updated) == 0 {
		err := apperrors.NewProfileNotFoundError()
		s.reporter.Failure(ctx, "update_profile", err)
		return nil, err
	}

	profile := &updated[0]
	s.sessions.SetProfile(profile)
	s.reporter.Success(ctx, "update_profile")
	return profile, nil
}

// UpdateCredentials applies a partial email/password change to the current
// account.
func (s *Service) UpdateCredentials(ctx context.Context, update domain.CredentialsUpdate) (*domain.Account, error) {
	snapshot := s.sessions.Snapshot()
	if !snapshot.IsAuthenticated() || snapshot.Session == nil {
		err := apperrors.NewUnauthenticatedError()
		s.reporter.Failure(ctx, "update_credentials", err)
		return nil, err
	}

	if update.IsEmpty() {
		err := apperrors.NewValidationError("tidak ada data yang diubah")
		s.reporter.Failure(ctx, "update_credentials", err)
		return nil, err
	}

	account, err := s.accounts.UpdateCredentials(ctx, snapshot.Session.AccessToken, update)
	if err != nil {
		s.reporter.Failure(ctx, "update_credentials", err)
		return nil, fmt.Errorf("update credentials: %w", err)
	}

	s.sessions.SetAuth(account, snapshot.Session)
	s.reporter.Success(ctx, "update_credentials")
	return account, nil
}

// UpdateUserRole changes another user's role. Dashboard admin surface.
func (s *Service) UpdateUserRole(ctx context.Context, userID string, role domain.Role) (*domain.Profile, error) {
	if userID == "" || role == "" {
		err := apperrors.NewValidationError("user id dan role baru diperlukan")
		s.reporter.Failure(ctx, "update_role", err)
		return nil, err
	}

	var updated []domain.Profile
	payload := domain.ProfileUpdate{Role: &role}
	filter := gateway.Filter{Eq: map[string]string{"id": userID}}
	if err := s.rows.UpdateRows(ctx, profilesTable, filter, payload, &updated); err != nil {
		s.reporter.Failure(ctx, "update_role", err)
		return nil, fmt.Errorf("update user role: %w", err)
	}

	if len(updated) == 0 {
		err := apperrors.NewProfileNotFoundError()
		s.reporter.Failure(ctx, "update_role", err)
		return nil, err
	}

	s.reporter.Success(ctx, "update_role")
	return &updated[0], nil
}

// ListUsers fetches every account joined with its profile via the privileged
// function gateway.
func (s *Service) ListUsers(ctx context.Context) ([]functions.ListedUser, error) {
	snapshot := s.sessions.Snapshot()
	if snapshot.Session == nil {
		err := apperrors.NewUnauthenticatedError()
		s.reporter.Failure(ctx, "list_users", err)
		return nil, err
	}

	users, err := s.fns.ListUsers(ctx, snapshot.Session.AccessToken)
	if err != nil {
		s.reporter.Failure(ctx, "list_users", err)
		return nil, fmt.Errorf("list users: %w", err)
	}

	s.reporter.Success(ctx, "list_users", report.WithoutToast())
	return users, nil
}
