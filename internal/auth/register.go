package auth

import (
	"context"
	"fmt"

	"github.com/danuputra/tokoku/internal/domain"
	apperrors "github.com/danuputra/tokoku/internal/errors"
	"github.com/danuputra/tokoku/internal/gateway"
	"github.com/danuputra/tokoku/internal/report"
	"github.com/danuputra/tokoku/internal/saga"
)

// RegisterInput carries the registration form fields. ReferralCode is
// optional; everything else is required.
type RegisterInput struct {
	Email        string
	Password     string
	Name         string
	Username     string
	ReferralCode string
}

// Register runs the registration saga: uniqueness and referral checks,
// account creation, profile creation with compensating rollback, wallet
// provisioning and best-effort referral rewards. The saga is deliberately
// not idempotent: a second call with the same email fails at account
// creation, which is the desired behavior.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.Profile, error) {
	if in.Email == "" || in.Password == "" || in.Name == "" || in.Username == "" {
		err := apperrors.NewValidationError("nama lengkap, username, email, dan password diperlukan")
		s.reporter.Failure(ctx, "register", err, report.WithoutToast())
		return nil, err
	}

	var (
		referrerID *string
		account    *domain.Account
		sess       *domain.Session
		profile    *domain.Profile
	)

	steps := []saga.Step{
		{
			// No remote mutation has happened yet, so the first three
			// steps fail fast with nothing to roll back.
			Name: "check_username_unique",
			Run: func(ctx context.Context) error {
				taken, err := s.usernameTaken(ctx, in.Username)
				if err != nil {
					return apperrors.NewExternalAPIError("profiles", err)
				}
				if taken {
					return apperrors.NewDuplicateUsernameError(in.Username)
				}
				return nil
			},
		},
		{
			Name: "validate_referral_not_self",
			Run: func(ctx context.Context) error {
				if in.ReferralCode != "" && in.ReferralCode == in.Username {
					return apperrors.NewSelfReferralError()
				}
				return nil
			},
		},
		{
			Name: "resolve_referrer",
			Run: func(ctx context.Context) error {
				if in.ReferralCode == "" {
					return nil
				}

				id, err := s.lookupReferrer(ctx, in.ReferralCode)
				if err != nil {
					return err
				}

				referrerID = &id
				return nil
			},
		},
		{
			Name: "create_account",
			Run: func(ctx context.Context) error {
				created, issued, err := s.accounts.SignUp(ctx, in.Email, in.Password)
				if err != nil {
					return apperrors.NewAccountCreationError(err)
				}

				account = created
				sess = issued
				// The cache write is visible to the rest of the process
				// immediately, even if a later step fails.
				s.sessions.SetAuth(account, sess)
				return nil
			},
			Compensate: func(ctx context.Context) error {
				// Clear the cache before the network rollback so a
				// concurrent reader never observes a signed-in state for
				// an account that is about to be deleted. The Snapshot
				// round-trip is the write barrier.
				s.sessions.Clear()
				_ = s.sessions.Snapshot()

				if err := s.fns.DeleteUser(ctx, sess.AccessToken, account.ID, true); err != nil {
					return fmt.Errorf("rollback account %s: %w", account.ID, err)
				}
				return nil
			},
		},
		{
			Name:   "create_profile",
			Unwind: true,
			Run: func(ctx context.Context) error {
				payload := domain.NewProfilePayload{
					ID:           account.ID,
					Name:         in.Name,
					Username:     in.Username,
					Role:         domain.RoleCustomer,
					ReferralCode: in.Username,
					ReferrerID:   referrerID,
				}

				var inserted []domain.Profile
				if err := s.rows.InsertRows(ctx, profilesTable, payload, &inserted); err != nil {
					return apperrors.NewProfileCreationError(err)
				}

				if len(inserted) > 0 {
					profile = &inserted[0]
				} else {
					// Gateway quirk: a successful insert may answer with
					// zero rows before the row becomes visible. Poll until
					// the consistency budget runs out.
					fetched, err := s.FetchProfile(ctx, account.ID)
					if err != nil {
						return err
					}
					profile = fetched
				}

				s.sessions.SetProfile(profile)
				return nil
			},
		},
		{
			// The source never rolled back the account/profile when wallet
			// provisioning failed; the missing Unwind here keeps that gap
			// explicit instead of hiding it.
			Name: "provision_wallet",
			Run: func(ctx context.Context) error {
				if err := s.fns.CreateWallet(ctx, sess.AccessToken); err != nil {
					return apperrors.NewWalletProvisioningError(err)
				}
				return nil
			},
		},
		{
			Name: "emit_referral_rewards",
			Run: func(ctx context.Context) error {
				if referrerID == nil || s.rewards == nil {
					return nil
				}

				// Best-effort by contract: the granter swallows and logs
				// its own failures.
				s.rewards.GrantReferralRewards(ctx, sess.AccessToken, profile, *referrerID, in.ReferralCode)
				return nil
			},
		},
	}

	if err := s.runner.Execute(ctx, steps); err != nil {
		s.reporter.Failure(ctx, "register", err)
		return nil, err
	}

	s.reporter.Success(ctx, "register")
	return profile, nil
}

func (s *Service) usernameTaken(ctx context.Context, username string) (bool, error) {
	var rows []struct {
		ID string `json:"id"`
	}

	q := gateway.Query{
		Table:   profilesTable,
		Columns: "id",
		Filter:  gateway.Filter{Eq: map[string]string{"username": username}},
		Limit:   1,
	}
	if err := s.rows.SelectRows(ctx, q, &rows); err != nil {
		return false, err
	}

	return len(rows) > 0, nil
}

func (s *Service) lookupReferrer(ctx context.Context, referralCode string) (string, error) {
	var rows []struct {
		ID string `json:"id"`
	}

	q := gateway.Query{
		Table:   profilesTable,
		Columns: "id",
		Filter:  gateway.Filter{Eq: map[string]string{"username": referralCode}},
		Limit:   1,
	}
	if err := s.rows.SelectRows(ctx, q, &rows); err != nil {
		return "", apperrors.NewExternalAPIError(profilesTable, err)
	}

	if len(rows) == 0 {
		return "", apperrors.NewUnknownReferralError(referralCode)
	}

	return rows[0].ID, nil
}
