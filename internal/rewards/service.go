// Package rewards implements the reward ledger surface: the referral reward
// pair emitted at the end of registration, the per-user reward listing and
// the admin reward-setting maintenance.
package rewards

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/danuputra/tokoku/internal/domain"
	apperrors "github.com/danuputra/tokoku/internal/errors"
	"github.com/danuputra/tokoku/internal/functions"
	"github.com/danuputra/tokoku/internal/gateway"
	"github.com/danuputra/tokoku/internal/idempotency"
	"github.com/danuputra/tokoku/internal/report"
	"github.com/danuputra/tokoku/pkg/metrics"
)

const (
	settingsTable = "reward_settings"
	eventsTable   = "reward_events"

	noteNewUser  = "Bonus pendaftaran dengan kode referral"
	noteReferrer = "Bonus referral pengguna baru"
)

// EventCreator is the slice of the function gateway that appends reward
// ledger entries.
type EventCreator interface {
	CreateRewardEvent(ctx context.Context, accessToken string, req functions.RewardEventRequest) error
}

// RowGateway is the slice of the row-level API used by this service.
type RowGateway interface {
	SelectRows(ctx context.Context, q gateway.Query, dest any) error
	UpdateRows(ctx context.Context, table string, filter gateway.Filter, payload, dest any) error
}

// Service reads reward settings and events and emits referral rewards.
type Service struct {
	rows        RowGateway
	events      EventCreator
	reporter    *report.Reporter
	breaker     *apperrors.CircuitBreaker
	idempotency idempotency.Manager
	log         *slog.Logger
}

// NewService constructs the rewards service. idem may be nil; without it
// reward emission relies on the function gateway's own dedupe.
func NewService(rows RowGateway, events EventCreator, idem idempotency.Manager, reporter *report.Reporter, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		rows:        rows,
		events:      events,
		reporter:    reporter,
		breaker:     apperrors.NewCircuitBreaker("reward_settings"),
		idempotency: idem,
		log:         log,
	}
}

// ActiveReferralSettings loads the active reward settings of the referral
// type, keyed by setting key.
func (s *Service) ActiveReferralSettings(ctx context.Context) (map[string]domain.RewardSetting, error) {
	var settings []domain.RewardSetting

	err := s.breaker.Call(func() error {
		q := gateway.Query{
			Table: settingsTable,
			Filter: gateway.Filter{Eq: map[string]string{
				"type":      domain.RewardTypeReferral,
				"is_active": "true",
			}},
		}
		return s.rows.SelectRows(ctx, q, &settings)
	})
	if err != nil {
		return nil, fmt.Errorf("active referral settings: %w", err)
	}

	byKey := make(map[string]domain.RewardSetting, len(settings))
	for _, setting := range settings {
		byKey[setting.Key] = setting
	}

	return byKey, nil
}

// GrantReferralRewards emits the referral reward pair: one pending ledger
// entry for the new user and one for the referrer. It is best-effort by
// contract: every failure is swallowed and logged, registration already
// succeeded. A missing or inactive setting skips that half of the pair.
func (s *Service) GrantReferralRewards(ctx context.Context, accessToken string, newUser *domain.Profile, referrerID, referralCode string) {
	if newUser == nil || referrerID == "" {
		return
	}

	settings, err := s.ActiveReferralSettings(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "referral settings unavailable, rewards skipped",
			slog.String("new_user_id", newUser.ID),
			slog.Any("error", err),
		)
		return
	}

	grants := []struct {
		key    string
		userID string
		note   string
		meta   map[string]string
	}{
		{
			key:    domain.RewardKeyReferralNewUser,
			userID: newUser.ID,
			note:   noteNewUser,
			meta:   map[string]string{"referral_code": referralCode, "referrer_id": referrerID},
		},
		{
			key:    domain.RewardKeyReferralOwner,
			userID: referrerID,
			note:   noteReferrer,
			meta:   map[string]string{"referral_code": referralCode, "new_user_id": newUser.ID},
		},
	}

	for _, grant := range grants {
		setting, ok := settings[grant.key]
		if !ok {
			s.log.WarnContext(ctx, "reward setting missing or inactive",
				slog.String("key", grant.key),
			)
			continue
		}

		req := functions.RewardEventRequest{
			UserID:          grant.userID,
			RewardSettingID: setting.ID,
			Amount:          setting.Amount,
			Note:            grant.note,
			Status:          string(domain.RewardStatusPending),
			Metadata:        grant.meta,
		}

		err := s.emitOnce(ctx, accessToken, grant.key, req)
		if err != nil {
			metrics.RecordRewardEvent(grant.key, "failed")
			s.log.ErrorContext(ctx, "reward event emission failed",
				slog.String("key", grant.key),
				slog.String("user_id", grant.userID),
				slog.Any("error", err),
			)
			continue
		}

		metrics.RecordRewardEvent(grant.key, "ok")
		s.log.InfoContext(ctx, "reward event emitted",
			slog.String("key", grant.key),
			slog.String("user_id", grant.userID),
			slog.Int64("amount", setting.Amount),
		)
	}
}

// emitOnce sends one reward event with retries. When an idempotency manager
// is configured, the (setting key, beneficiary, new user) triple is executed
// at most once within the dedupe window, so a repeated registration attempt
// cannot double-pay.
func (s *Service) emitOnce(ctx context.Context, accessToken, settingKey string, req functions.RewardEventRequest) error {
	emit := func() error {
		return apperrors.WithRetry(ctx, func() error {
			if emitErr := s.events.CreateRewardEvent(ctx, accessToken, req); emitErr != nil {
				return apperrors.NewReferralRewardError(emitErr)
			}
			return nil
		})
	}

	if s.idempotency == nil {
		return emit()
	}

	key := fmt.Sprintf("reward:%s:%s:%s", settingKey, req.UserID, req.Metadata["new_user_id"])
	_, err := s.idempotency.Execute(ctx, key, 24*time.Hour, func(ctx context.Context) (interface{}, error) {
		return nil, emit()
	})
	return err
}

// ListEvents loads the reward ledger of one user, newest first.
func (s *Service) ListEvents(ctx context.Context, userID string) ([]domain.RewardEvent, error) {
	if userID == "" {
		err := apperrors.NewUnauthenticatedError()
		s.reporter.Failure(ctx, "fetch_rewards", err)
		return nil, err
	}

	var events []domain.RewardEvent
	q := gateway.Query{
		Table:      eventsTable,
		Filter:     gateway.Filter{Eq: map[string]string{"user_id": userID}},
		OrderBy:    "created_at",
		Descending: true,
	}
	if err := s.rows.SelectRows(ctx, q, &events); err != nil {
		s.reporter.Failure(ctx, "fetch_rewards", err)
		return nil, fmt.Errorf("list reward events: %w", err)
	}

	s.reporter.Success(ctx, "fetch_rewards", report.WithoutToast())
	return events, nil
}

// ListSettings loads every reward setting. Dashboard admin surface.
func (s *Service) ListSettings(ctx context.Context) ([]domain.RewardSetting, error) {
	var settings []domain.RewardSetting
	q := gateway.Query{Table: settingsTable, OrderBy: "created_at"}
	if err := s.rows.SelectRows(ctx, q, &settings); err != nil {
		s.reporter.Failure(ctx, "fetch_reward_settings", err)
		return nil, fmt.Errorf("list reward settings: %w", err)
	}

	s.reporter.Success(ctx, "fetch_reward_settings", report.WithoutToast())
	return settings, nil
}

// ToggleSetting flips a reward setting on or off.
func (s *Service) ToggleSetting(ctx context.Context, settingID string, active bool) (*domain.RewardSetting, error) {
	if settingID == "" {
		err := apperrors.NewValidationError("setting id diperlukan")
		s.reporter.Failure(ctx, "toggle_reward_setting", err)
		return nil, err
	}

	var updated []domain.RewardSetting
	payload := domain.RewardSettingUpdate{IsActive: &active}
	filter := gateway.Filter{Eq: map[string]string{"id": settingID}}
	if err := s.rows.UpdateRows(ctx, settingsTable, filter, payload, &updated); err != nil {
		s.reporter.Failure(ctx, "toggle_reward_setting", err)
		return nil, fmt.Errorf("toggle reward setting: %w", err)
	}

	if len(updated) == 0 {
		err := apperrors.NewValidationError("setting tidak ditemukan")
		s.reporter.Failure(ctx, "toggle_reward_setting", err)
		return nil, err
	}

	s.reporter.Success(ctx, "toggle_reward_setting")
	return &updated[0], nil
}
