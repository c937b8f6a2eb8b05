// Package wallet reads the per-user balance provisioned by the create-wallet
// function. The wallet row is written server-side only; this process never
// mutates balances directly.
package wallet

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danuputra/tokoku/internal/domain"
	apperrors "github.com/danuputra/tokoku/internal/errors"
	"github.com/danuputra/tokoku/internal/gateway"
	"github.com/danuputra/tokoku/internal/report"
)

const walletsTable = "wallets"

// RowGateway is the slice of the row-level API used by this service.
type RowGateway interface {
	SelectRows(ctx context.Context, q gateway.Query, dest any) error
}

// Service loads wallets.
type Service struct {
	rows     RowGateway
	reporter *report.Reporter
	log      *slog.Logger
}

// NewService constructs the wallet service.
func NewService(rows RowGateway, reporter *report.Reporter, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{rows: rows, reporter: reporter, log: log}
}

// Fetch loads the wallet of one user. A missing row is not an error: wallet
// provisioning is allowed to fail during registration, so the caller gets a
// nil wallet and renders the "belum tersedia" state.
func (s *Service) Fetch(ctx context.Context, userID string) (*domain.Wallet, error) {
	if userID == "" {
		err := apperrors.NewUnauthenticatedError()
		s.reporter.Failure(ctx, "fetch_wallet", err)
		return nil, err
	}

	var wallets []domain.Wallet
	q := gateway.Query{
		Table:  walletsTable,
		Filter: gateway.Filter{Eq: map[string]string{"user_id": userID}},
		Limit:  1,
	}
	if err := s.rows.SelectRows(ctx, q, &wallets); err != nil {
		s.reporter.Failure(ctx, "fetch_wallet", err)
		return nil, fmt.Errorf("fetch wallet: %w", err)
	}

	if len(wallets) == 0 {
		s.log.WarnContext(ctx, "wallet row missing", slog.String("user_id", userID))
		s.reporter.Success(ctx, "fetch_wallet", report.WithoutToast())
		return nil, nil
	}

	s.reporter.Success(ctx, "fetch_wallet", report.WithoutToast())
	return &wallets[0], nil
}
