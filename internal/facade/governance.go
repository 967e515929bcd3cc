package facade

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/dataledger/internal/cluster"
	"github.com/dropDatabas3/dataledger/internal/domain/repository"
	"github.com/dropDatabas3/dataledger/internal/ledger"
	"github.com/dropDatabas3/dataledger/internal/observability/logger"
)

func (s *service) SetPlatformFee(ctx context.Context, caller string, feeBps uint32) error {
	if _, err := s.submit(ctx, repository.MutationFeeSet, caller, s.now(), cluster.SetFeeDTO{FeeBps: feeBps}); err != nil {
		return err
	}
	logger.From(ctx).Info("platform fee updated", logger.Caller(caller), zap.Uint32("fee_bps", feeBps))
	return nil
}

func (s *service) PlatformFee(ctx context.Context) uint32 { return s.state.PlatformFee() }

func (s *service) GrantRole(ctx context.Context, caller string, role ledger.Role, account string) error {
	_, err := s.submit(ctx, repository.MutationRoleGrant, caller, s.now(), cluster.RoleDTO{Role: role, Account: account})
	return err
}

// RevokeRole no protege al último Admin: un Admin puede quitarse el rol a
// sí mismo y dejar el ledger sin gobierno.
func (s *service) RevokeRole(ctx context.Context, caller string, role ledger.Role, account string) error {
	_, err := s.submit(ctx, repository.MutationRoleRevoke, caller, s.now(), cluster.RoleDTO{Role: role, Account: account})
	if err == nil && role == ledger.RoleAdmin && caller == account {
		logger.From(ctx).Warn("admin revoked own role", logger.Account(account))
	}
	return err
}

func (s *service) HasRole(ctx context.Context, account string, role ledger.Role) bool {
	return s.state.HasRole(account, role)
}

func (s *service) RolesOf(ctx context.Context, account string) []ledger.Role {
	return s.state.RolesOf(account)
}
