package facade

import (
	"context"

	"github.com/dropDatabas3/dataledger/internal/cluster"
	"github.com/dropDatabas3/dataledger/internal/domain/repository"
	"github.com/dropDatabas3/dataledger/internal/ledger"
)

func (s *service) Mint(ctx context.Context, caller, to string, amount uint64) error {
	_, err := s.submit(ctx, repository.MutationTokenMint, caller, s.now(), cluster.MintDTO{To: to, Amount: amount})
	return err
}

func (s *service) ClaimFaucet(ctx context.Context, caller string) error {
	if err := requireAccount(caller, "account"); err != nil {
		return err
	}
	_, err := s.submit(ctx, repository.MutationTokenFaucet, caller, s.now(), nil)
	return err
}

func (s *service) Burn(ctx context.Context, caller string, amount uint64) error {
	_, err := s.submit(ctx, repository.MutationTokenBurn, caller, s.now(), cluster.BurnDTO{Amount: amount})
	return err
}

func (s *service) BalanceOf(ctx context.Context, account string) uint64 {
	return s.state.BalanceOf(account)
}

func (s *service) EventsSince(ctx context.Context, seq uint64, limit int) []ledger.Event {
	return s.state.EventsSince(seq, limit)
}
