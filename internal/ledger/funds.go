package ledger

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/dataledger/internal/token"
)

// Operaciones del token interno. Solo el Admin puede emitir; cualquier
// cuenta puede reclamar el faucet una vez y quemar su propio balance.

// Mint emite amount unidades para to.
func (s *State) Mint(at time.Time, caller, to string, amount uint64) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasRoleLocked(caller, RoleAdmin) {
		return Receipt{}, ErrPermissionDenied.WithDetail("account %s is missing role %s", caller, RoleAdmin)
	}
	if strings.TrimSpace(to) == "" || amount == 0 {
		return Receipt{}, ErrInvalidInput.WithDetail("recipient and a positive amount are required")
	}
	if err := s.tokens.Mint(to, amount); err != nil {
		return Receipt{}, tokenError(err)
	}
	ev := s.emitTransfer(at, "", to, amount)
	return Receipt{Events: []Event{ev}}, nil
}

// ClaimFaucet acredita Genesis.FaucetAmount a caller, una única vez.
func (s *State) ClaimFaucet(at time.Time, caller string) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(caller) == "" {
		return Receipt{}, ErrInvalidInput.WithDetail("account is required")
	}
	amount := s.genesis.FaucetAmount
	if amount == 0 {
		return Receipt{}, ErrStateConflict.WithDetail("faucet disabled")
	}
	if err := s.tokens.Claim(caller, amount); err != nil {
		return Receipt{}, tokenError(err)
	}
	ev := s.emitTransfer(at, "", caller, amount)
	return Receipt{Events: []Event{ev}}, nil
}

// Burn destruye amount unidades del balance de caller.
func (s *State) Burn(at time.Time, caller string, amount uint64) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(caller) == "" || amount == 0 {
		return Receipt{}, ErrInvalidInput.WithDetail("account and a positive amount are required")
	}
	if err := s.tokens.Burn(caller, amount); err != nil {
		return Receipt{}, tokenError(err)
	}
	ev := s.emitTransfer(at, caller, "", amount)
	return Receipt{Events: []Event{ev}}, nil
}

// BalanceOf devuelve el balance de account en el token interno.
func (s *State) BalanceOf(account string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.BalanceOf(account)
}

// TotalSupply devuelve el supply del token interno.
func (s *State) TotalSupply() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.TotalSupply()
}

func (s *State) emitTransfer(at time.Time, from, to string, amount uint64) Event {
	return s.emit(at, EventTransfer, map[string]string{
		"from":   from,
		"to":     to,
		"amount": strconv.FormatUint(amount, 10),
	})
}

func tokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrInvalidAccount):
		return ErrInvalidInput.WithCause(err)
	case errors.Is(err, token.ErrFaucetClaimed):
		return ErrStateConflict.WithDetail("already claimed faucet").WithCause(err)
	case errors.Is(err, token.ErrInsufficientBalance):
		return ErrStateConflict.WithDetail("amount exceeds balance").WithCause(err)
	default:
		return ErrStateConflict.WithCause(err)
	}
}
