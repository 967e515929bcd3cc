// Package token implementa el ledger de balances que actúa como colaborador
// de transferencia de fondos del License Ledger.
//
// El ledger no es seguro para uso concurrente: vive dentro del estado
// replicado y quien lo usa (ledger.State) serializa el acceso.
package token

import (
	"errors"
	"math"
	"sort"
)

var (
	// ErrInsufficientBalance indica que el emisor no cubre el total de la transferencia.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrOverflow indica que un crédito desbordaría un balance o el supply.
	ErrOverflow = errors.New("balance overflow")

	// ErrFaucetClaimed indica que la cuenta ya reclamó el faucet.
	ErrFaucetClaimed = errors.New("faucet already claimed")

	// ErrInvalidAccount indica una cuenta vacía.
	ErrInvalidAccount = errors.New("invalid account")
)

// Leg es un crédito individual dentro de una transferencia multi-destino.
type Leg struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// Ledger mantiene balances en unidades menores.
type Ledger struct {
	balances map[string]uint64
	claimed  map[string]struct{}
	supply   uint64
}

// New crea un ledger vacío.
func New() *Ledger {
	return &Ledger{
		balances: make(map[string]uint64),
		claimed:  make(map[string]struct{}),
	}
}

// BalanceOf retorna el balance de una cuenta (0 si no existe).
func (l *Ledger) BalanceOf(account string) uint64 {
	return l.balances[account]
}

// TotalSupply retorna la suma de todos los balances.
func (l *Ledger) TotalSupply() uint64 {
	return l.supply
}

// HasClaimed indica si la cuenta ya usó el faucet.
func (l *Ledger) HasClaimed(account string) bool {
	_, ok := l.claimed[account]
	return ok
}

// Transfer debita from y acredita cada leg. Es todo-o-nada: si cualquier
// leg falla, ningún balance cambia. Legs con monto 0 se ignoran.
func (l *Ledger) Transfer(from string, legs []Leg) error {
	if from == "" {
		return ErrInvalidAccount
	}
	var total uint64
	for _, leg := range legs {
		if leg.Amount == 0 {
			continue
		}
		if leg.To == "" {
			return ErrInvalidAccount
		}
		if total > math.MaxUint64-leg.Amount {
			return ErrOverflow
		}
		total += leg.Amount
	}
	if total == 0 {
		return nil
	}
	if l.balances[from] < total {
		return ErrInsufficientBalance
	}

	// Calculamos los balances resultantes aparte y solo después los escribimos.
	next := map[string]uint64{from: l.balances[from] - total}
	for _, leg := range legs {
		if leg.Amount == 0 {
			continue
		}
		cur, ok := next[leg.To]
		if !ok {
			cur = l.balances[leg.To]
		}
		if cur > math.MaxUint64-leg.Amount {
			return ErrOverflow
		}
		next[leg.To] = cur + leg.Amount
	}
	for acct, bal := range next {
		l.balances[acct] = bal
	}
	return nil
}

// Mint crea amount unidades nuevas en to.
func (l *Ledger) Mint(to string, amount uint64) error {
	if to == "" {
		return ErrInvalidAccount
	}
	if l.supply > math.MaxUint64-amount || l.balances[to] > math.MaxUint64-amount {
		return ErrOverflow
	}
	l.balances[to] += amount
	l.supply += amount
	return nil
}

// Claim acredita amount una única vez por cuenta.
func (l *Ledger) Claim(account string, amount uint64) error {
	if account == "" {
		return ErrInvalidAccount
	}
	if l.HasClaimed(account) {
		return ErrFaucetClaimed
	}
	if err := l.Mint(account, amount); err != nil {
		return err
	}
	l.claimed[account] = struct{}{}
	return nil
}

// Burn destruye amount unidades del balance de from.
func (l *Ledger) Burn(from string, amount uint64) error {
	if from == "" {
		return ErrInvalidAccount
	}
	if l.balances[from] < amount {
		return ErrInsufficientBalance
	}
	l.balances[from] -= amount
	l.supply -= amount
	return nil
}

// Snapshot es la forma serializable del ledger.
type Snapshot struct {
	Balances map[string]uint64 `json:"balances"`
	Claimed  []string          `json:"claimed,omitempty"`
	Supply   uint64            `json:"supply"`
}

// Snapshot copia el estado actual.
func (l *Ledger) Snapshot() Snapshot {
	s := Snapshot{Balances: make(map[string]uint64, len(l.balances)), Supply: l.supply}
	for k, v := range l.balances {
		if v > 0 {
			s.Balances[k] = v
		}
	}
	for k := range l.claimed {
		s.Claimed = append(s.Claimed, k)
	}
	sort.Strings(s.Claimed)
	return s
}

// Restore reemplaza el estado con el del snapshot.
func (l *Ledger) Restore(s Snapshot) {
	l.balances = make(map[string]uint64, len(s.Balances))
	for k, v := range s.Balances {
		l.balances[k] = v
	}
	l.claimed = make(map[string]struct{}, len(s.Claimed))
	for _, k := range s.Claimed {
		l.claimed[k] = struct{}{}
	}
	l.supply = s.Supply
}
