package ledger

import (
	"strconv"
	"time"
)

// SetPlatformFee cambia el fee de plataforma. El tope se valida antes que
// el rol: un fee fuera de rango es FeeTooHigh para cualquier caller.
// Aplica solo a compras posteriores; el fee no se guarda en la licencia.
func (s *State) SetPlatformFee(at time.Time, caller string, feeBps uint32) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if feeBps > MaxPlatformFeeBps {
		return Receipt{}, ErrFeeTooHigh.WithDetail("%d bps > %d bps", feeBps, MaxPlatformFeeBps)
	}
	if !s.hasRoleLocked(caller, RoleAdmin) {
		return Receipt{}, ErrPermissionDenied.WithDetail("account %s is missing role %s", caller, RoleAdmin)
	}
	prev := s.feeBps
	s.feeBps = feeBps
	ev := s.emit(at, EventPlatformFeeUpdated, map[string]string{
		"previousBps": strconv.FormatUint(uint64(prev), 10),
		"feeBps":      strconv.FormatUint(uint64(feeBps), 10),
		"sender":      caller,
	})
	return Receipt{Events: []Event{ev}}, nil
}

// PlatformFee devuelve el fee vigente en basis points.
func (s *State) PlatformFee() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.feeBps
}

// Treasury devuelve la cuenta que recibe el fee de plataforma.
func (s *State) Treasury() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.treasury
}

// SplitFee reparte price entre plataforma y owner. Equivale a
// price*bps/10000 sin riesgo de overflow (bps <= 1000).
func SplitFee(price uint64, bps uint32) (platformCut, ownerCut uint64) {
	b := uint64(bps)
	platformCut = (price/bpsDenominator)*b + (price%bpsDenominator)*b/bpsDenominator
	return platformCut, price - platformCut
}
