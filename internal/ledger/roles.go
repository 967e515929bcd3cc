package ledger

import (
	"sort"
	"strings"
	"time"
)

// GrantRole otorga role a account. El caller debe ser Admin.
// Otorgar un rol ya asignado no emite evento.
func (s *State) GrantRole(at time.Time, caller string, role Role, account string) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRoleChangeLocked(caller, role, account); err != nil {
		return Receipt{}, err
	}
	set, ok := s.roles[account]
	if !ok {
		set = make(map[Role]struct{})
		s.roles[account] = set
	}
	if _, has := set[role]; has {
		return Receipt{}, nil
	}
	set[role] = struct{}{}
	ev := s.emit(at, EventRoleGranted, map[string]string{
		"role": string(role), "account": account, "sender": caller,
	})
	return Receipt{Events: []Event{ev}}, nil
}

// RevokeRole quita role de account. El caller debe ser Admin.
//
// Un Admin puede quitarse su propio (y último) rol Admin: no hay protección,
// y si no queda ningún Admin la gobernanza de fee/roles queda congelada.
func (s *State) RevokeRole(at time.Time, caller string, role Role, account string) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRoleChangeLocked(caller, role, account); err != nil {
		return Receipt{}, err
	}
	set := s.roles[account]
	if _, has := set[role]; !has {
		return Receipt{}, nil
	}
	delete(set, role)
	if len(set) == 0 {
		delete(s.roles, account)
	}
	ev := s.emit(at, EventRoleRevoked, map[string]string{
		"role": string(role), "account": account, "sender": caller,
	})
	return Receipt{Events: []Event{ev}}, nil
}

func (s *State) checkRoleChangeLocked(caller string, role Role, account string) error {
	if !s.hasRoleLocked(caller, RoleAdmin) {
		return ErrPermissionDenied.WithDetail("account %s is missing role %s", caller, RoleAdmin)
	}
	if !role.Valid() {
		return ErrInvalidInput.WithDetail("unknown role %q", role)
	}
	if strings.TrimSpace(account) == "" {
		return ErrInvalidInput.WithDetail("account is required")
	}
	return nil
}

// HasRole es una lectura pura.
func (s *State) HasRole(account string, role Role) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasRoleLocked(account, role)
}

// RolesOf lista los roles de account, ordenados.
func (s *State) RolesOf(account string) []Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Role, 0, len(s.roles[account]))
	for r := range s.roles[account] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
