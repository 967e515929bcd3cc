package ledger

import (
	"strconv"
	"strings"
	"time"
)

// RegisterDataset registra un dataset nuevo cuyo owner es caller.
func (s *State) RegisterDataset(at time.Time, caller string, in DatasetInput) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	caller = strings.TrimSpace(caller)
	cid := strings.TrimSpace(in.ContentAddress)
	name := strings.TrimSpace(in.Name)
	switch {
	case caller == "":
		return Receipt{}, ErrInvalidInput.WithDetail("owner is required")
	case cid == "":
		return Receipt{}, ErrInvalidInput.WithDetail("contentAddress is required")
	case name == "":
		return Receipt{}, ErrInvalidInput.WithDetail("name is required")
	}
	vis, ok := ParseVisibility(string(in.Visibility))
	if !ok {
		return Receipt{}, ErrInvalidInput.WithDetail("unknown visibility %q", in.Visibility)
	}

	id := uint64(len(s.datasets))
	d := &Dataset{
		ID:             id,
		Owner:          caller,
		ContentAddress: cid,
		Name:           name,
		Description:    in.Description,
		Price:          in.Price,
		Visibility:     vis,
		Categories:     dedupe(in.Categories),
		CreatedAt:      at.UTC(),
	}
	s.datasets = append(s.datasets, d)

	ev := s.emit(at, EventDatasetRegistered, map[string]string{
		"datasetId":      formatID(id),
		"owner":          caller,
		"contentAddress": cid,
	})
	return Receipt{DatasetID: id, Events: []Event{ev}}, nil
}

// ownedActiveLocked aplica las validaciones comunes de las mutaciones del
// owner: existe, caller es owner, no está revocado (en ese orden).
func (s *State) ownedActiveLocked(caller string, id uint64) (*Dataset, error) {
	d, err := s.datasetLocked(id)
	if err != nil {
		return nil, err
	}
	if d.Owner != caller {
		return nil, ErrNotOwner.WithDetail("dataset %d", id)
	}
	if d.Revoked {
		return nil, ErrDatasetRevoked.WithDetail("dataset %d", id)
	}
	return d, nil
}

// UpdatePrice cambia el precio. Solo el owner, y solo si no está revocado.
func (s *State) UpdatePrice(at time.Time, caller string, id uint64, newPrice uint64) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.ownedActiveLocked(caller, id)
	if err != nil {
		return Receipt{}, err
	}
	d.Price = newPrice
	ev := s.emit(at, EventPriceUpdated, map[string]string{
		"datasetId": formatID(id),
		"newPrice":  strconv.FormatUint(newPrice, 10),
	})
	return Receipt{DatasetID: id, Events: []Event{ev}}, nil
}

// AddCategory agrega una categoría. Agregar una existente es un no-op.
func (s *State) AddCategory(at time.Time, caller string, id uint64, category string) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.ownedActiveLocked(caller, id)
	if err != nil {
		return Receipt{}, err
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return Receipt{}, ErrInvalidInput.WithDetail("category is required")
	}
	if d.hasCategory(category) {
		return Receipt{DatasetID: id}, nil
	}
	d.Categories = append(d.Categories, category)
	ev := s.emit(at, EventCategoryAdded, map[string]string{
		"datasetId": formatID(id),
		"category":  category,
	})
	return Receipt{DatasetID: id, Events: []Event{ev}}, nil
}

// RevokeDataset marca el dataset como revocado (nunca se borra). Puede
// hacerlo el owner o un Compliance. Revocar dos veces no falla ni emite de nuevo.
func (s *State) RevokeDataset(at time.Time, caller string, id uint64) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.datasetLocked(id)
	if err != nil {
		return Receipt{}, err
	}
	if d.Owner != caller && !s.hasRoleLocked(caller, RoleCompliance) {
		return Receipt{}, ErrPermissionDenied.WithDetail("account %s is neither owner nor %s", caller, RoleCompliance)
	}
	if d.Revoked {
		return Receipt{DatasetID: id}, nil
	}
	d.Revoked = true
	ev := s.emit(at, EventDatasetRevoked, map[string]string{
		"datasetId": formatID(id),
		"revokedBy": caller,
	})
	return Receipt{DatasetID: id, Events: []Event{ev}}, nil
}

// Dataset devuelve una copia del dataset.
func (s *State) Dataset(id uint64) (Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, err := s.datasetLocked(id)
	if err != nil {
		return Dataset{}, err
	}
	return d.clone(), nil
}

// Datasets lista datasets por ID ascendente, paginado. Devuelve además el total.
func (s *State) Datasets(offset, limit int) ([]Dataset, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.datasets)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []Dataset{}, total
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]Dataset, 0, end-offset)
	for _, d := range s.datasets[offset:end] {
		out = append(out, d.clone())
	}
	return out, total
}

// DatasetCount devuelve la cantidad de datasets registrados.
func (s *State) DatasetCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.datasets))
}

func formatID(id uint64) string { return strconv.FormatUint(id, 10) }
