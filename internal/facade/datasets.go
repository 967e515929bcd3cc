package facade

import (
	"context"

	"github.com/dropDatabas3/dataledger/internal/cluster"
	"github.com/dropDatabas3/dataledger/internal/domain/repository"
	"github.com/dropDatabas3/dataledger/internal/ledger"
	"github.com/dropDatabas3/dataledger/internal/observability/logger"
)

// DatasetInput son los datos de registro tal como llegan del caller. Price
// es con signo para poder rechazar precios negativos.
type DatasetInput struct {
	ContentAddress string
	Name           string
	Description    string
	Price          int64
	Visibility     string
	Categories     []string
}

func (s *service) RegisterDataset(ctx context.Context, owner string, in DatasetInput) (uint64, error) {
	if err := requireAccount(owner, "owner"); err != nil {
		return 0, err
	}
	if in.Price < 0 {
		return 0, ledger.ErrInvalidInput.WithDetail("price must not be negative")
	}
	vis, ok := ledger.ParseVisibility(in.Visibility)
	if !ok {
		return 0, ledger.ErrInvalidInput.WithDetail("unknown visibility %q", in.Visibility)
	}

	rec, err := s.submit(ctx, repository.MutationDatasetRegister, owner, s.now(), cluster.RegisterDatasetDTO{
		ContentAddress: in.ContentAddress,
		Name:           in.Name,
		Description:    in.Description,
		Price:          uint64(in.Price),
		Visibility:     vis,
		Categories:     in.Categories,
	})
	if err != nil {
		return 0, err
	}
	logger.From(ctx).Info("dataset registered", logger.DatasetID(rec.DatasetID), logger.Account(owner))
	return rec.DatasetID, nil
}

func (s *service) UpdatePrice(ctx context.Context, caller string, datasetID uint64, newPrice int64) error {
	if newPrice < 0 {
		return ledger.ErrInvalidInput.WithDetail("price must not be negative")
	}
	_, err := s.submit(ctx, repository.MutationDatasetUpdatePrice, caller, s.now(),
		cluster.UpdatePriceDTO{DatasetID: datasetID, NewPrice: uint64(newPrice)})
	return err
}

func (s *service) AddCategory(ctx context.Context, caller string, datasetID uint64, category string) error {
	_, err := s.submit(ctx, repository.MutationDatasetAddCategory, caller, s.now(),
		cluster.AddCategoryDTO{DatasetID: datasetID, Category: category})
	return err
}

func (s *service) RevokeDataset(ctx context.Context, caller string, datasetID uint64) error {
	_, err := s.submit(ctx, repository.MutationDatasetRevoke, caller, s.now(),
		cluster.DatasetRefDTO{DatasetID: datasetID})
	return err
}

// GetDataset lee del cache y, si no está, del estado local.
func (s *service) GetDataset(ctx context.Context, datasetID uint64) (ledger.Dataset, error) {
	key := datasetKey(datasetID)
	if v, ok := s.cache.Get(key); ok {
		d := v.(ledger.Dataset)
		d.Categories = append([]string(nil), d.Categories...)
		return d, nil
	}
	gen := s.gen.Load()
	d, err := s.state.Dataset(datasetID)
	if err != nil {
		return ledger.Dataset{}, err
	}
	// si hubo una invalidación mientras leíamos, no cachear una copia vieja
	s.cacheMu.Lock()
	if s.gen.Load() == gen {
		if s.beforeCacheStore != nil {
			s.beforeCacheStore()
		}
		s.cache.SetDefault(key, d)
	}
	s.cacheMu.Unlock()
	return d, nil
}

func (s *service) ListDatasets(ctx context.Context, offset, limit int) ([]ledger.Dataset, int) {
	return s.state.Datasets(offset, limit)
}

func (s *service) DatasetCount(ctx context.Context) uint64 { return s.state.DatasetCount() }
