package facade

import (
	"context"
	"time"

	"github.com/dropDatabas3/dataledger/internal/cluster"
	"github.com/dropDatabas3/dataledger/internal/domain/repository"
	"github.com/dropDatabas3/dataledger/internal/ledger"
	"github.com/dropDatabas3/dataledger/internal/observability/logger"
)

// PurchaseLicense compra con el now que pasa el caller; ese instante queda
// como IssuedAt en todos los nodos.
func (s *service) PurchaseLicense(ctx context.Context, caller string, datasetID uint64, now time.Time) (string, error) {
	if err := requireAccount(caller, "licensee"); err != nil {
		return "", err
	}
	if now.IsZero() {
		now = s.now()
	}
	// la mutación viaja en UnixNano: fuera de 1678..2262 el instante se
	// corrompe y la licencia nacería ya vencida
	if !time.Unix(0, now.UnixNano()).Equal(now) {
		return "", ledger.ErrInvalidInput.WithDetail("purchase time %s out of range", now.UTC().Format(time.RFC3339))
	}
	ctx = logger.Scoped(ctx, logger.Op("PurchaseLicense"), logger.DatasetID(datasetID))

	rec, err := s.submit(ctx, repository.MutationLicensePurchase, caller, now.UTC(),
		cluster.DatasetRefDTO{DatasetID: datasetID})
	if err != nil {
		return "", err
	}
	logger.From(ctx).Info("license granted", logger.LicenseID(rec.LicenseID), logger.Account(caller))
	return rec.LicenseID, nil
}

func (s *service) RevokeLicense(ctx context.Context, caller string, datasetID uint64, licensee string) error {
	if err := requireAccount(licensee, "licensee"); err != nil {
		return err
	}
	_, err := s.submit(ctx, repository.MutationLicenseRevoke, caller, s.now(),
		cluster.RevokeLicenseDTO{DatasetID: datasetID, Licensee: licensee})
	return err
}

func (s *service) IsLicenseValid(ctx context.Context, datasetID uint64, licensee string, now time.Time) bool {
	return s.state.IsLicenseValid(datasetID, licensee, now)
}

func (s *service) GetLicense(ctx context.Context, licenseID string) (ledger.License, error) {
	return s.state.License(licenseID)
}

func (s *service) LicensesOf(ctx context.Context, licensee string) []ledger.License {
	return s.state.LicensesOf(licensee)
}

// ActiveLicense devuelve la licencia vigente del par ahora mismo. Una
// revocada o vencida cuenta como inexistente.
func (s *service) ActiveLicense(ctx context.Context, datasetID uint64, licensee string) (ledger.License, error) {
	lic, err := s.state.LatestLicense(datasetID, licensee)
	if err != nil {
		return ledger.License{}, err
	}
	if !lic.ValidAt(s.now()) {
		return ledger.License{}, ledger.ErrLicenseNotFound.WithDetail("dataset %d licensee %s has no active license", datasetID, licensee)
	}
	return lic, nil
}
