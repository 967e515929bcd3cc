package facade

import (
	"context"

	"github.com/dropDatabas3/dataledger/internal/cluster"
	"github.com/dropDatabas3/dataledger/internal/domain/repository"
	"github.com/dropDatabas3/dataledger/internal/ledger"
)

func (s *service) PerformAudit(ctx context.Context, caller string, datasetID uint64, notes string, passed bool) error {
	_, err := s.submit(ctx, repository.MutationAuditPerform, caller, s.now(),
		cluster.AuditDTO{DatasetID: datasetID, Notes: notes, Passed: passed})
	return err
}

func (s *service) UpdateGDPRConsent(ctx context.Context, caller string, datasetID uint64, consentGiven bool, rights []string) error {
	_, err := s.submit(ctx, repository.MutationConsentUpdate, caller, s.now(),
		cluster.ConsentDTO{DatasetID: datasetID, ConsentGiven: consentGiven, Rights: rights})
	return err
}

func (s *service) GetAuditTrail(ctx context.Context, datasetID uint64) ([]ledger.AuditRecord, error) {
	return s.state.AuditTrail(datasetID)
}

func (s *service) GetGDPRStatus(ctx context.Context, datasetID uint64) (ledger.ConsentRecord, error) {
	return s.state.GDPRStatus(datasetID)
}
