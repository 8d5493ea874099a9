package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/iota-uz/bookkeeper/modules/ledger/domain/aggregates/transaction"
	"github.com/iota-uz/bookkeeper/modules/ledger/domain/entities/entity"
)

// ImportLinkService answers which ledger rows still point at an import and detaches them.
type ImportLinkService struct {
	entities     entity.Repository
	transactions transaction.Repository
}

func NewImportLinkService(entities entity.Repository, transactions transaction.Repository) *ImportLinkService {
	return &ImportLinkService{
		entities:     entities,
		transactions: transactions,
	}
}

// CountByImport sums ledger rows of every kind tagged with importID.
func (s *ImportLinkService) CountByImport(ctx context.Context, importID uuid.UUID) (int64, error) {
	total, err := s.transactions.CountByImport(ctx, importID)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	for _, kind := range entity.Kinds {
		n, err := s.entities.CountByImport(ctx, kind, importID)
		if err != nil {
			return 0, fmt.Errorf("count %s: %w", kind, err)
		}
		total += n
	}
	return total, nil
}

// ClearImport nulls import_id and import_detail_id on every ledger row referencing importID.
func (s *ImportLinkService) ClearImport(ctx context.Context, importID uuid.UUID) (int64, error) {
	total, err := s.transactions.ClearImport(ctx, importID)
	if err != nil {
		return 0, err
	}
	for _, kind := range entity.Kinds {
		n, err := s.entities.ClearImport(ctx, kind, importID)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
