package services

import (
	"context"
	"fmt"

	"github.com/iota-uz/bookkeeper/pkg/composables"
)

const accountTotalsView = "journal_account_totals"

type ViewRefresher struct {
	views []string
}

func NewViewRefresher() *ViewRefresher {
	return &ViewRefresher{views: []string{accountTotalsView}}
}

// Refresh rebuilds the ledger materialized views without blocking readers.
func (r *ViewRefresher) Refresh(ctx context.Context) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	for _, v := range r.views {
		if _, err := tx.Exec(ctx, "REFRESH MATERIALIZED VIEW CONCURRENTLY "+v); err != nil {
			return fmt.Errorf("refresh %s: %w", v, err)
		}
	}
	return nil
}
