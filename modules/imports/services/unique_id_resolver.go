package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/iota-uz/bookkeeper/modules/imports/domain/entities/importitem"
)

// ExistingLookup returns the subset of keys already present in domain rows.
type ExistingLookup func(ctx context.Context, keys []string) ([]string, error)

type UniqueIDResolver struct {
	items importitem.Repository
}

func NewUniqueIDResolver(items importitem.Repository) *UniqueIDResolver {
	return &UniqueIDResolver{items: items}
}

// Existing returns which keys were seen before: in domain rows via lookup and, unless
// checkImportedOnly, on item details of other imports.
func (r *UniqueIDResolver) Existing(
	ctx context.Context,
	importID uuid.UUID,
	keys []string,
	lookup ExistingLookup,
	checkImportedOnly bool,
) (map[string]struct{}, error) {
	out := map[string]struct{}{}
	keys = distinctNonEmpty(keys)
	if len(keys) == 0 {
		return out, nil
	}

	if lookup != nil {
		found, err := lookup(ctx, keys)
		if err != nil {
			return nil, fmt.Errorf("lookup domain unique ids: %w", err)
		}
		for _, k := range found {
			out[k] = struct{}{}
		}
	}
	if checkImportedOnly {
		return out, nil
	}

	seen, err := r.items.ExistingUniqueIDs(ctx, keys, importID)
	if err != nil {
		return nil, fmt.Errorf("lookup prior import items: %w", err)
	}
	for _, k := range seen {
		out[k] = struct{}{}
	}
	return out, nil
}

func distinctNonEmpty(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
