package pipeline

import (
	"github.com/leadsift/leadsift/model"
)

// existingIdFilter is the store-side half of dedup: one batched IN query.
type existingIdFilter interface {
	FilterNewExternalIds(ids []string) ([]string, error)
}

// seenCache is the optional fast path in front of the store. It may return
// false negatives; the store's unique index remains the backstop under
// concurrent overlapping runs.
type seenCache interface {
	FilterUnseen(ids []string) []string
	MarkSeen(ids []string)
}

// Deduplicator drops content items whose external id already has a lead row.
type Deduplicator struct {
	Repo  existingIdFilter
	Cache seenCache // nil disables the cache layer
}

func NewDeduplicator(repo existingIdFilter, cache seenCache) *Deduplicator {
	return &Deduplicator{Repo: repo, Cache: cache}
}

// FilterNew returns the items not yet known to the lead store, preserving
// input order. Duplicates inside the batch itself are collapsed too.
func (d *Deduplicator) FilterNew(items []model.ContentItem) ([]model.ContentItem, error) {
	if len(items) == 0 {
		return items, nil
	}

	ids := []string{}
	seenInBatch := map[string]bool{}
	deduped := []model.ContentItem{}
	for _, item := range items {
		if seenInBatch[item.ExternalId] {
			continue
		}
		seenInBatch[item.ExternalId] = true
		ids = append(ids, item.ExternalId)
		deduped = append(deduped, item)
	}

	if d.Cache != nil {
		ids = d.Cache.FilterUnseen(ids)
	}

	fresh, err := d.Repo.FilterNewExternalIds(ids)
	if err != nil {
		return nil, err
	}

	freshSet := map[string]bool{}
	for _, id := range fresh {
		freshSet[id] = true
	}

	res := []model.ContentItem{}
	for _, item := range deduped {
		if freshSet[item.ExternalId] {
			res = append(res, item)
		}
	}
	return res, nil
}

// MarkSeen records ids in the cache after their leads were stored.
func (d *Deduplicator) MarkSeen(ids []string) {
	if d.Cache != nil && len(ids) > 0 {
		d.Cache.MarkSeen(ids)
	}
}
