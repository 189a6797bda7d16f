// Package orphans records organizations whose onboarding stopped after the
// organization vertex was written but before its default site was. The
// reconciliation pass reads the ledger, repairs each entry and resolves it.
package orphans

import (
	"context"
	"sort"
	"sync"
	"time"

	id "smarttracing/pkg/domain"
)

// Entry is one organization left without its default site.
type Entry struct {
	OrganizationID id.OrganizationID `json:"organization_id"`
	Reason         string            `json:"reason"`
	RecordedAt     time.Time         `json:"recorded_at"`
	// SiteCategory and SiteSubcategory are what the default site was to be
	// created with.
	SiteCategory    string `json:"site_category,omitempty"`
	SiteSubcategory string `json:"site_subcategory,omitempty"`
}

// Ledger stores entries keyed by organization id. Recording the same
// organization twice keeps the latest entry.
type Ledger interface {
	Record(ctx context.Context, entry Entry) error
	// List returns every open entry, oldest first.
	List(ctx context.Context) ([]Entry, error)
	// Resolve removes the entry for orgID. Resolving an unknown id is a no-op.
	Resolve(ctx context.Context, orgID id.OrganizationID) error
}

// InMemory is a process-local Ledger.
type InMemory struct {
	mu      sync.RWMutex
	entries map[id.OrganizationID]Entry
}

var _ Ledger = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[id.OrganizationID]Entry)}
}

func (l *InMemory) Record(_ context.Context, entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[entry.OrganizationID] = entry
	return nil
}

func (l *InMemory) List(_ context.Context) ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

func (l *InMemory) Resolve(_ context.Context, orgID id.OrganizationID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, orgID)
	return nil
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].RecordedAt.Equal(entries[j].RecordedAt) {
			return entries[i].OrganizationID < entries[j].OrganizationID
		}
		return entries[i].RecordedAt.Before(entries[j].RecordedAt)
	})
}
