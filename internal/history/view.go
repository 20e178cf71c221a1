// Package history lists the user's past deposits, one page per request.
package history

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/vietddude/bridge/internal/core/domain"
)

const DefaultPageSize = 20

// Source fetches a page of deposit records.
type Source interface {
	ListDeposits(ctx context.Context, userID string, page, limit int) ([]domain.HistoryEntry, error)
}

type pageKey struct {
	userID string
	page   int
	limit  int
}

// View is a read-only, paginated view of deposit history. Pages are cached
// until Invalidate is called.
type View struct {
	source   Source
	pageSize int
	log      *slog.Logger

	mu    sync.Mutex
	pages map[pageKey][]domain.HistoryEntry
}

func NewView(source Source, pageSize int) *View {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &View{
		source:   source,
		pageSize: pageSize,
		log:      slog.Default().With("component", "history"),
		pages:    make(map[pageKey][]domain.HistoryEntry),
	}
}

// List fetches one page, most recent first. Errors are logged and an empty
// list is returned.
func (v *View) List(ctx context.Context, userID string, page, limit int) []domain.HistoryEntry {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = v.pageSize
	}
	key := pageKey{userID: userID, page: page, limit: limit}

	v.mu.Lock()
	cached, ok := v.pages[key]
	v.mu.Unlock()
	if ok {
		return cached
	}

	entries, err := v.source.ListDeposits(ctx, userID, page, limit)
	if err != nil {
		v.log.Warn("fetch deposit history failed", "user", userID, "page", page, "error", err)
		return []domain.HistoryEntry{}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}

	v.mu.Lock()
	v.pages[key] = entries
	v.mu.Unlock()
	return entries
}

// Page fetches a page with the configured page size.
func (v *View) Page(ctx context.Context, userID string, page int) []domain.HistoryEntry {
	return v.List(ctx, userID, page, v.pageSize)
}

// Invalidate drops every cached page so the next read refetches.
func (v *View) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pages = make(map[pageKey][]domain.HistoryEntry)
}
