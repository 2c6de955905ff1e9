// Package widget builds the read-only timelines shown by home-screen
// widgets: a progress snapshot or the next unchecked items of one list.
package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/shopping"
	"github.com/google/uuid"
)

type Kind string

const (
	KindProgress Kind = "progress"
	KindItems    Kind = "items"
)

var ErrUnknownKind = errors.New("unknown widget kind")

// Placeholder reasons.
const (
	ReasonNoList    = "no_list"
	ReasonInvalidID = "invalid_id"
	ReasonNotFound  = "not_found"
	ReasonCompleted = "completed"
)

// ListSource is the read-only view of the store a widget needs.
// *store.ListStore implements it.
type ListSource interface {
	GetListByUID(ctx context.Context, uid string) (*model.ShoppingList, error)
	Summary(ctx context.Context, listID int64) (model.Summary, error)
	Items(ctx context.Context, listID int64, order model.SortOrder) ([]model.ListItem, error)
}

type Progress struct {
	Name         string  `json:"name"`
	CheckedCount int     `json:"checked_count"`
	TotalCount   int     `json:"total_count"`
	TotalCost    float64 `json:"total_cost"`
	Ratio        float64 `json:"ratio"`
}

type ItemLine struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// Items lists the first unchecked lines of a list in its sort order.
// Remaining counts unchecked lines that did not fit.
type Items struct {
	Name      string     `json:"name"`
	Items     []ItemLine `json:"items"`
	Remaining int        `json:"remaining"`
	ToSpend   float64    `json:"to_spend"`
}

// Entry is one timeline snapshot. Exactly one of Progress and Items is set
// unless the entry is a placeholder.
type Entry struct {
	Date        time.Time `json:"date"`
	ListUID     string    `json:"list_uid,omitempty"`
	Placeholder bool      `json:"placeholder"`
	Reason      string    `json:"reason,omitempty"`
	Progress    *Progress `json:"progress,omitempty"`
	Items       *Items    `json:"items,omitempty"`
}

// Timeline is what a widget renders until RefreshAt.
type Timeline struct {
	Kind      Kind      `json:"kind"`
	Entries   []Entry   `json:"entries"`
	RefreshAt time.Time `json:"refresh_at"`
}

type Provider struct {
	lists    ListSource
	maxItems int
	refresh  time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

func NewProvider(lists ListSource, maxItems int, refresh time.Duration, logger *slog.Logger) *Provider {
	return &Provider{
		lists:    lists,
		maxItems: maxItems,
		refresh:  refresh,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// Timeline builds a single-entry timeline for the list identified by
// listUID. A missing, malformed, unknown or completed list yields a
// placeholder entry rather than an error.
func (p *Provider) Timeline(ctx context.Context, kind Kind, listUID string) (Timeline, error) {
	if kind != KindProgress && kind != KindItems {
		return Timeline{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	now := p.now()
	entry, err := p.entry(ctx, kind, listUID, now)
	if err != nil {
		return Timeline{}, err
	}
	return Timeline{
		Kind:      kind,
		Entries:   []Entry{entry},
		RefreshAt: now.Add(p.refresh),
	}, nil
}

func (p *Provider) entry(ctx context.Context, kind Kind, listUID string, now time.Time) (Entry, error) {
	placeholder := func(reason string) Entry {
		p.logger.Debug("widget placeholder", "kind", kind, "list_uid", listUID, "reason", reason)
		return Entry{Date: now, ListUID: listUID, Placeholder: true, Reason: reason}
	}

	if listUID == "" {
		return placeholder(ReasonNoList), nil
	}
	if _, err := uuid.Parse(listUID); err != nil {
		return placeholder(ReasonInvalidID), nil
	}

	list, err := p.lists.GetListByUID(ctx, listUID)
	if err != nil {
		return Entry{}, err
	}
	if list == nil {
		return placeholder(ReasonNotFound), nil
	}
	if !list.IsActive() {
		return placeholder(ReasonCompleted), nil
	}

	e := Entry{Date: now, ListUID: listUID}
	switch kind {
	case KindProgress:
		sum, err := p.lists.Summary(ctx, list.ID)
		if err != nil {
			return Entry{}, err
		}
		e.Progress = &Progress{
			Name:         list.Name,
			CheckedCount: sum.CheckedItemsCount,
			TotalCount:   sum.ItemCount,
			TotalCost:    sum.TotalCost,
			Ratio:        shopping.Progress(sum),
		}
	case KindItems:
		items, err := p.lists.Items(ctx, list.ID, list.SortOrder)
		if err != nil {
			return Entry{}, err
		}
		e.Items = p.unchecked(list.Name, items)
	}
	return e, nil
}

func (p *Provider) unchecked(name string, items []model.ListItem) *Items {
	var open []model.ListItem
	for _, item := range items {
		if !item.IsChecked {
			open = append(open, item)
		}
	}

	snap := &Items{Name: name, Items: []ItemLine{}, ToSpend: shopping.TotalCost(open)}
	for i, item := range open {
		if i == p.maxItems {
			snap.Remaining = len(open) - p.maxItems
			break
		}
		snap.Items = append(snap.Items, ItemLine{
			Name:     item.ItemName,
			Price:    item.Price,
			Quantity: item.Quantity,
			Unit:     item.DisplayUnit(),
		})
	}
	return snap
}
